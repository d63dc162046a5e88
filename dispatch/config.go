package dispatch

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from YAML strings like "30s".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the standard library representation.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config holds the full pipeline configuration.
type Config struct {
	DBPath     string       `yaml:"db_path"`
	StagingDir string       `yaml:"staging_dir"`
	WatchDirs  []string     `yaml:"watch_dirs"`
	Listen     string       `yaml:"listen"`
	Email      EmailConfig  `yaml:"email"`
	SharePoint SPConfig     `yaml:"sharepoint"`
	OCR        OCRConfig    `yaml:"ocr"`
	Watch      WatchConfig  `yaml:"watch"`
}

// EmailConfig configures the mbox intake channel.
type EmailConfig struct {
	Enabled      bool     `yaml:"enabled"`
	MboxPath     string   `yaml:"mbox_path"`
	PollInterval Duration `yaml:"poll_interval"`
}

// SPConfig configures the SharePoint intake channel.
type SPConfig struct {
	SiteURL string `yaml:"site_url"`
	Library string `yaml:"library"`
}

// OCRConfig configures the tesseract subprocess.
type OCRConfig struct {
	Binary    string `yaml:"binary"`
	Languages string `yaml:"languages"`
}

// WatchConfig tunes the directory watcher.
type WatchConfig struct {
	SettleDelay Duration `yaml:"settle_delay"`
}

// DefaultConfig returns sane defaults.
func DefaultConfig() *Config {
	return &Config{
		DBPath:     "docflow.db",
		StagingDir: "staging",
		WatchDirs:  []string{"watch"},
		Listen:     ":8080",
		Email: EmailConfig{
			Enabled:      false,
			MboxPath:     "intake.mbox",
			PollInterval: Duration(30 * time.Second),
		},
		OCR: OCRConfig{
			Binary:    "tesseract",
			Languages: "eng+mal",
		},
		Watch: WatchConfig{
			SettleDelay: Duration(2 * time.Second),
		},
	}
}

// LoadConfig reads and parses a YAML config file. Returns DefaultConfig
// merged with the file.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Validate checks that required fields are present and values are sane.
func (c *Config) Validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("db_path is required")
	}
	if c.StagingDir == "" {
		return fmt.Errorf("staging_dir is required")
	}
	if c.Email.Enabled && c.Email.MboxPath == "" {
		return fmt.Errorf("email.mbox_path is required when email is enabled")
	}
	if c.Email.PollInterval < 0 {
		return fmt.Errorf("email.poll_interval must not be negative")
	}
	if c.OCR.Languages == "" {
		return fmt.Errorf("ocr.languages is required")
	}
	if c.Watch.SettleDelay < 0 {
		return fmt.Errorf("watch.settle_delay must not be negative")
	}
	return nil
}
