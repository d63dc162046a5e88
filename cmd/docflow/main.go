// CLAUDE:SUMMARY CLI entry point for docflow — document intake pipeline with run, once, status and search modes.
// Command docflow is the document intake and processing daemon.
//
// Usage:
//
//	docflow -config docflow.yaml test           # validate config and dependencies
//	docflow -config docflow.yaml once [dir]     # process a directory and exit
//	docflow -config docflow.yaml run            # start all intake channels
//	docflow -config docflow.yaml status         # print processing statistics
//	docflow -config docflow.yaml search <text>  # query stored documents
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	_ "modernc.org/sqlite"

	"github.com/metrorail/docflow/channels"
	"github.com/metrorail/docflow/dispatch"
	"github.com/metrorail/docflow/extract"
	"github.com/metrorail/docflow/store"
)

func main() {
	configPath := flag.String("config", "", "path to docflow.yaml config file")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	var level slog.Level
	switch *logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, *configPath, flag.Args()); err != nil {
		logger.Error("docflow: fatal", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, configPath string, args []string) error {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "usage: docflow -config <file> test|once|run|status|search")
		os.Exit(1)
	}

	cfg := dispatch.DefaultConfig()
	if configPath != "" {
		var err error
		cfg, err = dispatch.LoadConfig(configPath)
		if err != nil {
			return err
		}
	}

	switch args[0] {
	case "test":
		return runTest(cfg)
	case "once":
		dir := cfg.StagingDir
		if len(args) > 1 {
			dir = args[1]
		}
		return runOnce(ctx, logger, cfg, dir)
	case "run":
		return runDaemon(ctx, logger, cfg)
	case "status":
		return runStatus(ctx, cfg)
	case "search":
		if len(args) < 2 {
			return fmt.Errorf("search: query argument required")
		}
		return runSearch(ctx, cfg, args[1])
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}

// runTest validates the configuration and external dependencies.
func runTest(cfg *dispatch.Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	ocr := newOCR(cfg)
	if err := ocr.Available(); err != nil {
		fmt.Printf("ocr: %v (image and scanned-PDF extraction degraded)\n", err)
	} else {
		fmt.Printf("ocr: %s ok (languages %s)\n", cfg.OCR.Binary, cfg.OCR.Languages)
	}

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer st.Close()

	reg := extract.NewRegistry()
	fmt.Printf("database: %s ok\n", cfg.DBPath)
	fmt.Printf("formats: %d registered\n", len(reg.Formats()))
	fmt.Println("config ok")
	return nil
}

// runOnce processes every file in dir and exits.
func runOnce(ctx context.Context, logger *slog.Logger, cfg *dispatch.Config, dir string) error {
	d, st, err := buildPipeline(cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	n, err := d.ProcessDir(ctx, dir, channels.ChannelFolder)
	if err != nil {
		return err
	}
	fmt.Printf("processed %d documents from %s\n", n, dir)
	return nil
}

// runDaemon starts every configured intake channel and blocks until the
// context is cancelled.
func runDaemon(ctx context.Context, logger *slog.Logger, cfg *dispatch.Config) error {
	d, st, err := buildPipeline(cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()
	handler := d.Handler()

	workers := []channels.Worker{
		channels.NewDirWatcher(cfg.WatchDirs, handler,
			channels.WithSettleDelay(cfg.Watch.SettleDelay.Std()),
			channels.WithWatcherLogger(logger)),
		channels.NewUploadServer(cfg.Listen, cfg.StagingDir, handler, st,
			channels.WithUploadLogger(logger)),
	}
	if cfg.Email.Enabled {
		workers = append(workers, channels.NewMboxWorker(cfg.Email.MboxPath, cfg.StagingDir, handler,
			channels.WithPollInterval(cfg.Email.PollInterval.Std()),
			channels.WithMboxLogger(logger)))
	}
	if cfg.SharePoint.SiteURL != "" {
		workers = append(workers, &channels.SharePointWorker{
			SiteURL: cfg.SharePoint.SiteURL,
			Library: cfg.SharePoint.Library,
			Logger:  logger,
		})
	}

	var wg sync.WaitGroup
	for _, w := range workers {
		wg.Add(1)
		go func(w channels.Worker) {
			defer wg.Done()
			if err := w.Run(ctx); err != nil && ctx.Err() == nil {
				logger.Error("channel worker failed", "worker", w.Name(), "error", err)
			}
		}(w)
	}
	logger.Info("docflow running", "workers", len(workers))
	wg.Wait()
	return nil
}

// runStatus prints processing statistics as JSON.
func runStatus(ctx context.Context, cfg *dispatch.Config) error {
	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer st.Close()

	stats, err := st.Stats(ctx)
	if err != nil {
		return err
	}
	return printJSON(stats)
}

// runSearch prints matching documents as JSON, text truncated for display.
func runSearch(ctx context.Context, cfg *dispatch.Config, query string) error {
	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer st.Close()

	docs, err := st.Search(ctx, store.Filter{Query: query})
	if err != nil {
		return err
	}
	for _, d := range docs {
		if len(d.Text) > 200 {
			d.Text = d.Text[:200] + "..."
		}
	}
	return printJSON(docs)
}

func buildPipeline(cfg *dispatch.Config, logger *slog.Logger) (*dispatch.Dispatcher, *store.Store, error) {
	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, nil, err
	}
	reg := extract.NewRegistry(
		extract.WithOCR(newOCR(cfg)),
		extract.WithLogger(logger),
	)
	events := store.NewEventLogger(st.DB())
	d := dispatch.New(reg, st, events, dispatch.WithLogger(logger))
	return d, st, nil
}

func newOCR(cfg *dispatch.Config) *extract.Tesseract {
	return &extract.Tesseract{Binary: cfg.OCR.Binary, Languages: cfg.OCR.Languages}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
