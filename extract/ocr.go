// CLAUDE:SUMMARY OCR engine abstraction — tesseract subprocess with dual-language default (eng+mal).
package extract

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// DefaultOCRLanguages is the dual-language model applied when none is
// configured: English plus Malayalam, matching the document corpus this
// pipeline was built for.
const DefaultOCRLanguages = "eng+mal"

// OCREngine runs optical character recognition over one image file.
// Engines are stateless; calls may run concurrently across files. OCR is
// CPU- or subprocess-bound — callers wanting bounded latency wrap the call
// in a context deadline.
type OCREngine interface {
	// Name identifies the engine in result metadata (e.g. "tesseract").
	Name() string

	// ImageToText returns the recognized text for the image at path.
	ImageToText(ctx context.Context, path string) (string, error)
}

// Tesseract shells out to the tesseract binary. The zero value is usable:
// binary "tesseract" from PATH, languages DefaultOCRLanguages.
type Tesseract struct {
	Binary    string // tesseract executable, default "tesseract"
	Languages string // "+"-joined language codes, default DefaultOCRLanguages
}

// NewTesseract returns a Tesseract engine with defaults applied.
func NewTesseract() *Tesseract {
	return &Tesseract{Binary: "tesseract", Languages: DefaultOCRLanguages}
}

// Name implements OCREngine.
func (t *Tesseract) Name() string { return "tesseract" }

func (t *Tesseract) binary() string {
	if t.Binary != "" {
		return t.Binary
	}
	return "tesseract"
}

func (t *Tesseract) languages() string {
	if t.Languages != "" {
		return t.Languages
	}
	return DefaultOCRLanguages
}

// ImageToText runs tesseract over the image and returns stdout.
func (t *Tesseract) ImageToText(ctx context.Context, path string) (string, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, t.binary(), path, "stdout", "-l", t.languages())
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return "", fmt.Errorf("tesseract: %w: %s", err, msg)
		}
		return "", fmt.Errorf("tesseract: %w", err)
	}
	return stdout.String(), nil
}

// Available reports whether the tesseract binary can be found. Used by the
// CLI selfcheck; extraction itself degrades per-unit when OCR fails.
func (t *Tesseract) Available() error {
	if _, err := exec.LookPath(t.binary()); err != nil {
		return fmt.Errorf("tesseract not found: %w", err)
	}
	return nil
}
