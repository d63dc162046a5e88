// CLAUDE:SUMMARY Image strategy — single-shot OCR with pixel dimensions from the image header.
package extract

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"os"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
)

// ImageStrategy runs the OCR engine over the whole image.
//
// Metadata schema: ocr_method (string, engine name), image_size ([]int
// {width, height}, nil until the header decodes), error (string, on failure).
type ImageStrategy struct {
	OCR    OCREngine
	Logger *slog.Logger
}

// Extract implements Strategy.
func (s *ImageStrategy) Extract(ctx context.Context, path string) *Result {
	method := "none"
	if s.OCR != nil {
		method = s.OCR.Name()
	}
	result := newResult(map[string]any{
		"ocr_method": method,
		"image_size": nil,
	})

	f, err := os.Open(path)
	if err != nil {
		return result.fail(fmt.Errorf("open image: %w", err))
	}
	cfg, _, err := image.DecodeConfig(f)
	f.Close()
	if err != nil {
		return result.fail(fmt.Errorf("decode image header: %w", err))
	}
	result.Metadata["image_size"] = []int{cfg.Width, cfg.Height}

	if s.OCR == nil {
		return result.fail(fmt.Errorf("no OCR engine configured"))
	}
	text, err := s.OCR.ImageToText(ctx, path)
	if err != nil {
		return result.fail(fmt.Errorf("ocr: %w", err))
	}
	result.Text = text
	return result
}
