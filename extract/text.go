// CLAUDE:SUMMARY Plain-text strategy — encoding-fallback decode, verbatim content, line count.
package extract

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// TXTStrategy reads a plain text file verbatim after resolving its encoding
// against the same candidate priority as CSVStrategy.
//
// Metadata schema: encoding (string), lines (int), error (string, on
// failure). The line count splits on '\n', so a trailing newline counts one
// extra empty segment — that is the contract, not a defect.
type TXTStrategy struct {
	Logger *slog.Logger
}

// Extract implements Strategy.
func (s *TXTStrategy) Extract(ctx context.Context, path string) *Result {
	result := newResult(map[string]any{
		"encoding": "utf-8",
		"lines":    0,
	})

	data, err := os.ReadFile(path)
	if err != nil {
		return result.fail(fmt.Errorf("read text file: %w", err))
	}

	text, encName, err := decodeWithFallback(data)
	if err != nil {
		return result.fail(fmt.Errorf("decode text file: %w", err))
	}

	result.Text = text
	result.Metadata["encoding"] = encName
	result.Metadata["lines"] = len(strings.Split(text, "\n"))
	return result
}
