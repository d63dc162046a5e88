// CLAUDE:SUMMARY Uniform extraction contract — Result model, Strategy interface, and the tag→strategy Registry.
// Package extract converts arbitrary document formats into a uniform
// (text, metadata) representation.
//
// One Strategy per format tag:
//   - PDF    — per-page direct text via pdfcpu, OCR fallback for scanned pages
//   - IMAGE  — whole-image OCR (tesseract, eng+mal by default)
//   - DOCX   — archive/zip → word/document.xml, paragraphs + tables
//   - DXF    — ASCII DXF group-code walk, text entities + layers
//   - CSV    — multi-encoding decode, bounded tabular preview
//   - TXT    — multi-encoding decode, verbatim content
//
// Aliases (DOC→DOCX, DWG→DXF, XLSX→CSV) are explicit configuration data in
// DefaultBindings, not fallback logic.
//
// Every Strategy.Extract call returns a Result and never an error: internal
// failures are caught at the narrowest scope and recorded under the "error"
// metadata key, so one malformed file never aborts a batch. The single
// exception is Registry.Get, which fails for an unknown tag — that is a
// detector/factory contract violation, not a data-quality issue.
//
// Usage:
//
//	reg := extract.NewRegistry(extract.WithOCR(extract.NewTesseract()))
//	strat, err := reg.Get(extract.FormatPDF)
//	res := strat.Extract(ctx, "/path/to/file.pdf")
//	if msg, failed := res.Err(); failed { ... }
package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Format identifies a document type. Tags are produced by the detect package
// and consumed by Registry.Get.
type Format string

const (
	FormatPDF   Format = "PDF"
	FormatImage Format = "IMAGE"
	FormatDocx  Format = "DOCX"
	FormatDoc   Format = "DOC"
	FormatDXF   Format = "DXF"
	FormatDWG   Format = "DWG"
	FormatCSV   Format = "CSV"
	FormatXLSX  Format = "XLSX"
	FormatTXT   Format = "TXT"
)

// sectionSep joins extracted sections (pages, paragraphs, tables) in Result.Text.
const sectionSep = "\n\n"

// Result is the uniform output of any strategy.
//
// Text is always a string, possibly empty. Metadata is always non-nil and
// carries the fixed per-format schema plus an optional "error" key describing
// a partial or total failure. An "error" never removes fields collected
// before the failure point — extraction is best-effort, not all-or-nothing.
type Result struct {
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata"`
}

func newResult(meta map[string]any) *Result {
	return &Result{Metadata: meta}
}

// fail records err under the "error" metadata key. Collected text and
// metadata stay in place.
func (r *Result) fail(err error) *Result {
	r.Metadata["error"] = err.Error()
	return r
}

// Err returns the recorded failure description and whether one is present.
func (r *Result) Err() (string, bool) {
	v, ok := r.Metadata["error"]
	if !ok {
		return "", false
	}
	s, _ := v.(string)
	return s, true
}

// Strategy extracts text and metadata from a single file. Implementations are
// stateless and safe for concurrent use across different files; any resource
// they open (file handles, document handles, temp dirs) is released before
// Extract returns, on every exit path.
type Strategy interface {
	Extract(ctx context.Context, path string) *Result
}

// ErrUnsupportedFormat is returned by Registry.Get for tags with no strategy.
var ErrUnsupportedFormat = errors.New("no strategy available")

// DefaultBindings maps every supported tag to the tag whose strategy serves
// it. Aliases reuse another format's strategy:
//
//	DOC  → DOCX  (legacy Word documents, best-effort)
//	DWG  → DXF   (always degrades to the placeholder — DWG is a binary format
//	              the DXF parser rejects; kept so DWG files are not dropped)
//	XLSX → CSV   (reduced fidelity; the tabular strategy cannot open the
//	              zip container and records a decode error — known limitation)
var DefaultBindings = map[Format]Format{
	FormatPDF:   FormatPDF,
	FormatImage: FormatImage,
	FormatDocx:  FormatDocx,
	FormatDoc:   FormatDocx,
	FormatDXF:   FormatDXF,
	FormatDWG:   FormatDXF,
	FormatCSV:   FormatCSV,
	FormatXLSX:  FormatCSV,
	FormatTXT:   FormatTXT,
}

// Registry maps format tags to ready-to-use strategy instances.
// Strategies are stateless singletons shared across lookups.
type Registry struct {
	strategies map[Format]Strategy
	logger     *slog.Logger
}

// RegistryOption configures a Registry.
type RegistryOption func(*registryConfig)

type registryConfig struct {
	ocr    OCREngine
	logger *slog.Logger
}

// WithOCR sets the OCR engine used by the PDF and IMAGE strategies.
// Without it, scanned PDF pages are skipped and image extraction fails
// with an "error" metadata entry.
func WithOCR(engine OCREngine) RegistryOption {
	return func(c *registryConfig) { c.ocr = engine }
}

// WithLogger sets the logger passed to every strategy.
func WithLogger(l *slog.Logger) RegistryOption {
	return func(c *registryConfig) { c.logger = l }
}

// NewRegistry builds the default tag→strategy mapping per DefaultBindings.
func NewRegistry(opts ...RegistryOption) *Registry {
	cfg := registryConfig{logger: slog.Default()}
	for _, o := range opts {
		o(&cfg)
	}

	primaries := map[Format]Strategy{
		FormatPDF:   &PDFStrategy{OCR: cfg.ocr, Logger: cfg.logger},
		FormatImage: &ImageStrategy{OCR: cfg.ocr, Logger: cfg.logger},
		FormatDocx:  &DocxStrategy{Logger: cfg.logger},
		FormatDXF:   &CADStrategy{Logger: cfg.logger},
		FormatCSV:   &CSVStrategy{Logger: cfg.logger},
		FormatTXT:   &TXTStrategy{Logger: cfg.logger},
	}

	r := &Registry{
		strategies: make(map[Format]Strategy, len(DefaultBindings)),
		logger:     cfg.logger,
	}
	for tag, primary := range DefaultBindings {
		r.strategies[tag] = primaries[primary]
	}
	return r
}

// Register binds a strategy to a tag, adding a new format or overriding an
// existing one. Existing bindings are untouched.
func (r *Registry) Register(tag Format, s Strategy) {
	r.strategies[tag] = s
}

// Get returns the strategy for tag, or an ErrUnsupportedFormat-wrapped error
// naming the tag.
func (r *Registry) Get(tag Format) (Strategy, error) {
	s, ok := r.strategies[tag]
	if !ok {
		return nil, fmt.Errorf("%w for file type: %s", ErrUnsupportedFormat, tag)
	}
	return s, nil
}

// Formats returns every registered tag.
func (r *Registry) Formats() []Format {
	tags := make([]Format, 0, len(r.strategies))
	for tag := range r.strategies {
		tags = append(tags, tag)
	}
	return tags
}
