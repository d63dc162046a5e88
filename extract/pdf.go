// CLAUDE:SUMMARY PDF strategy — per-page direct text via pdfcpu with per-page OCR fallback (go-fitz raster) and table recovery.
// CLAUDE:DEPENDS extract/ocr.go
package extract

import (
	"bytes"
	"context"
	"fmt"
	"image/jpeg"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"

	"github.com/gen2brain/go-fitz"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// minDirectTextLen is the page-level significance threshold: a page whose
// direct-extracted text, trimmed, is not longer than this is treated as
// scanned and sent to OCR instead.
const minDirectTextLen = 30

// PDFStrategy extracts text page by page. Pages with a usable text layer are
// tagged "direct"; pages below the significance threshold are rasterized and
// OCR'd, tagged "ocr". The per-page fallback tolerates mixed documents where
// scanned inserts sit between digitally authored pages.
//
// Metadata schema: pages (int), extraction_method ([]string, ordered
// page_<n>_direct / page_<n>_ocr tags), tables_found (int), error (string,
// on failure).
type PDFStrategy struct {
	OCR    OCREngine
	Logger *slog.Logger
}

func (s *PDFStrategy) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

// Extract implements Strategy.
func (s *PDFStrategy) Extract(ctx context.Context, path string) *Result {
	result := newResult(map[string]any{
		"pages":             0,
		"extraction_method": []string{},
		"tables_found":      0,
	})

	f, err := os.Open(path)
	if err != nil {
		return result.fail(fmt.Errorf("open pdf: %w", err))
	}
	defer f.Close()

	pdfCtx, err := api.ReadValidateAndOptimize(f, model.NewDefaultConfiguration())
	if err != nil {
		return result.fail(fmt.Errorf("pdfcpu read: %w", err))
	}
	result.Metadata["pages"] = pdfCtx.PageCount

	var (
		parts   []string
		methods = make([]string, 0, pdfCtx.PageCount)
		tables  int
		raster  *pageRasterizer // opened lazily, only if a page needs OCR
	)
	defer func() {
		if raster != nil {
			raster.Close()
		}
	}()

	for pageNr := 1; pageNr <= pdfCtx.PageCount; pageNr++ {
		if ctx.Err() != nil {
			result.fail(fmt.Errorf("extraction cancelled at page %d: %w", pageNr, ctx.Err()))
			break
		}

		raw := directPageText(pdfCtx, pageNr)
		pageText := tidyPageText(raw)

		if len(strings.TrimSpace(pageText)) > minDirectTextLen {
			parts = append(parts, pageText)
			methods = append(methods, fmt.Sprintf("page_%d_direct", pageNr))
		} else {
			ocrText, err := s.ocrPage(ctx, path, &raster, pageNr)
			if err != nil {
				s.logger().Warn("pdf page ocr failed",
					"path", path, "page", pageNr, "error", err)
			} else {
				parts = append(parts, ocrText)
				methods = append(methods, fmt.Sprintf("page_%d_ocr", pageNr))
			}
		}

		// Tables ride alongside the text path; a failed page never loses
		// its text over a table problem.
		for _, tbl := range tablesFromLines(raw) {
			tables++
			parts = append(parts, "TABLE:\n"+tbl)
		}
	}

	result.Text = strings.Join(parts, sectionSep)
	result.Metadata["extraction_method"] = methods
	result.Metadata["tables_found"] = tables
	return result
}

// ocrPage rasterizes one page and runs it through the OCR engine. The
// rasterizer is opened on first use and shared across pages of the document.
func (s *PDFStrategy) ocrPage(ctx context.Context, path string, raster **pageRasterizer, pageNr int) (string, error) {
	if s.OCR == nil {
		return "", fmt.Errorf("no OCR engine configured")
	}
	if *raster == nil {
		r, err := openRasterizer(path)
		if err != nil {
			return "", fmt.Errorf("open rasterizer: %w", err)
		}
		*raster = r
	}
	imgPath, err := (*raster).renderPage(pageNr)
	if err != nil {
		return "", fmt.Errorf("render page %d: %w", pageNr, err)
	}
	text, err := s.OCR.ImageToText(ctx, imgPath)
	if err != nil {
		return "", fmt.Errorf("ocr page %d: %w", pageNr, err)
	}
	return text, nil
}

// pageRasterizer renders PDF pages to JPEG files in a scoped temp dir.
// Close releases the document handle and removes every rendered image, so a
// failing document never leaks a handle into the next one.
type pageRasterizer struct {
	doc *fitz.Document
	dir string
}

func openRasterizer(path string) (*pageRasterizer, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, err
	}
	dir, err := os.MkdirTemp("", "docflow-ocr-*")
	if err != nil {
		doc.Close()
		return nil, err
	}
	return &pageRasterizer{doc: doc, dir: dir}, nil
}

// renderPage writes page pageNr (1-based) as JPEG and returns its path.
func (r *pageRasterizer) renderPage(pageNr int) (string, error) {
	img, err := r.doc.Image(pageNr - 1)
	if err != nil {
		return "", err
	}
	out := filepath.Join(r.dir, fmt.Sprintf("page_%03d.jpg", pageNr))
	f, err := os.Create(out)
	if err != nil {
		return "", err
	}
	err = jpeg.Encode(f, img, &jpeg.Options{Quality: 90})
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", err
	}
	return out, nil
}

func (r *pageRasterizer) Close() {
	if r.doc != nil {
		r.doc.Close()
		r.doc = nil
	}
	if r.dir != "" {
		os.RemoveAll(r.dir)
		r.dir = ""
	}
}

// directPageText extracts the text layer of one page via the pdfcpu content
// stream. Errors collapse to "" — the caller falls back to OCR.
func directPageText(pdfCtx *model.Context, pageNr int) string {
	r, err := pdfcpu.ExtractPageContent(pdfCtx, pageNr)
	if err != nil {
		return ""
	}
	data, err := io.ReadAll(r)
	if err != nil || len(data) == 0 {
		return ""
	}
	return parseContentStream(data)
}

// pdfStringRe matches PDF string literals in parentheses: (text here)
var pdfStringRe = regexp.MustCompile(`\(([^)]*)\)`)

// parseContentStream walks PDF content stream operators and rebuilds text.
// Horizontal positioning (Td/TD) becomes a tab, vertical moves (T*, ')
// become newlines — tablesFromLines depends on that structure.
func parseContentStream(data []byte) string {
	var sb strings.Builder

	for _, line := range bytes.Split(data, []byte{'\n'}) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}

		switch {
		// Tj / TJ show-text operators: (text) Tj, [(a) -100 (b)] TJ
		case bytes.HasSuffix(line, []byte("Tj")), bytes.HasSuffix(line, []byte("TJ")):
			for _, m := range pdfStringRe.FindAllSubmatch(line, -1) {
				sb.WriteString(decodePDFString(m[1]))
			}

		// ' operator: move to next line, then show text.
		case bytes.HasSuffix(line, []byte("'")) && bytes.Contains(line, []byte("(")):
			for _, m := range pdfStringRe.FindAllSubmatch(line, -1) {
				if text := decodePDFString(m[1]); text != "" {
					sb.WriteByte('\n')
					sb.WriteString(text)
				}
			}

		// Td/TD reposition the text cursor; rendered as a cell gap.
		case bytes.HasSuffix(line, []byte("Td")), bytes.HasSuffix(line, []byte("TD")):
			if sb.Len() > 0 {
				sb.WriteByte('\t')
			}

		// T* moves to the start of the next line.
		case bytes.Equal(line, []byte("T*")):
			sb.WriteByte('\n')
		}
	}

	return sb.String()
}

// decodePDFString handles basic PDF escape sequences, octal escapes included.
func decodePDFString(raw []byte) string {
	var sb strings.Builder
	for i := 0; i < len(raw); i++ {
		if raw[i] != '\\' || i+1 >= len(raw) {
			sb.WriteByte(raw[i])
			continue
		}
		i++
		switch raw[i] {
		case 'n':
			sb.WriteByte('\n')
		case 'r':
			sb.WriteByte('\r')
		case 't':
			sb.WriteByte('\t')
		case '\\', '(', ')':
			sb.WriteByte(raw[i])
		default:
			if raw[i] >= '0' && raw[i] <= '7' {
				val := int(raw[i] - '0')
				for n := 0; n < 2 && i+1 < len(raw) && raw[i+1] >= '0' && raw[i+1] <= '7'; n++ {
					i++
					val = val*8 + int(raw[i]-'0')
				}
				sb.WriteByte(byte(val))
			} else {
				sb.WriteByte(raw[i])
			}
		}
	}
	return sb.String()
}

// tidyPageText flattens the tab/newline scaffold of parseContentStream into
// readable page text: tabs become single spaces, space runs collapse, blank
// lines fold away.
func tidyPageText(raw string) string {
	var sb strings.Builder
	prevSpace := false
	prevNewline := false
	for _, r := range raw {
		switch {
		case r == '\n':
			if !prevNewline && sb.Len() > 0 {
				sb.WriteByte('\n')
				prevNewline = true
			}
			prevSpace = false
		case unicode.IsSpace(r):
			if !prevSpace && !prevNewline && sb.Len() > 0 {
				sb.WriteByte(' ')
				prevSpace = true
			}
		case unicode.IsPrint(r):
			sb.WriteRune(r)
			prevSpace = false
			prevNewline = false
		}
	}
	return strings.TrimSpace(sb.String())
}

// tablesFromLines recovers tabular regions from the raw page scaffold: two
// or more consecutive lines that each split into two or more tab-separated
// cells form one table. Rows are serialized pipe-delimited.
func tablesFromLines(raw string) []string {
	var (
		tables  []string
		rows    []string
		pending int // cell rows seen in the current run
	)

	flush := func() {
		if pending >= 2 {
			tables = append(tables, strings.Join(rows, "\n"))
		}
		rows = nil
		pending = 0
	}

	for _, line := range strings.Split(raw, "\n") {
		cells := splitCells(line)
		if len(cells) < 2 {
			flush()
			continue
		}
		rows = append(rows, strings.Join(cells, " | "))
		pending++
	}
	flush()

	return tables
}

// splitCells splits a scaffold line on tabs, dropping empty cells.
func splitCells(line string) []string {
	var cells []string
	for _, c := range strings.Split(line, "\t") {
		c = strings.TrimSpace(c)
		if c != "" {
			cells = append(cells, c)
		}
	}
	return cells
}
