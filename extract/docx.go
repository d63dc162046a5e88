// CLAUDE:SUMMARY DOCX strategy — streaming WordprocessingML parse, non-empty paragraphs plus pipe-serialized tables.
package extract

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// DocxStrategy parses a .docx archive by streaming word/document.xml.
// Paragraph text and table text are collected independently: tables are
// serialized row-by-row as pipe-delimited cells under a TABLE: marker and
// appended after the paragraph text.
//
// Metadata schema: paragraphs (int, non-empty only), tables (int),
// error (string, on failure).
type DocxStrategy struct {
	Logger *slog.Logger
}

// Extract implements Strategy.
func (s *DocxStrategy) Extract(ctx context.Context, path string) *Result {
	result := newResult(map[string]any{
		"paragraphs": 0,
		"tables":     0,
	})

	r, err := zip.OpenReader(path)
	if err != nil {
		return result.fail(fmt.Errorf("open docx archive: %w", err))
	}
	defer r.Close()

	var docFile *zip.File
	for _, f := range r.File {
		if f.Name == "word/document.xml" {
			docFile = f
			break
		}
	}
	if docFile == nil {
		return result.fail(fmt.Errorf("word/document.xml not found in archive"))
	}

	rc, err := docFile.Open()
	if err != nil {
		return result.fail(fmt.Errorf("open document.xml: %w", err))
	}
	defer rc.Close()

	paragraphs, tables, err := walkDocumentXML(rc)

	result.Metadata["paragraphs"] = len(paragraphs)
	result.Metadata["tables"] = len(tables)
	result.Text = strings.Join(append(paragraphs, tables...), sectionSep)

	// A mid-stream XML error keeps whatever was collected before it.
	if err != nil {
		return result.fail(fmt.Errorf("parse document.xml: %w", err))
	}
	return result
}

// walkDocumentXML streams WordprocessingML tokens, separating body
// paragraphs from tables. Paragraphs inside table cells belong to the cell,
// not the body count.
func walkDocumentXML(r io.Reader) (paragraphs, tables []string, err error) {
	decoder := xml.NewDecoder(r)

	var (
		paraText  strings.Builder
		cellText  strings.Builder
		tableRows []string
		rowCells  []string
		tblDepth  int
		inPara    bool
		inRun     bool // inside a w:t text run
	)

	for {
		tok, terr := decoder.Token()
		if terr == io.EOF {
			break
		}
		if terr != nil {
			return paragraphs, tables, terr
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "tbl":
				tblDepth++
				if tblDepth == 1 {
					tableRows = nil
				}
			case "tr":
				if tblDepth == 1 {
					rowCells = nil
				}
			case "tc":
				if tblDepth == 1 {
					cellText.Reset()
				}
			case "p":
				if tblDepth == 0 {
					inPara = true
					paraText.Reset()
				}
			case "t":
				inRun = true
			}

		case xml.CharData:
			if !inRun {
				continue
			}
			if tblDepth > 0 {
				cellText.Write(t)
			} else if inPara {
				paraText.Write(t)
			}

		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inRun = false
			case "p":
				if tblDepth == 0 && inPara {
					inPara = false
					if text := strings.TrimSpace(paraText.String()); text != "" {
						paragraphs = append(paragraphs, text)
					}
				}
			case "tc":
				if tblDepth == 1 {
					rowCells = append(rowCells, strings.TrimSpace(cellText.String()))
				}
			case "tr":
				if tblDepth == 1 {
					tableRows = append(tableRows, strings.Join(rowCells, " | "))
				}
			case "tbl":
				tblDepth--
				if tblDepth == 0 {
					tables = append(tables, "TABLE:\n"+strings.Join(tableRows, "\n"))
				}
			}
		}
	}

	return paragraphs, tables, nil
}
