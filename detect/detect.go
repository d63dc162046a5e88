// CLAUDE:SUMMARY Content-signature file type detection → canonical format tag + MIME string.
// Package detect resolves a file's canonical format tag from its content
// signature. Detection is magic-byte based, not extension based, so a
// spoofed extension cannot route a file to the wrong strategy; the
// extension only breaks ties between text-like formats that share a
// signature (CSV vs TXT, ASCII DXF saved as .txt).
package detect

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/metrorail/docflow/extract"
)

// ErrUnknownFormat means the content matched no supported format.
var ErrUnknownFormat = errors.New("unsupported file format")

// Detector inspects file content and returns a format tag plus the detected
// MIME string. The zero value is ready to use.
type Detector struct{}

// Detect returns the canonical format tag and MIME type for the file at path.
func (d *Detector) Detect(path string) (extract.Format, string, error) {
	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return "", "", fmt.Errorf("detect %s: %w", path, err)
	}
	mime := mtype.String()

	switch {
	case mtype.Is("application/pdf"):
		return extract.FormatPDF, mime, nil
	case mtype.Is("application/vnd.openxmlformats-officedocument.wordprocessingml.document"):
		return extract.FormatDocx, mime, nil
	case mtype.Is("application/msword"):
		return extract.FormatDoc, mime, nil
	case mtype.Is("application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"):
		return extract.FormatXLSX, mime, nil
	case mtype.Is("image/vnd.dxf"):
		return extract.FormatDXF, mime, nil
	case mtype.Is("image/vnd.dwg"):
		return extract.FormatDWG, mime, nil
	case strings.HasPrefix(mime, "image/"):
		return extract.FormatImage, mime, nil
	case mtype.Is("text/csv"):
		return extract.FormatCSV, mime, nil
	case strings.HasPrefix(mime, "text/"):
		return textTag(path), mime, nil
	}

	// Signature unknown; the extension is the last resort for formats whose
	// magic is weak or version-dependent.
	if tag, ok := extensionFallback[strings.ToLower(filepath.Ext(path))]; ok {
		return tag, mime, nil
	}
	return "", mime, fmt.Errorf("%w: %s (%s)", ErrUnknownFormat, filepath.Base(path), mime)
}

// textTag breaks the text/plain tie by extension.
func textTag(path string) extract.Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return extract.FormatCSV
	case ".dxf":
		return extract.FormatDXF
	default:
		return extract.FormatTXT
	}
}

// extensionFallback catches formats with weak or versioned signatures.
var extensionFallback = map[string]extract.Format{
	".dwg": extract.FormatDWG,
	".dxf": extract.FormatDXF,
	".doc": extract.FormatDoc,
}

// Supported reports whether a tag has a registered default strategy.
func Supported(tag extract.Format) bool {
	_, ok := extract.DefaultBindings[tag]
	return ok
}
