// CLAUDE:SUMMARY CAD strategy — ASCII DXF group-code walk for text entities, layers, and entity counts; placeholder on DWG/binary input.
package extract

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// CADStrategy extracts annotation text from ASCII DXF drawings with a single
// modelspace walk. TEXT and MTEXT payloads are appended to the output;
// DIMENSION entities contribute their text override when one is present
// (dimension geometry itself is not rendered to text).
//
// The legacy binary DWG format (and binary DXF) is not parseable here: the
// result degrades to the fixed "CAD file detected: <name>" placeholder with
// the failure reason under "error". Counts keep whatever partial values were
// accumulated before the failure.
//
// Metadata schema: entities (int), text_entities (int), layers ([]string),
// error (string, on failure).
type CADStrategy struct {
	Logger *slog.Logger
}

// Extract implements Strategy.
func (s *CADStrategy) Extract(ctx context.Context, path string) *Result {
	result := newResult(map[string]any{
		"entities":      0,
		"text_entities": 0,
		"layers":        []string{},
	})

	texts, st, err := parseDXF(path)
	result.Metadata["entities"] = st.entities
	result.Metadata["text_entities"] = st.textEntities
	result.Metadata["layers"] = st.layers

	if err != nil {
		result.fail(err)
		result.Text = placeholderPrefix + filepath.Base(path)
		return result
	}

	result.Text = strings.Join(texts, "\n")
	return result
}

const placeholderPrefix = "CAD file detected: "

// Placeholder reports whether text is a synthesized stand-in emitted when a
// drawing could not be parsed, rather than real extracted content.
func Placeholder(text string) bool { return strings.HasPrefix(text, placeholderPrefix) }

// dxfState carries the counters accumulated during a parse; returned even
// when parsing fails partway through.
type dxfState struct {
	entities     int
	textEntities int
	layers       []string
}

// dwgMagic prefixes every binary DWG file ("AC1014", "AC1027", ...).
const dwgMagic = "AC10"

// binaryDXFSentinel opens a binary-encoded DXF file.
const binaryDXFSentinel = "AutoCAD Binary DXF"

func parseDXF(path string) ([]string, dxfState, error) {
	var st dxfState
	st.layers = []string{}

	f, err := os.Open(path)
	if err != nil {
		return nil, st, fmt.Errorf("open drawing: %w", err)
	}
	defer f.Close()

	br := bufio.NewReader(f)
	if head, err := br.Peek(len(binaryDXFSentinel)); err == nil {
		switch {
		case strings.HasPrefix(string(head), dwgMagic):
			return nil, st, fmt.Errorf("legacy binary DWG format is not parseable")
		case strings.HasPrefix(string(head), binaryDXFSentinel):
			return nil, st, fmt.Errorf("binary DXF encoding is not supported")
		}
	}

	sc := bufio.NewScanner(br)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var (
		texts      []string
		section    string
		nextIs     string // pending interpretation of the next value line
		curType    string // current ENTITIES-section entity type
		curText    strings.Builder
		awaitLayer bool // inside a TABLES LAYER record, name not yet seen
		lineNr     int
	)

	// flushEntity closes out the entity being accumulated, crediting text
	// entities per type.
	flushEntity := func() {
		payload := curText.String()
		switch curType {
		case "TEXT", "MTEXT":
			st.textEntities++
			if payload != "" {
				texts = append(texts, payload)
			}
		case "DIMENSION":
			// "<>" is the measurement placeholder, not an override.
			if payload != "" && payload != "<>" {
				st.textEntities++
				texts = append(texts, payload)
			}
		}
		curType = ""
		curText.Reset()
	}

	for sc.Scan() {
		lineNr++
		codeLine := strings.TrimSpace(sc.Text())
		code, err := strconv.Atoi(codeLine)
		if err != nil {
			flushEntity()
			return texts, st, fmt.Errorf("line %d: invalid group code %q", lineNr, codeLine)
		}
		if !sc.Scan() {
			flushEntity()
			return texts, st, fmt.Errorf("line %d: group code %d has no value", lineNr, code)
		}
		lineNr++
		value := strings.TrimRight(sc.Text(), "\r")

		if code == 0 && value == "EOF" {
			break
		}

		switch {
		case code == 0 && value == "SECTION":
			nextIs = "section-name"

		case code == 2 && nextIs == "section-name":
			section = value
			nextIs = ""

		case code == 0 && value == "ENDSEC":
			if section == "ENTITIES" {
				flushEntity()
			}
			section = ""
			awaitLayer = false

		case section == "TABLES":
			if code == 0 {
				awaitLayer = value == "LAYER"
			} else if code == 2 && awaitLayer {
				st.layers = append(st.layers, value)
				awaitLayer = false
			}

		case section == "ENTITIES":
			switch {
			case code == 0:
				flushEntity()
				st.entities++
				curType = value
			case code == 1 && entityTakesText(curType):
				curText.WriteString(value)
			case code == 3 && curType == "MTEXT":
				// Continuation chunks precede the group 1 remainder.
				curText.WriteString(value)
			}
		}
	}

	if err := sc.Err(); err != nil {
		flushEntity()
		return texts, st, fmt.Errorf("read drawing: %w", err)
	}
	flushEntity()
	return texts, st, nil
}

func entityTakesText(entityType string) bool {
	switch entityType {
	case "TEXT", "MTEXT", "DIMENSION":
		return true
	}
	return false
}
