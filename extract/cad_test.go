package extract

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

// dxfLines joins DXF group code / value pairs into file content.
func dxfLines(pairs ...string) string {
	return strings.Join(pairs, "\n") + "\n"
}

func TestCADExtract(t *testing.T) {
	content := dxfLines(
		"0", "SECTION",
		"2", "TABLES",
		"0", "TABLE",
		"2", "LAYER",
		"0", "LAYER",
		"2", "Walls",
		"0", "LAYER",
		"2", "Annotations",
		"0", "ENDTAB",
		"0", "ENDSEC",
		"0", "SECTION",
		"2", "ENTITIES",
		"0", "LINE",
		"8", "Walls",
		"0", "TEXT",
		"1", "PLATFORM 2 ACCESS",
		"0", "MTEXT",
		"3", "MAINTENANCE BAY ",
		"1", "CLEARANCE 4500",
		"0", "DIMENSION",
		"1", "250mm",
		"0", "DIMENSION",
		"1", "<>",
		"0", "ENDSEC",
		"0", "EOF",
	)

	path := filepath.Join(t.TempDir(), "plan.dxf")
	os.WriteFile(path, []byte(content), 0644)

	s := &CADStrategy{}
	res := s.Extract(context.Background(), path)

	if msg, failed := res.Err(); failed {
		t.Fatalf("unexpected error: %s", msg)
	}
	if res.Metadata["entities"] != 5 {
		t.Errorf("entities = %v, want 5", res.Metadata["entities"])
	}
	// TEXT + MTEXT + one DIMENSION with a real override; "<>" is the
	// measurement placeholder, not an override.
	if res.Metadata["text_entities"] != 3 {
		t.Errorf("text_entities = %v, want 3", res.Metadata["text_entities"])
	}
	layers := res.Metadata["layers"].([]string)
	if !reflect.DeepEqual(layers, []string{"Walls", "Annotations"}) {
		t.Errorf("layers = %v", layers)
	}

	wantText := "PLATFORM 2 ACCESS\nMAINTENANCE BAY CLEARANCE 4500\n250mm"
	if res.Text != wantText {
		t.Errorf("text = %q, want %q", res.Text, wantText)
	}
}

func TestCADExtract_DWGPlaceholder(t *testing.T) {
	// WHAT: legacy binary DWG degrades to the documented placeholder.
	path := filepath.Join(t.TempDir(), "drawing.dwg")
	os.WriteFile(path, append([]byte("AC1027"), 0x00, 0x01, 0x02, 0x03), 0644)

	s := &CADStrategy{}
	res := s.Extract(context.Background(), path)

	if res.Text != "CAD file detected: drawing.dwg" {
		t.Errorf("text = %q", res.Text)
	}
	if _, failed := res.Err(); !failed {
		t.Fatal("expected error metadata")
	}
	if res.Metadata["entities"] != 0 || res.Metadata["text_entities"] != 0 {
		t.Errorf("counts should be zero: %v", res.Metadata)
	}
}

func TestCADExtract_GarbageInput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "noise.dxf")
	os.WriteFile(path, []byte{0x00, 0xFF, 0x13, 0x37, 0x00, 0xFF}, 0644)

	s := &CADStrategy{}
	res := s.Extract(context.Background(), path)

	if _, failed := res.Err(); !failed {
		t.Fatal("expected error metadata")
	}
	if !strings.HasPrefix(res.Text, "CAD file detected: ") {
		t.Errorf("text = %q", res.Text)
	}
}

func TestCADExtract_PartialCounts(t *testing.T) {
	// WHAT: a parse failure mid-entities keeps the counts accumulated so far.
	content := dxfLines(
		"0", "SECTION",
		"2", "ENTITIES",
		"0", "TEXT",
		"1", "VALID ENTITY",
		"0", "LINE",
		"garbage-not-a-group-code", "x",
	)
	path := filepath.Join(t.TempDir(), "partial.dxf")
	os.WriteFile(path, []byte(content), 0644)

	s := &CADStrategy{}
	res := s.Extract(context.Background(), path)

	if _, failed := res.Err(); !failed {
		t.Fatal("expected error metadata")
	}
	if res.Metadata["entities"] != 2 {
		t.Errorf("entities = %v, want 2", res.Metadata["entities"])
	}
	if res.Metadata["text_entities"] != 1 {
		t.Errorf("text_entities = %v, want 1", res.Metadata["text_entities"])
	}
	// Text degrades to the placeholder even when some entities were read.
	if !strings.HasPrefix(res.Text, "CAD file detected: ") {
		t.Errorf("text = %q", res.Text)
	}
}
