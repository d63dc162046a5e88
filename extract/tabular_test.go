package extract

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestCSVExtract(t *testing.T) {
	path := writeFile(t, "inventory.csv", []byte("item,qty,price\nbolts,5000,1200\npads,1000,800\nfasteners,2000,3400\n"))

	s := &CSVStrategy{}
	res := s.Extract(context.Background(), path)

	if msg, failed := res.Err(); failed {
		t.Fatalf("unexpected error: %s", msg)
	}
	if res.Metadata["rows"] != 3 {
		t.Errorf("rows = %v, want 3", res.Metadata["rows"])
	}
	if res.Metadata["columns"] != 3 {
		t.Errorf("columns = %v, want 3", res.Metadata["columns"])
	}
	if res.Metadata["encoding"] != "utf-8" {
		t.Errorf("encoding = %v", res.Metadata["encoding"])
	}
	if !strings.Contains(res.Text, "CSV Table with 3 rows and 3 columns:") {
		t.Errorf("missing summary header: %q", res.Text)
	}
	if !strings.Contains(res.Text, "Columns: item, qty, price") {
		t.Errorf("missing column list: %q", res.Text)
	}
	if !strings.Contains(res.Text, "bolts") {
		t.Errorf("missing preview data: %q", res.Text)
	}
}

func TestCSVExtract_Windows1252(t *testing.T) {
	// 0x93/0x94 are curly quotes in Windows-1252 and C1 controls in
	// Latin-1, so the resolver must pick windows-1252.
	raw := []byte("vendor,remark\nABC Rail,\x93premium\x94\n")
	path := writeFile(t, "vendors.csv", raw)

	s := &CSVStrategy{}
	res := s.Extract(context.Background(), path)

	if msg, failed := res.Err(); failed {
		t.Fatalf("unexpected error: %s", msg)
	}
	if res.Metadata["encoding"] != "windows-1252" {
		t.Errorf("encoding = %v, want windows-1252", res.Metadata["encoding"])
	}
	if !strings.Contains(res.Text, "“premium”") {
		t.Errorf("curly quotes should round-trip: %q", res.Text)
	}
}

func TestCSVExtract_PreviewBounded(t *testing.T) {
	// WHAT: 10,000 data rows → preview of at most 10, rows metadata exact.
	var sb strings.Builder
	sb.WriteString("id,value\n")
	for i := 0; i < 10000; i++ {
		fmt.Fprintf(&sb, "%d,row-%d\n", i, i)
	}
	path := writeFile(t, "big.csv", []byte(sb.String()))

	s := &CSVStrategy{}
	res := s.Extract(context.Background(), path)

	if res.Metadata["rows"] != 10000 {
		t.Fatalf("rows = %v, want 10000", res.Metadata["rows"])
	}

	_, preview, ok := strings.Cut(res.Text, "Data preview:")
	if !ok {
		t.Fatalf("no preview section: %q", res.Text[:120])
	}
	lines := strings.Split(strings.TrimSpace(preview), "\n")
	// Header line + at most previewRows data rows.
	if len(lines) > previewRows+1 {
		t.Errorf("preview has %d lines, want at most %d", len(lines), previewRows+1)
	}
	if strings.Contains(preview, "row-10 ") || strings.Contains(preview, "row-9999") {
		t.Errorf("preview leaked rows beyond the bound")
	}
}

func TestCSVExtract_Undecodable(t *testing.T) {
	// 0x81 is invalid UTF-8, a C1 control in Latin-1, and unmapped in
	// Windows-1252 — every candidate rejects it.
	path := writeFile(t, "bad.csv", []byte{0x81, 0x81, 0x81})

	s := &CSVStrategy{}
	res := s.Extract(context.Background(), path)

	if _, failed := res.Err(); !failed {
		t.Fatal("expected decode error")
	}
	if res.Text != "" {
		t.Errorf("no partial text on decode failure, got %q", res.Text)
	}
}

func TestCSVExtract_Empty(t *testing.T) {
	path := writeFile(t, "empty.csv", nil)

	s := &CSVStrategy{}
	res := s.Extract(context.Background(), path)

	if _, failed := res.Err(); !failed {
		t.Fatal("expected error for empty csv")
	}
}

func TestRenderAligned(t *testing.T) {
	out := renderAligned([]string{"id", "name"}, [][]string{
		{"1", "bolts"},
		{"2", "track pads"},
	})
	lines := strings.Split(out, "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	// Columns align: "id" padded to width 2, two-space gutter.
	if lines[0] != "id  name" {
		t.Errorf("header = %q", lines[0])
	}
	if lines[1] != "1   bolts" {
		t.Errorf("row 1 = %q", lines[1])
	}
}
