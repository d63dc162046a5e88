package extract

import (
	"context"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func writePNG(t *testing.T, w, h int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scan.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestImageExtract(t *testing.T) {
	path := writePNG(t, 640, 480)

	ocr := &fakeOCR{text: "SAFETY NOTICE\nWet floor"}
	s := &ImageStrategy{OCR: ocr}
	res := s.Extract(context.Background(), path)

	if msg, failed := res.Err(); failed {
		t.Fatalf("unexpected error: %s", msg)
	}
	if res.Text != "SAFETY NOTICE\nWet floor" {
		t.Errorf("text = %q", res.Text)
	}
	if res.Metadata["ocr_method"] != "fake" {
		t.Errorf("ocr_method = %v", res.Metadata["ocr_method"])
	}
	size, ok := res.Metadata["image_size"].([]int)
	if !ok || !reflect.DeepEqual(size, []int{640, 480}) {
		t.Errorf("image_size = %v", res.Metadata["image_size"])
	}
	if ocr.calls != 1 {
		t.Errorf("ocr called %d times, want 1", ocr.calls)
	}
}

func TestImageExtract_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.png")
	os.WriteFile(path, []byte("not an image"), 0644)

	s := &ImageStrategy{OCR: &fakeOCR{text: "unused"}}
	res := s.Extract(context.Background(), path)

	if _, failed := res.Err(); !failed {
		t.Fatal("expected error metadata")
	}
	if res.Text != "" {
		t.Errorf("text should be empty, got %q", res.Text)
	}
	if res.Metadata["image_size"] != nil {
		t.Errorf("image_size should stay nil, got %v", res.Metadata["image_size"])
	}
}

func TestImageExtract_NoEngine(t *testing.T) {
	path := writePNG(t, 10, 10)

	s := &ImageStrategy{}
	res := s.Extract(context.Background(), path)

	if _, failed := res.Err(); !failed {
		t.Fatal("expected error without an OCR engine")
	}
	// Dimensions were read before the failure point and survive it.
	if res.Metadata["image_size"] == nil {
		t.Error("image_size should be populated")
	}
}
