package images

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestSaveResizesWideImages(t *testing.T) {
	s := &Store{Dir: t.TempDir()}
	ref, err := s.Save(bytes.NewReader(pngBytes(t, 1600, 400)), "laptop.PNG")
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !strings.HasPrefix(ref, URLPrefix) || !strings.HasSuffix(ref, ".jpg") {
		t.Fatalf("ref = %s", ref)
	}

	f, err := os.Open(filepath.Join(s.Dir, strings.TrimPrefix(ref, URLPrefix)))
	if err != nil {
		t.Fatalf("open saved file: %v", err)
	}
	defer f.Close()
	cfg, err := jpeg.DecodeConfig(f)
	if err != nil {
		t.Fatalf("saved file is not a JPEG: %v", err)
	}
	if cfg.Width != MaxWidth || cfg.Height != 200 {
		t.Fatalf("size = %dx%d, want %dx200", cfg.Width, cfg.Height, MaxWidth)
	}
}

func TestSaveKeepsSmallImages(t *testing.T) {
	s := &Store{Dir: t.TempDir()}
	ref, err := s.Save(bytes.NewReader(pngBytes(t, 120, 80)), "icon.png")
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	f, _ := os.Open(filepath.Join(s.Dir, strings.TrimPrefix(ref, URLPrefix)))
	defer f.Close()
	cfg, err := jpeg.DecodeConfig(f)
	if err != nil || cfg.Width != 120 {
		t.Fatalf("cfg = %+v, err = %v", cfg, err)
	}
}

func TestSaveRejectsUnsupported(t *testing.T) {
	s := &Store{Dir: t.TempDir()}
	if _, err := s.Save(strings.NewReader("GIF89a"), "anim.gif"); !errors.Is(err, ErrInvalidImage) {
		t.Fatalf("expected ErrInvalidImage for gif, got %v", err)
	}
	if _, err := s.Save(strings.NewReader("not a png"), "fake.png"); !errors.Is(err, ErrInvalidImage) {
		t.Fatalf("expected ErrInvalidImage for garbage, got %v", err)
	}
}

func TestRemove(t *testing.T) {
	s := &Store{Dir: t.TempDir()}
	ref, err := s.Save(bytes.NewReader(pngBytes(t, 10, 10)), "a.png")
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Remove(ref); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := s.Remove(ref); err != nil {
		t.Fatalf("second Remove: %v", err)
	}
	if err := s.Remove("https://cdn.example.com/x.jpg"); err != nil {
		t.Fatalf("foreign ref: %v", err)
	}
}

func TestWriteJPEGRemovesFileOnEncodeError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.jpg")
	// JPEG cannot encode widths of 1<<16 or more
	img := image.NewGray(image.Rect(0, 0, 1<<16, 1))
	if err := writeJPEG(path, img); err == nil {
		t.Fatal("expected encode error")
	}
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("partial file left behind: %v", err)
	}
}
