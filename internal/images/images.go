// Package images stores uploaded product pictures as resized JPEGs.
package images

import (
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/nfnt/resize"
)

const (
	MaxWidth       = 800
	Quality        = 80
	URLPrefix      = "/images/"
	maxUploadBytes = 10 << 20
)

var ErrInvalidImage = errors.New("invalid image")

type Store struct {
	Dir string
}

// Save decodes a PNG or JPEG upload, scales it down to MaxWidth keeping the
// aspect ratio and writes it under a fresh name. It returns the public URL.
func (s *Store) Save(r io.Reader, filename string) (string, error) {
	img, err := decode(io.LimitReader(r, maxUploadBytes), filename)
	if err != nil {
		return "", err
	}
	if img.Bounds().Dx() > MaxWidth {
		img = resize.Resize(MaxWidth, 0, img, resize.Lanczos3)
	}

	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create image dir: %w", err)
	}
	name := uuid.NewString() + ".jpg"
	path := filepath.Join(s.Dir, name)
	if err := writeJPEG(path, img); err != nil {
		return "", err
	}
	return URLPrefix + name, nil
}

// writeJPEG leaves no file behind when encoding or closing fails.
func writeJPEG(path string, img image.Image) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create image file: %w", err)
	}
	if err := jpeg.Encode(out, img, &jpeg.Options{Quality: Quality}); err != nil {
		_ = out.Close()
		_ = os.Remove(path)
		return fmt.Errorf("encode image: %w", err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(path)
		return fmt.Errorf("close image file: %w", err)
	}
	return nil
}

// Remove deletes a previously saved image by URL. Unknown or foreign refs
// are ignored.
func (s *Store) Remove(ref string) error {
	if !strings.HasPrefix(ref, URLPrefix) {
		return nil
	}
	name := filepath.Base(strings.TrimPrefix(ref, URLPrefix))
	err := os.Remove(filepath.Join(s.Dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

func decode(r io.Reader, filename string) (image.Image, error) {
	var (
		img image.Image
		err error
	)
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".png":
		img, err = png.Decode(r)
	case ".jpg", ".jpeg":
		img, err = jpeg.Decode(r)
	default:
		return nil, fmt.Errorf("%w: only PNG, JPG and JPEG are allowed", ErrInvalidImage)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	return img, nil
}
