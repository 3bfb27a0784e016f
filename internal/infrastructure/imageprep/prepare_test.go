package imageprep

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strings"
	"testing"

	"github.com/kirillkom/photo-tagger/internal/core/domain"
)

func pngFixture(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png fixture: %v", err)
	}
	return buf.Bytes()
}

func TestPrepareReencodesAsJPEG(t *testing.T) {
	photo, err := Prepare(bytes.NewReader(pngFixture(t, 64, 32)), Options{Quality: 50})
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	if photo.Filename != "image.jpg" || photo.MimeType != "image/jpeg" {
		t.Fatalf("unexpected photo metadata %q %q", photo.Filename, photo.MimeType)
	}
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(photo.Data))
	if err != nil {
		t.Fatalf("output is not a jpeg: %v", err)
	}
	if cfg.Width != 64 || cfg.Height != 32 {
		t.Fatalf("expected 64x32, got %dx%d", cfg.Width, cfg.Height)
	}
}

func TestPrepareFitsWithinMaxDimension(t *testing.T) {
	photo, err := Prepare(bytes.NewReader(pngFixture(t, 200, 100)), Options{MaxDimension: 50})
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(photo.Data))
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if cfg.Width != 50 || cfg.Height != 25 {
		t.Fatalf("expected 50x25, got %dx%d", cfg.Width, cfg.Height)
	}
}

func TestPrepareRejectsNonImage(t *testing.T) {
	_, err := Prepare(strings.NewReader("not an image"), Options{})
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}
