package imageprep

import (
	"bytes"
	"fmt"
	"io"

	"github.com/disintegration/imaging"

	"github.com/kirillkom/photo-tagger/internal/core/domain"
)

const (
	DefaultQuality      = 50
	DefaultMaxDimension = 2048
)

type Options struct {
	Quality      int
	MaxDimension int
}

// Prepare decodes any supported image, fits it within MaxDimension and
// re-encodes it as the JPEG payload expected by the tagging service.
func Prepare(r io.Reader, opts Options) (domain.Photo, error) {
	if r == nil {
		return domain.Photo{}, domain.WrapError(domain.ErrInvalidInput, "prepare image", fmt.Errorf("nil reader"))
	}
	quality := opts.Quality
	if quality <= 0 || quality > 100 {
		quality = DefaultQuality
	}

	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return domain.Photo{}, domain.WrapError(domain.ErrInvalidInput, "decode image", err)
	}

	bounds := img.Bounds()
	if opts.MaxDimension > 0 && (bounds.Dx() > opts.MaxDimension || bounds.Dy() > opts.MaxDimension) {
		img = imaging.Fit(img, opts.MaxDimension, opts.MaxDimension, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return domain.Photo{}, fmt.Errorf("encode jpeg: %w", err)
	}
	return domain.NewJPEGPhoto(buf.Bytes()), nil
}
