package transcode

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"os"

	"github.com/disintegration/imaging"
	"github.com/evanoberholster/imagemeta"
	"github.com/rs/zerolog/log"
)

// ImageTranscoder converts one image file to WebP, flattening any
// transparency onto an opaque white background first. The web player shows
// gallery stills on white cards, so transparent regions must not go black
// the way a naive RGB conversion would make them.
type ImageTranscoder struct {
	Encoder ImageEncoder
}

// Transcode reads inputPath, flattens it, and encodes the result to
// outputPath. On error no output file is guaranteed to exist.
func (t *ImageTranscoder) Transcode(ctx context.Context, inputPath, outputPath string) error {
	probeImageMetadata(inputPath)

	img, err := imaging.Open(inputPath)
	if err != nil {
		return fmt.Errorf("decode image: %w", err)
	}

	flat := flattenOntoWhite(img)

	// The external encoder gets a normalized PNG; alpha is already gone.
	flatPath := outputPath + ".flat.png"
	if err := imaging.Save(flat, flatPath); err != nil {
		return fmt.Errorf("write flattened image: %w", err)
	}
	defer os.Remove(flatPath)

	if err := t.Encoder.Encode(ctx, flatPath, outputPath); err != nil {
		return fmt.Errorf("encode image: %w", err)
	}
	return nil
}

// flattenOntoWhite composites img over a white canvas of the same size.
// Palette and partially transparent sources come out fully opaque; already
// opaque images are visually unchanged.
func flattenOntoWhite(img image.Image) *image.NRGBA {
	bounds := img.Bounds()
	canvas := imaging.New(bounds.Dx(), bounds.Dy(), color.White)
	return imaging.Overlay(canvas, img, image.Pt(0, 0), 1.0)
}

// probeImageMetadata logs EXIF details of the source at debug level.
// Best-effort only: many web-bound uploads carry no usable metadata.
func probeImageMetadata(path string) {
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()

	exif, err := imagemeta.Decode(f)
	if err != nil {
		return
	}

	evt := log.Debug().Str("path", path)
	if !exif.DateTimeOriginal().IsZero() {
		evt = evt.Time("dateTaken", exif.DateTimeOriginal())
	}
	if exif.Make != "" || exif.Model != "" {
		evt = evt.Str("camera", exif.Make+" "+exif.Model)
	}
	evt.Msg("Source image metadata")
}
