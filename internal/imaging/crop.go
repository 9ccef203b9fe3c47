package imaging

import (
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"

	"github.com/morphosource/specimen-crop/internal/geometry"
)

// CropOptions controls how a committed specimen box becomes a crop
// file.
type CropOptions struct {
	// Padding expands the box symmetrically by this fraction of its
	// own width and height before cropping, so the crop keeps a margin
	// of context around the specimen. The recorded box stays
	// unpadded.
	Padding float64

	// LetterboxSize, when positive, resizes the crop to fit inside a
	// LetterboxSize square (aspect preserved, Lanczos) and centers it
	// on a square canvas of the fill color. Zero writes the raw crop.
	LetterboxSize int

	// Fill is the letterbox canvas color.
	Fill color.NRGBA

	// MeanFill derives the canvas color from the group photograph's
	// mean color instead of Fill, blending the crop into its plate
	// background.
	MeanFill bool
}

// CropSpecimen extracts the padded, clamped region of box from the
// group photograph and applies the optional letterbox.
//
// The padded box is clamped to the image plane before cropping, so a
// specimen near the plate edge yields an asymmetric margin rather than
// an error. The returned crop is a fresh image; the source is never
// mutated.
func CropSpecimen(img image.Image, box geometry.Box, opts CropOptions) (*image.NRGBA, error) {
	if !box.Valid() {
		return nil, fmt.Errorf("invalid crop box %v", box)
	}

	bounds := img.Bounds()
	padded := box.Pad(opts.Padding).Clamp(float64(bounds.Dx()), float64(bounds.Dy()))
	rect := padded.Rect().Intersect(bounds)
	if rect.Empty() {
		return nil, fmt.Errorf("crop box %v lies outside the image plane", box)
	}

	cropped := imaging.Crop(img, rect)
	if opts.LetterboxSize <= 0 {
		return cropped, nil
	}

	fill := opts.Fill
	if opts.MeanFill {
		fill = MeanColor(img)
	}
	return letterbox(cropped, opts.LetterboxSize, fill), nil
}

// letterbox resizes the crop to fit inside a size x size square with
// aspect ratio preserved and centers it on a canvas of the fill color.
func letterbox(crop *image.NRGBA, size int, fill color.NRGBA) *image.NRGBA {
	w, h := crop.Bounds().Dx(), crop.Bounds().Dy()
	long := w
	if h > long {
		long = h
	}

	scaled := crop
	if long != size {
		scale := float64(size) / float64(long)
		newW := int(float64(w) * scale)
		newH := int(float64(h) * scale)
		if newW < 1 {
			newW = 1
		}
		if newH < 1 {
			newH = 1
		}
		scaled = imaging.Resize(crop, newW, newH, imaging.Lanczos)
	}

	canvas := imaging.New(size, size, fill)
	return imaging.PasteCenter(canvas, scaled)
}

// WriteCrop persists the crop as a PNG at path, creating parent
// directories as needed. PNG keeps the crop lossless and the bytes
// reproducible across runs.
func WriteCrop(crop image.Image, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create crop directory: %w", err)
	}
	if err := imaging.Save(crop, path); err != nil {
		return fmt.Errorf("failed to save crop: %w", err)
	}
	return nil
}
