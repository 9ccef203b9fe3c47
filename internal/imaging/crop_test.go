package imaging

import (
	"bytes"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/morphosource/specimen-crop/internal/geometry"
)

// createFlatImage returns a uniformly colored test image.
func createFlatImage(w, h int, c color.RGBA) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

// createPatternImage returns an image whose left half is red and right
// half is blue, for verifying crop placement.
func createPatternImage(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if x < w/2 {
				img.Set(x, y, color.RGBA{255, 0, 0, 255})
			} else {
				img.Set(x, y, color.RGBA{0, 0, 255, 255})
			}
		}
	}
	return img
}

func TestCropSpecimen_NoPaddingNoLetterbox(t *testing.T) {
	img := createPatternImage(100, 100)

	crop, err := CropSpecimen(img, geometry.NewBox(0, 0, 50, 40), CropOptions{})
	if err != nil {
		t.Fatalf("CropSpecimen failed: %v", err)
	}

	if crop.Bounds().Dx() != 50 || crop.Bounds().Dy() != 40 {
		t.Errorf("crop size = %dx%d, want 50x40", crop.Bounds().Dx(), crop.Bounds().Dy())
	}
	// Entirely inside the red half.
	r, g, b, _ := crop.At(25, 20).RGBA()
	if uint8(r>>8) != 255 || uint8(g>>8) != 0 || uint8(b>>8) != 0 {
		t.Errorf("crop content = (%d,%d,%d), want red", uint8(r>>8), uint8(g>>8), uint8(b>>8))
	}
}

func TestCropSpecimen_PaddingExpandsCrop(t *testing.T) {
	img := createFlatImage(200, 200, color.RGBA{128, 128, 128, 255})

	// 100x50 box padded by 0.1: 10px left/right, 5px top/bottom.
	crop, err := CropSpecimen(img, geometry.NewBox(50, 50, 150, 100), CropOptions{Padding: 0.1})
	if err != nil {
		t.Fatalf("CropSpecimen failed: %v", err)
	}
	if crop.Bounds().Dx() != 120 || crop.Bounds().Dy() != 60 {
		t.Errorf("padded crop size = %dx%d, want 120x60", crop.Bounds().Dx(), crop.Bounds().Dy())
	}
}

func TestCropSpecimen_PaddingClampedAtImageEdge(t *testing.T) {
	img := createFlatImage(100, 100, color.RGBA{128, 128, 128, 255})

	// Box touching the top-left corner: padding cannot extend past the
	// image plane, so the margin is asymmetric instead of erroring.
	crop, err := CropSpecimen(img, geometry.NewBox(0, 0, 50, 50), CropOptions{Padding: 0.2})
	if err != nil {
		t.Fatalf("CropSpecimen failed: %v", err)
	}
	if crop.Bounds().Dx() != 60 || crop.Bounds().Dy() != 60 {
		t.Errorf("clamped crop size = %dx%d, want 60x60", crop.Bounds().Dx(), crop.Bounds().Dy())
	}
}

func TestCropSpecimen_Letterbox(t *testing.T) {
	img := createFlatImage(400, 400, color.RGBA{10, 200, 10, 255})

	crop, err := CropSpecimen(img, geometry.NewBox(0, 0, 200, 100), CropOptions{
		LetterboxSize: 64,
		Fill:          color.NRGBA{R: 123, G: 116, B: 103, A: 255},
	})
	if err != nil {
		t.Fatalf("CropSpecimen failed: %v", err)
	}

	if crop.Bounds().Dx() != 64 || crop.Bounds().Dy() != 64 {
		t.Fatalf("letterboxed size = %dx%d, want 64x64", crop.Bounds().Dx(), crop.Bounds().Dy())
	}

	// A 2:1 crop scaled into a square leaves fill bands on top and
	// bottom; the center stays specimen content.
	top := crop.NRGBAAt(32, 2)
	if top.R != 123 || top.G != 116 || top.B != 103 {
		t.Errorf("top band = %+v, want fill color", top)
	}
	center := crop.NRGBAAt(32, 32)
	if center.G < 150 {
		t.Errorf("center = %+v, want specimen content", center)
	}
}

func TestCropSpecimen_InvalidBox(t *testing.T) {
	img := createFlatImage(100, 100, color.RGBA{0, 0, 0, 255})

	tests := []struct {
		name string
		box  geometry.Box
	}{
		{"zero extent", geometry.NewBox(10, 10, 10, 50)},
		{"inverted", geometry.NewBox(50, 50, 10, 10)},
		{"entirely outside", geometry.NewBox(200, 200, 300, 300)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := CropSpecimen(img, tt.box, CropOptions{}); err == nil {
				t.Error("CropSpecimen should fail")
			}
		})
	}
}

func TestCropSpecimen_Deterministic(t *testing.T) {
	img := createPatternImage(300, 300)
	opts := CropOptions{Padding: 0.1, LetterboxSize: 128, Fill: color.NRGBA{R: 123, G: 116, B: 103, A: 255}}
	box := geometry.NewBox(40, 60, 220, 180)

	first, err := CropSpecimen(img, box, opts)
	if err != nil {
		t.Fatal(err)
	}
	again, err := CropSpecimen(img, box, opts)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(first.Pix, again.Pix) {
		t.Error("repeated crops of identical inputs differ")
	}
}

func TestWriteCrop(t *testing.T) {
	dir := t.TempDir()
	img := createFlatImage(30, 30, color.RGBA{50, 60, 70, 255})

	crop, err := CropSpecimen(img, geometry.NewBox(0, 0, 20, 20), CropOptions{})
	if err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(dir, "plate1", "b-001.png")
	if err := WriteCrop(crop, path); err != nil {
		t.Fatalf("WriteCrop failed: %v", err)
	}

	first, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("crop file missing: %v", err)
	}

	// Re-writing the same crop must reproduce the bytes exactly.
	if err := WriteCrop(crop, path); err != nil {
		t.Fatalf("second WriteCrop failed: %v", err)
	}
	second, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(first, second) {
		t.Error("re-written crop bytes differ")
	}
}
