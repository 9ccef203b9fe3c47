package imaging

import (
	"image/color"
	"testing"
)

func TestParseFillColor(t *testing.T) {
	tests := []struct {
		hex     string
		want    color.NRGBA
		wantErr bool
	}{
		{"#7b7467", color.NRGBA{R: 123, G: 116, B: 103, A: 255}, false},
		{"#000000", color.NRGBA{A: 255}, false},
		{"#ffffff", color.NRGBA{R: 255, G: 255, B: 255, A: 255}, false},
		{"7b7467", color.NRGBA{}, true},
		{"#xyzxyz", color.NRGBA{}, true},
		{"", color.NRGBA{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.hex, func(t *testing.T) {
			got, err := ParseFillColor(tt.hex)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseFillColor(%q) should fail", tt.hex)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseFillColor(%q) failed: %v", tt.hex, err)
			}
			if got != tt.want {
				t.Errorf("ParseFillColor(%q) = %+v, want %+v", tt.hex, got, tt.want)
			}
		})
	}
}

func TestMeanColor_FlatImage(t *testing.T) {
	img := createFlatImage(20, 20, color.RGBA{80, 90, 100, 255})

	got := MeanColor(img)
	if got.R != 80 || got.G != 90 || got.B != 100 {
		t.Errorf("MeanColor = %+v, want (80,90,100)", got)
	}
	if got.A != 255 {
		t.Errorf("MeanColor alpha = %d, want 255", got.A)
	}
}

func TestMeanColor_SplitImage(t *testing.T) {
	// Half red, half blue: the mean sits near the middle of both
	// channels.
	img := createPatternImage(40, 40)

	got := MeanColor(img)
	if got.R < 100 || got.R > 155 {
		t.Errorf("mean red = %d, want near 127", got.R)
	}
	if got.B < 100 || got.B > 155 {
		t.Errorf("mean blue = %d, want near 127", got.B)
	}
	if got.G > 20 {
		t.Errorf("mean green = %d, want near 0", got.G)
	}
}
