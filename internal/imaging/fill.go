package imaging

import (
	"fmt"
	"image"
	"image/color"

	"github.com/anthonynsimon/bild/histogram"
	"github.com/lucasb-eyer/go-colorful"
)

// ParseFillColor parses a "#RRGGBB" hex string into the letterbox
// canvas color. The default configuration uses the ImageNet channel
// means, which the downstream measurement models were normalized
// against.
func ParseFillColor(hex string) (color.NRGBA, error) {
	c, err := colorful.Hex(hex)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid fill color %q: %w", hex, err)
	}
	r, g, b := c.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 255}, nil
}

// MeanColor returns the mean RGB color of the image, computed from its
// channel histograms. Used as the letterbox fill when the crop should
// blend into the plate background rather than a fixed color.
func MeanColor(img image.Image) color.NRGBA {
	h := histogram.NewRGBAHistogram(img)
	return color.NRGBA{
		R: meanBin(h.R.Bins),
		G: meanBin(h.G.Bins),
		B: meanBin(h.B.Bins),
		A: 255,
	}
}

func meanBin(bins []int) uint8 {
	var sum, total int
	for value, count := range bins {
		sum += value * count
		total += count
	}
	if total == 0 {
		return 0
	}
	return uint8(sum / total)
}
