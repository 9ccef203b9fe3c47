package locate

import (
	"sort"

	"github.com/morphosource/specimen-crop/internal/detector"
)

// AreaFilterConfig bounds the plausible box area for one candidate.
//
// A candidate survives only when its area satisfies both the
// image-relative fraction window and the outlier test against the
// median candidate area of the same image.
type AreaFilterConfig struct {
	// MinFraction is the smallest allowed box area as a fraction of
	// the total image area.
	MinFraction float64

	// MaxFraction is the largest allowed box area as a fraction of the
	// total image area.
	MaxFraction float64

	// OutlierFactor rejects candidates whose area differs from the
	// median candidate area by more than this multiplier in either
	// direction. Zero disables the outlier test.
	OutlierFactor float64

	// Adaptive tightens MaxFraction based on how many candidates the
	// detector returned: the more detections a photograph of
	// similarly-sized specimens yields, the smaller each specimen must
	// be. When enabled the effective maximum is the smaller of
	// MaxFraction and the count-based ceiling.
	Adaptive bool
}

// FilterResult is the outcome of area filtering for one image.
type FilterResult struct {
	// Kept holds the surviving candidates in their original order.
	Kept []detector.Candidate

	// Fallback is set when filtering would have removed every
	// candidate; Kept then holds the full unfiltered input so
	// downstream matching can still be attempted.
	Fallback bool
}

// adaptiveMaxFraction returns the count-based ceiling on box area as a
// fraction of image area. Detection counts below five give no ceiling.
func adaptiveMaxFraction(n int) float64 {
	switch {
	case n < 5:
		return 1.0
	case n < 20:
		return 0.05
	case n < 50:
		return 0.02
	case n < 100:
		return 0.01
	case n < 200:
		return 0.005
	default:
		return 0.001
	}
}

// medianArea returns the median box area of the candidates.
func medianArea(cands []detector.Candidate) float64 {
	if len(cands) == 0 {
		return 0
	}
	areas := make([]float64, len(cands))
	for i, c := range cands {
		areas[i] = c.Box.Area()
	}
	sort.Float64s(areas)
	mid := len(areas) / 2
	if len(areas)%2 == 0 {
		return (areas[mid-1] + areas[mid]) / 2
	}
	return areas[mid]
}

// FilterByArea removes candidates whose box area is implausible for an
// image of the given pixel dimensions.
//
// The fraction window is evaluated against the image area; the outlier
// test is evaluated against the median area of all candidates in this
// same call. Both are recomputed per image and discarded. If no
// candidate would survive, the full input is returned with the
// Fallback flag set rather than losing the image outright: downstream
// point matching still decides which candidates are usable, and merely
// miscalibrated thresholds then cost nothing.
func FilterByArea(cands []detector.Candidate, imgWidth, imgHeight int, cfg AreaFilterConfig) FilterResult {
	if len(cands) == 0 {
		return FilterResult{}
	}

	imgArea := float64(imgWidth) * float64(imgHeight)
	maxFraction := cfg.MaxFraction
	if cfg.Adaptive {
		if ceiling := adaptiveMaxFraction(len(cands)); ceiling < maxFraction {
			maxFraction = ceiling
		}
	}
	minArea := cfg.MinFraction * imgArea
	maxArea := maxFraction * imgArea

	median := medianArea(cands)

	kept := make([]detector.Candidate, 0, len(cands))
	for _, c := range cands {
		area := c.Box.Area()
		if area < minArea || area > maxArea {
			continue
		}
		if cfg.OutlierFactor > 0 && median > 0 {
			if area > cfg.OutlierFactor*median || area < median/cfg.OutlierFactor {
				continue
			}
		}
		kept = append(kept, c)
	}

	if len(kept) == 0 {
		return FilterResult{Kept: cands, Fallback: true}
	}
	return FilterResult{Kept: kept}
}
