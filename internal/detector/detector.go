package detector

import (
	"context"

	"github.com/morphosource/specimen-crop/internal/geometry"
)

// Candidate is one raw detection returned by the detector before any
// filtering: a bounding box plus the model's confidence in it.
type Candidate struct {
	Box        geometry.Box `json:"box"`
	Confidence float64      `json:"confidence"`
}

// Detector locates specimen candidates in an image using a text prompt.
//
// Implementations must be safe for concurrent use, must not mutate the
// image file, and may return an empty candidate list. A non-nil error
// marks the whole image as a detector fault; partial results alongside
// an error are discarded.
type Detector interface {
	Detect(ctx context.Context, imagePath, prompt string) ([]Candidate, error)
}

// ValidateCandidates drops candidates that violate the ingestion
// contract for an image of the given pixel dimensions. Returned
// candidates preserve their input order.
//
// A candidate is rejected when:
//   - its box has zero or inverted extent
//   - its box reaches outside [0,width] x [0,height]
//   - its confidence lies outside [0, 1]
//
// The second count returned is the number of rejected candidates, for
// log reporting.
func ValidateCandidates(cands []Candidate, width, height int) ([]Candidate, int) {
	valid := make([]Candidate, 0, len(cands))
	rejected := 0
	for _, c := range cands {
		if !c.Box.Valid() || !c.Box.Within(float64(width), float64(height)) {
			rejected++
			continue
		}
		if c.Confidence < 0 || c.Confidence > 1 {
			rejected++
			continue
		}
		valid = append(valid, c)
	}
	return valid, rejected
}
