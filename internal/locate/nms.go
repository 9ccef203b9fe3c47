package locate

import (
	"sort"

	"github.com/morphosource/specimen-crop/internal/detector"
	"github.com/morphosource/specimen-crop/internal/geometry"
)

// Suppress applies greedy non-maximum suppression to one specimen's
// matched candidates and returns the kept set.
//
// Candidates are ranked by confidence descending; equal confidences
// rank the larger-area box first, which keeps the detection less
// likely to be a partial or clipped fragment. The highest-ranked
// remaining candidate is kept, every remaining candidate overlapping
// it with IoU above the threshold is discarded, and the process
// repeats. Ranking is stable with respect to input order, so the kept
// set is deterministic even for fully tied candidates.
//
// Suppression is scoped to a single specimen's matches on purpose:
// two different specimens photographed side by side legitimately own
// nearby boxes, and a global pass would let one specimen's strong
// detection erase its neighbor's.
func Suppress(cands []detector.Candidate, iouThreshold float64) []detector.Candidate {
	if len(cands) <= 1 {
		return cands
	}

	order := make([]int, len(cands))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		ca, cb := cands[order[a]], cands[order[b]]
		if ca.Confidence != cb.Confidence {
			return ca.Confidence > cb.Confidence
		}
		return ca.Box.Area() > cb.Box.Area()
	})

	kept := make([]detector.Candidate, 0, len(cands))
	suppressed := make([]bool, len(cands))
	for i, a := range order {
		if suppressed[a] {
			continue
		}
		kept = append(kept, cands[a])
		for _, b := range order[i+1:] {
			if suppressed[b] {
				continue
			}
			if geometry.IoU(cands[a].Box, cands[b].Box) > iouThreshold {
				suppressed[b] = true
			}
		}
	}
	return kept
}
