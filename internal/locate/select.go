package locate

import (
	"math"

	"github.com/morphosource/specimen-crop/internal/detector"
)

// SelectWeights combines confidence and normalized area into a single
// selection score.
//
// A text-prompted zero-shot detector often fragments one specimen into
// an overly tight high-confidence box and a looser lower-confidence
// box that fully contains it. Weighting area alongside confidence
// favors the box large enough to hold the whole specimen at a minor
// confidence cost, which cuts down on truncated crops. The relative
// weighting is an empirically tuned surface, not a derived constant.
type SelectWeights struct {
	Confidence float64
	Area       float64
}

// Select picks exactly one candidate from a specimen's deduplicated
// set, or reports false for an empty set. It never fabricates a box.
//
// Each candidate scores
//
//	Confidence*confidence + Area*(area/largest area in set)
//
// and the maximum wins. Exact score ties fall through a total
// tie-break chain: larger area, then smaller deviation from the set's
// mean confidence (the stabler detection), then earliest input
// position. The final fallback makes selection deterministic even for
// byte-identical candidates.
func Select(cands []detector.Candidate, weights SelectWeights) (detector.Candidate, bool) {
	if len(cands) == 0 {
		return detector.Candidate{}, false
	}

	maxArea := 0.0
	meanConf := 0.0
	for _, c := range cands {
		if a := c.Box.Area(); a > maxArea {
			maxArea = a
		}
		meanConf += c.Confidence
	}
	meanConf /= float64(len(cands))

	score := func(c detector.Candidate) float64 {
		normArea := 0.0
		if maxArea > 0 {
			normArea = c.Box.Area() / maxArea
		}
		return weights.Confidence*c.Confidence + weights.Area*normArea
	}

	best := 0
	bestScore := score(cands[0])
	for i := 1; i < len(cands); i++ {
		s := score(cands[i])
		switch {
		case s > bestScore:
			best, bestScore = i, s
		case s == bestScore && tieBreak(cands[i], cands[best], meanConf):
			best = i
		}
	}
	return cands[best], true
}

// tieBreak reports whether challenger beats incumbent under the
// post-score chain: larger area, then confidence closer to the set
// mean. Equality on both leaves the incumbent (earlier input position)
// in place.
func tieBreak(challenger, incumbent detector.Candidate, meanConf float64) bool {
	ca, ia := challenger.Box.Area(), incumbent.Box.Area()
	if ca != ia {
		return ca > ia
	}
	cd := math.Abs(challenger.Confidence - meanConf)
	id := math.Abs(incumbent.Confidence - meanConf)
	return cd < id
}
