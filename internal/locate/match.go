package locate

import (
	"github.com/morphosource/specimen-crop/internal/annotation"
	"github.com/morphosource/specimen-crop/internal/detector"
)

// SpecimenMatches pairs one specimen with the candidates whose boxes
// contain all of its measurement points, in candidate input order.
type SpecimenMatches struct {
	Specimen   annotation.Specimen
	Candidates []detector.Candidate
}

// MatchPoints associates specimens with the filtered candidates that
// contain their measurement points.
//
// A candidate matches a specimen when every one of the specimen's
// points lies inside the candidate's box, boundary inclusive. A
// candidate may match several specimens (overlapping boxes around
// adjacent specimens) and a specimen may match several candidates;
// both are expected and left for deduplication and selection to
// resolve. Specimens with no points, or whose points no surviving
// candidate contains, are returned as unresolved.
//
// Matched specimens are returned in the order the specimens were
// given, and each match list preserves candidate order, so the whole
// stage is deterministic.
func MatchPoints(cands []detector.Candidate, specs []annotation.Specimen) (matched []SpecimenMatches, unresolved []annotation.Specimen) {
	for _, spec := range specs {
		var hits []detector.Candidate
		for _, c := range cands {
			if c.Box.ContainsAll(spec.Points) {
				hits = append(hits, c)
			}
		}
		if len(hits) == 0 {
			unresolved = append(unresolved, spec)
			continue
		}
		matched = append(matched, SpecimenMatches{Specimen: spec, Candidates: hits})
	}
	return matched, unresolved
}
