package locate

import (
	"github.com/morphosource/specimen-crop/internal/annotation"
	"github.com/morphosource/specimen-crop/internal/detector"
	"github.com/morphosource/specimen-crop/internal/geometry"
)

// Config is the immutable tuning surface of the engine.
type Config struct {
	Filter       AreaFilterConfig
	IoUThreshold float64
	Weights      SelectWeights
}

// Engine runs the localization stages for one image at a time. It
// holds configuration only and is safe for concurrent use.
type Engine struct {
	cfg Config
}

// NewEngine creates an engine with the given configuration. The
// configuration is assumed validated; range checks belong to the
// run-level configuration loader, which fails fast before any image is
// processed.
func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// Selection is one committed box for one specimen. Once created it is
// never mutated; a re-run overwrites output, it does not merge.
type Selection struct {
	Specimen   annotation.Specimen
	Box        geometry.Box
	Confidence float64
	Area       float64
}

// ImageResult is the engine's verdict for one image.
type ImageResult struct {
	// Selections holds exactly one entry per resolved specimen, in
	// the order specimens were supplied.
	Selections []Selection

	// Unresolved lists specimens that never left the unresolved
	// state: no surviving candidate contained their points.
	Unresolved []annotation.Specimen

	// NoCandidates is set when the detector returned nothing for the
	// image; Unresolved then holds every specimen.
	NoCandidates bool

	// FilterFallback is set when area filtering would have removed
	// every candidate and the unfiltered set was used instead.
	FilterFallback bool
}

// Locate reconciles the validated candidates of one image against its
// specimens' measurement points.
//
// Specimens within the image are independent once matched: each
// matched specimen's candidates are deduplicated and selected from in
// isolation, so one specimen's strong detection never suppresses a
// neighbor's. The result is fully determined by the inputs and the
// configuration.
func (e *Engine) Locate(cands []detector.Candidate, specs []annotation.Specimen, imgWidth, imgHeight int) ImageResult {
	if len(cands) == 0 {
		return ImageResult{NoCandidates: true, Unresolved: specs}
	}

	filtered := FilterByArea(cands, imgWidth, imgHeight, e.cfg.Filter)

	matched, unresolved := MatchPoints(filtered.Kept, specs)

	result := ImageResult{
		Unresolved:     unresolved,
		FilterFallback: filtered.Fallback,
	}
	for _, m := range matched {
		deduped := Suppress(m.Candidates, e.cfg.IoUThreshold)
		chosen, ok := Select(deduped, e.cfg.Weights)
		if !ok {
			// Unreachable: a match list is never empty. Guard anyway
			// so a future stage change cannot fabricate a box.
			result.Unresolved = append(result.Unresolved, m.Specimen)
			continue
		}
		result.Selections = append(result.Selections, Selection{
			Specimen:   m.Specimen,
			Box:        chosen.Box,
			Confidence: chosen.Confidence,
			Area:       chosen.Box.Area(),
		})
	}
	return result
}
