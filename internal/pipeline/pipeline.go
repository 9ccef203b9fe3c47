// Package pipeline drives a full localization run: the image worklist,
// parallel per-image processing, and output merging.
//
// Images are processed independently on a bounded worker pool; the only
// shared state is the read-only configuration, the image cache, and the
// detector adapter, which must itself be safe for concurrent calls.
// Each worker fills its own result slot and the merged record table is
// written once at the end by a single writer, so no locking guards the
// output path. Per-image and per-specimen failures are recorded, never
// escalated; only configuration and output-write failures abort a run.
package pipeline

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/morphosource/specimen-crop/internal/annotation"
	"github.com/morphosource/specimen-crop/internal/conf"
	"github.com/morphosource/specimen-crop/internal/detector"
	"github.com/morphosource/specimen-crop/internal/imaging"
	"github.com/morphosource/specimen-crop/internal/locate"
	"github.com/morphosource/specimen-crop/internal/record"
)

// Pipeline owns one run's collaborators. Construct with New; a
// Pipeline is safe to Run once per worklist, and reruns with identical
// inputs reproduce identical outputs.
type Pipeline struct {
	settings *conf.Settings
	det      detector.Detector
	cache    *imaging.ImageCache
	engine   *locate.Engine
	fill     color.NRGBA
	log      *slog.Logger
}

// New wires a pipeline from validated settings and a detector adapter.
func New(settings *conf.Settings, det detector.Detector, logger *slog.Logger) (*Pipeline, error) {
	fill := color.NRGBA{}
	if settings.Crop.LetterboxSize > 0 && !settings.Crop.FillIsMean() {
		parsed, err := imaging.ParseFillColor(settings.Crop.Fill)
		if err != nil {
			return nil, err
		}
		fill = parsed
	}

	engine := locate.NewEngine(locate.Config{
		Filter: locate.AreaFilterConfig{
			MinFraction:   settings.Filter.MinFraction,
			MaxFraction:   settings.Filter.MaxFraction,
			OutlierFactor: settings.Filter.OutlierFactor,
			Adaptive:      settings.Filter.Adaptive,
		},
		IoUThreshold: settings.NMS.IoUThreshold,
		Weights: locate.SelectWeights{
			Confidence: settings.Selection.ConfidenceWeight,
			Area:       settings.Selection.AreaWeight,
		},
	})

	return &Pipeline{
		settings: settings,
		det:      det,
		cache:    imaging.NewImageCache(),
		engine:   engine,
		fill:     fill,
		log:      logger.With("run_id", uuid.NewString()),
	}, nil
}

// Run processes every image named by the measurement table and writes
// the crops and the master record table.
//
// Every input specimen yields exactly one record regardless of
// outcome. The returned summary tallies records by status.
func (p *Pipeline) Run(ctx context.Context) (record.Summary, error) {
	specs, err := annotation.ReadFile(p.settings.Input.MeasurementsCSV, p.settings.Input.PreferredAnnotator)
	if err != nil {
		return record.Summary{}, err
	}

	grouped := annotation.GroupByImage(specs)
	imageIDs := annotation.ImageIDs(grouped)
	p.log.Info("starting run",
		"images", len(imageIDs),
		"specimens", len(specs),
		"workers", p.settings.Workers,
	)

	// One result slot per image: workers share nothing mutable.
	results := make([][]record.ProcessingRecord, len(imageIDs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.settings.Workers)
	for i, id := range imageIDs {
		i, id := i, id
		g.Go(func() error {
			recs, err := p.processImage(gctx, id, grouped[id])
			if err != nil {
				return err
			}
			results[i] = recs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return record.Summary{}, err
	}

	all := make([]record.ProcessingRecord, 0, len(specs))
	for _, recs := range results {
		all = append(all, recs...)
	}
	record.Sort(all)

	if err := record.WriteFile(p.settings.Output.CSV, all); err != nil {
		return record.Summary{}, err
	}

	summary := record.Summarize(all)
	p.log.Info("run complete",
		"specimens", summary.Total,
		"ok", summary.OK,
		"no_candidates", summary.NoCandidates,
		"no_point_match", summary.NoPointMatch,
		"detector_faults", summary.DetectorFaults,
	)
	return summary, nil
}

// processImage runs one group photograph end to end and returns one
// record per specimen. The returned error is reserved for output-write
// failures; detection and localization failures become records.
func (p *Pipeline) processImage(ctx context.Context, imageID string, specs []annotation.Specimen) ([]record.ProcessingRecord, error) {
	log := p.log.With("image", imageID)
	imgPath := filepath.Join(p.settings.Input.ImageDir, imageID)

	img, err := p.cache.Load(imgPath)
	if err != nil {
		// The adapter cannot acquire candidates without the image;
		// same terminal state as a failed detector call.
		log.Error("failed to load image", "error", err)
		return faultRecords(imageID, specs), nil
	}
	defer p.cache.Evict(imgPath)
	width := img.Bounds().Dx()
	height := img.Bounds().Dy()

	raw, err := p.det.Detect(ctx, imgPath, p.settings.Detector.Prompt)
	if err != nil {
		log.Error("detector fault", "error", err)
		return faultRecords(imageID, specs), nil
	}

	cands, rejected := detector.ValidateCandidates(raw, width, height)
	if rejected > 0 {
		log.Warn("rejected malformed candidates", "rejected", rejected, "total", len(raw))
	}

	res := p.engine.Locate(cands, specs, width, height)
	if res.FilterFallback {
		log.Warn("area filter removed every candidate, using unfiltered set")
	}
	log.Debug("localization finished",
		"candidates", len(cands),
		"selected", len(res.Selections),
		"unresolved", len(res.Unresolved),
	)

	records := make([]record.ProcessingRecord, 0, len(specs))
	for _, sel := range res.Selections {
		rec, err := p.writeCrop(img, imageID, sel)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	status := record.StatusNoPointMatch
	if res.NoCandidates {
		status = record.StatusNoCandidates
	}
	for _, spec := range res.Unresolved {
		records = append(records, record.ProcessingRecord{
			ImageID:    imageID,
			SpecimenID: spec.SpecimenID,
			Status:     status,
		})
	}

	if err := p.writeImageTable(imageID, records); err != nil {
		return nil, err
	}
	return records, nil
}

// writeCrop persists one specimen's crop and returns its record. The
// record keeps the pre-padding box; padding affects only the file.
func (p *Pipeline) writeCrop(img image.Image, imageID string, sel locate.Selection) (record.ProcessingRecord, error) {
	crop, err := imaging.CropSpecimen(img, sel.Box, imaging.CropOptions{
		Padding:       p.settings.Crop.Padding,
		LetterboxSize: p.settings.Crop.LetterboxSize,
		Fill:          p.fill,
		MeanFill:      p.settings.Crop.FillIsMean(),
	})
	if err != nil {
		return record.ProcessingRecord{}, fmt.Errorf("cropping %s/%s: %w", imageID, sel.Specimen.SpecimenID, err)
	}

	// The recorded path is relative to the output directory so the
	// table stays valid when the output tree is moved, and identical
	// runs into different directories stay byte-identical.
	rel := filepath.Join(imageStem(imageID), sel.Specimen.SpecimenID+".png")
	if err := imaging.WriteCrop(crop, filepath.Join(p.settings.Output.Dir, rel)); err != nil {
		return record.ProcessingRecord{}, fmt.Errorf("writing crop for %s/%s: %w", imageID, sel.Specimen.SpecimenID, err)
	}

	return record.ProcessingRecord{
		ImageID:    imageID,
		SpecimenID: sel.Specimen.SpecimenID,
		Box:        sel.Box,
		Confidence: sel.Confidence,
		Area:       sel.Area,
		CropPath:   rel,
		Status:     record.StatusOK,
	}, nil
}

// faultRecords marks every specimen of a failed image.
func faultRecords(imageID string, specs []annotation.Specimen) []record.ProcessingRecord {
	records := make([]record.ProcessingRecord, 0, len(specs))
	for _, spec := range specs {
		records = append(records, record.ProcessingRecord{
			ImageID:    imageID,
			SpecimenID: spec.SpecimenID,
			Status:     record.StatusDetectorFault,
		})
	}
	return records
}

// imageStem strips the extension from an image identifier for use as
// the per-image output directory name.
func imageStem(imageID string) string {
	return strings.TrimSuffix(imageID, filepath.Ext(imageID))
}

// writeImageTable writes the per-image record table next to the crops,
// mirroring the master table for convenient per-plate inspection. It
// is skipped when the image produced no successful crops, so failed
// images leave no output directory behind.
func (p *Pipeline) writeImageTable(imageID string, records []record.ProcessingRecord) error {
	ok := make([]record.ProcessingRecord, 0, len(records))
	for _, r := range records {
		if r.Status == record.StatusOK {
			ok = append(ok, r)
		}
	}
	if len(ok) == 0 {
		return nil
	}
	record.Sort(ok)

	stem := imageStem(imageID)
	path := filepath.Join(p.settings.Output.Dir, stem, stem+".csv")
	return record.WriteFile(path, ok)
}
