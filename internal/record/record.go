// Package record defines the durable per-specimen output row and the
// CSV writers that persist it.
//
// The output table is the single source of truth for a run: every
// input specimen yields exactly one row, successful or not, and no
// specimen is ever silently dropped. Rows are written in sorted
// (image, specimen) order so identical inputs produce byte-identical
// output across runs. A re-run overwrites its output files; it never
// merges into them.
package record

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/morphosource/specimen-crop/internal/geometry"
)

// Status describes how a specimen's processing ended.
type Status string

// The four terminal statuses. Only StatusOK rows carry a box and a
// crop path.
const (
	StatusOK            Status = "ok"
	StatusNoCandidates  Status = "no candidates"
	StatusNoPointMatch  Status = "no point match"
	StatusDetectorFault Status = "detector fault"
)

// ProcessingRecord is one output row: the committed box for a
// specimen, or the reason there is none.
//
// Box holds the pre-padding coordinates for measurement fidelity; the
// crop on disk is padded, but the recorded box is what aligns with the
// morphometric measurement coordinates.
type ProcessingRecord struct {
	ImageID    string
	SpecimenID string
	Box        geometry.Box
	Confidence float64
	Area       float64
	CropPath   string
	Status     Status
}

// Header is the column order of the output table.
func Header() []string {
	return []string{
		"picture_id", "specimen_id",
		"xmin", "ymin", "xmax", "ymax",
		"score", "area", "crop_path", "status",
	}
}

// Row renders the record as CSV cells. Rows without a committed box
// leave the geometry cells empty rather than writing zeros a reader
// could mistake for coordinates.
func (r ProcessingRecord) Row() []string {
	if r.Status != StatusOK {
		return []string{r.ImageID, r.SpecimenID, "", "", "", "", "", "", "", string(r.Status)}
	}
	coord := func(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) }
	return []string{
		r.ImageID, r.SpecimenID,
		coord(r.Box.XMin), coord(r.Box.YMin), coord(r.Box.XMax), coord(r.Box.YMax),
		strconv.FormatFloat(r.Confidence, 'f', 4, 64),
		strconv.FormatFloat(r.Area, 'f', 2, 64),
		r.CropPath,
		string(r.Status),
	}
}

// Sort orders records by image id, then specimen id. Applied before
// writing so row order never depends on worker completion order.
func Sort(records []ProcessingRecord) {
	sort.Slice(records, func(i, j int) bool {
		if records[i].ImageID != records[j].ImageID {
			return records[i].ImageID < records[j].ImageID
		}
		return records[i].SpecimenID < records[j].SpecimenID
	})
}

// WriteFile writes the records as a CSV table at path, creating parent
// directories and truncating any previous file. Callers sort first;
// WriteFile preserves the order it is given.
func WriteFile(path string, records []ProcessingRecord) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create record file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(Header()); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, r := range records {
		if err := w.Write(r.Row()); err != nil {
			return fmt.Errorf("failed to write record for %s/%s: %w", r.ImageID, r.SpecimenID, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush records: %w", err)
	}
	return nil
}

// Summary tallies records by status.
type Summary struct {
	Total          int
	OK             int
	NoCandidates   int
	NoPointMatch   int
	DetectorFaults int
}

// Summarize counts the records in each terminal status.
func Summarize(records []ProcessingRecord) Summary {
	s := Summary{Total: len(records)}
	for _, r := range records {
		switch r.Status {
		case StatusOK:
			s.OK++
		case StatusNoCandidates:
			s.NoCandidates++
		case StatusNoPointMatch:
			s.NoPointMatch++
		case StatusDetectorFault:
			s.DetectorFaults++
		}
	}
	return s
}
