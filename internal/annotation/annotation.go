// Package annotation reads the tabular morphometric measurement input.
//
// Each input row names one specimen in one group photograph together
// with the pixel endpoints of its recorded elytra measurements. The
// same specimen may appear on several rows when multiple annotators
// measured it; row selection keeps one row per (image, specimen) pair,
// preferring a configured annotator name and falling back to the first
// row in file order.
//
// The package is a format-to-record transform only: it produces
// read-only specimen records for the localization engine and performs
// no geometric reasoning of its own.
package annotation

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/morphosource/specimen-crop/internal/geometry"
)

// Specimen is one specimen row selected from the measurement table:
// its identifiers plus every measurement endpoint recorded for it.
//
// Points may be empty when the row carried no usable coordinates; such
// specimens still flow through the pipeline so the output accounts for
// them, but they can never match a candidate box.
type Specimen struct {
	ImageID    string           `json:"image_id"`
	SpecimenID string           `json:"specimen_id"`
	Annotator  string           `json:"annotator"`
	Points     []geometry.Point `json:"points"`
}

// Required identifier columns. Coordinate columns are the endpoint
// pairs of the elytra length and width measurement lines; any of them
// may be empty for a given row.
const (
	colImageID    = "picture_id"
	colSpecimenID = "specimen_id"
	colAnnotator  = "annotator"
)

var coordColumns = [][2]string{
	{"length_x1", "length_y1"},
	{"length_x2", "length_y2"},
	{"width_x1", "width_y1"},
	{"width_x2", "width_y2"},
}

// ReadFile reads the measurement table from path. See Read.
func ReadFile(path, preferredAnnotator string) ([]Specimen, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open measurement table: %w", err)
	}
	defer f.Close()
	return Read(f, preferredAnnotator)
}

// Read parses the measurement CSV and returns one Specimen per
// (image, specimen) pair, selected by annotator preference.
//
// The first record must be a header row containing at least the
// picture_id and specimen_id columns. Coordinate cells are parsed as
// floats; empty cells are skipped. Rows sharing an (image, specimen)
// key are collapsed: the first row by preferredAnnotator wins, else the
// first row in file order.
func Read(r io.Reader, preferredAnnotator string) ([]Specimen, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header row: %w", err)
	}
	cols, err := indexColumns(header)
	if err != nil {
		return nil, err
	}

	type key struct{ image, specimen string }
	byKey := make(map[key]Specimen)
	order := make([]key, 0)

	line := 1
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("failed to read row %d: %w", line, err)
		}

		spec, err := parseRow(row, cols)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", line, err)
		}

		k := key{spec.ImageID, spec.SpecimenID}
		existing, seen := byKey[k]
		if !seen {
			byKey[k] = spec
			order = append(order, k)
			continue
		}
		// A later row only replaces the kept one when it is the first
		// row by the preferred annotator.
		if preferredAnnotator != "" &&
			existing.Annotator != preferredAnnotator &&
			spec.Annotator == preferredAnnotator {
			byKey[k] = spec
		}
	}

	specs := make([]Specimen, 0, len(order))
	for _, k := range order {
		specs = append(specs, byKey[k])
	}
	return specs, nil
}

// GroupByImage buckets specimens by their image identifier. Within
// each bucket specimens are sorted by specimen id so per-image
// processing order is stable across runs.
func GroupByImage(specs []Specimen) map[string][]Specimen {
	grouped := make(map[string][]Specimen)
	for _, s := range specs {
		grouped[s.ImageID] = append(grouped[s.ImageID], s)
	}
	for id := range grouped {
		sort.Slice(grouped[id], func(i, j int) bool {
			return grouped[id][i].SpecimenID < grouped[id][j].SpecimenID
		})
	}
	return grouped
}

// ImageIDs returns the sorted list of distinct image identifiers, the
// run's deterministic worklist order.
func ImageIDs(grouped map[string][]Specimen) []string {
	ids := make([]string, 0, len(grouped))
	for id := range grouped {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

type columnIndex struct {
	imageID    int
	specimenID int
	annotator  int
	coords     [][2]int // paired (x, y) column indices, -1 when absent
}

func indexColumns(header []string) (columnIndex, error) {
	lookup := make(map[string]int, len(header))
	for i, name := range header {
		lookup[strings.ToLower(strings.TrimSpace(name))] = i
	}

	idx := columnIndex{imageID: -1, specimenID: -1, annotator: -1}
	var ok bool
	if idx.imageID, ok = lookup[colImageID]; !ok {
		return idx, fmt.Errorf("measurement table missing %q column", colImageID)
	}
	if idx.specimenID, ok = lookup[colSpecimenID]; !ok {
		return idx, fmt.Errorf("measurement table missing %q column", colSpecimenID)
	}
	if i, ok := lookup[colAnnotator]; ok {
		idx.annotator = i
	}
	for _, pair := range coordColumns {
		xi, xok := lookup[pair[0]]
		yi, yok := lookup[pair[1]]
		if xok && yok {
			idx.coords = append(idx.coords, [2]int{xi, yi})
		}
	}
	if len(idx.coords) == 0 {
		return idx, fmt.Errorf("measurement table has no coordinate columns")
	}
	return idx, nil
}

func parseRow(row []string, cols columnIndex) (Specimen, error) {
	cell := func(i int) string {
		if i < 0 || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	spec := Specimen{
		ImageID:    cell(cols.imageID),
		SpecimenID: cell(cols.specimenID),
		Annotator:  cell(cols.annotator),
	}
	if spec.ImageID == "" || spec.SpecimenID == "" {
		return spec, fmt.Errorf("missing image or specimen identifier")
	}

	for _, pair := range cols.coords {
		xs, ys := cell(pair[0]), cell(pair[1])
		if xs == "" || ys == "" {
			continue
		}
		x, err := strconv.ParseFloat(xs, 64)
		if err != nil {
			return spec, fmt.Errorf("bad x coordinate %q: %w", xs, err)
		}
		y, err := strconv.ParseFloat(ys, 64)
		if err != nil {
			return spec, fmt.Errorf("bad y coordinate %q: %w", ys, err)
		}
		spec.Points = append(spec.Points, geometry.Point{X: x, Y: y})
	}
	return spec, nil
}
