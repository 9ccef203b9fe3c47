package geometry

import (
	"fmt"
	"image"
	"math"
)

// Point represents a 2D pixel coordinate.
type Point struct {
	X float64 `json:"x"` // Horizontal position (0 = leftmost)
	Y float64 `json:"y"` // Vertical position (0 = topmost)
}

// Box is an axis-aligned bounding box in pixel coordinates.
//
// A valid box has XMin < XMax and YMin < YMax. The zero value is not a
// valid box; use Valid to check boxes arriving from external sources.
type Box struct {
	XMin float64 `json:"xmin"`
	YMin float64 `json:"ymin"`
	XMax float64 `json:"xmax"`
	YMax float64 `json:"ymax"`
}

// NewBox constructs a box from its corner coordinates.
func NewBox(xmin, ymin, xmax, ymax float64) Box {
	return Box{XMin: xmin, YMin: ymin, XMax: xmax, YMax: ymax}
}

// Valid reports whether the box has positive extent on both axes.
func (b Box) Valid() bool {
	return b.XMin < b.XMax && b.YMin < b.YMax
}

// Width returns the horizontal extent of the box.
func (b Box) Width() float64 { return b.XMax - b.XMin }

// Height returns the vertical extent of the box.
func (b Box) Height() float64 { return b.YMax - b.YMin }

// Area returns the box area in square pixels, or 0 for an invalid box.
func (b Box) Area() float64 {
	if !b.Valid() {
		return 0
	}
	return b.Width() * b.Height()
}

// Contains reports whether the point lies within the box, boundary
// inclusive on all four edges.
func (b Box) Contains(p Point) bool {
	return b.XMin <= p.X && p.X <= b.XMax && b.YMin <= p.Y && p.Y <= b.YMax
}

// ContainsAll reports whether every point lies within the box. It
// returns false for an empty point slice, since a box that contains
// nothing known about a specimen says nothing about that specimen.
func (b Box) ContainsAll(pts []Point) bool {
	if len(pts) == 0 {
		return false
	}
	for _, p := range pts {
		if !b.Contains(p) {
			return false
		}
	}
	return true
}

// Within reports whether the box lies entirely inside the rectangle
// [0,width] x [0,height].
func (b Box) Within(width, height float64) bool {
	return b.XMin >= 0 && b.YMin >= 0 && b.XMax <= width && b.YMax <= height
}

// Intersect returns the overlapping region of two boxes and whether the
// overlap is non-empty.
func Intersect(a, b Box) (Box, bool) {
	ix := Box{
		XMin: math.Max(a.XMin, b.XMin),
		YMin: math.Max(a.YMin, b.YMin),
		XMax: math.Min(a.XMax, b.XMax),
		YMax: math.Min(a.YMax, b.YMax),
	}
	if !ix.Valid() {
		return Box{}, false
	}
	return ix, true
}

// IoU returns the intersection-over-union of two boxes in [0, 1].
//
// IoU is the ratio of the overlapping area to the combined area of the
// two boxes. Disjoint boxes score 0; identical boxes score 1.
func IoU(a, b Box) float64 {
	ix, ok := Intersect(a, b)
	if !ok {
		return 0
	}
	inter := ix.Area()
	union := a.Area() + b.Area() - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

// Pad expands the box symmetrically by the given fraction of its own
// width and height. A fraction of 0.1 grows a 100x50 box by 10 pixels
// on the left and right and 5 pixels on the top and bottom.
func (b Box) Pad(fraction float64) Box {
	pw := fraction * b.Width()
	ph := fraction * b.Height()
	return Box{
		XMin: b.XMin - pw,
		YMin: b.YMin - ph,
		XMax: b.XMax + pw,
		YMax: b.YMax + ph,
	}
}

// Clamp restricts the box to the rectangle [0,width] x [0,height].
func (b Box) Clamp(width, height float64) Box {
	return Box{
		XMin: math.Max(0, b.XMin),
		YMin: math.Max(0, b.YMin),
		XMax: math.Min(width, b.XMax),
		YMax: math.Min(height, b.YMax),
	}
}

// Rect converts the box to an image.Rectangle, rounding edges outward
// so the pixel rectangle always covers the float box.
func (b Box) Rect() image.Rectangle {
	return image.Rect(
		int(math.Floor(b.XMin)),
		int(math.Floor(b.YMin)),
		int(math.Ceil(b.XMax)),
		int(math.Ceil(b.YMax)),
	)
}

// String renders the box as "(xmin,ymin)-(xmax,ymax)" for log output.
func (b Box) String() string {
	return fmt.Sprintf("(%.1f,%.1f)-(%.1f,%.1f)", b.XMin, b.YMin, b.XMax, b.YMax)
}
