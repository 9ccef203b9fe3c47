// Package geometry provides the box and point primitives used by the
// specimen localization engine.
//
// All coordinates are pixel coordinates in the source image's frame:
//   - Origin (0, 0) at the top-left corner
//   - X increases rightward
//   - Y increases downward
//
// Boxes are axis-aligned and stored as float64 corner coordinates
// (XMin, YMin, XMax, YMax) because the upstream detector reports
// sub-pixel box edges. A box is valid when XMin < XMax and YMin < YMax.
//
// Containment tests use inclusive boundaries on all four edges: a point
// lying exactly on a box edge is inside the box. A measurement point on
// the shared edge of two adjacent boxes therefore matches both; the
// deduplication and selection stages adjudicate such cases downstream.
//
// All functions are pure and safe for concurrent use.
package geometry
