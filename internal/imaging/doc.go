// Package imaging loads group photographs and writes specimen crops.
//
// All pixel coordinates use the standard image convention: origin
// (0,0) at the top-left corner, X increasing rightward, Y increasing
// downward. Crop regions arrive as float boxes from the localization
// engine and are rounded outward to pixel rectangles, so a crop always
// covers its box.
//
// # Thread Safety
//
// ImageCache is safe for concurrent use: parallel image workers share
// one cache. CropSpecimen and WriteCrop are pure with respect to their
// inputs and may run concurrently on different specimens of the same
// image.
//
// # Determinism
//
// Cropping, the Lanczos letterbox resize, and PNG encoding are all
// deterministic, so identical inputs and configuration reproduce
// byte-identical crop files across runs.
package imaging
