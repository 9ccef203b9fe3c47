// Package detector acquires raw specimen candidates from an external
// zero-shot object detector.
//
// The detector itself is an external collaborator: a pretrained model
// served behind a request/response interface that takes an image plus a
// text prompt and returns a list of (box, confidence) pairs. This
// package defines the Detector interface the localization engine
// consumes, one concrete HTTP adapter for an inference service, and the
// validation applied to every response before candidates enter the
// engine.
//
// # Candidate Validation
//
// The inference service is assumed to return boxes already clamped to
// plausible image coordinates, but responses are validated anyway:
// candidates with degenerate boxes (zero or inverted extent), boxes
// outside the image plane, or confidences outside [0, 1] are rejected
// outright. Rejecting rather than clamping keeps a malformed box from
// silently inflating its area and surviving filtering it should not.
//
// # Thread Safety
//
// HTTPDetector is safe for concurrent use; it holds no mutable state
// beyond an http.Client, which is itself concurrency-safe. Workers may
// share a single adapter instance.
package detector
