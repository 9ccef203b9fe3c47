// Package locate implements the specimen localization and selection
// engine.
//
// The engine reconciles the noisy candidate boxes returned by a
// zero-shot detector against the measurement points recorded for each
// specimen, and commits exactly one trustworthy box per specimen. The
// stages run in a fixed order per image:
//
//  1. Adaptive area filter: drop candidates whose box area is
//     implausible relative to the image and to the other candidates in
//     the same photograph.
//  2. Point-containment matcher: associate each specimen's measurement
//     points with the candidates whose boxes contain all of them.
//  3. Duplicate suppressor: per-specimen greedy IoU non-maximum
//     suppression collapsing near-duplicate boxes.
//  4. Selector: pick the single best box per specimen by a weighted
//     confidence/area score with a total, deterministic tie-break
//     chain.
//
// Each specimen moves through the states unresolved, candidate-set,
// deduplicated, selected. A specimen that never leaves unresolved is
// reported with the reason; it never fails the image, and a failed
// image never fails the run.
//
// All per-image state (such as the median candidate area used for
// outlier rejection) is computed inside the call and discarded; the
// engine holds only immutable configuration and is safe for concurrent
// use across images.
package locate
