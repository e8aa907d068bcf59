// Package compose places a segmented garment onto an avatar image.
//
// A run is a fixed sequence of pure transforms:
//
//	segmented garment -> RefineMask -> CropToExtent -> Resize -> Place -> composite
//
// Every stage returns a freshly allocated *image.NRGBA and never mutates its
// input, so independent runs can execute concurrently without locking. Colours
// are non-premultiplied 8-bit RGBA throughout.
//
// Bounding boxes are inclusive on both ends: a single qualifying pixel at
// (x, y) yields BoundingBox{x, y, x, y}.
package compose
