// Package segment provides compose.Segmenter implementations: a passthrough
// for garments that already carry alpha, a model-free segmenter for garments
// photographed on a light backdrop, and an HTTP client for a rembg-compatible
// background removal server.
package segment
