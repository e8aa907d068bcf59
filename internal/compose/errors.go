package compose

import "errors"

var (
	// ErrInvalidImage is returned for nil or zero-dimension input images.
	ErrInvalidImage = errors.New("invalid image")
	// ErrEmptyForeground is returned when no pixel survives mask refinement.
	ErrEmptyForeground = errors.New("empty foreground")
	// ErrDegenerateGeometry is returned when a computed width or height is zero.
	ErrDegenerateGeometry = errors.New("degenerate geometry")
	// ErrSegmentationUnavailable is returned when the segmenter fails or times out.
	ErrSegmentationUnavailable = errors.New("segmentation unavailable")
	// ErrInvalidConfig is returned for configurations rejected by Validate.
	ErrInvalidConfig = errors.New("invalid config")
)
