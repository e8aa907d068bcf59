package compose

import (
	"context"
	"errors"
	"fmt"
	"image"
)

// Segmenter separates a garment from its background. The returned image
// carries the foreground probability in its alpha channel.
type Segmenter interface {
	Segment(ctx context.Context, img image.Image) (*image.NRGBA, error)
}

// SegmenterFunc adapts a function to the Segmenter interface.
type SegmenterFunc func(ctx context.Context, img image.Image) (*image.NRGBA, error)

func (f SegmenterFunc) Segment(ctx context.Context, img image.Image) (*image.NRGBA, error) {
	return f(ctx, img)
}

// Result is a finished composite together with where the garment went.
type Result struct {
	// Image has the dimensions of the avatar.
	Image *image.NRGBA
	// Extent is the garment box within the segmented image, after padding.
	Extent BoundingBox
	// Size is the garment size after resizing.
	Size image.Point
	// Offset is the garment's top-left corner on the avatar.
	Offset image.Point
}

// Pipeline runs Segment, Refine, Crop, Resize and Place in order. It holds
// no mutable state and may be shared between goroutines.
type Pipeline struct {
	cfg       Config
	segmenter Segmenter
}

// New validates cfg and returns a pipeline using seg for segmentation.
func New(cfg Config, seg Segmenter) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if seg == nil {
		return nil, fmt.Errorf("%w: nil segmenter", ErrInvalidConfig)
	}
	return &Pipeline{cfg: cfg, segmenter: seg}, nil
}

// Config returns the configuration the pipeline was built with.
func (p *Pipeline) Config() Config {
	return p.cfg
}

// Run segments garment and composites it onto avatar. Segmenter failures,
// including timeouts, are reported as ErrSegmentationUnavailable.
func (p *Pipeline) Run(ctx context.Context, avatar, garment image.Image) (*Result, error) {
	if err := checkImage(avatar); err != nil {
		return nil, fmt.Errorf("avatar: %w", err)
	}
	if err := checkImage(garment); err != nil {
		return nil, fmt.Errorf("garment: %w", err)
	}

	segmented, err := p.segment(ctx, garment)
	if err != nil {
		return nil, err
	}
	return p.Compose(avatar, segmented)
}

func (p *Pipeline) segment(ctx context.Context, garment image.Image) (*image.NRGBA, error) {
	if p.cfg.SegmentTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.SegmentTimeout)
		defer cancel()
	}

	segmented, err := p.segmenter.Segment(ctx, garment)
	if err != nil {
		if errors.Is(err, ErrSegmentationUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrSegmentationUnavailable, err)
	}
	if segmented == nil {
		return nil, fmt.Errorf("%w: segmenter returned no image", ErrSegmentationUnavailable)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSegmentationUnavailable, err)
	}
	return segmented, nil
}

// Compose runs the stages after segmentation: it cleans the alpha of
// segmented, crops it to the garment, scales it to the configured fraction
// of the avatar width and blends it onto a copy of avatar.
func (p *Pipeline) Compose(avatar, segmented image.Image) (*Result, error) {
	if err := checkImage(avatar); err != nil {
		return nil, fmt.Errorf("avatar: %w", err)
	}

	refined, err := RefineMask(segmented, p.cfg.NoiseFloor, p.cfg.SmoothRadius)
	if err != nil {
		return nil, fmt.Errorf("refine: %w", err)
	}

	cropped, box, err := CropToExtent(refined, p.cfg.Padding)
	if err != nil {
		return nil, fmt.Errorf("crop: %w", err)
	}

	canvas := avatar.Bounds().Size()
	resized, err := Resize(cropped, TargetWidth(canvas.X, p.cfg.WidthFraction), p.cfg.Filter)
	if err != nil {
		return nil, fmt.Errorf("resize: %w", err)
	}

	offset := PlacementFor(canvas, resized.Rect.Size(), p.cfg.VerticalFraction)
	out, err := Place(avatar, resized, offset)
	if err != nil {
		return nil, fmt.Errorf("place: %w", err)
	}

	return &Result{
		Image:  out,
		Extent: box,
		Size:   resized.Rect.Size(),
		Offset: offset,
	}, nil
}
