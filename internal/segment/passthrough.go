package segment

import (
	"context"
	"fmt"
	"image"

	"github.com/disintegration/imaging"

	"dressup/internal/compose"
)

// Passthrough uses the alpha channel the garment image already has, for
// example a PNG that was cut out beforehand.
type Passthrough struct{}

func (Passthrough) Segment(ctx context.Context, img image.Image) (*image.NRGBA, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := checkImage(img); err != nil {
		return nil, err
	}
	return imaging.Clone(img), nil
}

func checkImage(img image.Image) error {
	if img == nil {
		return fmt.Errorf("%w: nil image", compose.ErrInvalidImage)
	}
	if b := img.Bounds(); b.Empty() {
		return fmt.Errorf("%w: %dx%d", compose.ErrInvalidImage, b.Dx(), b.Dy())
	}
	return nil
}
