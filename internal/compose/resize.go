package compose

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// TargetWidth returns reference scaled by fraction, truncated toward zero.
func TargetWidth(reference int, fraction float64) int {
	return int(float64(reference) * fraction)
}

// TargetHeight returns the height that keeps a srcW x srcH image's aspect
// ratio at the given width, floor(width * srcH / srcW).
func TargetHeight(width, srcW, srcH int) (int, error) {
	if srcW <= 0 {
		return 0, fmt.Errorf("%w: source width is %d", ErrDegenerateGeometry, srcW)
	}
	return width * srcH / srcW, nil
}

// Resize scales img to the given width, deriving the height from the aspect
// ratio, using the named resampling filter. Alpha is resampled with the same
// kernel as colour.
func Resize(img image.Image, width int, filter string) (*image.NRGBA, error) {
	if img == nil {
		return nil, fmt.Errorf("%w: nil image", ErrInvalidImage)
	}
	rf, err := resampleFilter(filter)
	if err != nil {
		return nil, err
	}

	size := img.Bounds().Size()
	height, err := TargetHeight(width, size.X, size.Y)
	if err != nil {
		return nil, err
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: target size %dx%d from %dx%d",
			ErrDegenerateGeometry, width, height, size.X, size.Y)
	}

	return imaging.Resize(img, width, height, rf), nil
}
