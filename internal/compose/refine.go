package compose

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// Binomial approximations of a Gaussian. The 3x3 kernel matches a sigma of
// roughly 0.85 px, the 5x5 one roughly 1.2 px.
var (
	gauss3 = [9]float64{
		1, 2, 1,
		2, 4, 2,
		1, 2, 1,
	}
	gauss5 = [25]float64{
		1, 4, 6, 4, 1,
		4, 16, 24, 16, 4,
		6, 24, 36, 24, 6,
		4, 16, 24, 16, 4,
		1, 4, 6, 4, 1,
	}
)

// RefineMask cleans the alpha channel of a freshly segmented image: alpha
// values below floor become 0, then alpha is blurred with the given radius.
// Colour channels are copied unchanged. The input is not modified.
//
// Because the blur runs after thresholding, edge pixels of very faint
// features may end up with small non-zero alpha again; running RefineMask
// twice is therefore not idempotent.
func RefineMask(img image.Image, floor uint8, radius int) (*image.NRGBA, error) {
	dst, err := ThresholdAlpha(img, floor)
	if err != nil {
		return nil, err
	}
	smoothAlpha(dst, radius)
	return dst, nil
}

// ThresholdAlpha returns a copy of img with every alpha value below floor
// forced to 0.
func ThresholdAlpha(img image.Image, floor uint8) (*image.NRGBA, error) {
	if err := checkImage(img); err != nil {
		return nil, err
	}
	dst := imaging.Clone(img)
	for i := 3; i < len(dst.Pix); i += 4 {
		if dst.Pix[i] < floor {
			dst.Pix[i] = 0
		}
	}
	return dst, nil
}

// SmoothAlpha returns a copy of img whose alpha channel is blurred with a
// binomial kernel of the given radius (1 or 2). A radius of 0 only copies.
func SmoothAlpha(img image.Image, radius int) (*image.NRGBA, error) {
	if err := checkImage(img); err != nil {
		return nil, err
	}
	dst := imaging.Clone(img)
	smoothAlpha(dst, radius)
	return dst, nil
}

// smoothAlpha blurs the alpha channel of dst in place. The alpha plane is
// copied into the colour channels of an opaque scratch image since imaging's
// convolution filters colour and passes alpha through.
func smoothAlpha(dst *image.NRGBA, radius int) {
	if radius <= 0 {
		return
	}
	plane := image.NewNRGBA(image.Rect(0, 0, dst.Rect.Dx(), dst.Rect.Dy()))
	for i := 0; i < len(plane.Pix); i += 4 {
		a := dst.Pix[i+3]
		plane.Pix[i+0] = a
		plane.Pix[i+1] = a
		plane.Pix[i+2] = a
		plane.Pix[i+3] = 0xff
	}

	opts := &imaging.ConvolveOptions{Normalize: true}
	var blurred *image.NRGBA
	if radius == 1 {
		blurred = imaging.Convolve3x3(plane, gauss3, opts)
	} else {
		blurred = imaging.Convolve5x5(plane, gauss5, opts)
	}

	for i := 0; i < len(dst.Pix); i += 4 {
		dst.Pix[i+3] = blurred.Pix[i]
	}
}

func checkImage(img image.Image) error {
	if img == nil {
		return fmt.Errorf("%w: nil image", ErrInvalidImage)
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidImage, b.Dx(), b.Dy())
	}
	return nil
}
