package compose

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// BoundingBox is an axis-aligned box with inclusive bounds on both axes,
// relative to the image origin.
type BoundingBox struct {
	MinX, MinY int
	MaxX, MaxY int
}

// Width returns the number of columns covered by the box.
func (b BoundingBox) Width() int { return b.MaxX - b.MinX + 1 }

// Height returns the number of rows covered by the box.
func (b BoundingBox) Height() int { return b.MaxY - b.MinY + 1 }

// Rect converts the box to a half-open image.Rectangle.
func (b BoundingBox) Rect() image.Rectangle {
	return image.Rect(b.MinX, b.MinY, b.MaxX+1, b.MaxY+1)
}

// Pad grows the box by n pixels on every side and clamps it to a w x h image.
func (b BoundingBox) Pad(n, w, h int) BoundingBox {
	return BoundingBox{
		MinX: max(b.MinX-n, 0),
		MinY: max(b.MinY-n, 0),
		MaxX: min(b.MaxX+n, w-1),
		MaxY: min(b.MaxY+n, h-1),
	}
}

func (b BoundingBox) String() string {
	return fmt.Sprintf("bbox(%d,%d)-(%d,%d)", b.MinX, b.MinY, b.MaxX, b.MaxY)
}

// Extent returns the bounding box of all pixels with non-zero alpha. The
// boolean is false when no pixel qualifies.
func Extent(img *image.NRGBA) (BoundingBox, bool) {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	box := BoundingBox{MinX: w, MinY: h, MaxX: -1, MaxY: -1}
	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+w*4]
		for x := 0; x < w; x++ {
			if row[x*4+3] == 0 {
				continue
			}
			box.MinX = min(box.MinX, x)
			box.MaxX = max(box.MaxX, x)
			box.MinY = min(box.MinY, y)
			box.MaxY = y
		}
	}
	if box.MaxX < 0 {
		return BoundingBox{}, false
	}
	return box, true
}

// CropToExtent crops img to the extent of its non-transparent pixels, grown
// by padding pixels per side and clamped to the image. It returns
// ErrEmptyForeground when every pixel is transparent.
func CropToExtent(img image.Image, padding int) (*image.NRGBA, BoundingBox, error) {
	if err := checkImage(img); err != nil {
		return nil, BoundingBox{}, err
	}
	if padding < 0 {
		return nil, BoundingBox{}, fmt.Errorf("%w: negative padding %d", ErrInvalidConfig, padding)
	}

	src := imaging.Clone(img)
	box, ok := Extent(src)
	if !ok {
		return nil, BoundingBox{}, fmt.Errorf("%w: no pixel with alpha above zero", ErrEmptyForeground)
	}
	if padding > 0 {
		box = box.Pad(padding, src.Rect.Dx(), src.Rect.Dy())
	}

	return imaging.Crop(src, box.Rect()), box, nil
}
