package compose

import (
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"
)

// PlacementFor returns the top-left corner at which a foreground of size fg
// lands on a canvas of size canvas: centred horizontally and vertical
// fraction of the canvas height down from the top. The horizontal offset is
// negative when the foreground is wider than the canvas.
func PlacementFor(canvas, fg image.Point, vertical float64) image.Point {
	return image.Point{
		X: floorDiv(canvas.X-fg.X, 2),
		Y: int(math.Round(float64(canvas.Y) * vertical)),
	}
}

// Place returns a copy of canvas with fg alpha-blended over it, fg's top-left
// corner at offset. Parts of fg outside the canvas are dropped. canvas is
// not modified.
func Place(canvas image.Image, fg *image.NRGBA, offset image.Point) (*image.NRGBA, error) {
	if err := checkImage(canvas); err != nil {
		return nil, err
	}
	if fg == nil {
		return nil, fmt.Errorf("%w: nil foreground", ErrInvalidImage)
	}
	if err := checkImage(fg); err != nil {
		return nil, err
	}

	dst := imaging.Clone(canvas)
	paste := image.Rectangle{Min: offset, Max: offset.Add(fg.Rect.Size())}
	inter := paste.Intersect(dst.Rect)
	if inter.Empty() {
		return dst, nil
	}

	for y := inter.Min.Y; y < inter.Max.Y; y++ {
		di := dst.PixOffset(inter.Min.X, y)
		si := fg.PixOffset(fg.Rect.Min.X+inter.Min.X-offset.X, fg.Rect.Min.Y+y-offset.Y)
		for x := inter.Min.X; x < inter.Max.X; x++ {
			if fg.Pix[si+3] > 0 {
				blendOver(dst.Pix[di:di+4:di+4], fg.Pix[si:si+4:si+4])
			}
			di += 4
			si += 4
		}
	}
	return dst, nil
}

// blendOver composites the non-premultiplied source pixel s over d in place.
func blendOver(d, s []uint8) {
	sa := float64(s[3]) / 255
	da := float64(d[3]) / 255
	oa := sa + da*(1-sa)
	if oa <= 0 {
		return
	}
	for c := 0; c < 3; c++ {
		v := (float64(s[c])*sa + float64(d[c])*da*(1-sa)) / oa
		d[c] = uint8(math.Min(math.Round(v), 255))
	}
	d[3] = uint8(math.Min(math.Round(oa*255), 255))
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
