package segment

import (
	"context"
	"image"

	"github.com/anthonynsimon/bild/effect"
	bildsegment "github.com/anthonynsimon/bild/segment"
	"github.com/disintegration/imaging"
)

const (
	DefaultBackdropThreshold  = 240
	DefaultBackdropOpenRadius = 1
)

// Backdrop segments garments photographed on a white or very light backdrop
// without a model. Pixels with luminance below Threshold are garment, the rest
// is background. The mask is then opened (eroded and dilated by OpenRadius) to
// drop isolated specks. With KeepLargest, only the largest 4-connected region
// survives and enclosed backdrop-coloured areas (prints, logos, linings) are
// filled in. Edges come out hard; compose.RefineMask softens them.
type Backdrop struct {
	Threshold   uint8
	OpenRadius  float64
	KeepLargest bool
}

// NewBackdrop returns a Backdrop with the default threshold and radius.
func NewBackdrop() Backdrop {
	return Backdrop{
		Threshold:   DefaultBackdropThreshold,
		OpenRadius:  DefaultBackdropOpenRadius,
		KeepLargest: true,
	}
}

func (b Backdrop) Segment(ctx context.Context, img image.Image) (*image.NRGBA, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := checkImage(img); err != nil {
		return nil, err
	}

	dst := imaging.Clone(img)
	level := b.Threshold
	if level == 0 {
		level = DefaultBackdropThreshold
	}

	// Threshold paints the backdrop white; flip it so the garment is white.
	bw := bildsegment.Threshold(dst, level)
	mask := image.NewGray(bw.Rect)
	for i, v := range bw.Pix {
		mask.Pix[i] = 0xff - v
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var opened image.Image = mask
	if b.OpenRadius >= 1 {
		opened = effect.Dilate(effect.Erode(mask, b.OpenRadius), b.OpenRadius)
	}

	w, h := dst.Rect.Dx(), dst.Rect.Dy()
	fg := make([]bool, w*h)
	ob := opened.Bounds()
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, _, _, _ := opened.At(ob.Min.X+x, ob.Min.Y+y).RGBA()
			fg[y*w+x] = r>>8 >= 0x80
		}
	}
	if b.KeepLargest {
		fg = fillHoles(largestRegion(fg, w, h), w, h)
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var a uint8
			if fg[y*w+x] {
				a = 0xff
			}
			dst.Pix[y*dst.Stride+x*4+3] = a
		}
	}
	return dst, nil
}

// flood marks every pixel 4-connected to start whose value in grid equals
// want, and returns the visited indices.
func flood(grid []bool, seen []bool, w, h, start int, want bool) []int {
	region := []int{start}
	seen[start] = true
	for i := 0; i < len(region); i++ {
		p := region[i]
		x, y := p%w, p/w
		for _, n := range [4][2]int{{x - 1, y}, {x + 1, y}, {x, y - 1}, {x, y + 1}} {
			if n[0] < 0 || n[0] >= w || n[1] < 0 || n[1] >= h {
				continue
			}
			q := n[1]*w + n[0]
			if seen[q] || grid[q] != want {
				continue
			}
			seen[q] = true
			region = append(region, q)
		}
	}
	return region
}

// largestRegion keeps only the biggest 4-connected foreground region.
// Ties go to the region found first in scan order.
func largestRegion(fg []bool, w, h int) []bool {
	seen := make([]bool, len(fg))
	var best []int
	for p, on := range fg {
		if !on || seen[p] {
			continue
		}
		if region := flood(fg, seen, w, h, p, true); len(region) > len(best) {
			best = region
		}
	}
	out := make([]bool, len(fg))
	for _, p := range best {
		out[p] = true
	}
	return out
}

// fillHoles turns every background region that does not reach the image
// border into foreground.
func fillHoles(fg []bool, w, h int) []bool {
	outside := make([]bool, len(fg))
	for x := 0; x < w; x++ {
		for _, p := range []int{x, (h-1)*w + x} {
			if !fg[p] && !outside[p] {
				flood(fg, outside, w, h, p, false)
			}
		}
	}
	for y := 0; y < h; y++ {
		for _, p := range []int{y * w, y*w + w - 1} {
			if !fg[p] && !outside[p] {
				flood(fg, outside, w, h, p, false)
			}
		}
	}
	out := make([]bool, len(fg))
	for p := range fg {
		out[p] = fg[p] || !outside[p]
	}
	return out
}
