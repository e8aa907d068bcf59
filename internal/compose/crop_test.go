package compose

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtent_SinglePixel(t *testing.T) {
	img := newFilled(10, 10, color.NRGBA{})
	setAlpha(img, image.Rect(3, 7, 4, 8), 1)

	box, ok := Extent(img)
	require.True(t, ok)
	assert.Equal(t, BoundingBox{MinX: 3, MinY: 7, MaxX: 3, MaxY: 7}, box)
	assert.Equal(t, 1, box.Width())
	assert.Equal(t, 1, box.Height())
	assert.Equal(t, image.Rect(3, 7, 4, 8), box.Rect())
}

func TestExtent_Empty(t *testing.T) {
	_, ok := Extent(newFilled(4, 4, color.NRGBA{R: 255, G: 255, B: 255}))
	assert.False(t, ok)
}

func TestCropToExtent_IsTight(t *testing.T) {
	shapes := []struct {
		name  string
		rects []image.Rectangle
	}{
		{"block", []image.Rectangle{image.Rect(5, 6, 20, 17)}},
		{"two blobs", []image.Rectangle{image.Rect(2, 30, 4, 33), image.Rect(25, 3, 28, 9)}},
		{"diagonal dots", []image.Rectangle{image.Rect(1, 1, 2, 2), image.Rect(38, 38, 39, 39)}},
		{"full frame", []image.Rectangle{image.Rect(0, 0, 40, 40)}},
	}

	for _, tt := range shapes {
		t.Run(tt.name, func(t *testing.T) {
			img := newFilled(40, 40, color.NRGBA{R: 9, G: 9, B: 9})
			for _, r := range tt.rects {
				setAlpha(img, r, 180)
			}

			out, box, err := CropToExtent(img, 0)
			require.NoError(t, err)

			w, h := out.Rect.Dx(), out.Rect.Dy()
			assert.Equal(t, box.Width(), w)
			assert.Equal(t, box.Height(), h)
			assert.LessOrEqual(t, w, 40)
			assert.LessOrEqual(t, h, 40)

			assert.True(t, rowHasAlpha(out, 0), "top row is empty")
			assert.True(t, rowHasAlpha(out, h-1), "bottom row is empty")
			assert.True(t, colHasAlpha(out, 0), "left column is empty")
			assert.True(t, colHasAlpha(out, w-1), "right column is empty")
		})
	}
}

func TestCropToExtent_KeepsSourcePixels(t *testing.T) {
	img := gradientAvatar(30, 30)
	setAlpha(img, img.Rect, 0)
	setAlpha(img, image.Rect(10, 12, 15, 20), 255)

	out, box, err := CropToExtent(img, 0)
	require.NoError(t, err)
	assert.Equal(t, BoundingBox{MinX: 10, MinY: 12, MaxX: 14, MaxY: 19}, box)
	assert.Equal(t, img.NRGBAAt(10, 12), out.NRGBAAt(0, 0))
	assert.Equal(t, img.NRGBAAt(14, 19), out.NRGBAAt(4, 7))
}

func TestCropToExtent_PaddingIsClamped(t *testing.T) {
	img := newFilled(10, 10, color.NRGBA{})
	setAlpha(img, image.Rect(1, 1, 2, 2), 255)
	setAlpha(img, image.Rect(6, 8, 7, 9), 255)

	out, box, err := CropToExtent(img, 3)
	require.NoError(t, err)
	assert.Equal(t, BoundingBox{MinX: 0, MinY: 0, MaxX: 9, MaxY: 9}, box)
	assert.Equal(t, image.Pt(10, 10), out.Rect.Size())

	out, box, err = CropToExtent(img, 1)
	require.NoError(t, err)
	assert.Equal(t, BoundingBox{MinX: 0, MinY: 0, MaxX: 7, MaxY: 9}, box)
	assert.Equal(t, image.Pt(8, 10), out.Rect.Size())
}

func TestCropToExtent_SubImage(t *testing.T) {
	img := newFilled(20, 20, color.NRGBA{})
	setAlpha(img, image.Rect(12, 14, 15, 16), 255)
	sub := img.SubImage(image.Rect(10, 10, 20, 20))

	out, box, err := CropToExtent(sub, 0)
	require.NoError(t, err)
	assert.Equal(t, BoundingBox{MinX: 2, MinY: 4, MaxX: 4, MaxY: 5}, box)
	assert.Equal(t, image.Pt(3, 2), out.Rect.Size())
}

func TestCropToExtent_EmptyForeground(t *testing.T) {
	sizes := []image.Point{{1, 1}, {3, 7}, {64, 64}}
	for _, size := range sizes {
		img := newFilled(size.X, size.Y, color.NRGBA{R: 255, G: 255, B: 255, A: 0})

		out, _, err := CropToExtent(img, 0)
		require.ErrorIs(t, err, ErrEmptyForeground, "size %v", size)
		assert.Nil(t, out)
	}
}

func TestCropToExtent_Rejects(t *testing.T) {
	_, _, err := CropToExtent(nil, 0)
	require.ErrorIs(t, err, ErrInvalidImage)

	_, _, err = CropToExtent(newFilled(4, 4, color.NRGBA{A: 255}), -1)
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func rowHasAlpha(img *image.NRGBA, y int) bool {
	for x := 0; x < img.Rect.Dx(); x++ {
		if alphaAt(img, x, y) > 0 {
			return true
		}
	}
	return false
}

func colHasAlpha(img *image.NRGBA, x int) bool {
	for y := 0; y < img.Rect.Dy(); y++ {
		if alphaAt(img, x, y) > 0 {
			return true
		}
	}
	return false
}
