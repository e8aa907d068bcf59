package main

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"dressup/internal/compose"
	"dressup/internal/segment"
)

func opaqueAvatar(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 60, A: 255})
		}
	}
	return img
}

// cutoutGarment is transparent except for an opaque square of side n/2 in
// the middle.
func cutoutGarment(n int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, n, n))
	for y := n / 4; y < n*3/4; y++ {
		for x := n / 4; x < n*3/4; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 250, G: 10, B: 10, A: 255})
		}
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func writePNG(t *testing.T, path string, img image.Image) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, encodePNG(t, img), 0644))
}

func newTestPipeline(t *testing.T, seg compose.Segmenter) *compose.Pipeline {
	t.Helper()
	if seg == nil {
		seg = segment.Passthrough{}
	}
	p, err := compose.New(compose.DefaultConfig(), seg)
	require.NoError(t, err)
	return p
}
