package main

import (
	"bytes"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListGarments(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "tops"), 0755))
	for _, name := range []string{"b.JPG", "a.png", "tops/c.webp", "notes.txt", "tops/d.gif"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0644))
	}

	files, err := listGarments(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.png", "b.JPG", filepath.Join("tops", "c.webp")}, files)
}

func TestOutputFormat(t *testing.T) {
	tests := []struct {
		path    string
		want    imaging.Format
		wantErr bool
	}{
		{"out.png", imaging.PNG, false},
		{"out.JPG", imaging.JPEG, false},
		{"out.jpeg", imaging.JPEG, false},
		{"out", imaging.PNG, false},
		{"out.gif", 0, true},
		{"out.xyz", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := outputFormat(tt.path)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseBackground(t *testing.T) {
	c, err := parseBackground("#ffffff")
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{R: 255, G: 255, B: 255, A: 255}, c)

	c, err = parseBackground("#0a141e")
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{R: 10, G: 20, B: 30, A: 255}, c)

	_, err = parseBackground("white")
	require.Error(t, err)
}

func TestEncodeImage_JPEGIsFlattened(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 16, 16))

	var buf bytes.Buffer
	require.NoError(t, encodeImage(&buf, img, imaging.JPEG, color.NRGBA{G: 255, A: 255}))

	out, err := imaging.Decode(&buf)
	require.NoError(t, err)
	r, g, b, _ := out.At(8, 8).RGBA()
	assert.InDelta(t, 0, int(r>>8), 8)
	assert.InDelta(t, 255, int(g>>8), 8)
	assert.InDelta(t, 0, int(b>>8), 8)
}

func TestEncodeImage_PNGKeepsAlpha(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	img.SetNRGBA(1, 1, color.NRGBA{R: 9, A: 100})

	var buf bytes.Buffer
	require.NoError(t, encodeImage(&buf, img, imaging.PNG, color.NRGBA{}))

	out, err := imaging.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{R: 9, A: 100}, imaging.Clone(out).NRGBAAt(1, 1))
	assert.Equal(t, uint8(0), imaging.Clone(out).NRGBAAt(0, 0).A)
}
