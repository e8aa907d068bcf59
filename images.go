package main

import (
	"fmt"
	"image"
	"image/color"
	"io"
	"io/fs"
	"path/filepath"
	"slices"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"
	_ "golang.org/x/image/webp" // register the WebP decoder with image.Decode

	"dressup/internal/compose"
)

var garmentExtensions = []string{".jpg", ".jpeg", ".png", ".webp"}

// listGarments returns the paths, relative to rootPath, of every garment
// image below rootPath in lexical order.
func listGarments(rootPath string) ([]string, error) {
	var files []string
	if err := filepath.WalkDir(rootPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if !slices.Contains(garmentExtensions, strings.ToLower(filepath.Ext(path))) {
			return nil
		}

		relPath, err := filepath.Rel(rootPath, path)
		if err != nil {
			return fmt.Errorf("failed to get relative path: %w", err)
		}
		files = append(files, relPath)
		return nil
	}); err != nil {
		return nil, err
	}
	return files, nil
}

func loadImage(path string) (image.Image, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to open image %s: %w", path, err)
	}
	return img, nil
}

func decodeImage(r io.Reader) (image.Image, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode: %w", compose.ErrInvalidImage, err)
	}
	return img, nil
}

// outputFormat picks the encoder from the file extension. Only PNG and JPEG
// are written.
func outputFormat(path string) (imaging.Format, error) {
	if filepath.Ext(path) == "" {
		return imaging.PNG, nil
	}
	format, err := imaging.FormatFromFilename(path)
	if err != nil {
		return 0, fmt.Errorf("unsupported output %s: %w", path, err)
	}
	switch format {
	case imaging.PNG, imaging.JPEG:
		return format, nil
	}
	return 0, fmt.Errorf("unsupported output format %s", format)
}

// encodeImage writes img in the given format. Formats without alpha get the
// image flattened onto background first.
func encodeImage(w io.Writer, img image.Image, format imaging.Format, background color.NRGBA) error {
	if format == imaging.JPEG {
		b := img.Bounds()
		flat := imaging.New(b.Dx(), b.Dy(), background)
		flat = imaging.Overlay(flat, img, image.Pt(0, 0), 1.0)
		return imaging.Encode(w, flat, imaging.JPEG, imaging.JPEGQuality(90))
	}
	return imaging.Encode(w, img, format)
}

func parseBackground(hex string) (color.NRGBA, error) {
	c, err := colorful.Hex(hex)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid background colour %q: %w", hex, err)
	}
	r, g, b := c.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 255}, nil
}
