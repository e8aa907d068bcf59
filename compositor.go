package main

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"io"

	"github.com/disintegration/imaging"

	"dressup/internal/compose"
)

type Compositor interface {
	Compose(ctx context.Context, avatar image.Image, garment io.Reader, w io.Writer) (*compose.Result, error)
}

// ImagingCompositor is an implementation of the Compositor interface that
// decodes and encodes with the disintegration/imaging library and delegates
// the image work to a compose.Pipeline.
type ImagingCompositor struct {
	pipeline   *compose.Pipeline
	format     imaging.Format
	background color.NRGBA
}

// NewImagingCompositor creates a compositor writing images in format.
// background is only used for formats without alpha.
func NewImagingCompositor(p *compose.Pipeline, format imaging.Format, background color.NRGBA) *ImagingCompositor {
	return &ImagingCompositor{
		pipeline:   p,
		format:     format,
		background: background,
	}
}

// Compose reads a garment image from garment, places it on avatar and writes
// the encoded composite to w.
func (c *ImagingCompositor) Compose(ctx context.Context, avatar image.Image, garment io.Reader, w io.Writer) (*compose.Result, error) {
	src, err := decodeImage(garment)
	if err != nil {
		return nil, fmt.Errorf("garment: %w", err)
	}

	res, err := c.pipeline.Run(ctx, avatar, src)
	if err != nil {
		return nil, err
	}

	if err := encodeImage(w, res.Image, c.format, c.background); err != nil {
		return nil, fmt.Errorf("failed to encode composite: %w", err)
	}
	return res, nil
}
