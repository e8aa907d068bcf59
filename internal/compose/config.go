package compose

import (
	"fmt"
	"time"

	"github.com/disintegration/imaging"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Config holds the tunables of a compositing run. The zero value is not
// usable; start from DefaultConfig.
type Config struct {
	// NoiseFloor is the alpha value below which pixels are forced transparent.
	NoiseFloor uint8 `json:"noise_floor"`
	// SmoothRadius is the alpha blur radius in pixels. 0 disables smoothing.
	SmoothRadius int `json:"smooth_radius" validate:"gte=0,lte=2"`
	// Padding is added around the garment extent before cropping.
	Padding int `json:"padding" validate:"gte=0"`
	// WidthFraction is the garment width relative to the avatar width.
	WidthFraction float64 `json:"width_fraction" validate:"gt=0,lte=1"`
	// VerticalFraction is the garment top edge relative to the avatar height.
	VerticalFraction float64 `json:"vertical_fraction" validate:"gte=0,lt=1"`
	// Filter names the resampling filter used by Resize.
	Filter string `json:"filter" validate:"oneof=lanczos catmullrom mitchell box"`
	// SegmentTimeout bounds the segmenter call in Pipeline.Run. 0 means no limit.
	SegmentTimeout time.Duration `json:"segment_timeout" validate:"gte=0"`
}

// DefaultConfig returns the reference tunables: noise floor 10, 3x3 smoothing,
// no padding, half the avatar width, 18% down from the top.
func DefaultConfig() Config {
	return Config{
		NoiseFloor:       10,
		SmoothRadius:     1,
		Padding:          0,
		WidthFraction:    0.5,
		VerticalFraction: 0.18,
		Filter:           "lanczos",
		SegmentTimeout:   30 * time.Second,
	}
}

// Validate reports the first invalid field, wrapped in ErrInvalidConfig.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		if errs, ok := err.(validator.ValidationErrors); ok && len(errs) > 0 {
			fe := errs[0]
			return fmt.Errorf("%w: %s failed %q (%s)", ErrInvalidConfig, fe.Field(), fe.Tag(), fe.Param())
		}
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

func (c Config) String() string {
	return fmt.Sprintf("config(floor=%d,smooth=%d,pad=%d,width=%.3f,top=%.3f,filter=%s)",
		c.NoiseFloor, c.SmoothRadius, c.Padding, c.WidthFraction, c.VerticalFraction, c.Filter)
}

// resampleFilter maps a filter name to its imaging kernel. Names are
// case-sensitive, matching Validate. Nearest-neighbour and linear filters are
// not offered.
func resampleFilter(name string) (imaging.ResampleFilter, error) {
	switch name {
	case "lanczos":
		return imaging.Lanczos, nil
	case "catmullrom":
		return imaging.CatmullRom, nil
	case "mitchell":
		return imaging.MitchellNetravali, nil
	case "box":
		return imaging.Box, nil
	}
	return imaging.ResampleFilter{}, fmt.Errorf("%w: unknown filter %q", ErrInvalidConfig, name)
}
