// Package cloak implements the invisibility cloak frame processor.
// Cloth-coloured pixels are detected in HSV space, cleaned up with a fixed
// morphology sequence and replaced by the captured background.
package cloak

import (
	"errors"
	"fmt"
	"strings"
)

// OpenCV's 8-bit HSV scale.
const (
	MaxHue        = 179
	MaxSaturation = 255
	MaxValue      = 255
)

// ErrInvalidConfig is returned when a Config fails validation.
var ErrInvalidConfig = errors.New("invalid cloak config")

// HSV is a colour in OpenCV's 8-bit HSV scale (H 0-179, S and V 0-255).
type HSV struct {
	H int `yaml:"h"`
	S int `yaml:"s"`
	V int `yaml:"v"`
}

// String formats the triple the way the calibration tool prints it.
func (c HSV) String() string {
	return fmt.Sprintf("[%d, %d, %d]", c.H, c.S, c.V)
}

// Range is an inclusive HSV box. A pixel matches when every channel lies
// between Lower and Upper.
type Range struct {
	Name  string `yaml:"name,omitempty"`
	Lower HSV    `yaml:"lower"`
	Upper HSV    `yaml:"upper"`
}

// Contains reports whether c lies inside the range.
func (r Range) Contains(c HSV) bool {
	return c.H >= r.Lower.H && c.H <= r.Upper.H &&
		c.S >= r.Lower.S && c.S <= r.Upper.S &&
		c.V >= r.Lower.V && c.V <= r.Upper.V
}

// Cleanup holds the mask cleanup parameters.
// Kernels are square and rectangular; blur kernels must be odd.
type Cleanup struct {
	// Closing fills small gaps inside the cloth region.
	CloseKernel     int `yaml:"close_kernel"`
	CloseIterations int `yaml:"close_iterations"`

	// Opening removes isolated false-positive speckles.
	OpenKernel     int `yaml:"open_kernel"`
	OpenIterations int `yaml:"open_iterations"`

	// Dilation grows the region slightly to hide ragged edges.
	DilateKernel     int `yaml:"dilate_kernel"`
	DilateIterations int `yaml:"dilate_iterations"`

	MedianKernel int `yaml:"median_kernel"` // salt-and-pepper removal
	BlurKernel   int `yaml:"blur_kernel"`   // Gaussian edge softening

	// Threshold re-binarizes the blurred mask; values above it become 255.
	Threshold int `yaml:"threshold"`
}

// Config holds all tunable frame processor parameters.
type Config struct {
	Cloth   []Range `yaml:"cloth"` // unioned target colour ranges
	Skin    []Range `yaml:"skin"`  // unioned skin ranges, subtracted from the cloth mask
	Cleanup Cleanup `yaml:"cleanup"`
}

// DefaultConfig returns the dark-green cloth configuration with skin
// suppression and the smooth cleanup sequence.
func DefaultConfig() Config {
	return Config{
		Cloth:   DarkGreenRanges(),
		Skin:    SkinRanges(),
		Cleanup: SmoothCleanup(),
	}
}

// DarkGreenRanges covers a dark green cloth under dim, medium and bright light.
func DarkGreenRanges() []Range {
	return []Range{
		{Name: "very dark green", Lower: HSV{35, 40, 20}, Upper: HSV{85, 255, 180}},
		{Name: "medium dark green", Lower: HSV{30, 60, 30}, Upper: HSV{90, 255, 200}},
		{Name: "bright dark green", Lower: HSV{40, 80, 40}, Upper: HSV{80, 255, 220}},
	}
}

// SkinRanges covers typical light to medium skin tones.
func SkinRanges() []Range {
	return []Range{
		{Name: "light skin", Lower: HSV{0, 20, 70}, Upper: HSV{20, 150, 255}},
		{Name: "very light skin", Lower: HSV{0, 10, 60}, Upper: HSV{25, 80, 200}},
		{Name: "medium skin", Lower: HSV{10, 30, 80}, Upper: HSV{25, 120, 220}},
	}
}

// SmoothCleanup is the default cleanup: large kernels, several passes.
// It favours a solid mask over edge fidelity.
func SmoothCleanup() Cleanup {
	return Cleanup{
		CloseKernel:      9,
		CloseIterations:  4,
		OpenKernel:       5,
		OpenIterations:   2,
		DilateKernel:     9,
		DilateIterations: 3,
		MedianKernel:     25,
		BlurKernel:       15,
		Threshold:        127,
	}
}

// FastCleanup trades mask smoothness for responsiveness and tighter edges.
func FastCleanup() Cleanup {
	return Cleanup{
		CloseKernel:      5,
		CloseIterations:  2,
		OpenKernel:       3,
		OpenIterations:   1,
		DilateKernel:     5,
		DilateIterations: 1,
		MedianKernel:     9,
		BlurKernel:       7,
		Threshold:        127,
	}
}

// Validate checks if the config values are within valid ranges.
// Returns a list of validation errors, or nil if valid.
func (c *Config) Validate() []string {
	var errs []string

	if len(c.Cloth) == 0 {
		errs = append(errs, "at least one cloth range is required")
	}
	for i, r := range c.Cloth {
		errs = append(errs, r.validate(fmt.Sprintf("cloth[%d]", i))...)
	}
	for i, r := range c.Skin {
		errs = append(errs, r.validate(fmt.Sprintf("skin[%d]", i))...)
	}

	cl := c.Cleanup
	kernels := []struct {
		name string
		v    int
	}{
		{"close_kernel", cl.CloseKernel},
		{"open_kernel", cl.OpenKernel},
		{"dilate_kernel", cl.DilateKernel},
	}
	for _, k := range kernels {
		if k.v < 1 {
			errs = append(errs, k.name+" must be at least 1")
		}
	}

	iterations := []struct {
		name string
		v    int
	}{
		{"close_iterations", cl.CloseIterations},
		{"open_iterations", cl.OpenIterations},
		{"dilate_iterations", cl.DilateIterations},
	}
	for _, it := range iterations {
		if it.v < 0 {
			errs = append(errs, it.name+" must not be negative")
		}
	}

	// Median blur on 8-bit images accepts any odd size > 1; 1 disables it.
	if cl.MedianKernel < 1 || cl.MedianKernel%2 == 0 {
		errs = append(errs, "median_kernel must be a positive odd number")
	}
	if cl.BlurKernel < 1 || cl.BlurKernel%2 == 0 {
		errs = append(errs, "blur_kernel must be a positive odd number")
	}
	if cl.Threshold < 0 || cl.Threshold > 254 {
		errs = append(errs, "threshold must be between 0 and 254")
	}

	return errs
}

// Err returns Validate's findings as a single error wrapping ErrInvalidConfig.
func (c *Config) Err() error {
	if errs := c.Validate(); len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(errs, "; "))
	}
	return nil
}

func (r Range) validate(label string) []string {
	var errs []string
	check := func(name string, v, max int) {
		if v < 0 || v > max {
			errs = append(errs, fmt.Sprintf("%s %s must be between 0 and %d", label, name, max))
		}
	}
	check("lower.h", r.Lower.H, MaxHue)
	check("upper.h", r.Upper.H, MaxHue)
	check("lower.s", r.Lower.S, MaxSaturation)
	check("upper.s", r.Upper.S, MaxSaturation)
	check("lower.v", r.Lower.V, MaxValue)
	check("upper.v", r.Upper.V, MaxValue)

	if r.Lower.H > r.Upper.H || r.Lower.S > r.Upper.S || r.Lower.V > r.Upper.V {
		errs = append(errs, label+" lower bound exceeds upper bound")
	}
	return errs
}
