package cloak

import (
	"fmt"
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

// Tolerance is the half-width of a range built around a swatch, per channel,
// in OpenCV's HSV scale.
type Tolerance struct {
	Hue        int
	Saturation int
	Value      int
}

// DefaultTolerance is wide enough to absorb typical webcam lighting changes.
func DefaultTolerance() Tolerance {
	return Tolerance{Hue: 10, Saturation: 90, Value: 100}
}

// ToHSV converts an RGB colour to OpenCV's 8-bit HSV scale.
func ToHSV(c colorful.Color) HSV {
	h, s, v := c.Clamped().Hsv()
	hue := int(math.Round(h/2)) % (MaxHue + 1)
	return HSV{
		H: hue,
		S: int(math.Round(s * MaxSaturation)),
		V: int(math.Round(v * MaxValue)),
	}
}

// Color renders an HSV triple as an RGB colour.
func (c HSV) Color() colorful.Color {
	return colorful.Hsv(float64(c.H)*2, float64(c.S)/MaxSaturation, float64(c.V)/MaxValue)
}

// Hex renders an HSV triple as a #rrggbb string.
func (c HSV) Hex() string {
	return c.Color().Clamped().Hex()
}

// ParseHex parses a #rrggbb swatch into OpenCV HSV.
func ParseHex(s string) (HSV, error) {
	c, err := colorful.Hex(s)
	if err != nil {
		return HSV{}, fmt.Errorf("parse colour %q: %w", s, err)
	}
	return ToHSV(c), nil
}

// RangesFromColor builds the ranges matching c within tol. Hue wraps at
// 0/179, so a swatch close to red yields two ranges.
func RangesFromColor(c colorful.Color, tol Tolerance) []Range {
	center := ToHSV(c)
	name := c.Clamped().Hex()

	lower := HSV{
		H: center.H - tol.Hue,
		S: center.S - tol.Saturation,
		V: center.V - tol.Value,
	}
	upper := HSV{
		H: center.H + tol.Hue,
		S: center.S + tol.Saturation,
		V: center.V + tol.Value,
	}
	return WrapRanges(name, lower, upper)
}

// WrapRanges turns a box whose hue may run past 0 or 179 into valid
// ranges. S and V are clamped; an out-of-scale hue spills into a second
// range on the other side of the wheel.
func WrapRanges(name string, lower, upper HSV) []Range {
	lower.S = clampInt(lower.S, 0, MaxSaturation)
	lower.V = clampInt(lower.V, 0, MaxValue)
	upper.S = clampInt(upper.S, 0, MaxSaturation)
	upper.V = clampInt(upper.V, 0, MaxValue)

	if upper.H-lower.H >= MaxHue {
		lower.H, upper.H = 0, MaxHue
		return []Range{{Name: name, Lower: lower, Upper: upper}}
	}

	switch {
	case lower.H < 0:
		wrapped := Range{Name: name + " wrap", Lower: HSV{lower.H + MaxHue + 1, lower.S, lower.V}, Upper: HSV{MaxHue, upper.S, upper.V}}
		lower.H = 0
		return []Range{{Name: name, Lower: lower, Upper: upper}, wrapped}
	case upper.H > MaxHue:
		wrapped := Range{Name: name + " wrap", Lower: HSV{0, lower.S, lower.V}, Upper: HSV{upper.H - MaxHue - 1, upper.S, upper.V}}
		upper.H = MaxHue
		return []Range{{Name: name, Lower: lower, Upper: upper}, wrapped}
	}
	return []Range{{Name: name, Lower: lower, Upper: upper}}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
