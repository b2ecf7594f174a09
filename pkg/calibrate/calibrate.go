// Package calibrate helps find the HSV range of a physical cloth: it samples
// a patch of an HSV frame and reports the range a user settled on.
package calibrate

import (
	"errors"
	"fmt"
	"image"
	"io"
	"math"

	"gocv.io/x/gocv"
	"gonum.org/v1/gonum/stat"
	"gopkg.in/yaml.v3"

	"github.com/teslashibe/go-cloak/pkg/cloak"
)

// ErrEmptyPatch is returned when the sample patch does not overlap the frame.
var ErrEmptyPatch = errors.New("sample patch is empty")

// DefaultRange is the slider start position: a red-ish hue band with
// moderate saturation and value floors.
func DefaultRange() cloak.Range {
	return cloak.Range{
		Lower: cloak.HSV{H: 0, S: 50, V: 50},
		Upper: cloak.HSV{H: 10, S: 255, V: 255},
	}
}

// Stats summarizes the HSV pixels of a patch.
type Stats struct {
	Mean   cloak.HSV
	StdDev [3]float64 // H, S, V
	Pixels int
}

// CenterPatch returns a square patch in the middle of a frame of the given
// size, with a side of frac times the shorter frame edge.
func CenterPatch(size image.Point, frac float64) image.Rectangle {
	side := int(float64(min(size.X, size.Y)) * frac)
	if side < 1 {
		side = 1
	}
	x0 := (size.X - side) / 2
	y0 := (size.Y - side) / 2
	return image.Rect(x0, y0, x0+side, y0+side)
}

// Sample computes per-channel statistics of hsv inside patch. Hue is treated
// as an angle so a red patch straddling 0/179 averages correctly.
func Sample(hsv gocv.Mat, patch image.Rectangle) (Stats, error) {
	patch = patch.Intersect(image.Rect(0, 0, hsv.Cols(), hsv.Rows()))
	if patch.Empty() || hsv.Channels() != 3 {
		return Stats{}, ErrEmptyPatch
	}

	region := hsv.Region(patch)
	defer region.Close()

	n := patch.Dx() * patch.Dy()
	angles := make([]float64, 0, n)
	sats := make([]float64, 0, n)
	vals := make([]float64, 0, n)
	for y := 0; y < region.Rows(); y++ {
		for x := 0; x < region.Cols(); x++ {
			v := region.GetVecbAt(y, x)
			angles = append(angles, float64(v[0])*2*math.Pi/(cloak.MaxHue+1))
			sats = append(sats, float64(v[1]))
			vals = append(vals, float64(v[2]))
		}
	}

	meanAngle := stat.CircularMean(angles, nil)
	meanHue := math.Mod(meanAngle*(cloak.MaxHue+1)/(2*math.Pi)+cloak.MaxHue+1, cloak.MaxHue+1)

	// Hue spread is measured on the shortest way round the wheel.
	diffs := make([]float64, len(angles))
	for i, a := range angles {
		h := a * (cloak.MaxHue + 1) / (2 * math.Pi)
		diffs[i] = wrapHue(h - meanHue)
	}

	meanS, stdS := stat.MeanStdDev(sats, nil)
	meanV, stdV := stat.MeanStdDev(vals, nil)

	return Stats{
		Mean: cloak.HSV{
			H: int(math.Round(meanHue)) % (cloak.MaxHue + 1),
			S: int(math.Round(meanS)),
			V: int(math.Round(meanV)),
		},
		StdDev: [3]float64{stdDev(diffs), nanToZero(stdS), nanToZero(stdV)},
		Pixels: n,
	}, nil
}

// Suggest builds ranges spanning k standard deviations around the mean,
// never narrower than the given minimum half-widths.
func Suggest(s Stats, k float64, floor cloak.Tolerance) []cloak.Range {
	half := func(std float64, atLeast int) int {
		return max(int(math.Ceil(k*std)), atLeast)
	}
	dh := half(s.StdDev[0], floor.Hue)
	ds := half(s.StdDev[1], floor.Saturation)
	dv := half(s.StdDev[2], floor.Value)

	lower := cloak.HSV{H: s.Mean.H - dh, S: s.Mean.S - ds, V: s.Mean.V - dv}
	upper := cloak.HSV{H: s.Mean.H + dh, S: s.Mean.S + ds, V: s.Mean.V + dv}
	return cloak.WrapRanges("calibrated", lower, upper)
}

// Report prints the final range the way the calibration tool always has,
// followed by a settings-file snippet.
func Report(w io.Writer, r cloak.Range) error {
	if r.Name == "" {
		r.Name = "calibrated"
	}

	fmt.Fprintln(w, "Final HSV values:")
	fmt.Fprintf(w, "Lower: %s\n", r.Lower)
	fmt.Fprintf(w, "Upper: %s\n", r.Upper)
	fmt.Fprintf(w, "Swatches: %s .. %s\n", r.Lower.Hex(), r.Upper.Hex())
	fmt.Fprintln(w)
	fmt.Fprintln(w, "# Paste into your settings file:")

	snippet := map[string]any{
		"cloak": map[string]any{
			"cloth": []cloak.Range{r},
		},
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(snippet); err != nil {
		return fmt.Errorf("encode snippet: %w", err)
	}
	return enc.Close()
}

func wrapHue(d float64) float64 {
	const full = cloak.MaxHue + 1
	d = math.Mod(d+full/2, full)
	if d < 0 {
		d += full
	}
	return d - full/2
}

func stdDev(diffs []float64) float64 {
	if len(diffs) < 2 {
		return 0
	}
	// Deviations are already relative to the mean.
	var sum float64
	for _, d := range diffs {
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(diffs)-1))
}

func nanToZero(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return v
}
