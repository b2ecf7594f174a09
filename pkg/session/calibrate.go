package session

import (
	"context"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-cloak/pkg/calibrate"
	"github.com/teslashibe/go-cloak/pkg/camera"
	"github.com/teslashibe/go-cloak/pkg/cloak"
	"github.com/teslashibe/go-cloak/pkg/display"
)

// Sampling parameters for the 's' key.
const (
	SamplePatch  = 0.2 // fraction of the shorter frame edge
	SampleSpread = 2.0 // standard deviations either side of the mean
)

// SampleFloor is the narrowest range a sample may suggest.
var SampleFloor = cloak.Tolerance{Hue: 10, Saturation: 60, Value: 60}

var patchColor = color.RGBA{R: 255, G: 255, B: 255, A: 0}

// Calibrate shows the live frame and the mask for the range selected on
// sliders. When the user quits it prints the final range and returns it.
// Cancelling ctx returns the current range without printing.
// It returns camera.ErrNoFrame if a read fails.
func Calibrate(ctx context.Context, src camera.Source, disp display.Display, sliders display.RangeControl, mirror bool, opts ...Option) (cloak.Range, error) {
	o := applyOptions(opts)

	o.println("Adjust the trackbars to isolate your cloak color.")
	o.println("Press 's' to sample the centre of the frame, 'r' to reset.")
	o.println("Press 'q' when you're satisfied with the color detection.")

	frame := gocv.NewMat()
	defer frame.Close()
	hsv := gocv.NewMat()
	defer hsv.Close()
	mask := gocv.NewMat()
	defer mask.Close()

	for ctx.Err() == nil {
		if !src.Read(&frame) {
			return sliders.Range(), camera.ErrNoFrame
		}
		if mirror {
			camera.Mirror(frame, &frame)
		}
		gocv.CvtColor(frame, &hsv, gocv.ColorBGRToHSV)

		r := sliders.Range()
		gocv.InRangeWithScalar(hsv,
			gocv.NewScalar(float64(r.Lower.H), float64(r.Lower.S), float64(r.Lower.V), 0),
			gocv.NewScalar(float64(r.Upper.H), float64(r.Upper.S), float64(r.Upper.V), 0),
			&mask)

		patch := calibrate.CenterPatch(image.Pt(frame.Cols(), frame.Rows()), SamplePatch)
		gocv.Rectangle(&frame, patch, patchColor, 1)

		disp.Show(WindowCalibFrame, frame)
		disp.Show(WindowCalibMask, mask)

		switch key := disp.PollKey(); {
		case isQuit(key):
			return r, calibrate.Report(o.out, r)
		case key == KeySample:
			sampleInto(o, hsv, patch, sliders)
		case key == KeyReset:
			sliders.SetRange(calibrate.DefaultRange())
			o.println("Sliders reset")
		}
	}
	return sliders.Range(), nil
}

func sampleInto(o options, hsv gocv.Mat, patch image.Rectangle, sliders display.RangeControl) {
	stats, err := calibrate.Sample(hsv, patch)
	if err != nil {
		o.printf("❌ Sample failed: %v\n", err)
		return
	}

	ranges := calibrate.Suggest(stats, SampleSpread, SampleFloor)
	sliders.SetRange(ranges[0])

	o.printf("Sampled %d pixels: mean %s (%s)\n", stats.Pixels, stats.Mean, stats.Mean.Hex())
	if len(ranges) > 1 {
		// Sliders hold one range; the wrapped half has to go in the settings file.
		o.printf("Hue wraps past red, also add Lower: %s Upper: %s\n", ranges[1].Lower, ranges[1].Upper)
	}
	o.logger.Debug("calibration sample",
		"mean", stats.Mean.String(),
		"std_h", stats.StdDev[0],
		"std_s", stats.StdDev[1],
		"std_v", stats.StdDev[2])
}
