package camera

import (
	"context"
	"fmt"
	"image"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"gocv.io/x/gocv"
)

// Background is a captured empty scene. It is replaced wholesale on
// recalibration and never modified in place.
type Background struct {
	ID         uuid.UUID // identifies the capture in logs
	Image      gocv.Mat  // 8-bit BGR, mirrored if the config mirrors
	Frames     int       // good frames that went into Image
	Mode       string    // BackgroundLatest or BackgroundAverage
	CapturedAt time.Time
}

// Size returns the background dimensions.
func (b *Background) Size() image.Point {
	return image.Pt(b.Image.Cols(), b.Image.Rows())
}

// Close releases the background image.
func (b *Background) Close() error {
	return b.Image.Close()
}

// Progress is called after every background frame attempt.
type Progress func(done, total int)

// CaptureBackground waits cfg.SettleDelay, then reads cfg.BackgroundFrames
// frames and keeps the latest or the average of the good ones. Every frame is
// resized to the size of the first good frame. Returns ErrNoFrame if the
// source delivered nothing, or ctx.Err() if ctx is cancelled while waiting.
func CaptureBackground(ctx context.Context, src Source, cfg Config, clk clock.Clock, progress Progress) (*Background, error) {
	if err := cfg.Err(); err != nil {
		return nil, err
	}
	if clk == nil {
		clk = clock.New()
	}

	if err := Wait(ctx, clk, cfg.SettleDelay); err != nil {
		return nil, err
	}

	frame := gocv.NewMat()
	defer frame.Close()
	resized := gocv.NewMat()
	defer resized.Close()

	acc := newAccumulator(cfg.BackgroundMode)
	defer acc.Close()

	var size image.Point
	for i := 0; i < cfg.BackgroundFrames; i++ {
		if src.Read(&frame) {
			if size == (image.Point{}) {
				size = image.Pt(frame.Cols(), frame.Rows())
			}
			img := frame
			if frame.Cols() != size.X || frame.Rows() != size.Y {
				gocv.Resize(frame, &resized, size, 0, 0, gocv.InterpolationLinear)
				img = resized
			}
			acc.Add(img)
		}

		if progress != nil {
			progress(i+1, cfg.BackgroundFrames)
		}
		if i < cfg.BackgroundFrames-1 {
			if err := Wait(ctx, clk, cfg.BackgroundInterval); err != nil {
				return nil, err
			}
		}
	}

	if acc.Count() == 0 {
		return nil, fmt.Errorf("background capture: %w", ErrNoFrame)
	}

	bg := &Background{
		ID:         uuid.New(),
		Image:      gocv.NewMat(),
		Frames:     acc.Count(),
		Mode:       acc.mode,
		CapturedAt: clk.Now(),
	}
	acc.Result(&bg.Image)
	if cfg.Mirror {
		Mirror(bg.Image, &bg.Image)
	}
	return bg, nil
}

// Wait blocks for d on clk, returning early with ctx.Err() if ctx is
// cancelled. A non-positive d only checks ctx.
func Wait(ctx context.Context, clk clock.Clock, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := clk.Timer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// accumulator folds frames into either the latest frame or a running sum.
type accumulator struct {
	mode  string
	count int
	last  gocv.Mat
	sum   gocv.Mat
	f32   gocv.Mat
}

func newAccumulator(mode string) *accumulator {
	if mode == "" {
		mode = BackgroundLatest
	}
	return &accumulator{
		mode: mode,
		last: gocv.NewMat(),
		sum:  gocv.NewMat(),
		f32:  gocv.NewMat(),
	}
}

func (a *accumulator) Add(frame gocv.Mat) {
	a.count++
	if a.mode != BackgroundAverage {
		frame.CopyTo(&a.last)
		return
	}

	frame.ConvertTo(&a.f32, gocv.MatTypeCV32FC3)
	if a.count == 1 {
		a.f32.CopyTo(&a.sum)
		return
	}
	gocv.Add(a.sum, a.f32, &a.sum)
}

func (a *accumulator) Count() int {
	return a.count
}

func (a *accumulator) Result(dst *gocv.Mat) {
	if a.mode != BackgroundAverage {
		a.last.CopyTo(dst)
		return
	}
	a.sum.ConvertToWithParams(dst, gocv.MatTypeCV8UC3, float32(1/float64(a.count)), 0)
}

func (a *accumulator) Close() {
	a.last.Close()
	a.sum.Close()
	a.f32.Close()
}
