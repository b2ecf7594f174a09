package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-cloak/pkg/camera"
	"github.com/teslashibe/go-cloak/pkg/cloak"
	"github.com/teslashibe/go-cloak/pkg/debug"
	"github.com/teslashibe/go-cloak/pkg/display"
)

// Cloak runs the invisibility effect.
type Cloak struct {
	source    camera.Source
	display   display.Display
	processor *cloak.Processor
	cfg       camera.Config
	opts      options

	background *camera.Background
	showMask   bool

	// FPS accounting
	frames    int
	lastFPS   time.Time
	fpsFrames int
}

// NewCloak creates the effect session. The caller owns src, disp and proc.
func NewCloak(src camera.Source, disp display.Display, proc *cloak.Processor, cfg camera.Config, opts ...Option) *Cloak {
	return &Cloak{
		source:    src,
		display:   disp,
		processor: proc,
		cfg:       cfg,
		opts:      applyOptions(opts),
	}
}

// Run warms the camera up, captures the background and runs the effect
// until the user quits or ctx is cancelled, both of which return nil.
// Cancellation is honoured during warm-up and background capture too.
// It returns camera.ErrNoFrame if the camera stops delivering frames and
// cloak.ErrShapeMismatch if a frame no longer matches the background.
func (c *Cloak) Run(ctx context.Context) error {
	defer c.releaseBackground()

	if err := camera.Wait(ctx, c.opts.clock, c.cfg.WarmupDelay); err != nil {
		return nil
	}

	c.opts.println("Setting up background. Please move out of the frame!")
	c.opts.printf("Background capture will start in %v...\n", c.cfg.SettleDelay)
	if err := c.capture(ctx); err != nil {
		return stopped(ctx, err)
	}

	c.opts.println("Background captured! You can now enter the frame with your cloak.")
	c.opts.println("Press 'q' to quit, 'c' to recalibrate background, 'm' to show mask")
	c.opts.println("Use a bright, solid-colored cloth for best results!")

	frame := gocv.NewMat()
	defer frame.Close()
	output := gocv.NewMat()
	defer output.Close()
	mask := gocv.NewMat()
	defer mask.Close()

	c.lastFPS = c.opts.clock.Now()

	for {
		if ctx.Err() != nil {
			return nil
		}

		if !c.source.Read(&frame) {
			c.opts.logger.Info("camera stopped delivering frames", "frames", c.frames)
			return camera.ErrNoFrame
		}
		if c.cfg.Mirror {
			camera.Mirror(frame, &frame)
		}

		c.applyReload()

		if err := c.processor.ProcessDebug(frame, c.background.Image, &output, &mask); err != nil {
			c.opts.logger.Error("frame rejected", "error", err, "frame", c.frames)
			return fmt.Errorf("frame %d: %w", c.frames, err)
		}
		c.frames++

		if c.showMask {
			c.display.Show(WindowMask, mask)
		}
		c.display.Show(WindowCloak, output)
		c.display.Show(WindowOriginal, frame)

		c.tick(mask)

		switch key := c.display.PollKey(); {
		case isQuit(key):
			return nil
		case key == KeyRecalibrate:
			c.opts.println("Recalibrating background...")
			c.opts.println("Please move out of the frame!")
			if err := c.capture(ctx); err != nil {
				return stopped(ctx, err)
			}
			c.opts.println("Background recalibrated!")
		case key == KeyToggleMask:
			c.showMask = !c.showMask
			if !c.showMask {
				c.display.Hide(WindowMask)
			}
			c.opts.printf("Mask display: %s\n", onOff(c.showMask))
		}
	}
}

// Frames returns the number of frames composited so far.
func (c *Cloak) Frames() int {
	return c.frames
}

// capture replaces the background. The old one is released only after the
// new one is in hand.
func (c *Cloak) capture(ctx context.Context) error {
	bg, err := camera.CaptureBackground(ctx, c.source, c.cfg, c.opts.clock, func(done, total int) {
		c.opts.printf("Capturing background... %d/%d\n", done, total)
	})
	if err != nil {
		if ctx.Err() == nil {
			c.opts.logger.Error("background capture failed", "error", err)
		}
		return err
	}

	c.releaseBackground()
	c.background = bg
	c.opts.logger.Info("background captured",
		"id", bg.ID.String(),
		"frames", bg.Frames,
		"mode", bg.Mode,
		"size", fmt.Sprintf("%dx%d", bg.Size().X, bg.Size().Y))
	return nil
}

func (c *Cloak) releaseBackground() {
	if c.background != nil {
		c.background.Close()
		c.background = nil
	}
}

func (c *Cloak) applyReload() {
	if c.opts.reload == nil {
		return
	}
	cfg, ok := c.opts.reload()
	if !ok {
		return
	}
	if err := c.processor.SetConfig(cfg); err != nil {
		c.opts.logger.Warn("ignoring reloaded cloak config", "error", err)
		return
	}
	c.opts.logger.Info("cloak config applied", "cloth_ranges", len(cfg.Cloth), "skin_ranges", len(cfg.Skin))
}

func (c *Cloak) tick(mask gocv.Mat) {
	c.fpsFrames++
	if debug.Frames {
		debug.MaskCoverage(c.frames, cloak.Coverage(mask))
	}

	elapsed := c.opts.clock.Since(c.lastFPS)
	if elapsed < time.Second {
		return
	}
	fps := float64(c.fpsFrames) / elapsed.Seconds()
	c.opts.logger.Debug("frame rate", "fps", fmt.Sprintf("%.1f", fps), "frames", c.frames)
	c.fpsFrames = 0
	c.lastFPS = c.opts.clock.Now()
}

// stopped maps an error caused by ctx cancellation to a clean stop.
func stopped(ctx context.Context, err error) error {
	if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		return nil
	}
	return err
}

func onOff(on bool) string {
	if on {
		return "ON"
	}
	return "OFF"
}

// IsCameraLoss reports whether err means the camera went away, which ends a
// session normally rather than as a failure.
func IsCameraLoss(err error) bool {
	return errors.Is(err, camera.ErrNoFrame)
}
