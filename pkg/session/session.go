// Package session drives the interactive modes: the invisibility effect,
// the camera test and colour calibration. Each mode is a synchronous
// read-process-show loop paced by the camera.
package session

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/benbjohnson/clock"

	"github.com/teslashibe/go-cloak/internal/log"
	"github.com/teslashibe/go-cloak/pkg/cloak"
)

// Keys handled by the loops. PollKey already masks to the low byte.
const (
	KeyQuit        = 'q'
	KeyEscape      = 27
	KeyRecalibrate = 'c'
	KeyToggleMask  = 'm'
	KeySample      = 's'
	KeyReset       = 'r'
)

// Window names.
const (
	WindowCloak       = "Invisible Cloak"
	WindowOriginal    = "Original Frame"
	WindowMask        = "Mask (White = Detected Cloth)"
	WindowCameraTest  = "Camera Test"
	WindowCalibFrame  = "Original"
	WindowCalibMask   = "Mask"
	WindowCalibration = "Color Calibration"
)

// ReloadFunc reports a new processor configuration, if one is pending.
// It must not block.
type ReloadFunc func() (cloak.Config, bool)

// Option configures a session.
type Option func(*options)

type options struct {
	clock  clock.Clock
	out    io.Writer
	logger *slog.Logger
	reload ReloadFunc
}

func defaultOptions() options {
	return options{
		clock: clock.New(),
		out:   os.Stdout,
	}
}

// WithClock replaces the wall clock used for delays and FPS.
func WithClock(c clock.Clock) Option {
	return func(o *options) {
		o.clock = c
	}
}

// WithOutput sends console messages to w instead of stdout.
func WithOutput(w io.Writer) Option {
	return func(o *options) {
		o.out = w
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithReload polls fn once per frame and applies any configuration it
// returns before processing that frame.
func WithReload(fn ReloadFunc) Option {
	return func(o *options) {
		o.reload = fn
	}
}

func applyOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = log.L()
	}
	return o
}

func (o options) printf(format string, args ...any) {
	fmt.Fprintf(o.out, format, args...)
}

func (o options) println(args ...any) {
	fmt.Fprintln(o.out, args...)
}

func isQuit(key int) bool {
	return key == KeyQuit || key == KeyEscape
}
