// Package camera provides the capture side of the cloak: device settings,
// a gocv-backed frame source and background capture.
// This follows the same pattern as pkg/cloak for tunable parameters.
package camera

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidConfig is returned when a Config fails validation.
var ErrInvalidConfig = errors.New("invalid camera config")

// Background capture modes
const (
	BackgroundLatest  = "latest"  // keep the last good frame
	BackgroundAverage = "average" // average every good frame
)

// Config holds all capture configuration parameters.
type Config struct {
	// === Device ===
	// Device is a camera index ("0") or a video file / stream URL.
	Device string `yaml:"device"`
	Width  int    `yaml:"width"`  // Requested frame width in pixels
	Height int    `yaml:"height"` // Requested frame height in pixels

	// Mirror flips frames horizontally so the preview acts like a mirror.
	Mirror bool `yaml:"mirror"`

	// === Background capture ===
	// WarmupDelay lets auto exposure settle after the device opens.
	WarmupDelay time.Duration `yaml:"warmup_delay"`

	// SettleDelay gives the user time to step out of frame.
	SettleDelay time.Duration `yaml:"settle_delay"`

	// BackgroundFrames is how many frames are read per capture.
	BackgroundFrames int `yaml:"background_frames"`

	// BackgroundInterval is the pause between background frames.
	BackgroundInterval time.Duration `yaml:"background_interval"`

	// BackgroundMode selects "latest" or "average".
	BackgroundMode string `yaml:"background_mode"`
}

// Capture limits
const (
	MinWidth            = 160
	MinHeight           = 120
	MaxWidth            = 3840
	MaxHeight           = 2160
	MaxBackgroundFrames = 300
)

// DefaultConfig returns the 640x480 webcam configuration.
func DefaultConfig() Config {
	return Config{
		Device: "0",
		Width:  640,
		Height: 480,
		Mirror: true,

		WarmupDelay:        2 * time.Second,
		SettleDelay:        3 * time.Second,
		BackgroundFrames:   30,
		BackgroundInterval: 100 * time.Millisecond,
		BackgroundMode:     BackgroundLatest,
	}
}

// Validate checks if the config values are within valid ranges.
// Returns a list of validation errors, or nil if valid.
func (c *Config) Validate() []string {
	var errs []string

	if strings.TrimSpace(c.Device) == "" {
		errs = append(errs, "device must not be empty")
	}

	// Resolution
	if c.Width < MinWidth || c.Width > MaxWidth {
		errs = append(errs, fmt.Sprintf("width must be between %d and %d", MinWidth, MaxWidth))
	}
	if c.Height < MinHeight || c.Height > MaxHeight {
		errs = append(errs, fmt.Sprintf("height must be between %d and %d", MinHeight, MaxHeight))
	}

	// Background capture
	if c.WarmupDelay < 0 || c.SettleDelay < 0 || c.BackgroundInterval < 0 {
		errs = append(errs, "delays must not be negative")
	}
	if c.BackgroundFrames < 1 || c.BackgroundFrames > MaxBackgroundFrames {
		errs = append(errs, fmt.Sprintf("background_frames must be between 1 and %d", MaxBackgroundFrames))
	}
	validModes := map[string]bool{BackgroundLatest: true, BackgroundAverage: true}
	if c.BackgroundMode != "" && !validModes[c.BackgroundMode] {
		errs = append(errs, "background_mode must be latest or average")
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
