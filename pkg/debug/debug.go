// Package debug provides global debug logging flags
package debug

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"
)

// Enabled controls whether debug logging is active
var Enabled bool

// Frames controls whether verbose per-frame logs are shown (mask coverage)
// Use --debug-frames flag to enable these very verbose logs
var Frames bool

// Out is where debug output goes.
var Out io.Writer = os.Stdout

// coverageBarWidth is the number of cells in the MaskCoverage bar.
const coverageBarWidth = 20

// Log prints a message only if debug mode is enabled
func Log(format string, args ...interface{}) {
	if Enabled {
		fmt.Fprintf(Out, format, args...)
	}
}

// Logln prints a message with newline only if debug mode is enabled
func Logln(msg string) {
	if Enabled {
		fmt.Fprintln(Out, msg)
	}
}

// FrameLog prints a message only if frame debug mode is enabled
func FrameLog(format string, args ...interface{}) {
	if Frames {
		fmt.Fprintf(Out, format, args...)
	}
}

// MaskCoverage prints how much of a frame the cloth mask covers, as a bar
// and a percentage. fraction is clamped to [0, 1].
func MaskCoverage(frame int, fraction float64) {
	FrameLog("🎭 frame %5d %s %5.1f%%\n", frame, CoverageBar(fraction), clamp01(fraction)*100)
}

// CoverageBar renders fraction as a fixed-width bar, e.g. [#####...............].
func CoverageBar(fraction float64) string {
	filled := int(clamp01(fraction)*coverageBarWidth + 0.5)
	return "[" + strings.Repeat("#", filled) + strings.Repeat(".", coverageBarWidth-filled) + "]"
}

func clamp01(v float64) float64 {
	switch {
	case v < 0 || math.IsNaN(v):
		return 0
	case v > 1:
		return 1
	}
	return v
}
