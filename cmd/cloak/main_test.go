package main

import (
	"bytes"
	"context"
	"os"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/teslashibe/go-cloak/internal/config"
	"github.com/teslashibe/go-cloak/pkg/cloak"
	"github.com/teslashibe/go-cloak/pkg/debug"
)

func TestChooseMode(t *testing.T) {
	tests := []struct {
		input    string
		want     string
		fallback bool
	}{
		{"1\n", modeTest, false},
		{"2\n", modeCalibrate, false},
		{" 3 \n", modeRun, false},
		{"4\n", modeRun, true},
		{"", modeRun, true},
		{"calibrate\n", modeRun, true},
	}

	for _, tc := range tests {
		var out bytes.Buffer
		got := chooseMode(strings.NewReader(tc.input), &out)
		if got != tc.want {
			t.Errorf("chooseMode(%q): got %q, want %q", tc.input, got, tc.want)
		}
		if !strings.Contains(out.String(), "=== Harry Potter Invisible Cloak ===") {
			t.Errorf("chooseMode(%q): menu not printed", tc.input)
		}
		if fell := strings.Contains(out.String(), "Invalid choice"); fell != tc.fallback {
			t.Errorf("chooseMode(%q): fallback message printed=%v, want %v", tc.input, fell, tc.fallback)
		}
	}
}

func resetFlags() {
	flagPreset, flagCleanup, flagColor = "", "", ""
}

func TestApplyCloakFlags(t *testing.T) {
	defer resetFlags()

	resetFlags()
	flagPreset = cloak.PresetRed
	flagCleanup = cloak.CleanupFast
	cfg, err := applyCloakFlags(cloak.DefaultConfig())
	if err != nil {
		t.Fatalf("applyCloakFlags failed: %v", err)
	}
	if len(cfg.Cloth) != 2 {
		t.Errorf("red preset: got %d ranges, want 2", len(cfg.Cloth))
	}
	if cfg.Cleanup != cloak.FastCleanup() {
		t.Errorf("cleanup: got %+v", cfg.Cleanup)
	}

	resetFlags()
	flagPreset = cloak.PresetBlue
	flagColor = "#00ff00"
	cfg, err = applyCloakFlags(cloak.DefaultConfig())
	if err != nil {
		t.Fatalf("applyCloakFlags failed: %v", err)
	}
	if len(cfg.Cloth) != 1 || cfg.Cloth[0].Name != "#00ff00" {
		t.Errorf("--color should win over --preset, got %+v", cfg.Cloth)
	}
}

func TestApplyCloakFlags_Unknown(t *testing.T) {
	defer resetFlags()

	tests := []struct {
		name string
		set  func()
	}{
		{"preset", func() { flagPreset = "purple" }},
		{"cleanup", func() { flagCleanup = "slow" }},
		{"color", func() { flagColor = "green" }},
	}

	for _, tc := range tests {
		resetFlags()
		tc.set()
		if _, err := applyCloakFlags(cloak.DefaultConfig()); err == nil {
			t.Errorf("%s: expected error", tc.name)
		}
	}
}

func TestApplyCloakFlags_ColorMatchesSwatch(t *testing.T) {
	defer resetFlags()

	resetFlags()
	flagColor = "#0000ff"
	cfg, err := applyCloakFlags(cloak.DefaultConfig())
	if err != nil {
		t.Fatalf("applyCloakFlags failed: %v", err)
	}
	swatch, _ := cloak.ParseHex(flagColor)
	if len(cfg.Cloth) != 1 || !cfg.Cloth[0].Contains(swatch) {
		t.Errorf("ranges %+v should contain the swatch %v", cfg.Cloth, swatch)
	}
}

func TestHandleSignals(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var out bytes.Buffer
	handleSignals(cancel, &out, syscall.SIGUSR1)
	if err := syscall.Kill(os.Getpid(), syscall.SIGUSR1); err != nil {
		t.Fatalf("kill: %v", err)
	}

	select {
	case <-ctx.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("signal did not cancel the context")
	}
	if !strings.Contains(out.String(), "Goodbye") {
		t.Errorf("expected goodbye message, got %q", out.String())
	}
}

func TestDebugSettings(t *testing.T) {
	var out bytes.Buffer
	oldOut, oldEnabled := debug.Out, debug.Enabled
	defer func() { debug.Out, debug.Enabled = oldOut, oldEnabled }()
	debug.Out = &out

	s := config.DefaultSettings()
	s.Camera.Device = "/dev/video7"

	debug.Enabled = false
	debugSettings(s)
	if out.Len() != 0 {
		t.Fatalf("nothing should be printed without --debug, got %q", out.String())
	}

	debug.Enabled = true
	debugSettings(s)
	for _, want := range []string{"Effective settings", "device: /dev/video7", "settle_delay: 3s"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("missing %q in:\n%s", want, out.String())
		}
	}
}
