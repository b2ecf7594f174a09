// Invisible Cloak - replaces a coloured cloth with the empty scene behind it
//
// Usage:
//
//	cloak                 # interactive menu
//	cloak test            # camera test
//	cloak calibrate       # find the HSV range of your cloth
//	cloak run --preset red
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/teslashibe/go-cloak/internal/config"
	"github.com/teslashibe/go-cloak/internal/log"
	"github.com/teslashibe/go-cloak/pkg/camera"
	"github.com/teslashibe/go-cloak/pkg/cloak"
	"github.com/teslashibe/go-cloak/pkg/debug"
)

// Modes selectable from the menu or as subcommands.
const (
	modeTest      = "test"
	modeCalibrate = "calibrate"
	modeRun       = "run"
)

var (
	flagConfig       string
	flagDevice       string
	flagLogLevel     string
	flagPreset       string
	flagCleanup      string
	flagCameraPreset string
	flagColor        string

	// settings is filled in by loadSettings before any mode runs.
	settings   config.Settings
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "cloak",
	Short: "Harry Potter invisible cloak for your webcam",
	Long: `Captures the empty scene, then replaces every pixel of your cloth with it.
Without a subcommand an interactive menu is shown.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadSettings,
	RunE: func(cmd *cobra.Command, args []string) error {
		mode := modeRun
		if term.IsTerminal(int(os.Stdin.Fd())) {
			mode = chooseMode(os.Stdin, os.Stdout)
		}
		return runMode(cmd.Context(), mode)
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.BoolVar(&debug.Enabled, "debug", false, "Enable verbose debug logging")
	flags.BoolVar(&debug.Frames, "debug-frames", false, "Log per-frame mask coverage (very verbose)")
	flags.StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn, error")
	flags.StringVarP(&flagConfig, "config", "f", "", "Settings file (default $"+config.EnvConfig+")")
	flags.StringVarP(&flagDevice, "device", "d", "", "Camera index, file or URL (default $"+config.EnvDevice+" or 0)")
	flags.StringVarP(&flagPreset, "preset", "p", "", "Cloth colour preset: "+strings.Join(cloak.PresetNames(), ", "))
	flags.StringVar(&flagCleanup, "cleanup", "", "Mask cleanup preset: smooth, fast")
	flags.StringVar(&flagCameraPreset, "camera-preset", "", "Camera preset: "+strings.Join(camera.PresetNames(), ", "))
	flags.StringVar(&flagColor, "color", "", "Cloth colour as #rrggbb, overrides --preset")

	for _, mode := range []string{modeTest, modeCalibrate, modeRun} {
		rootCmd.AddCommand(modeCommand(mode))
	}
}

func modeCommand(mode string) *cobra.Command {
	short := map[string]string{
		modeTest:      "Show the raw camera feed",
		modeCalibrate: "Tune the HSV range of your cloth with trackbars",
		modeRun:       "Start the invisible cloak effect",
	}[mode]

	return &cobra.Command{
		Use:   mode,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMode(cmd.Context(), mode)
		},
	}
}

func main() {
	// Handle Ctrl+C
	ctx, cancel := context.WithCancel(context.Background())
	handleSignals(cancel, os.Stdout, syscall.SIGINT, syscall.SIGTERM)

	err := rootCmd.ExecuteContext(ctx)
	cancel()
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
}

// handleSignals cancels on the first of sigs and then restores the default
// handlers, so a second Ctrl+C kills a process stuck in a camera call.
func handleSignals(cancel context.CancelFunc, out io.Writer, sigs ...os.Signal) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, sigs...)
	go func() {
		<-sigChan
		signal.Stop(sigChan)
		fmt.Fprintln(out, "\n👋 Goodbye! (Ctrl+C again to force quit)")
		cancel()
	}()
}

// loadSettings resolves settings: defaults, then the settings file, then
// the environment, then flags.
func loadSettings(cmd *cobra.Command, args []string) error {
	configPath = flagConfig
	if configPath == "" {
		configPath = config.Path("")
	}

	s, err := config.Load(configPath)
	if err != nil {
		return err
	}
	s.ApplyEnv()

	if flagCameraPreset != "" {
		p := camera.GetPreset(flagCameraPreset)
		if p == nil {
			return fmt.Errorf("unknown camera preset %q (have %s)", flagCameraPreset, strings.Join(camera.PresetNames(), ", "))
		}
		device := s.Camera.Device
		s.Camera = *p
		s.Camera.Device = device
	}
	if flagDevice != "" {
		s.Camera.Device = flagDevice
	}
	if flagLogLevel != "" {
		s.LogLevel = flagLogLevel
	}
	if debug.Enabled {
		s.LogLevel = "debug"
	}

	if s.Cloak, err = applyCloakFlags(s.Cloak); err != nil {
		return err
	}
	if err := s.Err(); err != nil {
		return err
	}

	log.Init(s.LogLevel)
	debug.Logln("🔧 Debug mode enabled")
	debug.Log("🔧 Settings file: %q, camera %q, %d cloth range(s)\n", configPath, s.Camera.Device, len(s.Cloak.Cloth))
	debugSettings(s)
	log.Debug("settings loaded",
		"path", configPath,
		"device", s.Camera.Device,
		"cloth_ranges", len(s.Cloak.Cloth),
		"mirror", s.Camera.Mirror)

	settings = s
	return nil
}

// debugSettings dumps the effective settings in settings-file form.
func debugSettings(s config.Settings) {
	if !debug.Enabled {
		return
	}
	data, err := s.Marshal()
	if err != nil {
		debug.Log("🔧 Could not render settings: %v\n", err)
		return
	}
	debug.Log("🔧 Effective settings:\n%s", data)
}

// applyCloakFlags applies --preset, --cleanup and --color to cfg. It is also
// used on hot-reloaded settings so flags keep winning over the file.
func applyCloakFlags(cfg cloak.Config) (cloak.Config, error) {
	if flagPreset != "" {
		var ok bool
		if cfg, ok = cfg.WithPreset(flagPreset); !ok {
			return cfg, fmt.Errorf("unknown preset %q (have %s)", flagPreset, strings.Join(cloak.PresetNames(), ", "))
		}
	}
	if flagCleanup != "" {
		var ok bool
		if cfg, ok = cfg.WithCleanup(flagCleanup); !ok {
			return cfg, fmt.Errorf("unknown cleanup preset %q", flagCleanup)
		}
	}
	if flagColor != "" {
		swatch, err := cloak.ParseHex(flagColor)
		if err != nil {
			return cfg, fmt.Errorf("--color: %w", err)
		}
		cfg.Cloth = cloak.RangesFromColor(swatch.Color(), cloak.DefaultTolerance())
	}
	return cfg, nil
}

// chooseMode shows the start menu and maps the answer to a mode. Anything
// other than 1-3 falls back to the effect.
func chooseMode(in io.Reader, out io.Writer) string {
	fmt.Fprintln(out, "=== Harry Potter Invisible Cloak ===")
	fmt.Fprintln(out, "Choose an option:")
	fmt.Fprintln(out, "1. Test camera")
	fmt.Fprintln(out, "2. Calibrate cloak color")
	fmt.Fprintln(out, "3. Start invisible cloak effect")
	fmt.Fprint(out, "Enter your choice (1-3): ")

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		line = ""
	}

	switch strings.TrimSpace(line) {
	case "1":
		return modeTest
	case "2":
		return modeCalibrate
	case "3":
		return modeRun
	default:
		fmt.Fprintln(out, "Invalid choice. Running invisible cloak effect...")
		return modeRun
	}
}
