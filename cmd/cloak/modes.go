package main

import (
	"context"
	"fmt"

	"github.com/teslashibe/go-cloak/internal/config"
	"github.com/teslashibe/go-cloak/internal/log"
	"github.com/teslashibe/go-cloak/pkg/calibrate"
	"github.com/teslashibe/go-cloak/pkg/camera"
	"github.com/teslashibe/go-cloak/pkg/cloak"
	"github.com/teslashibe/go-cloak/pkg/display"
	"github.com/teslashibe/go-cloak/pkg/session"
)

func runMode(ctx context.Context, mode string) error {
	switch mode {
	case modeTest:
		return runCameraTest(ctx)
	case modeCalibrate:
		return runCalibrate(ctx)
	default:
		return runCloak(ctx)
	}
}

func openCamera() (*camera.Device, error) {
	src, err := camera.Open(settings.Camera)
	if err != nil {
		fmt.Println("❌ Error: could not open camera")
		return nil, err
	}
	size := src.Size()
	fmt.Printf("📷 Camera %s: %dx%d\n", src.Name(), size.X, size.Y)
	return src, nil
}

func runCameraTest(ctx context.Context) error {
	src, err := openCamera()
	if err != nil {
		return err
	}
	defer src.Close()

	disp := display.New()
	defer disp.Close()

	err = session.CameraTest(ctx, src, disp)
	if session.IsCameraLoss(err) {
		return nil
	}
	return err
}

func runCalibrate(ctx context.Context) error {
	src, err := openCamera()
	if err != nil {
		return err
	}
	defer src.Close()

	disp := display.New()
	defer disp.Close()
	sliders := disp.Sliders(session.WindowCalibration, calibrate.DefaultRange())

	_, err = session.Calibrate(ctx, src, disp, sliders, settings.Camera.Mirror)
	if session.IsCameraLoss(err) {
		fmt.Println("📷 Camera stopped delivering frames")
		return nil
	}
	return err
}

func runCloak(ctx context.Context) error {
	src, err := openCamera()
	if err != nil {
		return err
	}
	defer src.Close()

	proc, err := cloak.NewProcessor(settings.Cloak)
	if err != nil {
		return err
	}
	defer proc.Close()

	disp := display.New()
	defer disp.Close()

	var opts []session.Option
	if configPath != "" {
		w, err := config.Watch(configPath)
		if err != nil {
			log.Warn("settings hot reload disabled", "error", err)
		} else {
			defer w.Close()
			fmt.Printf("🔄 Watching %s for changes\n", configPath)
			opts = append(opts, session.WithReload(func() (cloak.Config, bool) {
				s, ok := w.Poll()
				if !ok {
					return cloak.Config{}, false
				}
				cfg, err := applyCloakFlags(s.Cloak)
				if err != nil {
					return cloak.Config{}, false
				}
				return cfg, true
			}))
		}
	}

	err = session.NewCloak(src, disp, proc, settings.Camera, opts...).Run(ctx)
	if session.IsCameraLoss(err) {
		fmt.Println("📷 Camera stopped delivering frames")
		return nil
	}
	return err
}
