package session

import (
	"context"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-cloak/pkg/camera"
	"github.com/teslashibe/go-cloak/pkg/display"
)

// CameraTest shows raw frames until the user quits or ctx is cancelled.
// It returns camera.ErrNoFrame if a read fails.
func CameraTest(ctx context.Context, src camera.Source, disp display.Display, opts ...Option) error {
	o := applyOptions(opts)

	o.println("Camera test - press 'q' to quit")

	frame := gocv.NewMat()
	defer frame.Close()

	frames := 0
	for ctx.Err() == nil {
		if !src.Read(&frame) {
			o.println("❌ Error: could not read frame")
			return camera.ErrNoFrame
		}
		frames++

		disp.Show(WindowCameraTest, frame)
		if isQuit(disp.PollKey()) {
			break
		}
	}

	o.logger.Info("camera test finished", "frames", frames, "width", frame.Cols(), "height", frame.Rows())
	return nil
}
