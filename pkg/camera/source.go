package camera

import (
	"errors"
	"fmt"
	"image"
	"strconv"
	"sync"

	"gocv.io/x/gocv"
)

var (
	// ErrUnavailable means the capture device could not be opened.
	ErrUnavailable = errors.New("camera unavailable")

	// ErrNoFrame means the device stopped delivering frames.
	ErrNoFrame = errors.New("camera returned no frame")
)

// Source delivers camera frames.
type Source interface {
	// Read fills dst with the next frame. It returns false when no frame
	// is available (device gone, end of file).
	Read(dst *gocv.Mat) bool

	// Close releases the device
	Close() error
}

// Device is a Source backed by an OpenCV VideoCapture.
type Device struct {
	capture *gocv.VideoCapture
	name    string
	once    sync.Once
}

// Open opens the configured device and requests the configured frame size.
// A numeric Device is treated as a camera index, anything else as a file or URL.
func Open(cfg Config) (*Device, error) {
	var id interface{} = cfg.Device
	if n, err := strconv.Atoi(cfg.Device); err == nil {
		id = n
	}

	capture, err := gocv.OpenVideoCapture(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrUnavailable, cfg.Device, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return nil, fmt.Errorf("%w: %s", ErrUnavailable, cfg.Device)
	}

	// Drivers treat these as hints; the real size is whatever Read returns.
	capture.Set(gocv.VideoCaptureFrameWidth, float64(cfg.Width))
	capture.Set(gocv.VideoCaptureFrameHeight, float64(cfg.Height))

	return &Device{
		capture: capture,
		name:    cfg.Device,
	}, nil
}

// Read fills dst with the next frame.
func (d *Device) Read(dst *gocv.Mat) bool {
	if ok := d.capture.Read(dst); !ok {
		return false
	}
	return !dst.Empty()
}

// Size reports the frame size the driver settled on.
func (d *Device) Size() image.Point {
	return image.Pt(
		int(d.capture.Get(gocv.VideoCaptureFrameWidth)),
		int(d.capture.Get(gocv.VideoCaptureFrameHeight)),
	)
}

// Name returns the device identifier the source was opened with.
func (d *Device) Name() string {
	return d.name
}

// Close releases the device. It is safe to call more than once.
func (d *Device) Close() error {
	var err error
	d.once.Do(func() {
		err = d.capture.Close()
	})
	return err
}

// Mirror flips src horizontally into dst. src and dst may be the same Mat.
func Mirror(src gocv.Mat, dst *gocv.Mat) {
	gocv.Flip(src, dst, 1)
}
