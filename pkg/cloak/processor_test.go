package cloak

import (
	"bytes"
	"errors"
	"image"
	"testing"

	"gocv.io/x/gocv"
)

const (
	testWidth  = 160
	testHeight = 120
)

var clothRect = image.Rect(40, 30, 120, 90)

// bgr builds a solid 8-bit BGR image.
func bgr(w, h int, b, g, r float64) gocv.Mat {
	return gocv.NewMatWithSizeFromScalar(gocv.NewScalar(b, g, r, 0), h, w, gocv.MatTypeCV8UC3)
}

func fillRect(m gocv.Mat, rect image.Rectangle, b, g, r float64) {
	roi := m.Region(rect)
	defer roi.Close()
	roi.SetTo(gocv.NewScalar(b, g, r, 0))
}

func pixel(m gocv.Mat, x, y int) [3]uint8 {
	v := m.GetVecbAt(y, x)
	return [3]uint8{v[0], v[1], v[2]}
}

func newTestProcessor(t *testing.T, cfg Config) *Processor {
	t.Helper()
	p, err := NewProcessor(cfg)
	if err != nil {
		t.Fatalf("NewProcessor failed: %v", err)
	}
	t.Cleanup(func() { p.Close() })
	return p
}

func TestProcess_NoMatchReturnsFrame(t *testing.T) {
	p := newTestProcessor(t, DefaultConfig())

	frame := bgr(testWidth, testHeight, 128, 128, 128)
	defer frame.Close()
	fillRect(frame, clothRect, 0, 0, 200) // saturated red: neither cloth nor skin

	background := bgr(testWidth, testHeight, 200, 50, 50)
	defer background.Close()

	out := gocv.NewMat()
	defer out.Close()
	mask := gocv.NewMat()
	defer mask.Close()

	if err := p.ProcessDebug(frame, background, &out, &mask); err != nil {
		t.Fatalf("ProcessDebug failed: %v", err)
	}

	if n := gocv.CountNonZero(mask); n != 0 {
		t.Errorf("mask: got %d set pixels, want 0", n)
	}
	if !bytes.Equal(out.ToBytes(), frame.ToBytes()) {
		t.Error("output should equal the input frame when nothing matches")
	}
}

func TestProcess_GrayBackgroundGreenRegion(t *testing.T) {
	p := newTestProcessor(t, DefaultConfig())

	background := bgr(testWidth, testHeight, 128, 128, 128)
	defer background.Close()

	frame := background.Clone()
	defer frame.Close()
	fillRect(frame, clothRect, 0, 128, 0) // H=60 S=255 V=128

	out := gocv.NewMat()
	defer out.Close()

	if err := p.Process(frame, background, &out); err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	// Frame equals background outside the cloth, and the cloth is replaced
	// by background, so the composite is the background everywhere.
	if !bytes.Equal(out.ToBytes(), background.ToBytes()) {
		t.Error("output should equal the gray background everywhere")
	}
}

func TestProcess_ReplacesClothWithBackground(t *testing.T) {
	p := newTestProcessor(t, DefaultConfig())

	frame := bgr(testWidth, testHeight, 128, 128, 128)
	defer frame.Close()
	fillRect(frame, clothRect, 0, 128, 0)

	background := bgr(testWidth, testHeight, 200, 50, 50)
	defer background.Close()

	out := gocv.NewMat()
	defer out.Close()
	mask := gocv.NewMat()
	defer mask.Close()

	if err := p.ProcessDebug(frame, background, &out, &mask); err != nil {
		t.Fatalf("ProcessDebug failed: %v", err)
	}

	if out.Rows() != frame.Rows() || out.Cols() != frame.Cols() {
		t.Fatalf("output size: got %dx%d, want %dx%d", out.Cols(), out.Rows(), frame.Cols(), frame.Rows())
	}
	if mask.Rows() != frame.Rows() || mask.Cols() != frame.Cols() || mask.Channels() != 1 {
		t.Fatalf("mask shape: got %dx%d with %d channels", mask.Cols(), mask.Rows(), mask.Channels())
	}

	inside := []image.Point{{80, 60}, {50, 40}, {110, 80}}
	for _, pt := range inside {
		if got := mask.GetUCharAt(pt.Y, pt.X); got != 255 {
			t.Errorf("mask at %v: got %d, want 255", pt, got)
		}
		if got, want := pixel(out, pt.X, pt.Y), pixel(background, pt.X, pt.Y); got != want {
			t.Errorf("output at %v: got %v, want background %v", pt, got, want)
		}
	}

	// Well outside the dilation and blur reach.
	outside := []image.Point{{2, 2}, {157, 117}, {2, 117}, {157, 2}}
	for _, pt := range outside {
		if got := mask.GetUCharAt(pt.Y, pt.X); got != 0 {
			t.Errorf("mask at %v: got %d, want 0", pt, got)
		}
		if got, want := pixel(out, pt.X, pt.Y), pixel(frame, pt.X, pt.Y); got != want {
			t.Errorf("output at %v: got %v, want frame %v", pt, got, want)
		}
	}
}

func TestProcess_MaskPartitionsEveryPixel(t *testing.T) {
	p := newTestProcessor(t, DefaultConfig())

	frame := bgr(testWidth, testHeight, 128, 128, 128)
	defer frame.Close()
	fillRect(frame, clothRect, 0, 128, 0)
	fillRect(frame, image.Rect(0, 0, 20, 20), 0, 90, 20)

	background := bgr(testWidth, testHeight, 10, 220, 240)
	defer background.Close()

	out := gocv.NewMat()
	defer out.Close()
	mask := gocv.NewMat()
	defer mask.Close()

	if err := p.ProcessDebug(frame, background, &out, &mask); err != nil {
		t.Fatalf("ProcessDebug failed: %v", err)
	}

	for y := 0; y < mask.Rows(); y++ {
		for x := 0; x < mask.Cols(); x++ {
			m := mask.GetUCharAt(y, x)
			switch m {
			case 255:
				if got, want := pixel(out, x, y), pixel(background, x, y); got != want {
					t.Fatalf("cloth pixel (%d,%d): got %v, want background %v", x, y, got, want)
				}
			case 0:
				if got, want := pixel(out, x, y), pixel(frame, x, y); got != want {
					t.Fatalf("non-cloth pixel (%d,%d): got %v, want frame %v", x, y, got, want)
				}
			default:
				t.Fatalf("mask at (%d,%d) is %d, want 0 or 255", x, y, m)
			}
		}
	}
}

func TestProcess_SkinSuppressesCloth(t *testing.T) {
	// Orange (H=15) sits in both ranges.
	cfg := DefaultConfig()
	cfg.Cloth = []Range{{Lower: HSV{0, 50, 50}, Upper: HSV{40, 255, 255}}}
	cfg.Skin = []Range{{Lower: HSV{10, 0, 0}, Upper: HSV{25, 255, 255}}}

	frame := bgr(testWidth, testHeight, 128, 128, 128)
	defer frame.Close()
	fillRect(frame, clothRect, 0, 128, 255)

	background := bgr(testWidth, testHeight, 200, 50, 50)
	defer background.Close()

	t.Run("skin wins", func(t *testing.T) {
		p := newTestProcessor(t, cfg)

		out := gocv.NewMat()
		defer out.Close()
		mask := gocv.NewMat()
		defer mask.Close()

		if err := p.ProcessDebug(frame, background, &out, &mask); err != nil {
			t.Fatalf("ProcessDebug failed: %v", err)
		}
		if n := gocv.CountNonZero(mask); n != 0 {
			t.Errorf("mask: got %d set pixels, want 0", n)
		}
		if !bytes.Equal(out.ToBytes(), frame.ToBytes()) {
			t.Error("output should equal the frame where skin suppression applies")
		}
	})

	t.Run("without skin ranges", func(t *testing.T) {
		noSkin := cfg
		noSkin.Skin = nil
		p := newTestProcessor(t, noSkin)

		mask := gocv.NewMat()
		defer mask.Close()

		if err := p.Mask(frame, &mask); err != nil {
			t.Fatalf("Mask failed: %v", err)
		}
		if got := mask.GetUCharAt(60, 80); got != 255 {
			t.Errorf("mask centre: got %d, want 255", got)
		}
	})
}

func TestMask_Deterministic(t *testing.T) {
	p := newTestProcessor(t, DefaultConfig())

	frame := bgr(testWidth, testHeight, 128, 128, 128)
	defer frame.Close()
	fillRect(frame, clothRect, 0, 128, 0)
	fillRect(frame, image.Rect(130, 10, 134, 14), 0, 140, 10) // speckle

	first := gocv.NewMat()
	defer first.Close()
	second := gocv.NewMat()
	defer second.Close()

	if err := p.Mask(frame, &first); err != nil {
		t.Fatalf("Mask failed: %v", err)
	}
	if err := p.Mask(frame, &second); err != nil {
		t.Fatalf("Mask failed: %v", err)
	}

	if !bytes.Equal(first.ToBytes(), second.ToBytes()) {
		t.Error("masks differ for identical input")
	}
}

func TestProcess_ShapeMismatch(t *testing.T) {
	p := newTestProcessor(t, DefaultConfig())

	frame := bgr(testWidth, testHeight, 128, 128, 128)
	defer frame.Close()
	small := bgr(testWidth/2, testHeight/2, 128, 128, 128)
	defer small.Close()
	gray := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(128, 0, 0, 0), testHeight, testWidth, gocv.MatTypeCV8UC1)
	defer gray.Close()
	empty := gocv.NewMat()
	defer empty.Close()

	tests := []struct {
		name       string
		frame      gocv.Mat
		background gocv.Mat
	}{
		{"smaller background", frame, small},
		{"smaller frame", small, frame},
		{"empty background", frame, empty},
		{"empty frame", empty, frame},
		{"single channel frame", gray, gray},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			out := gocv.NewMat()
			defer out.Close()

			err := p.Process(tc.frame, tc.background, &out)
			if !errors.Is(err, ErrShapeMismatch) {
				t.Errorf("Process: got %v, want ErrShapeMismatch", err)
			}
		})
	}
}

func TestProcessor_SetConfig(t *testing.T) {
	p := newTestProcessor(t, DefaultConfig())

	bad := DefaultConfig()
	bad.Cleanup.BlurKernel = 4
	if err := p.SetConfig(bad); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("SetConfig(bad): got %v, want ErrInvalidConfig", err)
	}
	if p.Config().Cleanup.BlurKernel != 15 {
		t.Error("invalid config should not be applied")
	}

	red, _ := DefaultConfig().WithPreset(PresetRed)
	if err := p.SetConfig(red); err != nil {
		t.Fatalf("SetConfig(red) failed: %v", err)
	}

	frame := bgr(testWidth, testHeight, 128, 128, 128)
	defer frame.Close()
	fillRect(frame, clothRect, 0, 0, 200)

	mask := gocv.NewMat()
	defer mask.Close()
	if err := p.Mask(frame, &mask); err != nil {
		t.Fatalf("Mask failed: %v", err)
	}
	if got := mask.GetUCharAt(60, 80); got != 255 {
		t.Errorf("red preset should detect red cloth, mask centre = %d", got)
	}
}

func TestNewProcessor_InvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Cloth = nil

	if _, err := NewProcessor(cfg); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("NewProcessor: got %v, want ErrInvalidConfig", err)
	}
}

func TestCoverage(t *testing.T) {
	mask := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), 10, 10, gocv.MatTypeCV8UC1)
	defer mask.Close()

	roi := mask.Region(image.Rect(0, 0, 5, 10))
	roi.SetTo(gocv.NewScalar(255, 0, 0, 0))
	roi.Close()

	if got := Coverage(mask); got != 0.5 {
		t.Errorf("Coverage: got %v, want 0.5", got)
	}

	empty := gocv.NewMat()
	defer empty.Close()
	if got := Coverage(empty); got != 0 {
		t.Errorf("Coverage(empty): got %v, want 0", got)
	}
}
