package cloak

import (
	"errors"
	"fmt"
	"image"
	"sync"

	"gocv.io/x/gocv"
)

// ErrShapeMismatch is returned when the frame and background are empty or
// differ in size or pixel type.
var ErrShapeMismatch = errors.New("frame and background shape mismatch")

// Processor turns a live frame plus a background into the cloak composite.
// It owns its kernels and scratch Mats; call Close when done.
type Processor struct {
	mu  sync.Mutex // Protects config, kernels and scratch Mats
	cfg Config

	closeKernel  gocv.Mat
	openKernel   gocv.Mat
	dilateKernel gocv.Mat

	hsv     gocv.Mat
	cloth   gocv.Mat
	skin    gocv.Mat
	scratch gocv.Mat
	mask    gocv.Mat
	inverse gocv.Mat
}

// NewProcessor validates cfg and allocates the processor's resources.
func NewProcessor(cfg Config) (*Processor, error) {
	if err := cfg.Err(); err != nil {
		return nil, err
	}

	p := &Processor{
		cfg:     cfg,
		hsv:     gocv.NewMat(),
		cloth:   gocv.NewMat(),
		skin:    gocv.NewMat(),
		scratch: gocv.NewMat(),
		mask:    gocv.NewMat(),
		inverse: gocv.NewMat(),
	}
	p.buildKernels()
	return p, nil
}

// Config returns the active configuration.
func (p *Processor) Config() Config {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cfg
}

// SetConfig swaps in a new configuration. It takes effect on the next frame.
func (p *Processor) SetConfig(cfg Config) error {
	if err := cfg.Err(); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.closeKernels()
	p.cfg = cfg
	p.buildKernels()
	return nil
}

// Process writes the composite of frame and background into dst.
// Cloth pixels come from background, everything else from frame.
func (p *Processor) Process(frame, background gocv.Mat, dst *gocv.Mat) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := checkShape(frame, background); err != nil {
		return err
	}
	p.detect(frame)
	p.composite(frame, background, dst)
	return nil
}

// ProcessDebug is Process that also copies the cleaned cloth mask into mask.
func (p *Processor) ProcessDebug(frame, background gocv.Mat, dst, mask *gocv.Mat) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := checkShape(frame, background); err != nil {
		return err
	}
	p.detect(frame)
	p.composite(frame, background, dst)
	p.mask.CopyTo(mask)
	return nil
}

// Mask writes only the cleaned cloth mask for frame into dst.
func (p *Processor) Mask(frame gocv.Mat, dst *gocv.Mat) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := checkFrame(frame); err != nil {
		return err
	}
	p.detect(frame)
	p.mask.CopyTo(dst)
	return nil
}

// Close releases the processor's kernels and scratch Mats.
func (p *Processor) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closeKernels()
	for _, m := range []*gocv.Mat{&p.hsv, &p.cloth, &p.skin, &p.scratch, &p.mask, &p.inverse} {
		m.Close()
	}
	return nil
}

// detect fills p.mask with the cleaned cloth mask of frame.
func (p *Processor) detect(frame gocv.Mat) {
	gocv.CvtColor(frame, &p.hsv, gocv.ColorBGRToHSV)

	unionRanges(p.hsv, p.cfg.Cloth, &p.cloth, &p.scratch)
	if len(p.cfg.Skin) > 0 {
		unionRanges(p.hsv, p.cfg.Skin, &p.skin, &p.scratch)
		gocv.BitwiseNot(p.skin, &p.skin)
		gocv.BitwiseAnd(p.cloth, p.skin, &p.mask)
	} else {
		p.cloth.CopyTo(&p.mask)
	}

	p.cleanup(&p.mask)
}

// cleanup runs the fixed morphology and smoothing sequence in place.
func (p *Processor) cleanup(mask *gocv.Mat) {
	cl := p.cfg.Cleanup

	// Closing: dilate n times, then erode n times.
	for i := 0; i < cl.CloseIterations; i++ {
		gocv.Dilate(*mask, mask, p.closeKernel)
	}
	for i := 0; i < cl.CloseIterations; i++ {
		gocv.Erode(*mask, mask, p.closeKernel)
	}

	// Opening: erode n times, then dilate n times.
	for i := 0; i < cl.OpenIterations; i++ {
		gocv.Erode(*mask, mask, p.openKernel)
	}
	for i := 0; i < cl.OpenIterations; i++ {
		gocv.Dilate(*mask, mask, p.openKernel)
	}

	for i := 0; i < cl.DilateIterations; i++ {
		gocv.Dilate(*mask, mask, p.dilateKernel)
	}

	if cl.MedianKernel > 1 {
		gocv.MedianBlur(*mask, mask, cl.MedianKernel)
	}
	if cl.BlurKernel > 1 {
		gocv.GaussianBlur(*mask, mask, image.Pt(cl.BlurKernel, cl.BlurKernel), 0, 0, gocv.BorderDefault)
	}

	gocv.Threshold(*mask, mask, float32(cl.Threshold), 255, gocv.ThresholdBinary)
}

// composite selects background where p.mask is set and frame elsewhere.
func (p *Processor) composite(frame, background gocv.Mat, dst *gocv.Mat) {
	gocv.BitwiseNot(p.mask, &p.inverse)

	// The two masks partition the image, so every dst pixel is written once.
	frame.CopyToWithMask(dst, p.inverse)
	background.CopyToWithMask(dst, p.mask)
}

func (p *Processor) buildKernels() {
	cl := p.cfg.Cleanup
	p.closeKernel = gocv.GetStructuringElement(gocv.MorphRect, image.Pt(cl.CloseKernel, cl.CloseKernel))
	p.openKernel = gocv.GetStructuringElement(gocv.MorphRect, image.Pt(cl.OpenKernel, cl.OpenKernel))
	p.dilateKernel = gocv.GetStructuringElement(gocv.MorphRect, image.Pt(cl.DilateKernel, cl.DilateKernel))
}

func (p *Processor) closeKernels() {
	p.closeKernel.Close()
	p.openKernel.Close()
	p.dilateKernel.Close()
}

// unionRanges ORs the InRange masks of every range into dst.
func unionRanges(hsv gocv.Mat, ranges []Range, dst, scratch *gocv.Mat) {
	for i, r := range ranges {
		if i == 0 {
			gocv.InRangeWithScalar(hsv, r.Lower.scalar(), r.Upper.scalar(), dst)
			continue
		}
		gocv.InRangeWithScalar(hsv, r.Lower.scalar(), r.Upper.scalar(), scratch)
		gocv.BitwiseOr(*dst, *scratch, dst)
	}
}

func (c HSV) scalar() gocv.Scalar {
	return gocv.NewScalar(float64(c.H), float64(c.S), float64(c.V), 0)
}

func checkFrame(frame gocv.Mat) error {
	if frame.Empty() {
		return fmt.Errorf("%w: empty frame", ErrShapeMismatch)
	}
	if frame.Type() != gocv.MatTypeCV8UC3 {
		return fmt.Errorf("%w: frame must be 8-bit 3-channel, got %v", ErrShapeMismatch, frame.Type())
	}
	return nil
}

func checkShape(frame, background gocv.Mat) error {
	if err := checkFrame(frame); err != nil {
		return err
	}
	if background.Empty() {
		return fmt.Errorf("%w: empty background", ErrShapeMismatch)
	}
	if frame.Rows() != background.Rows() || frame.Cols() != background.Cols() || frame.Type() != background.Type() {
		return fmt.Errorf("%w: frame %dx%d (%v), background %dx%d (%v)", ErrShapeMismatch,
			frame.Cols(), frame.Rows(), frame.Type(),
			background.Cols(), background.Rows(), background.Type())
	}
	return nil
}

// Coverage returns the fraction of set pixels in a single-channel mask.
func Coverage(mask gocv.Mat) float64 {
	total := mask.Rows() * mask.Cols()
	if total == 0 {
		return 0
	}
	return float64(gocv.CountNonZero(mask)) / float64(total)
}
