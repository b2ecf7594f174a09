// Package display shows frames in OpenCV HighGUI windows and reads the keyboard.
package display

import (
	"gocv.io/x/gocv"

	"github.com/teslashibe/go-cloak/pkg/cloak"
)

// KeyNone is returned by PollKey when no key was pressed.
const KeyNone = -1

// Display is the presentation side of a session.
type Display interface {
	// Show draws img in the named window, creating it on first use.
	Show(name string, img gocv.Mat)

	// Hide closes the named window if it is open.
	Hide(name string)

	// PollKey pumps window events and returns the pressed key, or KeyNone.
	PollKey() int

	// Close closes every window.
	Close() error
}

// RangeControl exposes an adjustable HSV range, e.g. trackbars.
type RangeControl interface {
	Range() cloak.Range
	SetRange(r cloak.Range)
}

// Windows is a Display backed by gocv windows.
type Windows struct {
	windows map[string]*gocv.Window
	order   []string
}

// New creates an empty window set.
func New() *Windows {
	return &Windows{
		windows: make(map[string]*gocv.Window),
	}
}

// Show draws img in the named window.
func (w *Windows) Show(name string, img gocv.Mat) {
	w.window(name).IMShow(img)
}

// Hide closes the named window.
func (w *Windows) Hide(name string) {
	win, ok := w.windows[name]
	if !ok {
		return
	}
	win.Close()
	delete(w.windows, name)
	for i, n := range w.order {
		if n == name {
			w.order = append(w.order[:i], w.order[i+1:]...)
			break
		}
	}
}

// PollKey waits 1ms for a key. HighGUI only processes events while a
// window is waiting, so this must be called once per frame.
func (w *Windows) PollKey() int {
	if len(w.order) == 0 {
		return KeyNone
	}
	key := w.windows[w.order[0]].WaitKey(1)
	if key < 0 {
		return KeyNone
	}
	return key & 0xFF
}

// Close closes every window.
func (w *Windows) Close() error {
	for _, name := range append([]string(nil), w.order...) {
		w.Hide(name)
	}
	return nil
}

// Sliders creates six HSV trackbars in the named window, set to initial.
func (w *Windows) Sliders(name string, initial cloak.Range) *Sliders {
	win := w.window(name)
	s := &Sliders{
		hMin: win.CreateTrackbar("H Min", cloak.MaxHue),
		sMin: win.CreateTrackbar("S Min", cloak.MaxSaturation),
		vMin: win.CreateTrackbar("V Min", cloak.MaxValue),
		hMax: win.CreateTrackbar("H Max", cloak.MaxHue),
		sMax: win.CreateTrackbar("S Max", cloak.MaxSaturation),
		vMax: win.CreateTrackbar("V Max", cloak.MaxValue),
	}
	s.SetRange(initial)
	return s
}

func (w *Windows) window(name string) *gocv.Window {
	if win, ok := w.windows[name]; ok {
		return win
	}
	win := gocv.NewWindow(name)
	w.windows[name] = win
	w.order = append(w.order, name)
	return win
}

// Sliders is a RangeControl backed by HighGUI trackbars.
type Sliders struct {
	hMin, sMin, vMin *gocv.Trackbar
	hMax, sMax, vMax *gocv.Trackbar
}

// Range reads the current trackbar positions.
func (s *Sliders) Range() cloak.Range {
	return cloak.Range{
		Lower: cloak.HSV{H: s.hMin.GetPos(), S: s.sMin.GetPos(), V: s.vMin.GetPos()},
		Upper: cloak.HSV{H: s.hMax.GetPos(), S: s.sMax.GetPos(), V: s.vMax.GetPos()},
	}
}

// SetRange moves the trackbars to r.
func (s *Sliders) SetRange(r cloak.Range) {
	s.hMin.SetPos(r.Lower.H)
	s.sMin.SetPos(r.Lower.S)
	s.vMin.SetPos(r.Lower.V)
	s.hMax.SetPos(r.Upper.H)
	s.sMax.SetPos(r.Upper.S)
	s.vMax.SetPos(r.Upper.V)
}
