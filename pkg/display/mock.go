package display

import (
	"sync"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-cloak/pkg/cloak"
)

// MockDisplay is a Display for testing. It records what was shown and
// replays a scripted key sequence, one key per PollKey call.
type MockDisplay struct {
	mu     sync.Mutex
	keys   []int
	polls  int
	shown  map[string]int
	open   map[string]bool
	hidden []string
	last   map[string]gocv.Mat
	closed bool

	// OnPoll runs before each PollKey returns, with the 0-based poll index.
	OnPoll func(poll int)
}

// NewMockDisplay creates a mock that returns keys in order, then KeyNone.
func NewMockDisplay(keys ...int) *MockDisplay {
	return &MockDisplay{
		keys:  keys,
		shown: make(map[string]int),
		open:  make(map[string]bool),
		last:  make(map[string]gocv.Mat),
	}
}

// Show records img under name, keeping a copy of the latest image.
func (m *MockDisplay) Show(name string, img gocv.Mat) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.shown[name]++
	m.open[name] = true

	last, ok := m.last[name]
	if !ok {
		last = gocv.NewMat()
	}
	img.CopyTo(&last)
	m.last[name] = last
}

// Hide records that name was closed.
func (m *MockDisplay) Hide(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.open[name] {
		m.hidden = append(m.hidden, name)
	}
	delete(m.open, name)
}

// PollKey returns the next scripted key.
func (m *MockDisplay) PollKey() int {
	m.mu.Lock()
	poll := m.polls
	m.polls++
	key := KeyNone
	if poll < len(m.keys) {
		key = m.keys[poll]
	}
	onPoll := m.OnPoll
	m.mu.Unlock()

	if onPoll != nil {
		onPoll(poll)
	}
	return key
}

// Shown returns how many times name was drawn.
func (m *MockDisplay) Shown(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.shown[name]
}

// IsOpen reports whether name is currently shown.
func (m *MockDisplay) IsOpen(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.open[name]
}

// Hidden returns the windows closed via Hide, in order.
func (m *MockDisplay) Hidden() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.hidden...)
}

// Last returns a clone of the latest image shown in name.
// The caller must close it.
func (m *MockDisplay) Last(name string) (gocv.Mat, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	img, ok := m.last[name]
	if !ok {
		return gocv.NewMat(), false
	}
	return img.Clone(), true
}

// Polls returns the number of PollKey calls.
func (m *MockDisplay) Polls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.polls
}

// Closed reports whether Close was called.
func (m *MockDisplay) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Close releases the recorded images.
func (m *MockDisplay) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	for name, img := range m.last {
		img.Close()
		delete(m.last, name)
	}
	m.open = make(map[string]bool)
	return nil
}

// MockSliders is an in-memory RangeControl.
type MockSliders struct {
	mu sync.Mutex
	r  cloak.Range
}

// NewMockSliders creates sliders set to initial.
func NewMockSliders(initial cloak.Range) *MockSliders {
	return &MockSliders{r: initial}
}

// Range returns the current range.
func (s *MockSliders) Range() cloak.Range {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.r
}

// SetRange replaces the current range.
func (s *MockSliders) SetRange(r cloak.Range) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.r = r
}
