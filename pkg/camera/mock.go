package camera

import (
	"sync"

	"gocv.io/x/gocv"
)

// MockSource is a scripted Source for testing.
// It replays cloned frames in order and then reports no frame.
type MockSource struct {
	mu     sync.Mutex
	frames []gocv.Mat
	next   int
	loop   bool
	drops  map[int]bool

	// Stats
	reads  int
	closed bool
}

// MockSourceOption configures a MockSource.
type MockSourceOption func(*MockSource)

// WithLoop makes the mock replay its frames forever.
func WithLoop() MockSourceOption {
	return func(m *MockSource) {
		m.loop = true
	}
}

// WithDrops makes the given read attempts (0-based) fail without consuming a frame.
func WithDrops(reads ...int) MockSourceOption {
	return func(m *MockSource) {
		for _, r := range reads {
			m.drops[r] = true
		}
	}
}

// NewMockSource creates a mock source replaying copies of frames.
func NewMockSource(frames []gocv.Mat, opts ...MockSourceOption) *MockSource {
	m := &MockSource{
		drops: make(map[int]bool),
	}
	for _, f := range frames {
		m.frames = append(m.frames, f.Clone())
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Read copies the next scripted frame into dst.
func (m *MockSource) Read(dst *gocv.Mat) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	attempt := m.reads
	m.reads++

	if m.closed || m.drops[attempt] {
		return false
	}
	if m.next >= len(m.frames) {
		if !m.loop || len(m.frames) == 0 {
			return false
		}
		m.next = 0
	}

	m.frames[m.next].CopyTo(dst)
	m.next++
	return true
}

// Reads returns the number of Read calls so far.
func (m *MockSource) Reads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reads
}

// Closed reports whether Close was called.
func (m *MockSource) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Close releases the cloned frames.
func (m *MockSource) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true
	for i := range m.frames {
		m.frames[i].Close()
	}
	return nil
}
