package detector

import (
	"image"
	"sync"

	"gocv.io/x/gocv"

	"github.com/ayusman/gatecount/internal/tracking"
)

// MockDetector is a test implementation of the Detector interface.
// It replays a script of box lists, one per call to Detect.
type MockDetector struct {
	script [][]tracking.Box
	calls  int
	err    error
	closed bool
	mu     sync.Mutex
}

// NewMockDetector creates a new MockDetector that replays script.
func NewMockDetector(script ...[]tracking.Box) *MockDetector {
	return &MockDetector{script: script}
}

// SetScript replaces the script and rewinds it.
func (m *MockDetector) SetScript(script ...[]tracking.Box) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = script
	m.calls = 0
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Detect returns the next scripted box list, or nil once the script is
// exhausted. The image is ignored.
func (m *MockDetector) Detect(img *gocv.Mat) ([]tracking.Box, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	if m.calls > len(m.script) {
		return nil, nil
	}
	return m.script[m.calls-1], nil
}

// Calls returns how many times Detect was called.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Closed reports whether Close was called.
func (m *MockDetector) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Close marks the detector closed.
func (m *MockDetector) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// MovingBox returns a script of n frames in which one box starts at from
// and moves by step every frame.
func MovingBox(from tracking.Box, step image.Point, n int) [][]tracking.Box {
	script := make([][]tracking.Box, n)
	b := from
	for i := range script {
		script[i] = []tracking.Box{b}
		b = b.Translate(step)
	}
	return script
}
