package capture

import (
	"image"
	"sync"

	"gocv.io/x/gocv"
)

// MockSource plays back pre-recorded frames for testing
type MockSource struct {
	frames  []*gocv.Mat
	index   int
	loop    bool
	mu      sync.Mutex
	running bool
}

func NewMockSource(frames []*gocv.Mat, loop bool) *MockSource {
	return &MockSource{
		frames: frames,
		loop:   loop,
	}
}

func (c *MockSource) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.running = true
	c.index = 0
	return nil
}

func (c *MockSource) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.running = false
	return nil
}

func (c *MockSource) ReadFrame() (*gocv.Mat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		return nil, ErrNotOpen
	}

	if c.index >= len(c.frames) {
		if c.loop && len(c.frames) > 0 {
			c.index = 0
		} else {
			return nil, ErrExhausted
		}
	}

	// Clone the frame so the original isn't modified
	frame := c.frames[c.index].Clone()
	c.index++

	return &frame, nil
}

// Size returns the size of the first frame.
func (c *MockSource) Size() image.Point {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.frames) == 0 {
		return image.Point{}
	}
	return image.Pt(c.frames[0].Cols(), c.frames[0].Rows())
}

func (c *MockSource) SetFPS(fps int) {}
func (c *MockSource) FPS() int       { return 15 }
func (c *MockSource) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Index returns how many frames have been read since the last rewind.
func (c *MockSource) Index() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.index
}

// SetFrames replaces the frame sequence
func (c *MockSource) SetFrames(frames []*gocv.Mat) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = frames
	c.index = 0
}

// Reset restarts playback from the beginning
func (c *MockSource) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.index = 0
}
