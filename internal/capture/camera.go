// Package capture provides frame sources (video files and cameras) using GoCV (OpenCV).
package capture

import (
	"errors"
	"image"
	"sync"

	"gocv.io/x/gocv"
)

// Default camera settings
const (
	DefaultFPS    = 5
	DefaultWidth  = 640
	DefaultHeight = 480
)

var (
	// ErrNotOpen is returned when trying to read from a source that is not open.
	ErrNotOpen = errors.New("source is not open")
	// ErrExhausted is returned by ReadFrame when the stream has no further
	// frames. It ends a run normally.
	ErrExhausted = errors.New("no more frames")
)

// Source defines the interface for frame sources.
type Source interface {
	Open() error
	Close() error
	// ReadFrame reads the next frame. The caller is responsible for closing
	// the returned Mat. Returns ErrExhausted at the end of the stream.
	ReadFrame() (*gocv.Mat, error)
	// Size returns the frame size reported by the open source.
	Size() image.Point
	SetFPS(fps int)
	FPS() int
	IsOpen() bool
}

// videoSource reads frames from a camera device or a video file using GoCV.
type videoSource struct {
	deviceID int
	path     string
	capture  *gocv.VideoCapture
	mu       sync.Mutex
	running  bool
	fps      int
	size     image.Point
}

// NewCamera creates a new Source reading from the given camera device.
// The default FPS is 5 for performance reasons.
func NewCamera(deviceID int) Source {
	return &videoSource{
		deviceID: deviceID,
		fps:      DefaultFPS,
	}
}

// NewFileSource creates a new Source reading frames from a video file.
func NewFileSource(path string) Source {
	return &videoSource{
		path: path,
	}
}

// Open opens the camera or file. Cameras are set to 640x480.
func (c *videoSource) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return nil
	}

	var (
		capture *gocv.VideoCapture
		err     error
	)
	if c.path != "" {
		capture, err = gocv.VideoCaptureFile(c.path)
	} else {
		capture, err = gocv.OpenVideoCapture(c.deviceID)
	}
	if err != nil {
		return err
	}
	if !capture.IsOpened() {
		capture.Close()
		return errors.New("could not open video")
	}

	if c.path == "" {
		capture.Set(gocv.VideoCaptureFrameWidth, DefaultWidth)
		capture.Set(gocv.VideoCaptureFrameHeight, DefaultHeight)
		capture.Set(gocv.VideoCaptureFPS, float64(c.fps))
	} else if fps := int(capture.Get(gocv.VideoCaptureFPS)); fps > 0 {
		c.fps = fps
	}

	c.size = image.Pt(
		int(capture.Get(gocv.VideoCaptureFrameWidth)),
		int(capture.Get(gocv.VideoCaptureFrameHeight)),
	)
	c.capture = capture
	c.running = true

	return nil
}

// Close closes the source and releases resources.
func (c *videoSource) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running || c.capture == nil {
		c.running = false
		return nil
	}

	err := c.capture.Close()
	c.capture = nil
	c.running = false

	return err
}

// ReadFrame reads a single frame. A failed read from a file means the end
// of the video and returns ErrExhausted.
func (c *videoSource) ReadFrame() (*gocv.Mat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running || c.capture == nil {
		return nil, ErrNotOpen
	}

	mat := gocv.NewMat()
	if ok := c.capture.Read(&mat); !ok {
		mat.Close()
		if c.path != "" {
			return nil, ErrExhausted
		}
		return nil, errors.New("failed to read frame from camera")
	}

	if mat.Empty() {
		mat.Close()
		if c.path != "" {
			return nil, ErrExhausted
		}
		return nil, errors.New("captured frame is empty")
	}

	return &mat, nil
}

// Size returns the frame size reported at Open.
func (c *videoSource) Size() image.Point {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.size
}

// SetFPS sets the frames per second for capture.
// Values less than or equal to 0 are ignored.
func (c *videoSource) SetFPS(fps int) {
	if fps <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.fps = fps

	if c.capture != nil && c.path == "" {
		c.capture.Set(gocv.VideoCaptureFPS, float64(fps))
	}
}

// FPS returns the current frames per second setting.
func (c *videoSource) FPS() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.fps
}

// IsOpen returns true if the source is currently open.
func (c *videoSource) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.running
}
