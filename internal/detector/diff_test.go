package detector

import (
	"image"
	"image/color"
	"testing"

	"gocv.io/x/gocv"

	"github.com/ayusman/gatecount/internal/tracking"
)

// squareFrame returns a black 480x640 frame with a filled white square.
func squareFrame(r image.Rectangle) gocv.Mat {
	frame := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	if !r.Empty() {
		gocv.Rectangle(&frame, r, color.RGBA{R: 255, G: 255, B: 255, A: 0}, -1)
	}
	return frame
}

func TestNewDiffDetector(t *testing.T) {
	d := NewDiffDetector(Config{DiffThreshold: 40})
	defer d.Close()

	if d.config.DiffThreshold != 40 {
		t.Errorf("DiffThreshold = %f, want 40", d.config.DiffThreshold)
	}
	if d.config.MinArea != 100 {
		t.Errorf("MinArea = %d, want default 100", d.config.MinArea)
	}
	if d.initialized {
		t.Error("detector should not be initialized initially")
	}
}

func TestDiffDetector_NoMotion(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	d := NewDiffDetector(DefaultConfig())
	defer d.Close()

	frame1 := squareFrame(image.Rectangle{})
	defer frame1.Close()
	frame2 := squareFrame(image.Rectangle{})
	defer frame2.Close()

	// First frame initializes the detector
	boxes, err := d.Detect(&frame1)
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if len(boxes) != 0 {
		t.Errorf("first frame should not produce boxes, got %v", boxes)
	}

	boxes, err = d.Detect(&frame2)
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if len(boxes) != 0 {
		t.Errorf("identical frames should not produce boxes, got %v", boxes)
	}
}

func TestDiffDetector_WithMotion(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	d := NewDiffDetector(DefaultConfig())
	defer d.Close()

	square := image.Rect(100, 100, 140, 140)
	blackFrame := squareFrame(image.Rectangle{})
	defer blackFrame.Close()
	squareF := squareFrame(square)
	defer squareF.Close()

	d.Detect(&blackFrame)
	boxes, err := d.Detect(&squareF)
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}

	if len(boxes) != 1 {
		t.Fatalf("expected 1 box, got %d: %v", len(boxes), boxes)
	}
	if _, ok := tracking.Intersect(boxes[0], tracking.BoxFromRect(square)); !ok {
		t.Errorf("box %v does not overlap the moved square %v", boxes[0], square)
	}
}

func TestDiffDetector_Reset(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	d := NewDiffDetector(DefaultConfig())
	defer d.Close()

	frame := squareFrame(image.Rectangle{})
	defer frame.Close()

	d.Detect(&frame)
	if !d.initialized {
		t.Error("detector should be initialized after first Detect")
	}

	d.Reset()

	if d.initialized {
		t.Error("detector should not be initialized after Reset")
	}
	if !d.prevGray.Empty() {
		t.Error("prevGray should be empty after Reset")
	}
}

func TestDiffDetector_Close_Multiple(t *testing.T) {
	d := NewDiffDetector(DefaultConfig())

	// Close multiple times should not panic
	if err := d.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if err := d.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

func TestDiffDetector_Detect_AfterClose(t *testing.T) {
	d := NewDiffDetector(DefaultConfig())
	d.Close()

	if _, err := d.Detect(nil); err == nil {
		t.Error("Detect() after Close() should return an error")
	}
}

func TestDiffDetector_EmptyImage(t *testing.T) {
	d := NewDiffDetector(DefaultConfig())
	defer d.Close()

	boxes, err := d.Detect(nil)
	if err != nil || boxes != nil {
		t.Errorf("Detect(nil) = %v, %v; want nil, nil", boxes, err)
	}
}
