package detector

import (
	"errors"
	"image"
	"sync"

	"gocv.io/x/gocv"

	"github.com/ayusman/gatecount/internal/tracking"
)

// Frame differencing constants
const (
	// GaussianBlurSize is the kernel size for Gaussian blur (21x21)
	GaussianBlurSize = 21
	// DiffThreshold is the binary threshold for difference detection
	DiffThreshold = 25
)

// DiffDetector detects moving objects between consecutive images of a
// region using frame differencing with Gaussian blur for noise reduction.
type DiffDetector struct {
	config      Config
	prevGray    gocv.Mat
	kernel      gocv.Mat
	initialized bool
	closed      bool
	mu          sync.Mutex
}

// NewDiffDetector creates a new DiffDetector.
func NewDiffDetector(config Config) *DiffDetector {
	return &DiffDetector{
		config:   config.withDefaults(),
		prevGray: gocv.NewMat(),
		kernel:   gocv.GetStructuringElement(gocv.MorphEllipse, image.Pt(DilateKernel, DilateKernel)),
	}
}

// Detect compares img with the previous image and returns the boxes of the
// changed areas.
//
// Algorithm:
// 1. Convert to grayscale
// 2. Apply Gaussian blur (21x21) to reduce noise
// 3. If first image, store as baseline and return no boxes
// 4. Calculate absolute difference with previous image
// 5. Threshold the difference and dilate to join fragments
// 6. Return the filtered bounding boxes of the external contours
func (d *DiffDetector) Detect(img *gocv.Mat) ([]tracking.Box, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil, errors.New("detector is closed")
	}
	if img == nil || img.Empty() {
		return nil, nil
	}

	gray := gocv.NewMat()
	defer gray.Close()

	if img.Channels() > 1 {
		gocv.CvtColor(*img, &gray, gocv.ColorBGRToGray)
	} else {
		img.CopyTo(&gray)
	}

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(gray, &blurred, image.Point{X: GaussianBlurSize, Y: GaussianBlurSize}, 0, 0, gocv.BorderDefault)

	if !d.initialized {
		blurred.CopyTo(&d.prevGray)
		d.initialized = true
		return nil, nil
	}

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(blurred, d.prevGray, &diff)

	thresh := gocv.NewMat()
	defer thresh.Close()
	gocv.Threshold(diff, &thresh, float32(d.config.DiffThreshold), 255, gocv.ThresholdBinary)

	dilated := gocv.NewMat()
	defer dilated.Close()
	gocv.Dilate(thresh, &dilated, d.kernel)

	blurred.CopyTo(&d.prevGray)

	return boxesFromMask(dilated, d.config), nil
}

// Reset clears the baseline so the next image starts a new comparison.
func (d *DiffDetector) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.prevGray.Empty() {
		d.prevGray.Close()
		d.prevGray = gocv.NewMat()
	}
	d.initialized = false
}

// Close releases resources used by the detector. It is safe to call more
// than once.
func (d *DiffDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	d.closed = true
	d.initialized = false

	d.prevGray.Close()
	d.kernel.Close()
	return nil
}
