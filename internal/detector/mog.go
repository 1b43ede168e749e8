package detector

import (
	"errors"
	"image"
	"sync"

	"gocv.io/x/gocv"

	"github.com/ayusman/gatecount/internal/tracking"
)

// Morphology kernel sizes for the MOG pipeline.
const (
	MedianBlurSize = 3
	CloseKernel    = 20
	DilateKernel   = 7
)

// MOGDetector finds moving objects with a mixture-of-gaussians background
// model on the luma channel, followed by median blur, closing and dilation.
type MOGDetector struct {
	config Config
	bs     gocv.BackgroundSubtractorMOG2
	closeK gocv.Mat
	dilK   gocv.Mat
	closed bool
	mu     sync.Mutex
}

// NewMOGDetector creates a MOGDetector. Shadow detection is disabled.
func NewMOGDetector(config Config) *MOGDetector {
	config = config.withDefaults()
	return &MOGDetector{
		config: config,
		bs:     gocv.NewBackgroundSubtractorMOG2WithParams(config.History, config.VarThreshold, false),
		closeK: gocv.GetStructuringElement(gocv.MorphEllipse, image.Pt(CloseKernel, CloseKernel)),
		dilK:   gocv.GetStructuringElement(gocv.MorphEllipse, image.Pt(DilateKernel, DilateKernel)),
	}
}

// Detect updates the background model with img and returns the boxes of the
// foreground blobs.
func (m *MOGDetector) Detect(img *gocv.Mat) ([]tracking.Box, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, errors.New("detector is closed")
	}
	if img == nil || img.Empty() {
		return nil, nil
	}

	luma := gocv.NewMat()
	defer luma.Close()

	if img.Channels() > 1 {
		yuv := gocv.NewMat()
		gocv.CvtColor(*img, &yuv, gocv.ColorBGRToYUV)
		planes := gocv.Split(yuv)
		yuv.Close()
		planes[0].CopyTo(&luma)
		for _, p := range planes {
			p.Close()
		}
	} else {
		img.CopyTo(&luma)
	}

	mask := gocv.NewMat()
	defer mask.Close()
	m.bs.Apply(luma, &mask)

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.MedianBlur(mask, &blurred, MedianBlurSize)

	closing := gocv.NewMat()
	defer closing.Close()
	gocv.MorphologyEx(blurred, &closing, gocv.MorphClose, m.closeK)

	dilated := gocv.NewMat()
	defer dilated.Close()
	gocv.Dilate(closing, &dilated, m.dilK)

	return boxesFromMask(dilated, m.config), nil
}

// Close releases the background model and kernels. It is safe to call more
// than once.
func (m *MOGDetector) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true

	m.bs.Close()
	m.closeK.Close()
	m.dilK.Close()
	return nil
}
