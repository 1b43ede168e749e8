// Package detector turns region images into candidate boxes for the tracker.
package detector

import (
	"fmt"

	"gocv.io/x/gocv"

	"github.com/ayusman/gatecount/internal/tracking"
)

// Detector defines the interface for per-region candidate box detection.
// Implementations keep background state between calls, so one Detector
// serves exactly one region.
type Detector interface {
	// Detect analyzes the next image of the region and returns candidate
	// boxes in region coordinates. Returns an empty slice if nothing moved.
	Detect(img *gocv.Mat) ([]tracking.Box, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Kind selects a detector implementation.
type Kind string

const (
	// KindMOG uses a MOG2 background subtractor on the luma channel.
	KindMOG Kind = "mog"
	// KindDiff uses frame differencing against the previous image.
	KindDiff Kind = "diff"
)

// Config holds configuration options for box detection.
type Config struct {
	Kind Kind `json:"kind"`

	// VarThreshold is the MOG2 variance threshold (mog only).
	VarThreshold float64 `json:"var_threshold"`
	// History is the number of frames the MOG2 model remembers (mog only).
	History int `json:"history"`
	// DiffThreshold is the binary threshold on the frame difference (diff only).
	DiffThreshold float64 `json:"diff_threshold"`

	// MinArea and MaxArea bound accepted box areas in px².
	MinArea int `json:"min_area"`
	MaxArea int `json:"max_area"`
	// MinSide is the minimum accepted width and height in px.
	MinSide int `json:"min_side"`
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		Kind:          KindMOG,
		VarThreshold:  25,
		History:       500,
		DiffThreshold: DiffThreshold,
		MinArea:       100,
		MaxArea:       10000,
		MinSide:       5,
	}
}

// withDefaults fills zero fields from DefaultConfig.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Kind == "" {
		c.Kind = d.Kind
	}
	if c.VarThreshold <= 0 {
		c.VarThreshold = d.VarThreshold
	}
	if c.History <= 0 {
		c.History = d.History
	}
	if c.DiffThreshold <= 0 {
		c.DiffThreshold = d.DiffThreshold
	}
	if c.MinArea <= 0 {
		c.MinArea = d.MinArea
	}
	if c.MaxArea <= 0 {
		c.MaxArea = d.MaxArea
	}
	if c.MinSide <= 0 {
		c.MinSide = d.MinSide
	}
	return c
}

// Validate checks the configuration without allocating detector state.
func (c Config) Validate() error {
	c = c.withDefaults()
	switch c.Kind {
	case KindMOG, KindDiff:
	default:
		return fmt.Errorf("unknown detector kind %q", c.Kind)
	}
	if c.MinArea > c.MaxArea {
		return fmt.Errorf("min_area %d exceeds max_area %d", c.MinArea, c.MaxArea)
	}
	return nil
}

// New creates the detector selected by config.Kind.
func New(config Config) (Detector, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	config = config.withDefaults()

	switch config.Kind {
	case KindDiff:
		return NewDiffDetector(config), nil
	default:
		return NewMOGDetector(config), nil
	}
}

// accept applies the size filter to a candidate box.
func (c Config) accept(b tracking.Box) bool {
	area := b.Area()
	return area >= c.MinArea && area <= c.MaxArea && b.W >= c.MinSide && b.H >= c.MinSide
}

// boxesFromMask extracts the bounding boxes of the external contours of a
// binary foreground mask, keeping those that pass the size filter.
func boxesFromMask(mask gocv.Mat, config Config) []tracking.Box {
	contours := gocv.FindContours(mask, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	boxes := make([]tracking.Box, 0, contours.Size())
	for i := 0; i < contours.Size(); i++ {
		// The bounding rectangle of a contour equals that of its convex hull.
		b := tracking.BoxFromRect(gocv.BoundingRect(contours.At(i)))
		if !config.accept(b) {
			continue
		}
		boxes = append(boxes, b)
	}

	return boxes
}
