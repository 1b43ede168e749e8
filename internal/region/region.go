// Package region runs the tracking and gate counting of independent
// monitored zones, one frame at a time.
package region

import (
	"errors"
	"fmt"
	"image"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"github.com/ayusman/gatecount/internal/detector"
	"github.com/ayusman/gatecount/internal/gate"
	"github.com/ayusman/gatecount/internal/tracking"
)

// Config describes one monitored zone.
type Config struct {
	Index int
	Name  string
	// Rect is the zone in frame coordinates.
	Rect image.Rectangle
	// Line is the gate in zone coordinates.
	Line     gate.Line
	Tracking tracking.Config
}

// TrackView is a track box exposed to renderers, in zone coordinates.
type TrackView struct {
	ID     uint64       `json:"id"`
	Box    tracking.Box `json:"box"`
	Length int          `json:"length"`
}

// Crossing is one credited gate crossing.
type Crossing struct {
	TrackID   uint64         `json:"track_id"`
	Frame     int            `json:"frame"`
	Direction gate.Direction `json:"direction"`
	Point     image.Point    `json:"point"`
}

// Snapshot is the state of a zone after one frame.
type Snapshot struct {
	Region    int             `json:"region"`
	Name      string          `json:"name"`
	Frame     int             `json:"frame"`
	Rect      image.Rectangle `json:"rect"`
	Line      gate.Line       `json:"line"`
	Counts    gate.Counts     `json:"counts"`
	Tracks    []TrackView     `json:"tracks"`
	Crossings []Crossing      `json:"crossings,omitempty"`
	Stats     tracking.Stats  `json:"-"`
}

// Report is the final tally of a zone.
type Report struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
	Enter int    `json:"enter"`
	Exit  int    `json:"exit"`
}

func (r Report) String() string {
	return fmt.Sprintf("%d (%d, %d)", r.Index, r.Enter, r.Exit)
}

// Region owns the detector, track set, gate line and counters of one zone.
// A Region shares no state with other regions. It is not safe for
// concurrent use; Pipeline runs each region on at most one goroutine.
type Region struct {
	index    int
	name     string
	rect     image.Rectangle
	line     gate.Line
	counts   gate.Counts
	assoc    *tracking.Associator
	detector detector.Detector
	log      *logrus.Entry
}

// New creates a Region. det may be nil when detections are supplied
// through Observe.
func New(config Config, det detector.Detector) (*Region, error) {
	if config.Rect.Empty() {
		return nil, errors.New("region rectangle is empty")
	}
	if err := config.Line.Validate(); err != nil {
		return nil, fmt.Errorf("region %d line: %w", config.Index, err)
	}

	name := config.Name
	if name == "" {
		name = fmt.Sprintf("region-%d", config.Index)
	}

	return &Region{
		index:    config.Index,
		name:     name,
		rect:     config.Rect,
		line:     config.Line,
		assoc:    tracking.NewAssociator(config.Tracking),
		detector: det,
		log:      logrus.WithFields(logrus.Fields{"region": config.Index, "name": name}),
	}, nil
}

// Index returns the zone index.
func (r *Region) Index() int { return r.index }

// Name returns the zone name.
func (r *Region) Name() string { return r.name }

// Rect returns the zone in frame coordinates.
func (r *Region) Rect() image.Rectangle { return r.rect }

// Line returns the gate line.
func (r *Region) Line() gate.Line { return r.line }

// Counts returns the current counters.
func (r *Region) Counts() gate.Counts { return r.counts }

// Tracks returns the live tracks.
func (r *Region) Tracks() []*tracking.Track { return r.assoc.Tracks() }

// Report returns the zone's tally.
func (r *Region) Report() Report {
	return Report{Index: r.index, Name: r.name, Enter: r.counts.Enter, Exit: r.counts.Exit}
}

// Step runs the detector on img, the zone's slice of the frame, and then
// Observe. A detector failure is logged and the frame is processed as one
// without detections.
func (r *Region) Step(frame int, img *gocv.Mat) Snapshot {
	var boxes []tracking.Box
	if r.detector != nil {
		var err error
		boxes, err = r.detector.Detect(img)
		if err != nil {
			r.log.WithField("frame", frame).WithError(err).Warn("detection failed")
			boxes = nil
		}
	}
	return r.Observe(frame, boxes)
}

// Observe associates the candidate boxes of frame with the zone's tracks,
// prunes stale tracks and tests every track updated in this frame with at
// least three entries against the gate line. Each crossing adds to the
// counters and marks the track so the line credits it only once.
func (r *Region) Observe(frame int, boxes []tracking.Box) Snapshot {
	stats := r.assoc.Observe(frame, boxes)

	snap := Snapshot{
		Region: r.index,
		Name:   r.name,
		Frame:  frame,
		Rect:   r.rect,
		Line:   r.line,
		Stats:  stats,
	}

	for _, t := range r.assoc.Fresh(frame) {
		snap.Tracks = append(snap.Tracks, TrackView{ID: t.ID, Box: t.Last(), Length: t.Len()})

		if t.Len() <= 2 {
			continue
		}
		dir, ok := r.line.Test(t)
		if !ok {
			continue
		}

		r.counts.Add(dir)
		t.Mark(r.line.ID)
		snap.Crossings = append(snap.Crossings, Crossing{
			TrackID:   t.ID,
			Frame:     frame,
			Direction: dir,
			Point:     t.Last().UpperLeft(),
		})

		r.log.WithFields(logrus.Fields{
			"frame":     frame,
			"track":     t.ID,
			"direction": dir,
			"counts":    r.counts.String(),
		}).Debug("gate crossed")
	}

	snap.Counts = r.counts

	if stats.Dropped > 0 {
		r.log.WithFields(logrus.Fields{"frame": frame, "dropped": stats.Dropped}).Debug("malformed detections dropped")
	}

	return snap
}

// Close releases the detector.
func (r *Region) Close() error {
	if r.detector == nil {
		return nil
	}
	return r.detector.Close()
}
