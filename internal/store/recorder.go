package store

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/ayusman/gatecount/internal/region"
)

// Recorder persists one run: its crossings as they happen and its final
// region reports. Write failures are logged and never stop the run.
type Recorder struct {
	store  *Store
	runID  string
	frames int
	log    *logrus.Entry
}

// NewRecorder creates a Recorder writing to s.
func NewRecorder(s *Store) *Recorder {
	return &Recorder{store: s, log: logrus.WithField("component", "recorder")}
}

// Start inserts the run row.
func (r *Recorder) Start(run, source string) error {
	r.runID = run
	r.frames = 0
	r.log = r.log.WithField("run", run)

	if err := r.store.Runs().Create(&Run{ID: run, Source: source}); err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}
	return nil
}

// Frame stores the crossings credited in a frame.
func (r *Recorder) Frame(frame int, snaps []region.Snapshot) {
	r.frames = frame

	var crossings []Crossing
	for _, snap := range snaps {
		for _, c := range snap.Crossings {
			crossings = append(crossings, Crossing{
				RegionIndex: snap.Region,
				Frame:       c.Frame,
				TrackID:     c.TrackID,
				Direction:   c.Direction.String(),
				X:           c.Point.X,
				Y:           c.Point.Y,
			})
		}
	}

	if err := r.store.Crossings().Create(r.runID, crossings); err != nil {
		r.log.WithField("frame", frame).WithError(err).Warn("failed to store crossings")
	}
}

// Report stores the final region reports and marks the run finished.
func (r *Recorder) Report(run string, reports []region.Report) {
	stored := make([]RegionReport, len(reports))
	for i, rep := range reports {
		stored[i] = RegionReport{RegionIndex: rep.Index, Name: rep.Name, Enter: rep.Enter, Exit: rep.Exit}
	}

	if err := r.store.Runs().Finish(run, r.frames, stored); err != nil {
		r.log.WithError(err).Error("failed to store final report")
		return
	}
	r.log.WithField("frames", r.frames).Info("run stored")
}
