package app

import (
	"github.com/sirupsen/logrus"

	"github.com/ayusman/gatecount/internal/region"
)

// LogSink logs crossings, periodic progress and the final report.
type LogSink struct {
	every int
	log   *logrus.Entry
}

// NewLogSink creates a LogSink that logs progress every n frames. Zero
// disables progress lines.
func NewLogSink(every int) *LogSink {
	return &LogSink{every: every, log: logrus.WithField("component", "counter")}
}

// Start logs the start of a run.
func (s *LogSink) Start(run, source string) error {
	s.log = logrus.WithFields(logrus.Fields{"component": "counter", "run": run})
	s.log.WithField("source", source).Info("counting")
	return nil
}

// Frame logs every crossing of the frame.
func (s *LogSink) Frame(frame int, snaps []region.Snapshot) {
	for _, snap := range snaps {
		for _, c := range snap.Crossings {
			s.log.WithFields(logrus.Fields{
				"region":    snap.Region,
				"frame":     frame,
				"track":     c.TrackID,
				"direction": c.Direction,
				"count":     snap.Counts.String(),
			}).Info("crossing")
		}
	}

	if s.every > 0 && frame%s.every == 0 {
		fields := logrus.Fields{"frame": frame}
		for _, snap := range snaps {
			fields[snap.Name] = snap.Counts.String()
		}
		s.log.WithFields(fields).Debug("progress")
	}
}

// Report logs the final tally of each region.
func (s *LogSink) Report(run string, reports []region.Report) {
	for _, r := range reports {
		s.log.WithFields(logrus.Fields{
			"region": r.Index,
			"name":   r.Name,
			"enter":  r.Enter,
			"exit":   r.Exit,
		}).Info("final count")
	}
}
