// Package app runs the counting loop: frames from a source go through the
// region pipeline, the overlay renderer and every sink, and the run ends
// with a final report per region.
package app

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"github.com/ayusman/gatecount/internal/capture"
	"github.com/ayusman/gatecount/internal/region"
)

// DefaultMaxReadErrors is how many consecutive failed reads end a run.
const DefaultMaxReadErrors = 30

// Sink receives the snapshots of every frame and the final report.
// Sink methods are called from the counting loop goroutine only.
type Sink interface {
	Start(run, source string) error
	Frame(frame int, snaps []region.Snapshot)
	Report(run string, reports []region.Report)
}

// Renderer draws snapshots on the frame they were computed from. Done is
// closed when the renderer asks the run to stop.
type Renderer interface {
	Render(frame int, img *gocv.Mat, snaps []region.Snapshot) error
	Done() <-chan struct{}
}

// Config holds configuration options for the application.
type Config struct {
	Source capture.Source
	// SourceName is stored with the run, e.g. the video path.
	SourceName string
	Pipeline   *region.Pipeline
	Sinks      []Sink
	// Renderer is optional.
	Renderer Renderer
	// FPS throttles frame reads. Zero reads as fast as the source allows.
	FPS int
	// RunID defaults to a random UUID.
	RunID string
	// MaxReadErrors defaults to DefaultMaxReadErrors.
	MaxReadErrors int
}

// Result is the outcome of a run.
type Result struct {
	Run     string
	Frames  int
	Reports []region.Report
}

// App is the counting application.
type App struct {
	config Config
	paused atomic.Bool
	frames atomic.Int64
	log    *logrus.Entry
}

// New creates an App. Source and Pipeline are required.
func New(config Config) (*App, error) {
	if config.Source == nil {
		return nil, errors.New("app: no frame source")
	}
	if config.Pipeline == nil {
		return nil, errors.New("app: no pipeline")
	}
	if config.RunID == "" {
		config.RunID = uuid.New().String()
	}
	if config.MaxReadErrors <= 0 {
		config.MaxReadErrors = DefaultMaxReadErrors
	}

	return &App{
		config: config,
		log:    logrus.WithFields(logrus.Fields{"component": "app", "run": config.RunID}),
	}, nil
}

// RunID returns the id of the run.
func (a *App) RunID() string {
	return a.config.RunID
}

// SetPaused pauses or resumes frame reading.
func (a *App) SetPaused(paused bool) {
	if a.paused.Swap(paused) != paused {
		a.log.WithField("paused", paused).Info("counting toggled")
	}
}

// IsPaused returns whether frame reading is paused.
func (a *App) IsPaused() bool {
	return a.paused.Load()
}

// Frames returns how many frames have been processed.
func (a *App) Frames() int {
	return int(a.frames.Load())
}

// Run opens the source if needed and processes frames until the source is
// exhausted, ctx is cancelled or the renderer stops. Every sink then gets
// the final report, which is also returned. An error is returned only when
// the run cannot start, or when a region does not fit the frames.
func (a *App) Run(ctx context.Context) (*Result, error) {
	src := a.config.Source
	if !src.IsOpen() {
		if err := src.Open(); err != nil {
			return nil, fmt.Errorf("failed to open source: %w", err)
		}
		defer src.Close()
	}
	if a.config.FPS > 0 {
		src.SetFPS(a.config.FPS)
	}

	if err := a.checkRegions(src.Size()); err != nil {
		return nil, err
	}

	for _, s := range a.config.Sinks {
		if err := s.Start(a.config.RunID, a.config.SourceName); err != nil {
			a.log.WithError(err).WithField("sink", fmt.Sprintf("%T", s)).Warn("sink failed to start")
		}
	}
	a.log.WithField("source", a.config.SourceName).Info("run started")

	loopErr := a.loop(ctx)

	reports := a.config.Pipeline.Report()
	for _, s := range a.config.Sinks {
		s.Report(a.config.RunID, reports)
	}
	a.log.WithField("frames", a.Frames()).Info("run finished")

	result := &Result{Run: a.config.RunID, Frames: a.Frames(), Reports: reports}
	return result, loopErr
}

// checkRegions verifies that every region lies inside frames of size. An
// unknown size is not checked here; Pipeline.Step checks every frame.
func (a *App) checkRegions(size image.Point) error {
	if size.X <= 0 || size.Y <= 0 {
		return nil
	}
	bounds := image.Rectangle{Max: size}
	for _, r := range a.config.Pipeline.Regions() {
		if !r.Rect().In(bounds) {
			return fmt.Errorf("region %d (%s) %v is outside the %dx%d frame", r.Index(), r.Name(), r.Rect(), size.X, size.Y)
		}
	}
	return nil
}
