package app

import (
	"context"
	"errors"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/gatecount/internal/capture"
)

// pausePoll is how often a paused loop checks for resume.
const pausePoll = 100 * time.Millisecond

// loop is the frame loop. Frame numbers start at 1 and grow by one per
// processed frame, so they match the frame stamps of the tracks.
//
// Loop logic:
// 1. Wait for the next tick when throttled, or while paused
// 2. Read a frame; end of stream ends the run
// 3. Step every region in parallel and wait for all of them
// 4. Render the overlay and hand the snapshots to every sink
func (a *App) loop(ctx context.Context) error {
	var tick <-chan time.Time
	if a.config.FPS > 0 {
		ticker := time.NewTicker(time.Second / time.Duration(a.config.FPS))
		defer ticker.Stop()
		tick = ticker.C
	}

	var done <-chan struct{}
	if a.config.Renderer != nil {
		done = a.config.Renderer.Done()
	}

	readErrors := 0
	for {
		select {
		case <-ctx.Done():
			a.log.Info("run cancelled")
			return nil
		case <-done:
			a.log.Info("run stopped from preview")
			return nil
		default:
		}

		if a.IsPaused() {
			select {
			case <-ctx.Done():
			case <-time.After(pausePoll):
			}
			continue
		}

		if tick != nil {
			select {
			case <-ctx.Done():
				continue
			case <-tick:
			}
		}

		img, err := a.config.Source.ReadFrame()
		if errors.Is(err, capture.ErrExhausted) {
			a.log.WithField("frames", a.Frames()).Info("end of video")
			return nil
		}
		if err != nil {
			readErrors++
			a.log.WithError(err).Warn("failed to read frame")
			if readErrors >= a.config.MaxReadErrors {
				a.log.WithField("errors", readErrors).Error("too many failed reads, ending run")
				return nil
			}
			continue
		}
		readErrors = 0

		err = a.process(ctx, img)
		img.Close()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
}

// process runs one frame through the pipeline, the renderer and the sinks.
func (a *App) process(ctx context.Context, img *gocv.Mat) error {
	frame := a.Frames() + 1

	snaps, err := a.config.Pipeline.Step(ctx, frame, img)
	if err != nil {
		return err
	}
	a.frames.Store(int64(frame))

	if a.config.Renderer != nil {
		if err := a.config.Renderer.Render(frame, img, snaps); err != nil {
			a.log.WithError(err).WithField("frame", frame).Warn("failed to render frame")
		}
	}

	for _, s := range a.config.Sinks {
		s.Frame(frame, snaps)
	}

	return nil
}
