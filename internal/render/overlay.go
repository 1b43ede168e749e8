// Package render draws region snapshots on video frames, shows them in
// preview windows and keeps the latest annotated frame as JPEG.
package render

import (
	"fmt"
	"image"
	"image/color"
	"sync"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"github.com/ayusman/gatecount/internal/region"
)

const keyEscape = 27

var (
	lineColor   = color.RGBA{0, 255, 0, 0}
	scoreColor  = color.RGBA{155, 255, 200, 0}
	regionColor = color.RGBA{128, 128, 128, 0}
)

// Options configures an Overlay.
type Options struct {
	// Preview opens one window per region.
	Preview bool
	// Scale resizes preview windows. Defaults to 0.5.
	Scale float64
	// Quality is the JPEG quality of Latest. Defaults to 80.
	Quality int
	// Output, when set, records annotated frames to this video file.
	Output string
	// FPS of the Output video. Defaults to 15.
	FPS float64
}

// Overlay renders snapshots. Render must be called from a single
// goroutine; Latest and Done are safe for concurrent use.
type Overlay struct {
	opts Options

	mu     sync.RWMutex
	latest []byte
	seq    uint64

	windows map[int]*gocv.Window
	keys    *gocv.Window
	writer  *gocv.VideoWriter

	done     chan struct{}
	doneOnce sync.Once
	log      *logrus.Entry
}

// NewOverlay creates an Overlay.
func NewOverlay(opts Options) *Overlay {
	if opts.Scale <= 0 {
		opts.Scale = 0.5
	}
	if opts.Quality <= 0 || opts.Quality > 100 {
		opts.Quality = 80
	}
	if opts.FPS <= 0 {
		opts.FPS = 15
	}

	return &Overlay{
		opts:    opts,
		windows: make(map[int]*gocv.Window),
		done:    make(chan struct{}),
		log:     logrus.WithField("component", "render"),
	}
}

// Render draws snaps on a copy of img, stores it as the latest JPEG and
// feeds the preview windows and the output video.
func (o *Overlay) Render(frame int, img *gocv.Mat, snaps []region.Snapshot) error {
	canvas := img.Clone()
	defer canvas.Close()

	Draw(&canvas, snaps)

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, canvas, []int{int(gocv.IMWriteJpegQuality), o.opts.Quality})
	if err != nil {
		return fmt.Errorf("failed to encode frame %d: %w", frame, err)
	}
	data := append([]byte(nil), buf.GetBytes()...)
	buf.Close()

	o.mu.Lock()
	o.latest = data
	o.seq++
	o.mu.Unlock()

	if o.opts.Output != "" {
		if err := o.record(&canvas); err != nil {
			return err
		}
	}

	if o.opts.Preview {
		o.show(&canvas, snaps)
	}

	return nil
}

func (o *Overlay) record(canvas *gocv.Mat) error {
	if o.writer == nil {
		w, err := gocv.VideoWriterFile(o.opts.Output, "MJPG", o.opts.FPS, canvas.Cols(), canvas.Rows(), true)
		if err != nil {
			return fmt.Errorf("failed to open output video: %w", err)
		}
		o.writer = w
		o.log.WithField("output", o.opts.Output).Info("recording annotated video")
	}
	return o.writer.Write(*canvas)
}

func (o *Overlay) show(canvas *gocv.Mat, snaps []region.Snapshot) {
	bounds := image.Rect(0, 0, canvas.Cols(), canvas.Rows())

	for _, snap := range snaps {
		rect := snap.Rect.Intersect(bounds)
		if rect.Empty() {
			continue
		}

		win, ok := o.windows[snap.Region]
		if !ok {
			win = gocv.NewWindow(fmt.Sprintf("%d %s", snap.Region, snap.Name))
			o.windows[snap.Region] = win
			if o.keys == nil {
				o.keys = win
			}
		}

		roi := canvas.Region(rect)
		small := gocv.NewMat()
		gocv.Resize(roi, &small, image.Point{}, o.opts.Scale, o.opts.Scale, gocv.InterpolationArea)
		win.IMShow(small)
		small.Close()
		roi.Close()
	}

	if o.keys != nil && o.keys.WaitKey(5)&0xff == keyEscape {
		o.stop()
	}
}

func (o *Overlay) stop() {
	o.doneOnce.Do(func() {
		o.log.Info("preview closed")
		close(o.done)
	})
}

// Done is closed when the user presses ESC in a preview window.
func (o *Overlay) Done() <-chan struct{} {
	return o.done
}

// Latest returns the most recent annotated frame as JPEG and its sequence
// number, which grows by one per rendered frame. It returns nil before the
// first frame.
func (o *Overlay) Latest() ([]byte, uint64) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.latest, o.seq
}

// Close releases the windows and the output video.
func (o *Overlay) Close() error {
	for id, win := range o.windows {
		win.Close()
		delete(o.windows, id)
	}
	o.keys = nil
	if o.writer != nil {
		err := o.writer.Close()
		o.writer = nil
		return err
	}
	return nil
}

// Draw annotates img, a full frame, with every snapshot: the region
// outline, the fresh track boxes, the gate line and the enter/exit score.
// Track boxes get redder as their history grows.
func Draw(img *gocv.Mat, snaps []region.Snapshot) {
	for _, snap := range snaps {
		origin := snap.Rect.Min

		gocv.Rectangle(img, snap.Rect, regionColor, 1)

		for _, t := range snap.Tracks {
			gocv.Rectangle(img, t.Box.Rect().Add(origin), TrackColor(t.Length), 3)
		}

		p1, p2 := snap.Line.P1.Add(origin), snap.Line.P2.Add(origin)
		gocv.Line(img, p1, p2, lineColor, 5)
		gocv.PutText(img, snap.Counts.String(), p1.Add(image.Pt(-50, -30)),
			gocv.FontHersheySimplex, 1, scoreColor, 3)
	}
}

// TrackColor returns the box colour of a track with n history entries.
func TrackColor(n int) color.RGBA {
	return color.RGBA{R: uint8(min(n*50, 255))}
}
