package render

import (
	"image"
	"os"
	"path/filepath"
	"testing"

	"gocv.io/x/gocv"

	"github.com/ayusman/gatecount/internal/gate"
	"github.com/ayusman/gatecount/internal/region"
	"github.com/ayusman/gatecount/internal/tracking"
)

func testSnapshot() region.Snapshot {
	return region.Snapshot{
		Region: 0,
		Name:   "left",
		Frame:  3,
		Rect:   image.Rect(0, 100, 320, 420),
		Line:   gate.NewLine(image.Pt(100, 50), image.Pt(100, 300), gate.Left),
		Counts: gate.Counts{Enter: 2, Exit: 1},
		Tracks: []region.TrackView{{ID: 1, Box: tracking.NewBox(20, 20, 40, 40), Length: 3}},
	}
}

func TestTrackColor(t *testing.T) {
	tests := []struct {
		n    int
		want uint8
	}{
		{1, 50},
		{3, 150},
		{5, 250},
		{6, 255},
		{40, 255},
	}

	for _, tt := range tests {
		c := TrackColor(tt.n)
		if c.R != tt.want || c.G != 0 || c.B != 0 {
			t.Errorf("TrackColor(%d) = %v, want red %d", tt.n, c, tt.want)
		}
	}
}

func TestDraw(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping gocv drawing in short mode")
	}

	img := blankFrame()
	defer img.Close()

	Draw(&img, []region.Snapshot{testSnapshot()})

	// The line runs at x=100, y=150..400 in frame coordinates; BGR order.
	px := img.GetVecbAt(200, 100)
	if px[0] != 0 || px[1] != 255 || px[2] != 0 {
		t.Errorf("line pixel = %v, want green", px)
	}

	// The track box edge sits at (20,120) in frame coordinates.
	px = img.GetVecbAt(140, 20)
	if px[2] != 150 {
		t.Errorf("track box pixel = %v, want red 150", px)
	}
}

func TestOverlay_RenderLatest(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping gocv encoding in short mode")
	}

	o := NewOverlay(Options{})
	defer o.Close()

	if data, seq := o.Latest(); data != nil || seq != 0 {
		t.Fatalf("Latest() before Render = %d bytes, seq %d", len(data), seq)
	}

	img := blankFrame()
	defer img.Close()

	for frame := 1; frame <= 2; frame++ {
		if err := o.Render(frame, &img, []region.Snapshot{testSnapshot()}); err != nil {
			t.Fatalf("Render() error = %v", err)
		}
	}

	data, seq := o.Latest()
	if seq != 2 {
		t.Errorf("seq = %d, want 2", seq)
	}

	decoded, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil {
		t.Fatalf("IMDecode() error = %v", err)
	}
	defer decoded.Close()
	if decoded.Cols() != 640 || decoded.Rows() != 480 {
		t.Errorf("decoded size = %dx%d, want 640x480", decoded.Cols(), decoded.Rows())
	}

	// The source frame is left untouched.
	if px := img.GetVecbAt(200, 100); px[1] != 0 {
		t.Errorf("source frame was drawn on: %v", px)
	}
}

func TestOverlay_RecordsOutput(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping video writing in short mode")
	}

	out := filepath.Join(t.TempDir(), "annotated.avi")
	o := NewOverlay(Options{Output: out, FPS: 10})

	img := blankFrame()
	defer img.Close()

	for frame := 1; frame <= 3; frame++ {
		if err := o.Render(frame, &img, []region.Snapshot{testSnapshot()}); err != nil {
			t.Skipf("video writer unavailable: %v", err)
		}
	}
	if err := o.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if info, err := os.Stat(out); err != nil || info.Size() == 0 {
		t.Skipf("no output written (codec unavailable?): %v", err)
	}
}

func TestOverlay_DoneOpen(t *testing.T) {
	o := NewOverlay(Options{})
	select {
	case <-o.Done():
		t.Fatal("Done() closed without a preview")
	default:
	}
	if err := o.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func blankFrame() gocv.Mat {
	return gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), 480, 640, gocv.MatTypeCV8UC3)
}
