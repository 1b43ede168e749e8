package region

import (
	"context"
	"fmt"
	"image"

	"gocv.io/x/gocv"
	"golang.org/x/sync/errgroup"

	"github.com/ayusman/gatecount/internal/tracking"
)

// Pipeline advances every region by one frame at a time. Regions run in
// parallel within a frame; Step returns only after all of them finished.
type Pipeline struct {
	regions []*Region
}

// NewPipeline creates a Pipeline over regions, in report order.
func NewPipeline(regions ...*Region) *Pipeline {
	return &Pipeline{regions: regions}
}

// Regions returns the regions in order.
func (p *Pipeline) Regions() []*Region {
	return p.regions
}

// Step crops each region out of img and runs its detector, association and
// gate test for frame. A cancelled ctx is only honoured before the frame
// starts, so counters never reflect a partially processed frame.
func (p *Pipeline) Step(ctx context.Context, frame int, img *gocv.Mat) ([]Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	bounds := imageRect(img)
	for _, r := range p.regions {
		if !r.rect.In(bounds) {
			return nil, fmt.Errorf("region %d %v outside frame %v", r.index, r.rect, bounds)
		}
	}

	snaps := make([]Snapshot, len(p.regions))
	var g errgroup.Group
	for i, r := range p.regions {
		g.Go(func() error {
			roi := img.Region(r.rect)
			defer roi.Close()
			snaps[i] = r.Step(frame, &roi)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return snaps, nil
}

// Observe runs frame with precomputed detections, boxes[i] belonging to
// region i. Missing entries count as frames without detections.
func (p *Pipeline) Observe(ctx context.Context, frame int, boxes [][]tracking.Box) ([]Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(boxes) > len(p.regions) {
		return nil, fmt.Errorf("got detections for %d regions, have %d", len(boxes), len(p.regions))
	}

	snaps := make([]Snapshot, len(p.regions))
	var g errgroup.Group
	for i, r := range p.regions {
		var in []tracking.Box
		if i < len(boxes) {
			in = boxes[i]
		}
		g.Go(func() error {
			snaps[i] = r.Observe(frame, in)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return snaps, nil
}

// Report returns one Report per region, in order.
func (p *Pipeline) Report() []Report {
	reports := make([]Report, len(p.regions))
	for i, r := range p.regions {
		reports[i] = r.Report()
	}
	return reports
}

func imageRect(img *gocv.Mat) image.Rectangle {
	return image.Rect(0, 0, img.Cols(), img.Rows())
}

// Close releases every region's detector and returns the first error.
func (p *Pipeline) Close() error {
	var first error
	for _, r := range p.regions {
		if err := r.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
