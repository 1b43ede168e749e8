package gate

import (
	"errors"
	"fmt"
	"image"

	"github.com/ayusman/gatecount/internal/tracking"
)

// DefaultTolerance is the half width, in pixels, of the band around a line
// in which a track's corner counts as on the line.
const DefaultTolerance = 5

// ErrZeroLength is returned by Validate for a line whose endpoints coincide.
var ErrZeroLength = errors.New("line has zero length")

// Line is a monitored gate segment. Left and right lines are vertical at
// P1.X, top and bottom lines are horizontal at P1.Y.
type Line struct {
	ID          tracking.LineID `json:"id"`
	P1          image.Point     `json:"p1"`
	P2          image.Point     `json:"p2"`
	Orientation Orientation     `json:"orientation"`
	Tolerance   int             `json:"tolerance"`
}

// NewLine creates a Line with the default tolerance. The id defaults to the
// orientation name.
func NewLine(p1, p2 image.Point, o Orientation) Line {
	return Line{
		ID:          tracking.LineID(o.String()),
		P1:          p1,
		P2:          p2,
		Orientation: o,
		Tolerance:   DefaultTolerance,
	}
}

// Validate checks the line geometry.
func (l Line) Validate() error {
	if l.P1 == l.P2 {
		return ErrZeroLength
	}
	if l.Tolerance < 0 {
		return fmt.Errorf("negative tolerance %d", l.Tolerance)
	}
	return nil
}

// Test reports whether the latest movement of t crosses the line and in
// which direction. It does not modify t; callers credit the crossing and
// mark the track. Tracks already credited by this line never cross again.
func (l Line) Test(t *tracking.Track) (Direction, bool) {
	if t.Len() < 2 || t.CrossedBy(l.ID) {
		return 0, false
	}

	current := t.Last().UpperLeft()
	if !l.onLine(current) {
		return 0, false
	}

	movement := current.Sub(t.Previous().UpperLeft())
	return l.Orientation.classify(movement), true
}

// onLine reports whether p lies within the tolerance band of the line and
// strictly between its endpoints along the line.
func (l Line) onLine(p image.Point) bool {
	if l.Orientation.vertical() {
		lo, hi := min(l.P1.Y, l.P2.Y), max(l.P1.Y, l.P2.Y)
		return abs(p.X-l.P1.X) <= l.Tolerance && p.Y > lo && p.Y < hi
	}

	lo, hi := min(l.P1.X, l.P2.X), max(l.P1.X, l.P2.X)
	return abs(p.Y-l.P1.Y) <= l.Tolerance && p.X > lo && p.X < hi
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// Counts holds the enter and exit totals of a line. Both only grow.
type Counts struct {
	Enter int `json:"enter"`
	Exit  int `json:"exit"`
}

// Add credits one crossing in direction d.
func (c *Counts) Add(d Direction) {
	switch d {
	case Enter:
		c.Enter++
	case Exit:
		c.Exit++
	}
}

// Total returns Enter+Exit.
func (c Counts) Total() int {
	return c.Enter + c.Exit
}

func (c Counts) String() string {
	return fmt.Sprintf("%d/%d", c.Enter, c.Exit)
}
