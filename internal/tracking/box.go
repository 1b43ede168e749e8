// Package tracking provides box geometry, object tracks and the per-frame
// associator that keeps track identity across video frames.
package tracking

import (
	"fmt"
	"image"
)

// Box is an axis-aligned rectangle given by its upper-left corner and size,
// in pixels. Boxes are values; operations return new Boxes.
type Box struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// NewBox returns a Box with the upper-left corner at (x, y).
func NewBox(x, y, w, h int) Box {
	return Box{X: x, Y: y, W: w, H: h}
}

// BoxFromRect converts an image.Rectangle to a Box.
func BoxFromRect(r image.Rectangle) Box {
	r = r.Canon()
	return Box{X: r.Min.X, Y: r.Min.Y, W: r.Dx(), H: r.Dy()}
}

// Area returns w*h.
func (b Box) Area() int {
	return b.W * b.H
}

// UpperLeft returns the upper-left corner.
func (b Box) UpperLeft() image.Point {
	return image.Point{X: b.X, Y: b.Y}
}

// Rect returns the box as an image.Rectangle.
func (b Box) Rect() image.Rectangle {
	return image.Rect(b.X, b.Y, b.X+b.W, b.Y+b.H)
}

// Valid reports whether the box has positive width and height.
func (b Box) Valid() bool {
	return b.W > 0 && b.H > 0
}

// Translate returns the box shifted by p.
func (b Box) Translate(p image.Point) Box {
	return Box{X: b.X + p.X, Y: b.Y + p.Y, W: b.W, H: b.H}
}

func (b Box) String() string {
	return fmt.Sprintf("(%d,%d %dx%d)", b.X, b.Y, b.W, b.H)
}

// Intersect returns the overlap of a and b. The second result is false when
// the boxes do not touch. Boxes sharing only an edge intersect with zero area.
func Intersect(a, b Box) (Box, bool) {
	x := max(a.X, b.X)
	y := max(a.Y, b.Y)
	w := min(a.X+a.W, b.X+b.W) - x
	h := min(a.Y+a.H, b.Y+b.H) - y
	if w < 0 || h < 0 {
		return Box{}, false
	}
	return Box{X: x, Y: y, W: w, H: h}, true
}

// OverlapRatio returns the intersection-over-union of a and b. The second
// result is false when the boxes do not intersect. A zero union yields 0.
func OverlapRatio(a, b Box) (float64, bool) {
	inter, ok := Intersect(a, b)
	if !ok {
		return 0, false
	}

	union := a.Area() + b.Area() - inter.Area()
	if union <= 0 {
		return 0, true
	}

	return float64(inter.Area()) / float64(union), true
}

// MergeFunc combines two detections of the same object in one frame.
type MergeFunc func(a, b Box) Box

// Merge takes the minimum corner and the larger width and height
// independently. This is not the bounding rectangle of a and b: the far
// corner of the second box is ignored when it lies outside the result.
// Use Union for the bounding rectangle.
func Merge(a, b Box) Box {
	return Box{
		X: min(a.X, b.X),
		Y: min(a.Y, b.Y),
		W: max(a.W, b.W),
		H: max(a.H, b.H),
	}
}

// Union returns the smallest box that contains both a and b.
func Union(a, b Box) Box {
	x := min(a.X, b.X)
	y := min(a.Y, b.Y)
	return Box{
		X: x,
		Y: y,
		W: max(a.X+a.W, b.X+b.W) - x,
		H: max(a.Y+a.H, b.Y+b.H) - y,
	}
}
