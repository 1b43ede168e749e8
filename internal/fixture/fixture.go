// Package fixture builds synthetic frame sequences for integration tests.
package fixture

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

var white = color.RGBA{R: 255, G: 255, B: 255, A: 0}

// Blank returns n black frames of the given size.
func Blank(size image.Point, n int) []*gocv.Mat {
	frames := make([]*gocv.Mat, n)
	for i := range frames {
		frame := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), size.Y, size.X, gocv.MatTypeCV8UC3)
		frames[i] = &frame
	}
	return frames
}

// MovingSquare returns n black frames with a filled white square of the
// given side. The square's upper-left corner starts at from and moves by
// step every frame.
func MovingSquare(size, from, step image.Point, side, n int) []*gocv.Mat {
	frames := Blank(size, n)
	p := from
	for _, frame := range frames {
		gocv.Rectangle(frame, image.Rectangle{Min: p, Max: p.Add(image.Pt(side, side))}, white, -1)
		p = p.Add(step)
	}
	return frames
}

// Close releases every frame.
func Close(frames []*gocv.Mat) {
	for _, f := range frames {
		f.Close()
	}
}
