// Package gate implements monitored gate lines and the directional crossing
// test applied to tracks.
package gate

import (
	"fmt"
	"image"
	"strings"
)

// Orientation says which side of the monitored zone a line guards. It
// decides both the line's axis and which movement counts as entering.
type Orientation int

const (
	Top Orientation = iota
	Bottom
	Left
	Right
)

// Orientations lists every orientation.
var Orientations = []Orientation{Top, Bottom, Left, Right}

// ParseOrientation parses "top", "bottom", "left" or "right".
func ParseOrientation(s string) (Orientation, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "top":
		return Top, nil
	case "bottom":
		return Bottom, nil
	case "left":
		return Left, nil
	case "right":
		return Right, nil
	}
	return 0, fmt.Errorf("unknown orientation %q", s)
}

func (o Orientation) String() string {
	switch o {
	case Top:
		return "top"
	case Bottom:
		return "bottom"
	case Left:
		return "left"
	case Right:
		return "right"
	}
	return fmt.Sprintf("Orientation(%d)", int(o))
}

// MarshalText implements encoding.TextMarshaler.
func (o Orientation) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (o *Orientation) UnmarshalText(text []byte) error {
	v, err := ParseOrientation(string(text))
	if err != nil {
		return err
	}
	*o = v
	return nil
}

// vertical reports whether lines of this orientation run along the y axis.
func (o Orientation) vertical() bool {
	switch o {
	case Left, Right:
		return true
	case Top, Bottom:
		return false
	}
	panic(fmt.Sprintf("gate: unhandled %v", o))
}

// classify maps a movement of the track's upper-left corner to a direction.
func (o Orientation) classify(movement image.Point) Direction {
	var entering bool
	switch o {
	case Left:
		entering = movement.X > 0
	case Right:
		entering = movement.X < 0
	case Top:
		entering = movement.Y > 0
	case Bottom:
		entering = movement.Y < 0
	default:
		panic(fmt.Sprintf("gate: unhandled %v", o))
	}

	if entering {
		return Enter
	}
	return Exit
}

// Direction is the classification of a crossing.
type Direction int

const (
	Enter Direction = iota
	Exit
)

func (d Direction) String() string {
	if d == Enter {
		return "enter"
	}
	return "exit"
}

// MarshalText implements encoding.TextMarshaler.
func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}
