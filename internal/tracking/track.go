package tracking

import "gonum.org/v1/gonum/stat"

// LineID identifies a gate line that can credit a track.
type LineID string

// Track is the box history of one object candidate across frames.
// The history is never empty and holds at most one box per frame.
type Track struct {
	ID         uint64
	LastUpdate int

	history []Box
	crossed *LineID
}

// NewTrack starts a track from its first detection.
func NewTrack(id uint64, first Box, frame int) *Track {
	return &Track{
		ID:         id,
		LastUpdate: frame,
		history:    []Box{first},
	}
}

// Len returns the number of boxes in the history.
func (t *Track) Len() int {
	return len(t.history)
}

// Last returns the most recent box.
func (t *Track) Last() Box {
	return t.history[len(t.history)-1]
}

// Previous returns the box before the most recent one, or the most recent
// box when the history holds a single entry.
func (t *Track) Previous() Box {
	if len(t.history) < 2 {
		return t.Last()
	}
	return t.history[len(t.history)-2]
}

// History returns a copy of the box history, oldest first.
func (t *Track) History() []Box {
	out := make([]Box, len(t.history))
	copy(out, t.history)
	return out
}

// PredictedBox extrapolates the next box assuming constant velocity of the
// upper-left corner. Width and height are kept from the last box.
func (t *Track) PredictedBox() Box {
	last := t.Last()
	if len(t.history) < 2 {
		return last
	}

	delta := last.UpperLeft().Sub(t.Previous().UpperLeft())
	return last.Translate(delta)
}

// AverageArea returns the mean box area over the history.
func (t *Track) AverageArea() float64 {
	areas := make([]float64, len(t.history))
	for i, b := range t.history {
		areas[i] = float64(b.Area())
	}
	return stat.Mean(areas, nil)
}

// append adds b as the entry for frame.
func (t *Track) append(b Box, frame int) {
	t.history = append(t.history, b)
	t.LastUpdate = frame
}

// replaceLast swaps the most recent entry for b.
func (t *Track) replaceLast(b Box) {
	t.history[len(t.history)-1] = b
}

// Mark records that line id has credited this track.
func (t *Track) Mark(id LineID) {
	t.crossed = &id
}

// Crossed returns the line that credited this track, if any.
func (t *Track) Crossed() (LineID, bool) {
	if t.crossed == nil {
		return "", false
	}
	return *t.crossed, true
}

// CrossedBy reports whether line id has already credited this track.
func (t *Track) CrossedBy(id LineID) bool {
	return t.crossed != nil && *t.crossed == id
}
