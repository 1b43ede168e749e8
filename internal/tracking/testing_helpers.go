package tracking

// TrackWithHistory builds a track holding history, last updated in frame.
// It lets tests in other packages set up fixtures without going through an
// Associator. history must not be empty.
//
// NOTE: intended for tests only. Production tracks are only extended by
// Associator.Observe, which keeps the one-entry-per-frame invariant.
func TrackWithHistory(id uint64, frame int, history ...Box) *Track {
	if len(history) == 0 {
		panic("tracking: empty history")
	}
	t := NewTrack(id, history[0], frame)
	t.history = append(t.history, history[1:]...)
	return t
}
