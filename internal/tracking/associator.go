package tracking

// Association defaults.
const (
	// DefaultOverlapThreshold is the minimum IoU, exclusive, for a candidate
	// to join an existing track.
	DefaultOverlapThreshold = 0.2
	// DefaultStaleness is the number of frames a track may go unmatched.
	DefaultStaleness = 1
)

// Config holds the tunables of an Associator.
type Config struct {
	// OverlapThreshold is the IoU a candidate must exceed to match a track.
	OverlapThreshold float64
	// Staleness is the largest allowed gap between the current frame and a
	// track's last update before the track is pruned.
	Staleness int
	// Merge combines two same-frame detections of one track. Defaults to Merge.
	Merge MergeFunc
}

// DefaultConfig returns a Config with the default thresholds.
func DefaultConfig() Config {
	return Config{
		OverlapThreshold: DefaultOverlapThreshold,
		Staleness:        DefaultStaleness,
		Merge:            Merge,
	}
}

// Stats summarises one call to Observe.
type Stats struct {
	Candidates int
	Dropped    int
	Matched    int
	Merged     int
	Spawned    int
	Pruned     int
}

// Associator matches per-frame detections to tracks for one region.
// It is not safe for concurrent use.
type Associator struct {
	config Config
	tracks []*Track
	nextID uint64
}

// NewAssociator creates an Associator. Zero fields in config fall back to
// the defaults.
func NewAssociator(config Config) *Associator {
	if config.OverlapThreshold <= 0 {
		config.OverlapThreshold = DefaultOverlapThreshold
	}
	if config.Staleness <= 0 {
		config.Staleness = DefaultStaleness
	}
	if config.Merge == nil {
		config.Merge = Merge
	}

	return &Associator{
		config: config,
		nextID: 1,
	}
}

// Config returns the effective configuration.
func (a *Associator) Config() Config {
	return a.config
}

// Tracks returns the current tracks in creation order.
func (a *Associator) Tracks() []*Track {
	out := make([]*Track, len(a.tracks))
	copy(out, a.tracks)
	return out
}

// Fresh returns the tracks updated in frame.
func (a *Associator) Fresh(frame int) []*Track {
	var out []*Track
	for _, t := range a.tracks {
		if t.LastUpdate == frame {
			out = append(out, t)
		}
	}
	return out
}

// Observe associates the candidates of one frame with the track set and
// then prunes stale tracks.
//
// Candidates are handled one at a time in list order. Each is compared with
// every track's predicted box (or last box for single-entry tracks) and
// joins the track with the largest IoU above the threshold, the first one on
// ties. A track already updated in this frame absorbs the candidate by
// merging it into its last entry, so a track never gains two entries in one
// frame. Unmatched candidates start new tracks.
func (a *Associator) Observe(frame int, candidates []Box) Stats {
	stats := Stats{Candidates: len(candidates)}

	for _, c := range candidates {
		if !c.Valid() {
			stats.Dropped++
			continue
		}

		best := a.match(c)
		switch {
		case best == nil:
			a.tracks = append(a.tracks, NewTrack(a.nextID, c, frame))
			a.nextID++
			stats.Spawned++
		case best.LastUpdate == frame:
			best.replaceLast(a.config.Merge(best.Last(), c))
			stats.Merged++
		default:
			best.append(c, frame)
			stats.Matched++
		}
	}

	stats.Pruned = a.prune(frame)
	return stats
}

// match returns the track with the strictly largest overlap above the
// threshold, or nil.
func (a *Associator) match(c Box) *Track {
	var best *Track
	bestRatio := 0.0

	for _, t := range a.tracks {
		shape := t.Last()
		if t.Len() > 1 {
			shape = t.PredictedBox()
		}

		ratio, ok := OverlapRatio(shape, c)
		if !ok || ratio <= a.config.OverlapThreshold {
			continue
		}
		if best == nil || ratio > bestRatio {
			best = t
			bestRatio = ratio
		}
	}

	return best
}

// prune drops tracks whose last update is more than Staleness frames away
// and returns how many were removed.
func (a *Associator) prune(frame int) int {
	kept := a.tracks[:0]
	for _, t := range a.tracks {
		gap := frame - t.LastUpdate
		if gap < 0 {
			gap = -gap
		}
		if gap <= a.config.Staleness {
			kept = append(kept, t)
		}
	}

	removed := len(a.tracks) - len(kept)
	for i := len(kept); i < len(a.tracks); i++ {
		a.tracks[i] = nil
	}
	a.tracks = kept

	return removed
}
