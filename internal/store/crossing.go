package store

import (
	"database/sql"
	"time"
)

// Crossing is a credited gate crossing stored for a run.
type Crossing struct {
	ID          int64     `json:"id"`
	RunID       string    `json:"run_id"`
	RegionIndex int       `json:"region_index"`
	Frame       int       `json:"frame"`
	TrackID     uint64    `json:"track_id"`
	Direction   string    `json:"direction"`
	X           int       `json:"x"`
	Y           int       `json:"y"`
	CreatedAt   time.Time `json:"created_at"`
}

// CrossingRepository provides operations for crossings.
type CrossingRepository struct {
	db *sql.DB
}

// Crossings returns the crossing repository for this store.
func (s *Store) Crossings() *CrossingRepository {
	return &CrossingRepository{db: s.db}
}

// Create inserts the crossings of a run in a single transaction.
func (r *CrossingRepository) Create(runID string, crossings []Crossing) error {
	if len(crossings) == 0 {
		return nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		`INSERT INTO crossings (run_id, region_index, frame, track_id, direction, x, y, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now()
	for _, c := range crossings {
		if _, err := stmt.Exec(runID, c.RegionIndex, c.Frame, int64(c.TrackID), c.Direction, c.X, c.Y, now); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetByRunID retrieves the crossings of a run in frame order.
func (r *CrossingRepository) GetByRunID(runID string) ([]Crossing, error) {
	rows, err := r.db.Query(
		`SELECT id, run_id, region_index, frame, track_id, direction, x, y, created_at
		 FROM crossings
		 WHERE run_id = ?
		 ORDER BY frame, id`,
		runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var crossings []Crossing
	for rows.Next() {
		var c Crossing
		var trackID int64
		if err := rows.Scan(&c.ID, &c.RunID, &c.RegionIndex, &c.Frame, &trackID, &c.Direction, &c.X, &c.Y, &c.CreatedAt); err != nil {
			return nil, err
		}
		c.TrackID = uint64(trackID)
		crossings = append(crossings, c)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return crossings, nil
}
