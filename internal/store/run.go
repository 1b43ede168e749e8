package store

import (
	"database/sql"
	"errors"
	"time"
)

// RunStatus is the lifecycle state of a run.
type RunStatus string

const (
	// RunRunning marks a run whose final report has not been written yet.
	RunRunning RunStatus = "running"
	// RunFinished marks a run with a final report.
	RunFinished RunStatus = "finished"
)

// Run is one processing session over a video source.
type Run struct {
	ID         string
	Source     string
	Status     RunStatus
	Frames     int
	StartedAt  time.Time
	FinishedAt *time.Time
	Reports    []RegionReport
}

// RegionReport is the final tally of one region in a run.
type RegionReport struct {
	RegionIndex int
	Name        string
	Enter       int
	Exit        int
}

// RunRepository provides CRUD operations for runs and their reports.
type RunRepository struct {
	db *sql.DB
}

// Runs returns the run repository for this store.
func (s *Store) Runs() *RunRepository {
	return &RunRepository{db: s.db}
}

// Create inserts a new running run.
func (r *RunRepository) Create(run *Run) error {
	run.StartedAt = time.Now()
	run.Status = RunRunning

	_, err := r.db.Exec(
		`INSERT INTO runs (id, source, status, frames, started_at) VALUES (?, ?, ?, ?, ?)`,
		run.ID, run.Source, string(run.Status), run.Frames, run.StartedAt,
	)
	return err
}

// Finish stores the final reports of a run and marks it finished, in a
// single transaction. Reports already stored for a region are replaced.
func (r *RunRepository) Finish(id string, frames int, reports []RegionReport) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	result, err := tx.Exec(
		`UPDATE runs SET status = ?, frames = ?, finished_at = ? WHERE id = ?`,
		string(RunFinished), frames, time.Now(), id,
	)
	if err != nil {
		return err
	}
	if err := affected(result); err != nil {
		return err
	}

	stmt, err := tx.Prepare(
		`INSERT OR REPLACE INTO region_reports (run_id, region_index, name, enter_count, exit_count)
		 VALUES (?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, rep := range reports {
		if _, err := stmt.Exec(id, rep.RegionIndex, rep.Name, rep.Enter, rep.Exit); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetByID retrieves a run and its region reports.
func (r *RunRepository) GetByID(id string) (*Run, error) {
	run := &Run{}
	var status string
	var finished sql.NullTime

	err := r.db.QueryRow(
		`SELECT id, source, status, frames, started_at, finished_at FROM runs WHERE id = ?`,
		id,
	).Scan(&run.ID, &run.Source, &status, &run.Frames, &run.StartedAt, &finished)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	run.Status = RunStatus(status)
	if finished.Valid {
		run.FinishedAt = &finished.Time
	}

	run.Reports, err = r.reports(id)
	if err != nil {
		return nil, err
	}

	return run, nil
}

func (r *RunRepository) reports(runID string) ([]RegionReport, error) {
	rows, err := r.db.Query(
		`SELECT region_index, name, enter_count, exit_count
		 FROM region_reports WHERE run_id = ? ORDER BY region_index`,
		runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reports []RegionReport
	for rows.Next() {
		var rep RegionReport
		if err := rows.Scan(&rep.RegionIndex, &rep.Name, &rep.Enter, &rep.Exit); err != nil {
			return nil, err
		}
		reports = append(reports, rep)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return reports, nil
}

// List retrieves all runs, newest first, without their reports.
func (r *RunRepository) List() ([]*Run, error) {
	rows, err := r.db.Query(
		`SELECT id, source, status, frames, started_at, finished_at
		 FROM runs ORDER BY started_at DESC, rowid DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run := &Run{}
		var status string
		var finished sql.NullTime

		if err := rows.Scan(&run.ID, &run.Source, &status, &run.Frames, &run.StartedAt, &finished); err != nil {
			return nil, err
		}

		run.Status = RunStatus(status)
		if finished.Valid {
			run.FinishedAt = &finished.Time
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return runs, nil
}

// Delete removes a run with its reports and crossings.
func (r *RunRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return affected(result)
}
