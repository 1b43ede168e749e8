package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Runs table - one row per processed video or camera session
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			source TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'running' CHECK(status IN ('running', 'finished')),
			frames INTEGER NOT NULL DEFAULT 0,
			started_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			finished_at DATETIME
		)`,

		// Region reports table - final enter/exit tally of each region
		`CREATE TABLE IF NOT EXISTS region_reports (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			region_index INTEGER NOT NULL,
			name TEXT NOT NULL,
			enter_count INTEGER NOT NULL DEFAULT 0,
			exit_count INTEGER NOT NULL DEFAULT 0,
			UNIQUE(run_id, region_index)
		)`,

		// Crossings table - every credited gate crossing
		`CREATE TABLE IF NOT EXISTS crossings (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			region_index INTEGER NOT NULL,
			frame INTEGER NOT NULL,
			track_id INTEGER NOT NULL,
			direction TEXT NOT NULL CHECK(direction IN ('enter', 'exit')),
			x INTEGER NOT NULL,
			y INTEGER NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Hooks table - plugin actions to execute on matching crossings
		`CREATE TABLE IF NOT EXISTS hooks (
			id TEXT PRIMARY KEY,
			region_index INTEGER NOT NULL DEFAULT -1,
			direction TEXT NOT NULL DEFAULT 'any' CHECK(direction IN ('enter', 'exit', 'any')),
			plugin_name TEXT NOT NULL,
			action_name TEXT NOT NULL,
			config TEXT NOT NULL DEFAULT '{}',
			enabled INTEGER NOT NULL DEFAULT 1,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Indexes for better query performance
		`CREATE INDEX IF NOT EXISTS idx_region_reports_run_id ON region_reports(run_id)`,
		`CREATE INDEX IF NOT EXISTS idx_crossings_run_id ON crossings(run_id)`,
		`CREATE INDEX IF NOT EXISTS idx_hooks_region_index ON hooks(region_index)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
