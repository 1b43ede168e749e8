package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"
)

const (
	// AnyRegion binds a hook to every region.
	AnyRegion = -1
	// AnyDirection binds a hook to both directions.
	AnyDirection = "any"
)

// Hook binds crossings of a region and direction to a plugin action.
type Hook struct {
	ID          string
	RegionIndex int
	Direction   string
	PluginName  string
	ActionName  string
	Config      json.RawMessage
	Enabled     bool
	CreatedAt   time.Time
}

// Matches reports whether the hook applies to a crossing.
func (h *Hook) Matches(regionIndex int, direction string) bool {
	if !h.Enabled {
		return false
	}
	if h.RegionIndex != AnyRegion && h.RegionIndex != regionIndex {
		return false
	}
	return h.Direction == AnyDirection || h.Direction == direction
}

// HookRepository provides CRUD operations for hooks.
type HookRepository struct {
	db *sql.DB
}

// Hooks returns the hook repository for this store.
func (s *Store) Hooks() *HookRepository {
	return &HookRepository{db: s.db}
}

const hookColumns = `id, region_index, direction, plugin_name, action_name, config, enabled, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanHook(row scanner) (*Hook, error) {
	h := &Hook{}
	var config string
	var enabled int

	if err := row.Scan(&h.ID, &h.RegionIndex, &h.Direction, &h.PluginName, &h.ActionName, &config, &enabled, &h.CreatedAt); err != nil {
		return nil, err
	}

	h.Config = json.RawMessage(config)
	h.Enabled = enabled != 0
	return h, nil
}

// Create inserts a new hook into the database.
func (r *HookRepository) Create(h *Hook) error {
	h.CreatedAt = time.Now()
	if h.Direction == "" {
		h.Direction = AnyDirection
	}

	config := h.Config
	if config == nil {
		config = json.RawMessage("{}")
	}

	_, err := r.db.Exec(
		`INSERT INTO hooks (`+hookColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		h.ID, h.RegionIndex, h.Direction, h.PluginName, h.ActionName, string(config), h.Enabled, h.CreatedAt,
	)
	return err
}

// GetByID retrieves a hook by its ID.
func (r *HookRepository) GetByID(id string) (*Hook, error) {
	h, err := scanHook(r.db.QueryRow(`SELECT `+hookColumns+` FROM hooks WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return h, nil
}

// List retrieves all hooks, newest first.
func (r *HookRepository) List() ([]*Hook, error) {
	return r.query(`SELECT ` + hookColumns + ` FROM hooks ORDER BY created_at DESC, rowid DESC`)
}

// Matching retrieves the enabled hooks that apply to a crossing of
// regionIndex in direction, oldest first.
func (r *HookRepository) Matching(regionIndex int, direction string) ([]*Hook, error) {
	return r.query(
		`SELECT `+hookColumns+` FROM hooks
		 WHERE enabled = 1
		   AND (region_index = ? OR region_index = ?)
		   AND (direction = ? OR direction = ?)
		 ORDER BY created_at, rowid`,
		regionIndex, AnyRegion, direction, AnyDirection,
	)
}

func (r *HookRepository) query(q string, args ...any) ([]*Hook, error) {
	rows, err := r.db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hooks []*Hook
	for rows.Next() {
		h, err := scanHook(rows)
		if err != nil {
			return nil, err
		}
		hooks = append(hooks, h)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return hooks, nil
}

// Update updates an existing hook in the database.
func (r *HookRepository) Update(h *Hook) error {
	config := h.Config
	if config == nil {
		config = json.RawMessage("{}")
	}

	enabled := 0
	if h.Enabled {
		enabled = 1
	}

	result, err := r.db.Exec(
		`UPDATE hooks SET region_index = ?, direction = ?, plugin_name = ?, action_name = ?, config = ?, enabled = ?
		 WHERE id = ?`,
		h.RegionIndex, h.Direction, h.PluginName, h.ActionName, string(config), enabled, h.ID,
	)
	if err != nil {
		return err
	}
	return affected(result)
}

// Delete removes a hook from the database by its ID.
func (r *HookRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM hooks WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return affected(result)
}
