package store

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestHookRepository_CRUD(t *testing.T) {
	s := newTestStore(t)
	repo := s.Hooks()

	hook := &Hook{
		ID:          "hook-1",
		RegionIndex: 0,
		Direction:   "enter",
		PluginName:  "crossing-log",
		ActionName:  "append",
		Config:      json.RawMessage(`{"path":"/tmp/x.jsonl"}`),
		Enabled:     true,
	}
	if err := repo.Create(hook); err != nil {
		t.Fatalf("failed to create hook: %v", err)
	}
	if hook.CreatedAt.IsZero() {
		t.Error("CreatedAt should be set after create")
	}

	got, err := repo.GetByID("hook-1")
	if err != nil {
		t.Fatalf("failed to get hook: %v", err)
	}
	if got.PluginName != "crossing-log" || got.ActionName != "append" || !got.Enabled {
		t.Errorf("hook = %+v, want stored fields", got)
	}
	if string(got.Config) != `{"path":"/tmp/x.jsonl"}` {
		t.Errorf("Config = %s", got.Config)
	}

	got.Enabled = false
	got.Direction = AnyDirection
	if err := repo.Update(got); err != nil {
		t.Fatalf("failed to update hook: %v", err)
	}

	updated, _ := repo.GetByID("hook-1")
	if updated.Enabled || updated.Direction != AnyDirection {
		t.Errorf("updated hook = %+v", updated)
	}

	if err := repo.Delete("hook-1"); err != nil {
		t.Fatalf("failed to delete hook: %v", err)
	}
	if _, err := repo.GetByID("hook-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByID() after delete error = %v, want ErrNotFound", err)
	}
}

func TestHookRepository_Defaults(t *testing.T) {
	s := newTestStore(t)
	repo := s.Hooks()

	hook := &Hook{ID: "hook-1", RegionIndex: AnyRegion, PluginName: "p", ActionName: "a", Enabled: true}
	if err := repo.Create(hook); err != nil {
		t.Fatalf("failed to create hook: %v", err)
	}

	got, _ := repo.GetByID("hook-1")
	if got.Direction != AnyDirection {
		t.Errorf("Direction = %q, want %q", got.Direction, AnyDirection)
	}
	if string(got.Config) != "{}" {
		t.Errorf("Config = %s, want {}", got.Config)
	}
}

func TestHookRepository_NotFound(t *testing.T) {
	s := newTestStore(t)
	repo := s.Hooks()

	if err := repo.Update(&Hook{ID: "missing", Direction: "enter"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("Update() error = %v, want ErrNotFound", err)
	}
	if err := repo.Delete("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Delete() error = %v, want ErrNotFound", err)
	}
}

func TestHookRepository_Matching(t *testing.T) {
	s := newTestStore(t)
	repo := s.Hooks()

	hooks := []*Hook{
		{ID: "left-enter", RegionIndex: 0, Direction: "enter", Enabled: true},
		{ID: "left-any", RegionIndex: 0, Direction: AnyDirection, Enabled: true},
		{ID: "any-exit", RegionIndex: AnyRegion, Direction: "exit", Enabled: true},
		{ID: "right-enter", RegionIndex: 1, Direction: "enter", Enabled: true},
		{ID: "disabled", RegionIndex: AnyRegion, Direction: AnyDirection, Enabled: false},
	}
	for _, h := range hooks {
		h.PluginName, h.ActionName = "p", "a"
		if err := repo.Create(h); err != nil {
			t.Fatalf("failed to create hook %s: %v", h.ID, err)
		}
	}

	tests := []struct {
		region    int
		direction string
		want      []string
	}{
		{0, "enter", []string{"left-enter", "left-any"}},
		{0, "exit", []string{"left-any", "any-exit"}},
		{1, "enter", []string{"right-enter"}},
		{3, "exit", []string{"any-exit"}},
		{3, "enter", nil},
	}

	for _, tt := range tests {
		got, err := repo.Matching(tt.region, tt.direction)
		if err != nil {
			t.Fatalf("Matching(%d, %s) error = %v", tt.region, tt.direction, err)
		}

		var ids []string
		for _, h := range got {
			ids = append(ids, h.ID)
			if !h.Matches(tt.region, tt.direction) {
				t.Errorf("hook %s returned by Matching but Matches() is false", h.ID)
			}
		}
		if len(ids) != len(tt.want) {
			t.Errorf("Matching(%d, %s) = %v, want %v", tt.region, tt.direction, ids, tt.want)
			continue
		}
		for i := range ids {
			if ids[i] != tt.want[i] {
				t.Errorf("Matching(%d, %s) = %v, want %v", tt.region, tt.direction, ids, tt.want)
				break
			}
		}
	}
}

func TestHook_Matches(t *testing.T) {
	tests := []struct {
		name      string
		hook      Hook
		region    int
		direction string
		want      bool
	}{
		{"exact", Hook{RegionIndex: 2, Direction: "exit", Enabled: true}, 2, "exit", true},
		{"other region", Hook{RegionIndex: 2, Direction: "exit", Enabled: true}, 1, "exit", false},
		{"other direction", Hook{RegionIndex: 2, Direction: "exit", Enabled: true}, 2, "enter", false},
		{"any region", Hook{RegionIndex: AnyRegion, Direction: "exit", Enabled: true}, 7, "exit", true},
		{"any direction", Hook{RegionIndex: 2, Direction: AnyDirection, Enabled: true}, 2, "enter", true},
		{"disabled", Hook{RegionIndex: AnyRegion, Direction: AnyDirection}, 0, "enter", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.hook.Matches(tt.region, tt.direction); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}
