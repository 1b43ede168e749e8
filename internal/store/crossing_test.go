package store

import "testing"

func TestCrossingRepository_CreateAndGet(t *testing.T) {
	s := newTestStore(t)
	if err := s.Runs().Create(&Run{ID: "run-1", Source: "gate.mp4"}); err != nil {
		t.Fatalf("failed to create run: %v", err)
	}

	crossings := []Crossing{
		{RegionIndex: 2, Frame: 9, TrackID: 4, Direction: "exit", X: 300, Y: 348},
		{RegionIndex: 0, Frame: 3, TrackID: 1, Direction: "enter", X: 105, Y: 200},
	}
	if err := s.Crossings().Create("run-1", crossings); err != nil {
		t.Fatalf("failed to create crossings: %v", err)
	}

	got, err := s.Crossings().GetByRunID("run-1")
	if err != nil {
		t.Fatalf("failed to get crossings: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len(crossings) = %d, want 2", len(got))
	}

	first := got[0]
	if first.Frame != 3 || first.TrackID != 1 || first.Direction != "enter" || first.X != 105 || first.Y != 200 {
		t.Errorf("first crossing = %+v, want frame 3 track 1 enter at (105,200)", first)
	}
	if first.RunID != "run-1" {
		t.Errorf("RunID = %q, want run-1", first.RunID)
	}
	if first.CreatedAt.IsZero() {
		t.Error("CreatedAt should be set")
	}
}

func TestCrossingRepository_Empty(t *testing.T) {
	s := newTestStore(t)

	if err := s.Crossings().Create("no-such-run", nil); err != nil {
		t.Errorf("Create(nil) error = %v, want nil", err)
	}

	got, err := s.Crossings().GetByRunID("no-such-run")
	if err != nil {
		t.Fatalf("GetByRunID() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("len(crossings) = %d, want 0", len(got))
	}
}

func TestCrossingRepository_RejectsUnknownRun(t *testing.T) {
	s := newTestStore(t)

	err := s.Crossings().Create("no-such-run", []Crossing{{Frame: 1, TrackID: 1, Direction: "enter"}})
	if err == nil {
		t.Error("expected foreign key error for unknown run")
	}
}

func TestCrossingRepository_RejectsUnknownDirection(t *testing.T) {
	s := newTestStore(t)
	s.Runs().Create(&Run{ID: "run-1", Source: "gate.mp4"})

	err := s.Crossings().Create("run-1", []Crossing{{Frame: 1, TrackID: 1, Direction: "sideways"}})
	if err == nil {
		t.Error("expected check constraint error for unknown direction")
	}
}
