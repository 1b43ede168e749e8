package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/ayusman/gatecount/internal/store"
)

// newTestStore creates a new Store with a temporary database for testing.
func newTestStore(t *testing.T) *store.Store {
	t.Helper()

	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
	})

	return s
}

// seedRun stores a finished run with two regions and three crossings.
func seedRun(t *testing.T, s *store.Store, id string) {
	t.Helper()

	if err := s.Runs().Create(&store.Run{ID: id, Source: "gate.mp4"}); err != nil {
		t.Fatalf("failed to create run: %v", err)
	}
	err := s.Crossings().Create(id, []store.Crossing{
		{RegionIndex: 0, Frame: 12, TrackID: 1, Direction: "enter", X: 101, Y: 40},
		{RegionIndex: 1, Frame: 15, TrackID: 2, Direction: "exit", X: 288, Y: 90},
		{RegionIndex: 0, Frame: 30, TrackID: 5, Direction: "exit", X: 99, Y: 60},
	})
	if err != nil {
		t.Fatalf("failed to create crossings: %v", err)
	}
	err = s.Runs().Finish(id, 120, []store.RegionReport{
		{RegionIndex: 0, Name: "left", Enter: 1, Exit: 1},
		{RegionIndex: 1, Name: "right", Exit: 1},
	})
	if err != nil {
		t.Fatalf("failed to finish run: %v", err)
	}
}

func TestRunHandler_List(t *testing.T) {
	s := newTestStore(t)
	seedRun(t, s, "run-1")
	handler := NewRunHandler(s)

	req := httptest.NewRequest(http.MethodGet, "/api/runs", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected Content-Type application/json, got %s", ct)
	}

	var response listRunsResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if len(response.Runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(response.Runs))
	}
	run := response.Runs[0]
	if run.ID != "run-1" || run.Status != "finished" || run.Frames != 120 {
		t.Errorf("unexpected run %+v", run)
	}
	if run.Reports != nil {
		t.Errorf("list should not include reports, got %+v", run.Reports)
	}
}

func TestRunHandler_ListEmpty(t *testing.T) {
	handler := NewRunHandler(newTestStore(t))

	req := httptest.NewRequest(http.MethodGet, "/api/runs", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Body.String() != "{\"runs\":[]}\n" {
		t.Errorf("expected empty list, got %s", rec.Body.String())
	}
}

func TestRunHandler_Get(t *testing.T) {
	s := newTestStore(t)
	seedRun(t, s, "run-1")
	handler := NewRunHandler(s)

	req := httptest.NewRequest(http.MethodGet, "/api/runs/run-1", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	var response runResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	want := []reportResponse{
		{Region: 0, Name: "left", Enter: 1, Exit: 1},
		{Region: 1, Name: "right", Exit: 1},
	}
	if len(response.Reports) != len(want) {
		t.Fatalf("expected %d reports, got %d", len(want), len(response.Reports))
	}
	for i := range want {
		if response.Reports[i] != want[i] {
			t.Errorf("report %d = %+v, want %+v", i, response.Reports[i], want[i])
		}
	}
	if response.FinishedAt == "" {
		t.Error("expected finished_at to be set")
	}
}

func TestRunHandler_Get_NotFound(t *testing.T) {
	handler := NewRunHandler(newTestStore(t))

	req := httptest.NewRequest(http.MethodGet, "/api/runs/missing", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
}

func TestRunHandler_Delete(t *testing.T) {
	s := newTestStore(t)
	seedRun(t, s, "run-1")
	handler := NewRunHandler(s)

	req := httptest.NewRequest(http.MethodDelete, "/api/runs/run-1", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected status %d, got %d", http.StatusNoContent, rec.Code)
	}

	crossings, err := s.Crossings().GetByRunID("run-1")
	if err != nil {
		t.Fatalf("GetByRunID() error = %v", err)
	}
	if len(crossings) != 0 {
		t.Errorf("expected crossings to be deleted with the run, got %d", len(crossings))
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/runs/run-1", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status %d on second delete, got %d", http.StatusNotFound, rec.Code)
	}
}

func TestRunHandler_MethodNotAllowed(t *testing.T) {
	handler := NewRunHandler(newTestStore(t))

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/api/runs"},
		{http.MethodPut, "/api/runs/run-1"},
	}

	for _, tt := range tests {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("%s %s: expected status %d, got %d", tt.method, tt.path, http.StatusMethodNotAllowed, rec.Code)
		}
	}
}

func TestCrossingsHandler_List(t *testing.T) {
	s := newTestStore(t)
	seedRun(t, s, "run-1")
	handler := NewCrossingsHandler(s)

	tests := []struct {
		name   string
		query  string
		frames []int
	}{
		{"all", "", []int{12, 15, 30}},
		{"by region", "?region=0", []int{12, 30}},
		{"by direction", "?direction=exit", []int{15, 30}},
		{"by region and direction", "?region=0&direction=enter", []int{12}},
		{"no match", "?region=3", []int{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/runs/run-1/crossings"+tt.query, nil)
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusOK {
				t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
			}

			var response listCrossingsResponse
			if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}

			if len(response.Crossings) != len(tt.frames) {
				t.Fatalf("expected %d crossings, got %d", len(tt.frames), len(response.Crossings))
			}
			for i, frame := range tt.frames {
				if response.Crossings[i].Frame != frame {
					t.Errorf("crossing %d frame = %d, want %d", i, response.Crossings[i].Frame, frame)
				}
			}
		})
	}
}

func TestCrossingsHandler_Errors(t *testing.T) {
	s := newTestStore(t)
	seedRun(t, s, "run-1")
	handler := NewCrossingsHandler(s)

	tests := []struct {
		name   string
		method string
		path   string
		want   int
	}{
		{"unknown run", http.MethodGet, "/api/runs/missing/crossings", http.StatusNotFound},
		{"bad region", http.MethodGet, "/api/runs/run-1/crossings?region=left", http.StatusBadRequest},
		{"bad path", http.MethodGet, "/api/runs/run-1/extra/crossings", http.StatusNotFound},
		{"post", http.MethodPost, "/api/runs/run-1/crossings", http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
			if rec.Code != tt.want {
				t.Errorf("expected status %d, got %d", tt.want, rec.Code)
			}
		})
	}
}
