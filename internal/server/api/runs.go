// Package api provides HTTP API handlers for stored runs, crossings and
// hooks.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/ayusman/gatecount/internal/store"
)

const timeFormat = "2006-01-02T15:04:05Z07:00"

// RunHandler handles HTTP requests for run resources.
type RunHandler struct {
	store *store.Store
}

// NewRunHandler creates a new RunHandler with the given store.
func NewRunHandler(s *store.Store) *RunHandler {
	return &RunHandler{store: s}
}

// ServeHTTP implements the http.Handler interface and routes requests to appropriate methods.
func (h *RunHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Expected paths: /api/runs or /api/runs/{id}
	path := strings.TrimPrefix(r.URL.Path, "/api/runs")
	path = strings.TrimPrefix(path, "/")

	if path == "" {
		switch r.Method {
		case http.MethodGet:
			h.list(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	id := path
	switch r.Method {
	case http.MethodGet:
		h.get(w, r, id)
	case http.MethodDelete:
		h.delete(w, r, id)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

type reportResponse struct {
	Region int    `json:"region"`
	Name   string `json:"name"`
	Enter  int    `json:"enter"`
	Exit   int    `json:"exit"`
}

type runResponse struct {
	ID         string           `json:"id"`
	Source     string           `json:"source"`
	Status     string           `json:"status"`
	Frames     int              `json:"frames"`
	StartedAt  string           `json:"started_at"`
	FinishedAt string           `json:"finished_at,omitempty"`
	Reports    []reportResponse `json:"reports,omitempty"`
}

type listRunsResponse struct {
	Runs []runResponse `json:"runs"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func toRunResponse(run *store.Run) runResponse {
	resp := runResponse{
		ID:        run.ID,
		Source:    run.Source,
		Status:    string(run.Status),
		Frames:    run.Frames,
		StartedAt: run.StartedAt.Format(timeFormat),
	}
	if run.FinishedAt != nil {
		resp.FinishedAt = run.FinishedAt.Format(timeFormat)
	}
	for _, rep := range run.Reports {
		resp.Reports = append(resp.Reports, reportResponse{
			Region: rep.RegionIndex,
			Name:   rep.Name,
			Enter:  rep.Enter,
			Exit:   rep.Exit,
		})
	}
	return resp
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// list handles GET /api/runs and returns all runs without their reports.
func (h *RunHandler) list(w http.ResponseWriter, r *http.Request) {
	runs, err := h.store.Runs().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list runs")
		return
	}

	response := listRunsResponse{
		Runs: make([]runResponse, 0, len(runs)),
	}
	for _, run := range runs {
		response.Runs = append(response.Runs, toRunResponse(run))
	}

	writeJSON(w, http.StatusOK, response)
}

// get handles GET /api/runs/{id} and returns a run with its region reports.
func (h *RunHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	run, err := h.store.Runs().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Run not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get run")
		return
	}

	writeJSON(w, http.StatusOK, toRunResponse(run))
}

// delete handles DELETE /api/runs/{id}.
func (h *RunHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	err := h.store.Runs().Delete(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Run not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete run")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
