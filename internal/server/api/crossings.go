package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/ayusman/gatecount/internal/store"
)

// CrossingsHandler handles HTTP requests for the crossings of a run.
type CrossingsHandler struct {
	store *store.Store
}

// NewCrossingsHandler creates a new CrossingsHandler with the given store.
func NewCrossingsHandler(s *store.Store) *CrossingsHandler {
	return &CrossingsHandler{store: s}
}

// ServeHTTP implements the http.Handler interface.
// Expected paths: /api/runs/{id}/crossings
func (h *CrossingsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/runs/")
	parts := strings.Split(path, "/")

	if len(parts) != 2 || parts[0] == "" || parts[1] != "crossings" {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.list(w, r, parts[0])
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

type crossingResponse struct {
	ID        int64  `json:"id"`
	Region    int    `json:"region"`
	Frame     int    `json:"frame"`
	TrackID   uint64 `json:"track_id"`
	Direction string `json:"direction"`
	X         int    `json:"x"`
	Y         int    `json:"y"`
}

type listCrossingsResponse struct {
	Run       string             `json:"run"`
	Crossings []crossingResponse `json:"crossings"`
}

// list handles GET /api/runs/{id}/crossings, optionally filtered by the
// region and direction query parameters.
func (h *CrossingsHandler) list(w http.ResponseWriter, r *http.Request, runID string) {
	if _, err := h.store.Runs().GetByID(runID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Run not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get run")
		return
	}

	regionFilter, hasRegion, err := intQuery(r, "region")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid region")
		return
	}
	direction := r.URL.Query().Get("direction")

	crossings, err := h.store.Crossings().GetByRunID(runID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list crossings")
		return
	}

	response := listCrossingsResponse{
		Run:       runID,
		Crossings: make([]crossingResponse, 0, len(crossings)),
	}
	for _, c := range crossings {
		if hasRegion && c.RegionIndex != regionFilter {
			continue
		}
		if direction != "" && c.Direction != direction {
			continue
		}
		response.Crossings = append(response.Crossings, crossingResponse{
			ID:        c.ID,
			Region:    c.RegionIndex,
			Frame:     c.Frame,
			TrackID:   c.TrackID,
			Direction: c.Direction,
			X:         c.X,
			Y:         c.Y,
		})
	}

	writeJSON(w, http.StatusOK, response)
}

// intQuery parses an optional integer query parameter.
func intQuery(r *http.Request, key string) (int, bool, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return 0, false, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false, err
	}
	return n, true, nil
}
