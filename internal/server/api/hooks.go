package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/ayusman/gatecount/internal/plugin"
	"github.com/ayusman/gatecount/internal/store"
)

// HookHandler handles HTTP requests for hook resources.
type HookHandler struct {
	store   *store.Store
	plugins *plugin.Manager
}

// NewHookHandler creates a new HookHandler. When plugins is not nil, new
// and updated hooks must name a discovered plugin and one of its actions.
func NewHookHandler(s *store.Store, plugins *plugin.Manager) *HookHandler {
	return &HookHandler{store: s, plugins: plugins}
}

// ServeHTTP implements the http.Handler interface and routes requests to appropriate methods.
func (h *HookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Expected paths: /api/hooks or /api/hooks/{id}
	path := strings.TrimPrefix(r.URL.Path, "/api/hooks")
	path = strings.TrimPrefix(path, "/")

	if path == "" {
		switch r.Method {
		case http.MethodGet:
			h.list(w, r)
		case http.MethodPost:
			h.create(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	id := path
	switch r.Method {
	case http.MethodGet:
		h.get(w, r, id)
	case http.MethodPut:
		h.update(w, r, id)
	case http.MethodDelete:
		h.delete(w, r, id)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

type createHookRequest struct {
	RegionIndex *int            `json:"region_index"`
	Direction   string          `json:"direction"`
	PluginName  string          `json:"plugin_name"`
	ActionName  string          `json:"action_name"`
	Config      json.RawMessage `json:"config"`
}

type updateHookRequest struct {
	RegionIndex *int            `json:"region_index"`
	Direction   string          `json:"direction"`
	PluginName  string          `json:"plugin_name"`
	ActionName  string          `json:"action_name"`
	Config      json.RawMessage `json:"config"`
	Enabled     *bool           `json:"enabled"`
}

type hookResponse struct {
	ID          string          `json:"id"`
	RegionIndex int             `json:"region_index"`
	Direction   string          `json:"direction"`
	PluginName  string          `json:"plugin_name"`
	ActionName  string          `json:"action_name"`
	Config      json.RawMessage `json:"config"`
	Enabled     bool            `json:"enabled"`
	CreatedAt   string          `json:"created_at"`
}

type listHooksResponse struct {
	Hooks []hookResponse `json:"hooks"`
}

func toHookResponse(hk *store.Hook) hookResponse {
	config := hk.Config
	if config == nil {
		config = json.RawMessage("{}")
	}
	return hookResponse{
		ID:          hk.ID,
		RegionIndex: hk.RegionIndex,
		Direction:   hk.Direction,
		PluginName:  hk.PluginName,
		ActionName:  hk.ActionName,
		Config:      config,
		Enabled:     hk.Enabled,
		CreatedAt:   hk.CreatedAt.Format(timeFormat),
	}
}

func validDirection(d string) bool {
	return d == "enter" || d == "exit" || d == store.AnyDirection
}

// checkPlugin returns an error message when the plugin or action is unknown.
func (h *HookHandler) checkPlugin(name, action string) string {
	if h.plugins == nil {
		return ""
	}
	p, err := h.plugins.Get(name)
	if err != nil {
		return "Plugin not found"
	}
	if !p.Manifest.Supports(action) {
		return "Plugin does not support action"
	}
	return ""
}

// list handles GET /api/hooks and returns all hooks.
func (h *HookHandler) list(w http.ResponseWriter, r *http.Request) {
	hooks, err := h.store.Hooks().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list hooks")
		return
	}

	response := listHooksResponse{
		Hooks: make([]hookResponse, 0, len(hooks)),
	}
	for _, hk := range hooks {
		response.Hooks = append(response.Hooks, toHookResponse(hk))
	}

	writeJSON(w, http.StatusOK, response)
}

// get handles GET /api/hooks/{id} and returns a single hook.
func (h *HookHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	hk, err := h.store.Hooks().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Hook not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get hook")
		return
	}

	writeJSON(w, http.StatusOK, toHookResponse(hk))
}

// create handles POST /api/hooks and creates a new, enabled hook.
func (h *HookHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createHookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.PluginName == "" {
		writeError(w, http.StatusBadRequest, "plugin_name is required")
		return
	}
	if req.ActionName == "" {
		writeError(w, http.StatusBadRequest, "action_name is required")
		return
	}

	regionIndex := store.AnyRegion
	if req.RegionIndex != nil {
		regionIndex = *req.RegionIndex
	}
	if regionIndex < store.AnyRegion {
		writeError(w, http.StatusBadRequest, "Invalid region_index")
		return
	}

	direction := req.Direction
	if direction == "" {
		direction = store.AnyDirection
	}
	if !validDirection(direction) {
		writeError(w, http.StatusBadRequest, "Invalid direction")
		return
	}

	if msg := h.checkPlugin(req.PluginName, req.ActionName); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	config := req.Config
	if config == nil {
		config = json.RawMessage("{}")
	}

	hk := &store.Hook{
		ID:          uuid.New().String(),
		RegionIndex: regionIndex,
		Direction:   direction,
		PluginName:  req.PluginName,
		ActionName:  req.ActionName,
		Config:      config,
		Enabled:     true,
	}

	if err := h.store.Hooks().Create(hk); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create hook")
		return
	}

	writeJSON(w, http.StatusCreated, toHookResponse(hk))
}

// update handles PUT /api/hooks/{id} and updates an existing hook.
func (h *HookHandler) update(w http.ResponseWriter, r *http.Request, id string) {
	hk, err := h.store.Hooks().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Hook not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get hook")
		return
	}

	var req updateHookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	// Update fields if provided
	if req.RegionIndex != nil {
		if *req.RegionIndex < store.AnyRegion {
			writeError(w, http.StatusBadRequest, "Invalid region_index")
			return
		}
		hk.RegionIndex = *req.RegionIndex
	}
	if req.Direction != "" {
		if !validDirection(req.Direction) {
			writeError(w, http.StatusBadRequest, "Invalid direction")
			return
		}
		hk.Direction = req.Direction
	}
	if req.PluginName != "" {
		hk.PluginName = req.PluginName
	}
	if req.ActionName != "" {
		hk.ActionName = req.ActionName
	}
	if req.PluginName != "" || req.ActionName != "" {
		if msg := h.checkPlugin(hk.PluginName, hk.ActionName); msg != "" {
			writeError(w, http.StatusBadRequest, msg)
			return
		}
	}
	if req.Config != nil {
		hk.Config = req.Config
	}
	if req.Enabled != nil {
		hk.Enabled = *req.Enabled
	}

	if err := h.store.Hooks().Update(hk); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update hook")
		return
	}

	writeJSON(w, http.StatusOK, toHookResponse(hk))
}

// delete handles DELETE /api/hooks/{id} and removes a hook.
func (h *HookHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	err := h.store.Hooks().Delete(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Hook not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete hook")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
