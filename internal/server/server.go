// Package server provides the HTTP server for the gate counter: stored
// runs and hooks, live region counts, websocket events and the annotated
// MJPEG stream.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/ayusman/gatecount/internal/plugin"
	"github.com/ayusman/gatecount/internal/region"
	"github.com/ayusman/gatecount/internal/server/api"
	"github.com/ayusman/gatecount/internal/store"
	"github.com/ayusman/gatecount/internal/tracking"
)

// LiveSource provides the snapshots of the latest processed frame.
type LiveSource interface {
	Snapshots() []region.Snapshot
}

// Config holds the server configuration.
type Config struct {
	StaticDir string
	Store     *store.Store
	Plugins   *plugin.Manager
	Hub       *Hub
	Live      LiveSource
	Frames    FrameSource
}

// Server represents the HTTP server of the gate counter.
type Server struct {
	config Config
	mux    *http.ServeMux
	start  time.Time
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	if config.Live == nil && config.Hub != nil {
		config.Live = config.Hub
	}

	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	if s.config.Live != nil {
		s.mux.HandleFunc("/api/regions", s.handleRegions)
	}

	if s.config.Store != nil {
		runHandler := api.NewRunHandler(s.config.Store)
		crossingsHandler := api.NewCrossingsHandler(s.config.Store)

		// /api/runs/{id}/crossings goes to the crossings handler
		runRouter := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.HasSuffix(r.URL.Path, "/crossings") {
				crossingsHandler.ServeHTTP(w, r)
				return
			}
			runHandler.ServeHTTP(w, r)
		})

		s.mux.Handle("/api/runs", runRouter)
		s.mux.Handle("/api/runs/", runRouter)

		hookHandler := api.NewHookHandler(s.config.Store, s.config.Plugins)
		s.mux.Handle("/api/hooks", hookHandler)
		s.mux.Handle("/api/hooks/", hookHandler)
	}

	if s.config.Hub != nil {
		s.mux.Handle("/api/events", s.config.Hub)
	}

	if s.config.Frames != nil {
		s.mux.Handle("/api/stream", NewStreamHandler(s.config.Frames))
	}

	// Serve static files if StaticDir is configured
	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	uptime := time.Since(s.start)

	response := map[string]interface{}{
		"status": "ok",
		"uptime": uptime.String(),
	}

	writeJSON(w, response)
}

type regionResponse struct {
	Index  int          `json:"index"`
	Name   string       `json:"name"`
	Frame  int          `json:"frame"`
	Rect   tracking.Box `json:"rect"`
	Enter  int          `json:"enter"`
	Exit   int          `json:"exit"`
	Tracks int          `json:"tracks"`
}

type listRegionsResponse struct {
	Regions []regionResponse `json:"regions"`
}

// handleRegions handles GET /api/regions with the live counts.
func (s *Server) handleRegions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	snaps := s.config.Live.Snapshots()
	response := listRegionsResponse{Regions: make([]regionResponse, 0, len(snaps))}
	for _, snap := range snaps {
		response.Regions = append(response.Regions, regionResponse{
			Index:  snap.Region,
			Name:   snap.Name,
			Frame:  snap.Frame,
			Rect:   tracking.BoxFromRect(snap.Rect),
			Enter:  snap.Counts.Enter,
			Exit:   snap.Counts.Exit,
			Tracks: len(snap.Tracks),
		})
	}

	writeJSON(w, response)
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// ListenAndServe serves on addr until ctx is done, then shuts down.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	hs := &http.Server{Addr: addr, Handler: s}

	errc := make(chan error, 1)
	go func() { errc <- hs.ListenAndServe() }()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return hs.Shutdown(shutdownCtx)
	}
}
