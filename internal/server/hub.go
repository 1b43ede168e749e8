package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/ayusman/gatecount/internal/region"
)

const writeWait = time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// Message types sent on /api/events.
const (
	MessageStart  = "start"
	MessageFrame  = "frame"
	MessageReport = "report"
)

// Message is one websocket event.
type Message struct {
	Type      string            `json:"type"`
	Run       string            `json:"run,omitempty"`
	Source    string            `json:"source,omitempty"`
	Frame     int               `json:"frame,omitempty"`
	Regions   []region.Snapshot `json:"regions,omitempty"`
	Reports   []region.Report   `json:"reports,omitempty"`
	Timestamp int64             `json:"timestamp"`
}

// Hub broadcasts region snapshots to websocket clients and keeps the
// latest ones for /api/regions.
type Hub struct {
	mu      sync.RWMutex
	clients map[*websocket.Conn]bool
	run     string
	latest  []region.Snapshot

	log *logrus.Entry
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[*websocket.Conn]bool),
		log:     logrus.WithField("component", "events"),
	}
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("websocket upgrade failed")
		return
	}

	h.mu.Lock()
	h.clients[conn] = true
	h.mu.Unlock()

	defer h.drop(conn)

	// Keep connection alive by reading messages
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (h *Hub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.clients, conn)
	h.mu.Unlock()
	conn.Close()
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Start announces a new run.
func (h *Hub) Start(run, source string) error {
	h.mu.Lock()
	h.run = run
	h.latest = nil
	h.mu.Unlock()

	h.broadcast(Message{Type: MessageStart, Run: run, Source: source})
	return nil
}

// Frame stores snaps as the latest state and sends them to every client.
func (h *Hub) Frame(frame int, snaps []region.Snapshot) {
	h.mu.Lock()
	h.latest = snaps
	run := h.run
	h.mu.Unlock()

	h.broadcast(Message{Type: MessageFrame, Run: run, Frame: frame, Regions: snaps})
}

// Report sends the final tallies of a run.
func (h *Hub) Report(run string, reports []region.Report) {
	h.broadcast(Message{Type: MessageReport, Run: run, Reports: reports})
}

// Snapshots returns the snapshots of the latest frame.
func (h *Hub) Snapshots() []region.Snapshot {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.latest
}

// broadcast writes msg to every client. Clients that cannot keep up are
// disconnected. Frame, Start and Report are called from one goroutine,
// so each connection has a single writer.
func (h *Hub) broadcast(msg Message) {
	h.mu.RLock()
	if len(h.clients) == 0 {
		h.mu.RUnlock()
		return
	}
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for conn := range h.clients {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()

	msg.Timestamp = time.Now().UnixMilli()
	data, err := json.Marshal(msg)
	if err != nil {
		h.log.WithError(err).Warn("failed to encode event")
		return
	}

	for _, conn := range conns {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.log.WithError(err).Debug("dropping websocket client")
			h.drop(conn)
		}
	}
}
