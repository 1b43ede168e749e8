// Package plugin discovers external hook plugins and runs them when a
// crossing matches one of their bindings.
package plugin

import "encoding/json"

// Manifest describes a plugin's metadata and capabilities.
type Manifest struct {
	Name         string          `json:"name"`
	Version      string          `json:"version"`
	Description  string          `json:"description"`
	Executable   string          `json:"executable"`
	Actions      []string        `json:"actions"`
	ConfigSchema json.RawMessage `json:"configSchema,omitempty"`
}

// Supports reports whether the manifest declares action.
func (m Manifest) Supports(action string) bool {
	for _, a := range m.Actions {
		if a == action {
			return true
		}
	}
	return false
}

// Event describes the crossing that triggered a hook.
type Event struct {
	Run        string `json:"run"`
	Region     int    `json:"region"`
	RegionName string `json:"region_name"`
	Frame      int    `json:"frame"`
	TrackID    uint64 `json:"track_id"`
	Direction  string `json:"direction"`
	X          int    `json:"x"`
	Y          int    `json:"y"`
	Enter      int    `json:"enter"`
	Exit       int    `json:"exit"`
}

// Request represents a request sent to a plugin for execution.
type Request struct {
	Action string          `json:"action"`
	Event  Event           `json:"event"`
	Config json.RawMessage `json:"config"`
}

// Response represents the response from a plugin execution.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Plugin represents a discovered plugin with its manifest and location.
type Plugin struct {
	Manifest   Manifest
	Path       string
	Executable string
}
