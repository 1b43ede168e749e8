// Package main provides a hook plugin that appends every crossing it
// receives to a JSON-lines file.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// Request represents the input from the plugin executor.
type Request struct {
	Action string          `json:"action"`
	Event  json.RawMessage `json:"event"`
	Config json.RawMessage `json:"config"`
}

// Response represents the output to the plugin executor.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Config holds the action configuration.
type Config struct {
	Path string `json:"path"`
}

const defaultPath = "crossings.jsonl"

func main() {
	json.NewEncoder(os.Stdout).Encode(handle(os.Stdin, time.Now))
}

func handle(in io.Reader, now func() time.Time) Response {
	var req Request
	if err := json.NewDecoder(in).Decode(&req); err != nil {
		return failure(fmt.Sprintf("failed to decode request: %v", err))
	}
	if len(req.Event) == 0 {
		return failure("request has no event")
	}

	switch req.Action {
	case "append":
		path, err := appendEvent(req, now())
		if err != nil {
			return failure(fmt.Sprintf("append failed: %v", err))
		}
		data, _ := json.Marshal(map[string]string{"path": path})
		return Response{Success: true, Data: data}
	case "echo":
		return Response{Success: true, Data: req.Event}
	}

	return failure(fmt.Sprintf("unknown action: %s", req.Action))
}

// appendEvent writes one line holding the event and the time it was logged.
func appendEvent(req Request, at time.Time) (string, error) {
	cfg := Config{Path: defaultPath}
	if len(req.Config) > 0 {
		if err := json.Unmarshal(req.Config, &cfg); err != nil {
			return "", fmt.Errorf("failed to parse config: %w", err)
		}
		if cfg.Path == "" {
			cfg.Path = defaultPath
		}
	}

	line, err := json.Marshal(struct {
		LoggedAt time.Time       `json:"logged_at"`
		Event    json.RawMessage `json:"event"`
	}{at.UTC(), req.Event})
	if err != nil {
		return "", err
	}

	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", err
		}
	}

	f, err := os.OpenFile(cfg.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return "", err
	}
	return cfg.Path, nil
}

func failure(msg string) Response {
	return Response{Success: false, Error: msg}
}
