package plugin

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"
)

// scriptPlugin writes a shell script plugin into a temporary directory.
func scriptPlugin(t *testing.T, name, script string, actions ...string) *Plugin {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("skipping shell plugin on Windows")
	}

	dir := t.TempDir()
	path := filepath.Join(dir, name+".sh")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0755); err != nil {
		t.Fatalf("failed to write script: %v", err)
	}

	return &Plugin{
		Manifest: Manifest{
			Name:       name,
			Version:    "1.0.0",
			Executable: name + ".sh",
			Actions:    actions,
		},
		Path:       dir,
		Executable: path,
	}
}

func crossingRequest() *Request {
	return &Request{
		Action: "notify",
		Event: Event{
			Run:       "run-1",
			Region:    2,
			Frame:     41,
			TrackID:   7,
			Direction: "enter",
			X:         310,
			Y:         352,
			Enter:     3,
		},
		Config: json.RawMessage(`{"key":"value"}`),
	}
}

func TestExecutor_Execute(t *testing.T) {
	plugin := scriptPlugin(t, "ok", `cat > /dev/null
echo '{"success":true,"data":{"message":"counted"}}'
`, "notify")

	response, err := NewExecutor(5*time.Second).Execute(context.Background(), plugin, crossingRequest())
	if err != nil {
		t.Fatalf("Execute() failed: %v", err)
	}

	if !response.Success {
		t.Errorf("expected success=true, got false")
	}
	if response.Error != "" {
		t.Errorf("expected empty error, got %q", response.Error)
	}

	var data map[string]string
	if err := json.Unmarshal(response.Data, &data); err != nil {
		t.Fatalf("failed to unmarshal response data: %v", err)
	}
	if data["message"] != "counted" {
		t.Errorf("expected message 'counted', got %q", data["message"])
	}
}

func TestExecutor_Execute_ReadsStdin(t *testing.T) {
	plugin := scriptPlugin(t, "echo", `INPUT=$(cat)
echo "{\"success\":true,\"data\":$INPUT}"
`, "notify")

	response, err := NewExecutor(5*time.Second).Execute(context.Background(), plugin, crossingRequest())
	if err != nil {
		t.Fatalf("Execute() failed: %v", err)
	}

	var received Request
	if err := json.Unmarshal(response.Data, &received); err != nil {
		t.Fatalf("failed to unmarshal echoed request: %v", err)
	}

	want := crossingRequest()
	if received.Action != want.Action {
		t.Errorf("action = %q, want %q", received.Action, want.Action)
	}
	if received.Event != want.Event {
		t.Errorf("event = %+v, want %+v", received.Event, want.Event)
	}
	if string(received.Config) != `{"key":"value"}` {
		t.Errorf("config = %s", received.Config)
	}
}

func TestExecutor_Timeout(t *testing.T) {
	plugin := scriptPlugin(t, "slow", `sleep 10
echo '{"success":true}'
`, "notify")

	start := time.Now()
	_, err := NewExecutor(100*time.Millisecond).Execute(context.Background(), plugin, crossingRequest())

	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("timeout took %v", elapsed)
	}
}

func TestExecutor_ContextCancelled(t *testing.T) {
	plugin := scriptPlugin(t, "slow", `sleep 10
`, "notify")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := NewExecutor(5*time.Second).Execute(ctx, plugin, crossingRequest()); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}

func TestExecutor_Failures(t *testing.T) {
	tests := []struct {
		name   string
		script string
	}{
		{"invalid json", "echo 'not valid json'\n"},
		{"non-zero exit", "echo 'Error: something failed' >&2\nexit 1\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plugin := scriptPlugin(t, "bad", tt.script, "notify")
			if _, err := NewExecutor(5*time.Second).Execute(context.Background(), plugin, crossingRequest()); err == nil {
				t.Fatal("expected error, got nil")
			}
		})
	}
}

func TestExecutor_ErrorResponse(t *testing.T) {
	plugin := scriptPlugin(t, "refuse", `echo '{"success":false,"error":"something went wrong"}'
`, "notify")

	response, err := NewExecutor(5*time.Second).Execute(context.Background(), plugin, crossingRequest())
	if err != nil {
		t.Fatalf("Execute() failed: %v", err)
	}
	if response.Success {
		t.Errorf("expected success=false, got true")
	}
	if response.Error != "something went wrong" {
		t.Errorf("expected error 'something went wrong', got %q", response.Error)
	}
}

func TestNewExecutor(t *testing.T) {
	if got := NewExecutor(3 * time.Second).Timeout(); got != 3*time.Second {
		t.Errorf("Timeout() = %v, want 3s", got)
	}
}
