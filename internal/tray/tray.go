// Package tray provides a system tray interface showing the live gate
// counts, with pause and quit.
package tray

import (
	"fmt"
	"sync"

	"github.com/getlantern/systray"

	"github.com/ayusman/gatecount/internal/gate"
	"github.com/ayusman/gatecount/internal/region"
)

// Tray represents the system tray application. It receives frames like
// any other sink and shows one menu line per region.
type Tray struct {
	names    []string
	onPause  func(paused bool)
	onOpen   func()
	onQuit   func()
	paused   bool
	finished bool
	counts   []gate.Counts
	mu       sync.RWMutex

	// Menu items stored for later updates
	menuPause   *systray.MenuItem
	menuRegions []*systray.MenuItem
	menuStatus  *systray.MenuItem
}

// New creates a Tray with one line per named region.
func New(names []string) *Tray {
	return &Tray{
		names:  names,
		counts: make([]gate.Counts, len(names)),
	}
}

// OnPause sets the callback function to be called when counting is paused or resumed.
func (t *Tray) OnPause(fn func(paused bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onPause = fn
}

// OnOpen sets the callback function to be called when the dashboard menu item is clicked.
func (t *Tray) OnOpen(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onOpen = fn
}

// OnQuit sets the callback function to be called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until Quit is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// Quit closes the tray and makes Run return.
func (t *Tray) Quit() {
	systray.Quit()
}

// onReady is called when the system tray is ready.
// It sets up the menu structure.
func (t *Tray) onReady() {
	systray.SetTitle("Gatecount")
	systray.SetTooltip("Gate crossing counter")

	t.mu.Lock()
	t.menuStatus = systray.AddMenuItem("Waiting for video", "Run status")
	t.menuStatus.Disable()
	systray.AddSeparator()

	for i, name := range t.names {
		item := systray.AddMenuItem(regionTitle(name, t.counts[i]), "Enter / exit count")
		item.Disable()
		t.menuRegions = append(t.menuRegions, item)
	}
	systray.AddSeparator()

	t.menuPause = systray.AddMenuItem(pauseTitle(t.paused), "Pause or resume counting")
	t.mu.Unlock()

	menuOpen := systray.AddMenuItem("Open Dashboard...", "Open the dashboard in a browser")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit Gatecount")

	// Handle menu item clicks in a separate goroutine
	go func() {
		for {
			select {
			case <-t.menuPause.ClickedCh:
				t.handlePause()
			case <-menuOpen.ClickedCh:
				t.handleOpen()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

func (t *Tray) onExit() {}

func regionTitle(name string, c gate.Counts) string {
	return fmt.Sprintf("%s: %d in, %d out", name, c.Enter, c.Exit)
}

func pauseTitle(paused bool) string {
	if paused {
		return "▶ Resume"
	}
	return "❚❚ Pause"
}

// handlePause handles the pause menu item click.
func (t *Tray) handlePause() {
	t.mu.Lock()
	t.paused = !t.paused
	paused := t.paused

	if t.menuPause != nil {
		t.menuPause.SetTitle(pauseTitle(paused))
	}

	callback := t.onPause
	t.mu.Unlock()

	// Call the callback outside the lock to prevent deadlocks
	if callback != nil {
		callback(paused)
	}
}

// handleOpen handles the dashboard menu item click.
func (t *Tray) handleOpen() {
	t.mu.RLock()
	callback := t.onOpen
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

// handleQuit handles the quit menu item click.
func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}

	systray.Quit()
}

// Start shows the source of a new run.
func (t *Tray) Start(run, source string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.finished = false
	for i := range t.counts {
		t.counts[i] = gate.Counts{}
	}
	t.setStatus("Counting " + source)
	return nil
}

// Frame updates the lines of regions whose counts changed.
func (t *Tray) Frame(frame int, snaps []region.Snapshot) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, snap := range snaps {
		i := snap.Region
		if i < 0 || i >= len(t.counts) || t.counts[i] == snap.Counts {
			continue
		}
		t.counts[i] = snap.Counts
		if i < len(t.menuRegions) {
			t.menuRegions[i].SetTitle(regionTitle(t.names[i], snap.Counts))
		}
	}
}

// Report marks the run finished.
func (t *Tray) Report(run string, reports []region.Report) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.finished = true
	total := 0
	for _, r := range reports {
		total += r.Enter + r.Exit
	}
	t.setStatus(fmt.Sprintf("Finished: %d crossings", total))
}

func (t *Tray) setStatus(s string) {
	if t.menuStatus != nil {
		t.menuStatus.SetTitle(s)
	}
}

// Counts returns the counts last shown for each region.
func (t *Tray) Counts() []gate.Counts {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]gate.Counts(nil), t.counts...)
}

// IsPaused returns the current paused state.
func (t *Tray) IsPaused() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.paused
}

// Finished reports whether the last run has ended.
func (t *Tray) Finished() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.finished
}
