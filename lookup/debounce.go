package lookup

import (
	"sync"
	"time"

	"github.com/git-pkgs/freshness/internal/core"
)

// Debouncer coalesces rapid dependency-list changes in front of a
// Coordinator so a run is not issued for every transient edit. Only the
// most recent list survives the delay window.
type Debouncer struct {
	coordinator *Coordinator
	delay       time.Duration

	mu        sync.Mutex
	timer     *time.Timer
	pending   []core.Dependency
	scheduled bool
}

// NewDebouncer creates a debounce stage in front of a coordinator's
// Lookup entry point.
func NewDebouncer(c *Coordinator, delay time.Duration) *Debouncer {
	return &Debouncer{coordinator: c, delay: delay}
}

// Lookup schedules a run for after the delay window. Calling again
// within the window replaces the pending list and restarts the window.
func (d *Debouncer) Lookup(deps []core.Dependency) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.pending = deps
	d.scheduled = true
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, d.fire)
}

// Flush runs any pending lookup immediately.
func (d *Debouncer) Flush() {
	d.mu.Lock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.mu.Unlock()

	d.fire()
}

// fire hands the pending list to the coordinator. The scheduled flag
// makes it idempotent: a Flush racing the timer delivers the list once.
func (d *Debouncer) fire() {
	d.mu.Lock()
	if !d.scheduled {
		d.mu.Unlock()
		return
	}
	deps := d.pending
	d.pending = nil
	d.scheduled = false
	d.timer = nil
	d.mu.Unlock()

	d.coordinator.Lookup(deps)
}
