package dispatch

import (
	"context"
	"log"
	"sync"
	"time"
)

// Job is the unit of work a trigger invokes on each tick.
type Job func(ctx context.Context)

// Trigger runs a job on a fixed interval, but only while enabled.
// Disabling stops the ticker goroutine entirely rather than gating the work,
// so an empty deployment pays nothing for its periodic jobs.
//
// Enable and Disable are idempotent; the toggler calls them on every
// change event without tracking prior state.
type Trigger struct {
	name     string
	interval time.Duration
	job      Job

	mu      sync.Mutex
	enabled bool
	closed  bool
	stopCh  chan struct{}
}

// NewTrigger creates a trigger in the disabled state.
func NewTrigger(name string, interval time.Duration, job Job) *Trigger {
	return &Trigger{
		name:     name,
		interval: interval,
		job:      job,
	}
}

// Name returns the trigger's name.
func (t *Trigger) Name() string {
	return t.name
}

// Enabled reports whether the trigger is currently running.
func (t *Trigger) Enabled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.enabled
}

// Enable starts the ticker goroutine. Enabling an already-enabled trigger
// is a no-op.
func (t *Trigger) Enable() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed || t.enabled {
		return
	}

	t.enabled = true
	t.stopCh = make(chan struct{})
	go t.run(t.stopCh)

	log.Printf("trigger: %s enabled (every %s)", t.name, t.interval)
}

// Disable stops the ticker goroutine. Disabling an already-disabled trigger
// is a no-op.
func (t *Trigger) Disable() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.enabled {
		return
	}

	t.enabled = false
	close(t.stopCh)
	t.stopCh = nil

	log.Printf("trigger: %s disabled", t.name)
}

// Close permanently stops the trigger. Used during shutdown.
func (t *Trigger) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return
	}
	t.closed = true

	if t.enabled {
		t.enabled = false
		close(t.stopCh)
		t.stopCh = nil
	}
}

// Fire invokes the job once, regardless of enabled state. This backs the
// externally invokable tick endpoints.
func (t *Trigger) Fire(ctx context.Context) {
	t.job(ctx)
}

func (t *Trigger) run(stop chan struct{}) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			t.job(context.Background())
		}
	}
}
