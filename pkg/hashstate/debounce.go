package hashstate

import (
	"context"
	"sync"
	"time"

	"github.com/geoportal-dev/hashsync/pkg/hashcodec"
)

// Debouncer coalesces frequent updates, such as those emitted while the
// map is being panned, into a single replace-mode write once the updates
// stop for the configured delay.
//
//	d := hashstate.NewDebouncer(provider, 250*time.Millisecond, hashstate.Label("pan"))
//	defer d.Stop()
//	d.Update(update)
type Debouncer struct {
	provider *Provider
	delay    time.Duration
	opts     []UpdateOption

	timerMu sync.Mutex
	timer   *time.Timer
	pending *hashcodec.Partial
	stopped bool
}

// NewDebouncer creates a debouncer writing to p. opts are applied to every
// flushed write, after Replace.
func NewDebouncer(p *Provider, delay time.Duration, opts ...UpdateOption) *Debouncer {
	return &Debouncer{
		provider: p,
		delay:    delay,
		opts:     append([]UpdateOption{Replace}, opts...),
	}
}

// Update merges update into the pending write and restarts the delay.
// Later values for a key win.
func (d *Debouncer) Update(update *hashcodec.Partial) {
	d.timerMu.Lock()
	defer d.timerMu.Unlock()
	if d.stopped {
		return
	}

	if d.pending == nil {
		d.pending = &hashcodec.Partial{}
	}
	update.Range(func(key string, value any) {
		d.pending.SetAny(key, value)
	})

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, func() {
		d.Flush()
	})
}

// Flush writes the pending update immediately. It reports whether a history
// mutation happened.
func (d *Debouncer) Flush() bool {
	d.timerMu.Lock()
	pending := d.pending
	d.pending = nil
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.timerMu.Unlock()

	if pending.Len() == 0 {
		return false
	}
	return d.provider.UpdateHash(context.Background(), pending, d.opts...)
}

// Pending reports whether an update is waiting to be written.
func (d *Debouncer) Pending() bool {
	d.timerMu.Lock()
	defer d.timerMu.Unlock()
	return d.pending.Len() > 0
}

// Stop cancels the pending write. Later updates are ignored.
func (d *Debouncer) Stop() {
	d.timerMu.Lock()
	defer d.timerMu.Unlock()
	d.stopped = true
	d.pending = nil
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
