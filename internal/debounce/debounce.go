package debounce

import (
	"sync"
	"time"
)

type pending struct {
	timer *time.Timer
	fn    func()
}

// Debouncer coalesces bursts of calls per key, firing only the last
// function after the delay elapses with no further calls for that key.
// Distinct keys debounce independently.
type Debouncer struct {
	delay   time.Duration
	mu      sync.Mutex
	pending map[string]*pending
}

func New(delay time.Duration) *Debouncer {
	return &Debouncer{
		delay:   delay,
		pending: make(map[string]*pending),
	}
}

// Do schedules fn under key, replacing any pending call for that key.
func (d *Debouncer) Do(key string, fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if p, ok := d.pending[key]; ok {
		p.timer.Stop()
	}
	p := &pending{fn: fn}
	p.timer = time.AfterFunc(d.delay, func() {
		d.mu.Lock()
		if d.pending[key] == p {
			delete(d.pending, key)
		}
		d.mu.Unlock()
		fn()
	})
	d.pending[key] = p
}

// Flush runs the pending call for key immediately, if there is one.
func (d *Debouncer) Flush(key string) {
	d.mu.Lock()
	p, ok := d.pending[key]
	if ok && p.timer.Stop() {
		delete(d.pending, key)
	} else {
		ok = false
	}
	d.mu.Unlock()

	if ok {
		p.fn()
	}
}

// Stop cancels every pending call without running it.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	for key, p := range d.pending {
		p.timer.Stop()
		delete(d.pending, key)
	}
}
