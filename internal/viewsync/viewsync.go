package viewsync

import (
	"context"
	"sync"
	"time"

	"github.com/nap4595/CustomPlaceDB/internal/storage"
	"github.com/nap4595/CustomPlaceDB/pkg/logger"
)

// DefaultSelfUpdateWindow is how long after a local write an incoming
// change notification is treated as our own echo.
const DefaultSelfUpdateWindow = 100 * time.Millisecond

// Applier receives documents written by other views.
type Applier interface {
	ApplyExternal(data []byte) error
}

type Option func(*Coordinator)

// WithSelfUpdateWindow overrides the echo-suppression window.
func WithSelfUpdateWindow(d time.Duration) Option {
	return func(c *Coordinator) {
		c.window = d
	}
}

// WithRefresh installs fn to run after an external change has been
// applied, typically a UI re-render.
func WithRefresh(fn func()) Option {
	return func(c *Coordinator) {
		c.onRefresh = fn
	}
}

// Coordinator keeps one view's in-memory state in step with writes made
// by other views against the shared backend. Every local persist calls
// MarkSelfUpdate; change notifications arriving inside the window are
// the echo of that write and get dropped, everything else is applied
// and surfaced through the refresh callback.
type Coordinator struct {
	backend   storage.Store
	target    Applier
	window    time.Duration
	onRefresh func()

	mu       sync.Mutex
	lastSelf time.Time
}

func New(backend storage.Store, target Applier, opts ...Option) *Coordinator {
	c := &Coordinator{
		backend: backend,
		target:  target,
		window:  DefaultSelfUpdateWindow,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// MarkSelfUpdate records that a local write is in flight.
func (c *Coordinator) MarkSelfUpdate() {
	c.mu.Lock()
	c.lastSelf = time.Now()
	c.mu.Unlock()
}

func (c *Coordinator) isSelfEcho() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.lastSelf.IsZero() && time.Since(c.lastSelf) <= c.window
}

// Run watches the shared document until the context ends. It returns
// the Watch error, or nil once the channel closes.
func (c *Coordinator) Run(ctx context.Context) error {
	ch, err := c.backend.Watch(ctx, storage.KeyData)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case data, ok := <-ch:
			if !ok {
				return nil
			}
			if c.isSelfEcho() {
				continue
			}
			if err := c.target.ApplyExternal(data); err != nil {
				logger.Log.Error().Err(err).Msg("apply external change failed")
				continue
			}
			if c.onRefresh != nil {
				c.onRefresh()
			}
		}
	}
}
