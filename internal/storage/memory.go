package storage

import (
	"context"
	"sync"
)

// Memory is an in-process Store. Watchers in the same process observe
// every Set, which is enough to exercise the cross-view sync path in
// tests and single-binary runs.
type Memory struct {
	mu       sync.Mutex
	data     map[string][]byte
	watchers map[string][]chan []byte
	closed   bool
}

func NewMemory() *Memory {
	return &Memory{
		data:     make(map[string][]byte),
		watchers: make(map[string][]chan []byte),
	}
}

func (m *Memory) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	value, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

func (m *Memory) Set(ctx context.Context, key string, value []byte) error {
	stored := make([]byte, len(value))
	copy(stored, value)

	m.mu.Lock()
	m.data[key] = stored
	watchers := make([]chan []byte, len(m.watchers[key]))
	copy(watchers, m.watchers[key])
	m.mu.Unlock()

	for _, ch := range watchers {
		notify := make([]byte, len(stored))
		copy(notify, stored)
		// A watcher that stopped draining loses updates rather than
		// blocking the writer.
		select {
		case ch <- notify:
		default:
		}
	}
	return nil
}

func (m *Memory) Watch(ctx context.Context, key string) (<-chan []byte, error) {
	ch := make(chan []byte, 16)

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		close(ch)
		return ch, nil
	}
	m.watchers[key] = append(m.watchers[key], ch)
	m.mu.Unlock()

	go func() {
		<-ctx.Done()
		m.removeWatcher(key, ch)
	}()

	return ch, nil
}

func (m *Memory) removeWatcher(key string, ch chan []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()

	watchers := m.watchers[key]
	for i, w := range watchers {
		if w == ch {
			m.watchers[key] = append(watchers[:i], watchers[i+1:]...)
			close(ch)
			return
		}
	}
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true
	for key, watchers := range m.watchers {
		for _, ch := range watchers {
			close(ch)
		}
		delete(m.watchers, key)
	}
	return nil
}
