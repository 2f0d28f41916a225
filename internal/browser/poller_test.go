package browser

import (
	"context"
	"sync"
	"testing"
	"time"
)

type scriptedTab struct {
	mu  sync.Mutex
	url string
}

func (s *scriptedTab) set(url string) {
	s.mu.Lock()
	s.url = url
	s.mu.Unlock()
}

func (s *scriptedTab) location(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.url, nil
}

func TestPollerDetectsChange(t *testing.T) {
	tab := &scriptedTab{url: "https://map.naver.com/v5/entry/place/1"}

	type change struct{ old, new string }
	changes := make(chan change, 4)

	p := NewPoller(10*time.Millisecond, tab.location, func(oldURL, newURL string) {
		changes <- change{oldURL, newURL}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	time.Sleep(30 * time.Millisecond)
	tab.set("https://map.naver.com/v5/entry/place/2")

	select {
	case c := <-changes:
		if c.old != "https://map.naver.com/v5/entry/place/1" || c.new != "https://map.naver.com/v5/entry/place/2" {
			t.Errorf("change = %+v", c)
		}
	case <-time.After(time.Second):
		t.Fatal("change never reported")
	}
}

func TestPollerIgnoresStableURL(t *testing.T) {
	tab := &scriptedTab{url: "https://map.naver.com/v5/entry/place/1"}

	changes := make(chan struct{}, 4)
	p := NewPoller(10*time.Millisecond, tab.location, func(oldURL, newURL string) {
		changes <- struct{}{}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	select {
	case <-changes:
		t.Error("unexpected change on a stable URL")
	case <-time.After(80 * time.Millisecond):
	}
}

func TestPollerStopsOnCancel(t *testing.T) {
	tab := &scriptedTab{url: "x"}
	p := NewPoller(10*time.Millisecond, tab.location, func(oldURL, newURL string) {})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poller did not stop")
	}
}
