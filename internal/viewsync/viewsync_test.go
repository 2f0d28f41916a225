package viewsync

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nap4595/CustomPlaceDB/internal/storage"
	"github.com/nap4595/CustomPlaceDB/internal/store"
)

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition never met")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// Two views share one backend. A write in view A must reach view B and
// must not bounce back into A.
func TestCrossViewSync(t *testing.T) {
	backend := storage.NewMemory()
	defer backend.Close()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var refreshA, refreshB int32

	var coordA, coordB *Coordinator
	storeA := store.New(backend, store.WithPersistHook(func() { coordA.MarkSelfUpdate() }))
	storeB := store.New(backend, store.WithPersistHook(func() { coordB.MarkSelfUpdate() }))

	coordA = New(backend, storeA, WithRefresh(func() { atomic.AddInt32(&refreshA, 1) }))
	coordB = New(backend, storeB, WithRefresh(func() { atomic.AddInt32(&refreshB, 1) }))

	go coordA.Run(ctx)
	go coordB.Run(ctx)
	time.Sleep(20 * time.Millisecond)

	listID, err := storeA.AddList(ctx, "공유목록")
	if err != nil {
		t.Fatalf("addList: %v", err)
	}

	// View B picks up the change.
	waitFor(t, time.Second, func() bool {
		_, ok := storeB.Lists().Get(listID)
		return ok
	})
	if atomic.LoadInt32(&refreshB) == 0 {
		t.Error("view B should have refreshed")
	}

	// View A discards its own echo.
	time.Sleep(150 * time.Millisecond)
	if got := atomic.LoadInt32(&refreshA); got != 0 {
		t.Errorf("view A refreshed %d times on its own write", got)
	}
}

// A change landing after the self-update window expires is external
// even if this view wrote recently.
func TestSelfUpdateWindowExpires(t *testing.T) {
	backend := storage.NewMemory()
	defer backend.Close()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var refreshed int32
	s := store.New(backend)
	c := New(backend, s,
		WithSelfUpdateWindow(30*time.Millisecond),
		WithRefresh(func() { atomic.AddInt32(&refreshed, 1) }))

	go c.Run(ctx)
	time.Sleep(20 * time.Millisecond)

	c.MarkSelfUpdate()
	time.Sleep(60 * time.Millisecond)

	// Simulate another view writing directly to the backend.
	if err := backend.Set(ctx, storage.KeyData, []byte(`{}`)); err != nil {
		t.Fatalf("set: %v", err)
	}

	waitFor(t, time.Second, func() bool {
		return atomic.LoadInt32(&refreshed) == 1
	})
}

func TestRunStopsOnCancel(t *testing.T) {
	backend := storage.NewMemory()
	defer backend.Close()
	ctx, cancel := context.WithCancel(context.Background())

	s := store.New(backend)
	c := New(backend, s)

	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("run returned %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("run did not stop after cancel")
	}
}
