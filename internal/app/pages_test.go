package app

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestPagesGetReusesClient(t *testing.T) {
	ps := newTestPages(t, nil)
	ctx := context.Background()

	p1, created, err := ps.Get(ctx, "abc")
	if err != nil || !created {
		t.Fatalf("first Get: created=%v err=%v", created, err)
	}
	p2, created, err := ps.Get(ctx, "abc")
	if err != nil || created {
		t.Fatalf("second Get: created=%v err=%v", created, err)
	}
	if p1 != p2 {
		t.Error("expected the same page for the same client")
	}
	fresh, _, err := ps.Get(ctx, "")
	if err != nil || fresh.ID() == "" || fresh.ID() == "abc" {
		t.Errorf("expected a new client id, got %q err=%v", fresh.ID(), err)
	}
	if ps.Len() != 2 {
		t.Errorf("Len = %d, want 2", ps.Len())
	}
}

func TestPagesConcurrentGetCreatesOnce(t *testing.T) {
	ps := newTestPages(t, nil)
	var wg sync.WaitGroup
	pages := make([]*Page, 20)
	for i := range pages {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p, _, err := ps.Get(context.Background(), "shared")
			if err != nil {
				t.Errorf("Get failed: %v", err)
				return
			}
			pages[i] = p
		}(i)
	}
	wg.Wait()
	for _, p := range pages[1:] {
		if p != pages[0] {
			t.Fatal("concurrent Get created more than one page")
		}
	}
	if ps.Len() != 1 {
		t.Errorf("Len = %d, want 1", ps.Len())
	}
}

func TestEvictIdle(t *testing.T) {
	ps := newTestPages(t, nil, WithIdleTTL(time.Minute))
	ctx := context.Background()
	old, _, _ := ps.Get(ctx, "old")
	_, _, _ = ps.Get(ctx, "new")

	if n := ps.EvictIdle(ctx, time.Now()); n != 0 {
		t.Fatalf("evicted %d fresh pages", n)
	}
	old.mu.Lock()
	old.lastSeen = time.Now().Add(-2 * time.Minute)
	old.mu.Unlock()

	if n := ps.EvictIdle(ctx, time.Now()); n != 1 {
		t.Fatalf("evicted %d, want 1", n)
	}
	if _, ok := ps.Lookup("old"); ok {
		t.Error("idle page still registered")
	}
	if got := ps.IDs(); len(got) != 1 || got[0] != "new" {
		t.Errorf("IDs = %v", got)
	}
}

func TestNewsRotationJob(t *testing.T) {
	ps := newTestPages(t, nil, WithNewsInterval(time.Second))
	p, _, err := ps.Get(context.Background(), "news")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if p.Snapshot().NewsIndex != 0 {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Error("news carousel never rotated")
}

func TestGetAfterCloseFails(t *testing.T) {
	ps := newTestPages(t, nil)
	ps.Close(context.Background())
	if _, _, err := ps.Get(context.Background(), "late"); err == nil {
		t.Error("expected error after Close")
	}
}
