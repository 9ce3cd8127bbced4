package app

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/BTreeMap/FarmGenius/internal/models"
	"github.com/BTreeMap/FarmGenius/internal/scheduler"
	"github.com/BTreeMap/FarmGenius/internal/util"
	"golang.org/x/sync/singleflight"
)

// evictEvery is how often idle pages are looked for.
const evictEvery = "@every 1m"

// Pages keeps one Page per browser client.
type Pages struct {
	deps  Deps
	cfg   Config
	sched *scheduler.Scheduler

	mu     sync.Mutex
	pages  map[string]*Page
	starts singleflight.Group
	closed bool
}

// NewPages creates the page registry and schedules news rotation and idle
// eviction.
func NewPages(deps Deps, opts ...Option) (*Pages, error) {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	ps := &Pages{
		deps:  deps,
		cfg:   cfg,
		sched: scheduler.NewScheduler(),
		pages: make(map[string]*Page),
	}
	if cfg.NewsInterval > 0 {
		if _, err := ps.sched.AddJob(fmt.Sprintf("@every %s", cfg.NewsInterval), ps.rotateNews); err != nil {
			ps.sched.Stop()
			return nil, fmt.Errorf("failed to schedule news rotation: %w", err)
		}
	}
	if cfg.IdleTTL > 0 {
		if _, err := ps.sched.AddJob(evictEvery, func() { ps.EvictIdle(context.Background(), time.Now()) }); err != nil {
			ps.sched.Stop()
			return nil, fmt.Errorf("failed to schedule idle eviction: %w", err)
		}
	}
	return ps, nil
}

// Deps returns the collaborators shared by every page.
func (ps *Pages) Deps() Deps { return ps.deps }

// Config returns the page configuration.
func (ps *Pages) Config() Config { return ps.cfg }

// Get returns the page of client id, creating and starting it on first use.
// An empty id allocates a new client. The bool reports whether the page was
// created by this call.
func (ps *Pages) Get(ctx context.Context, id string) (*Page, bool, error) {
	if id == "" {
		id = util.NewClientID()
	}
	if p, ok := ps.Lookup(id); ok {
		p.Touch()
		return p, false, nil
	}

	created := false
	v, err, _ := ps.starts.Do(id, func() (any, error) {
		if p, ok := ps.Lookup(id); ok {
			return p, nil
		}
		p := NewPage(id, ps.deps, ps.cfg)
		if err := p.Start(ctx); err != nil {
			p.Close(ctx)
			return nil, err
		}
		ps.mu.Lock()
		if ps.closed {
			ps.mu.Unlock()
			p.Close(ctx)
			return nil, models.ErrPageClosed
		}
		ps.pages[id] = p
		n := len(ps.pages)
		ps.mu.Unlock()
		created = true
		slog.Info("Pages.Get: page created", "client", id, "pages", n)
		return p, nil
	})
	if err != nil {
		return nil, false, err
	}
	return v.(*Page), created, nil
}

// Lookup returns an existing page.
func (ps *Pages) Lookup(id string) (*Page, bool) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	p, ok := ps.pages[id]
	return p, ok
}

// Len returns the number of live pages.
func (ps *Pages) Len() int {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	return len(ps.pages)
}

// IDs lists the live client ids.
func (ps *Pages) IDs() []string {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ids := make([]string, 0, len(ps.pages))
	for id := range ps.pages {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (ps *Pages) snapshot() []*Page {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	out := make([]*Page, 0, len(ps.pages))
	for _, p := range ps.pages {
		out = append(out, p)
	}
	return out
}

func (ps *Pages) rotateNews() {
	for _, p := range ps.snapshot() {
		p.NextNews()
	}
}

// EvictIdle closes pages untouched for longer than the idle TTL and
// returns how many were removed.
func (ps *Pages) EvictIdle(ctx context.Context, now time.Time) int {
	var idle []*Page
	ps.mu.Lock()
	for id, p := range ps.pages {
		if now.Sub(p.LastSeen()) > ps.cfg.IdleTTL {
			idle = append(idle, p)
			delete(ps.pages, id)
		}
	}
	ps.mu.Unlock()

	for _, p := range idle {
		p.Close(ctx)
	}
	if len(idle) > 0 {
		slog.Info("Pages.EvictIdle: evicted idle pages", "count", len(idle), "ttl", ps.cfg.IdleTTL)
	}
	return len(idle)
}

// Close stops the scheduled jobs and closes every page.
func (ps *Pages) Close(ctx context.Context) {
	ps.mu.Lock()
	if ps.closed {
		ps.mu.Unlock()
		return
	}
	ps.closed = true
	pages := ps.pages
	ps.pages = make(map[string]*Page)
	ps.mu.Unlock()

	ps.sched.Stop()
	var wg sync.WaitGroup
	for _, p := range pages {
		wg.Add(1)
		go func(p *Page) {
			defer wg.Done()
			p.Close(ctx)
		}(p)
	}
	wg.Wait()
	slog.Info("Pages.Close: closed", "pages", len(pages))
}
