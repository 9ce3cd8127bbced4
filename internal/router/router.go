// Package router switches the page between its full-page views.
//
// Exactly one registered view is active at a time (or none before the first
// activation). Activating a view also highlights its navigation group and
// resets the scroll position.
package router

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/BTreeMap/FarmGenius/internal/models"
)

// View is a full-page section that can be shown or hidden.
type View interface {
	Activate()
	Deactivate()
	Active() bool
}

// Section is the plain View used when a caller registers no handle of its own.
type Section struct {
	mu     sync.Mutex
	id     models.ViewID
	active bool
}

// NewSection creates a hidden section.
func NewSection(id models.ViewID) *Section {
	return &Section{id: id}
}

func (s *Section) Activate() {
	s.mu.Lock()
	s.active = true
	s.mu.Unlock()
}

func (s *Section) Deactivate() {
	s.mu.Lock()
	s.active = false
	s.mu.Unlock()
}

func (s *Section) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Transition describes a completed view switch.
type Transition struct {
	From     models.ViewID   `json:"from,omitempty"`
	To       models.ViewID   `json:"to"`
	NavGroup models.NavGroup `json:"nav_group,omitempty"`
	// ScrollTop is where the content area was scrolled to; always the top.
	ScrollTop int `json:"scroll_top"`
}

// Option configures a Router.
type Option func(*Router)

// WithOnChange registers a hook run after every successful activation.
// The hook runs without the router lock held.
func WithOnChange(fn func(Transition)) Option {
	return func(r *Router) {
		r.onChange = fn
	}
}

type entry struct {
	view  View
	group models.NavGroup
}

// Router owns the view registry and the navigation highlight.
type Router struct {
	mu          sync.Mutex
	views       map[models.ViewID]entry
	active      models.ViewID
	highlighted models.NavGroup
	hiddenNav   map[models.NavGroup]bool
	onChange    func(Transition)
}

// New creates a router with no views and nothing active.
func New(opts ...Option) *Router {
	r := &Router{
		views:     make(map[models.ViewID]entry),
		hiddenNav: make(map[models.NavGroup]bool),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a view bound to a navigation group (which may be empty).
// A nil view registers a plain Section. Re-registering an id replaces it.
func (r *Router) Register(id models.ViewID, v View, group models.NavGroup) View {
	if v == nil {
		v = NewSection(id)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.views[id] = entry{view: v, group: group}
	return v
}

// Activate shows id and hides every other view. Unknown ids leave the page
// unchanged and return a *models.NotFoundError.
func (r *Router) Activate(id models.ViewID) error {
	r.mu.Lock()
	target, ok := r.views[id]
	if !ok {
		r.mu.Unlock()
		slog.Warn("Router.Activate: unknown view", "view", id)
		return &models.NotFoundError{Kind: "view", ID: string(id)}
	}
	for other, e := range r.views {
		if other != id {
			e.view.Deactivate()
		}
	}
	target.view.Activate()
	from := r.active
	r.active = id
	r.highlighted = target.group
	hook := r.onChange
	r.mu.Unlock()

	slog.Debug("Router.Activate: view switched", "from", from, "to", id, "nav_group", target.group)
	if hook != nil {
		hook(Transition{From: from, To: id, NavGroup: target.group})
	}
	return nil
}

// Active returns the active view, or false before the first activation.
func (r *Router) Active() (models.ViewID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active, r.active != ""
}

// Highlighted returns the nav group of the active view.
func (r *Router) Highlighted() models.NavGroup {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.highlighted
}

// IsRegistered reports whether id can be activated.
func (r *Router) IsRegistered(id models.ViewID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.views[id]
	return ok
}

// SetNavVisible shows or hides the links of a navigation group.
func (r *Router) SetNavVisible(group models.NavGroup, visible bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if visible {
		delete(r.hiddenNav, group)
	} else {
		r.hiddenNav[group] = true
	}
}

// NavVisible reports whether a navigation group's links are shown.
func (r *Router) NavVisible(group models.NavGroup) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return !r.hiddenNav[group]
}

// Entries lists the registered views sorted by id.
func (r *Router) Entries() []models.NavEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.NavEntry, 0, len(r.views))
	for id, e := range r.views {
		out = append(out, models.NavEntry{ID: id, NavGroup: e.group})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
