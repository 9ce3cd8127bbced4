package router

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/BTreeMap/FarmGenius/internal/models"
)

// Modals tracks which dialogs are open over the page.
type Modals struct {
	mu    sync.Mutex
	known map[string]bool
	open  map[string]bool
}

// NewModals creates a modal set that accepts the given ids.
func NewModals(ids ...string) *Modals {
	m := &Modals{known: make(map[string]bool), open: make(map[string]bool)}
	for _, id := range ids {
		m.known[id] = true
	}
	return m
}

// Show opens a modal. Unknown ids return a *models.NotFoundError.
func (m *Modals) Show(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.known[id] {
		slog.Warn("Modals.Show: unknown modal", "modal", id)
		return &models.NotFoundError{Kind: "modal", ID: id}
	}
	m.open[id] = true
	return nil
}

// HideAll closes every open modal.
func (m *Modals) HideAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	clear(m.open)
}

// Open lists the open modals sorted by id.
func (m *Modals) Open() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.open))
	for id := range m.open {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
