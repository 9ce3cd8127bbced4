package router

import (
	"errors"
	"testing"

	"github.com/BTreeMap/FarmGenius/internal/models"
	"github.com/google/go-cmp/cmp"
)

func newTestRouter(opts ...Option) (*Router, map[models.ViewID]View) {
	r := New(opts...)
	views := map[models.ViewID]View{}
	for _, id := range []models.ViewID{models.ViewLogin, models.ViewDashboard, models.ViewMarketPrices, models.ViewPolicies} {
		group := models.NavGroup(id)
		if id == models.ViewLogin {
			group = ""
		}
		views[id] = r.Register(id, nil, group)
	}
	return r, views
}

func TestRouterStartsWithNothingActive(t *testing.T) {
	r, views := newTestRouter()
	if _, ok := r.Active(); ok {
		t.Error("expected no active view before first activation")
	}
	for id, v := range views {
		if v.Active() {
			t.Errorf("view %s active at start", id)
		}
	}
}

func TestActivateLeavesExactlyOneActive(t *testing.T) {
	r, views := newTestRouter()
	for target := range views {
		if err := r.Activate(target); err != nil {
			t.Fatalf("Activate(%s) failed: %v", target, err)
		}
		active := 0
		for id, v := range views {
			if v.Active() {
				active++
				if id != target {
					t.Errorf("after Activate(%s), %s is active", target, id)
				}
			}
		}
		if active != 1 {
			t.Errorf("after Activate(%s), %d views active", target, active)
		}
		if got, _ := r.Active(); got != target {
			t.Errorf("Active() = %s, want %s", got, target)
		}
	}
}

func TestActivateHighlightsNavGroup(t *testing.T) {
	r, _ := newTestRouter()
	_ = r.Activate(models.ViewMarketPrices)
	if got := r.Highlighted(); got != models.NavGroup(models.ViewMarketPrices) {
		t.Errorf("Highlighted() = %q", got)
	}
	_ = r.Activate(models.ViewLogin)
	if got := r.Highlighted(); got != "" {
		t.Errorf("login has no nav group, Highlighted() = %q", got)
	}
}

func TestActivateUnknownKeepsState(t *testing.T) {
	r, views := newTestRouter()
	_ = r.Activate(models.ViewDashboard)

	err := r.Activate("weather-radar")
	var nf *models.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
	if nf.ID != "weather-radar" || nf.Kind != "view" {
		t.Errorf("unexpected error fields: %+v", nf)
	}
	if got, _ := r.Active(); got != models.ViewDashboard {
		t.Errorf("active view changed to %s", got)
	}
	if !views[models.ViewDashboard].Active() {
		t.Error("dashboard was deactivated by a failed activation")
	}
}

func TestOnChangeReceivesTransition(t *testing.T) {
	var got []Transition
	r, _ := newTestRouter(WithOnChange(func(tr Transition) { got = append(got, tr) }))
	_ = r.Activate(models.ViewLogin)
	_ = r.Activate(models.ViewDashboard)
	_ = r.Activate("missing")

	want := []Transition{
		{To: models.ViewLogin},
		{From: models.ViewLogin, To: models.ViewDashboard, NavGroup: "dashboard"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("transitions mismatch (-want +got):\n%s", diff)
	}
}

func TestNavVisibility(t *testing.T) {
	r := New()
	if !r.NavVisible("dealer-profile") {
		t.Error("nav groups are visible by default")
	}
	r.SetNavVisible("dealer-profile", false)
	if r.NavVisible("dealer-profile") {
		t.Error("expected dealer-profile hidden")
	}
	r.SetNavVisible("dealer-profile", true)
	if !r.NavVisible("dealer-profile") {
		t.Error("expected dealer-profile visible again")
	}
}

func TestEntriesSorted(t *testing.T) {
	r, _ := newTestRouter()
	entries := r.Entries()
	if len(entries) != 4 {
		t.Fatalf("expected 4 entries, got %d", len(entries))
	}
	for i := 1; i < len(entries); i++ {
		if entries[i-1].ID >= entries[i].ID {
			t.Errorf("entries not sorted: %v", entries)
		}
	}
}

func TestModals(t *testing.T) {
	m := NewModals("forgot-password-modal", "terms-modal")
	if err := m.Show("forgot-password-modal"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var nf *models.NotFoundError
	if err := m.Show("nope"); !errors.As(err, &nf) {
		t.Errorf("expected NotFoundError, got %v", err)
	}
	if diff := cmp.Diff([]string{"forgot-password-modal"}, m.Open()); diff != "" {
		t.Errorf("open modals mismatch (-want +got):\n%s", diff)
	}
	m.HideAll()
	if len(m.Open()) != 0 {
		t.Errorf("expected no open modals, got %v", m.Open())
	}
}
