package presentation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/BTreeMap/FarmGenius/internal/backend"
	"github.com/BTreeMap/FarmGenius/internal/models"
	"github.com/BTreeMap/FarmGenius/internal/session"
	"github.com/BTreeMap/FarmGenius/internal/store"
	"github.com/BTreeMap/FarmGenius/internal/uibus"
	"github.com/google/go-cmp/cmp"
)

type signalLog struct{ types []uibus.SignalType }

func (s *signalLog) Publish(t uibus.SignalType, _ any) { s.types = append(s.types, t) }

func newTestAdapter(t *testing.T, widget backend.TranslationWidget) (*Adapter, *store.LocalStorage, *signalLog) {
	t.Helper()
	reg := NewRegistry()
	ls := store.NewLocalStorage(store.NewInMemoryStore(), "client")
	prefs := session.NewPreferenceStore(ls, reg.Default().Code, reg.Supported)
	tr := NewTranslator(widget, WithInterval(time.Millisecond))
	log := &signalLog{}
	return NewAdapter(prefs, reg, tr, log), ls, log
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	if reg.Default().Code != "en" {
		t.Errorf("default language = %s, want en", reg.Default().Code)
	}
	hi, ok := reg.Lookup("hi")
	if !ok || hi.Name != "Hindi" || hi.Label != "हिन्दी" || hi.Direction != models.DirectionLTR {
		t.Errorf("unexpected Hindi entry %+v", hi)
	}
	ur, _ := reg.Lookup("ur")
	if ur.Direction != models.DirectionRTL {
		t.Errorf("Urdu should be right-to-left, got %s", ur.Direction)
	}
	if reg.Supported("fr") {
		t.Error("fr is not offered")
	}
	if got := len(reg.Codes()); got != len(DefaultLanguageCodes) {
		t.Errorf("expected %d codes, got %d", len(DefaultLanguageCodes), got)
	}
}

func TestRegistryFallsBackWhenNoCodeIsValid(t *testing.T) {
	reg := NewRegistry("not a code!", "???")
	if reg.Default().Code != "en" {
		t.Errorf("default language = %s, want en", reg.Default().Code)
	}
	if got := len(reg.Codes()); got != len(DefaultLanguageCodes) {
		t.Errorf("expected fallback to %d default codes, got %d", len(DefaultLanguageCodes), got)
	}

	mixed := NewRegistry("hi", "not a code!", "fr")
	if diff := cmp.Diff([]models.LanguageCode{"hi", "fr"}, mixed.Codes()); diff != "" {
		t.Errorf("codes mismatch (-want +got):\n%s", diff)
	}
}

func TestParseCodes(t *testing.T) {
	codes, err := ParseCodes([]string{"hi", " en ", "fr"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff([]models.LanguageCode{"hi", "en", "fr"}, codes); diff != "" {
		t.Errorf("codes mismatch (-want +got):\n%s", diff)
	}
	if _, err := ParseCodes([]string{"en", "not a code!"}); err == nil {
		t.Error("expected error for invalid code")
	}
}

func TestSetDarkModePersistsAndRepaints(t *testing.T) {
	ctx := context.Background()
	a, ls, _ := newTestAdapter(t, backend.NewSimulatedWidget(0))
	trend, comparison := NewChart("price-chart"), NewChart("comparison-chart")
	a.RegisterChart(trend)
	a.RegisterChart(comparison)

	if err := a.SetDarkMode(ctx, true); err != nil {
		t.Fatalf("SetDarkMode failed: %v", err)
	}
	if v, _, _ := ls.GetItem(ctx, session.KeyDarkMode); v != "true" {
		t.Errorf("stored darkMode = %q, want true", v)
	}
	for _, c := range a.Charts() {
		if c.Palette != DarkPalette {
			t.Errorf("chart %s palette = %+v, want dark", c.ID, c.Palette)
		}
	}
}

func TestToggleTwiceRestoresPalette(t *testing.T) {
	ctx := context.Background()
	a, ls, _ := newTestAdapter(t, backend.NewSimulatedWidget(0))
	c := NewChart("price-chart")
	a.RegisterChart(c)
	before := c.State().Palette

	if on, _ := a.ToggleDarkMode(ctx); !on {
		t.Fatal("first toggle should enable dark mode")
	}
	if on, _ := a.ToggleDarkMode(ctx); on {
		t.Fatal("second toggle should disable dark mode")
	}
	if c.State().Palette != before {
		t.Errorf("palette = %+v, want %+v", c.State().Palette, before)
	}
	if v, _, _ := ls.GetItem(ctx, session.KeyDarkMode); v != "false" {
		t.Errorf("stored darkMode = %q, want false", v)
	}
}

func TestRegisterChartUsesCurrentTheme(t *testing.T) {
	a, _, _ := newTestAdapter(t, backend.NewSimulatedWidget(0))
	a.Restore(models.Preferences{DarkMode: true, Language: "en"})
	c := NewChart("late")
	a.RegisterChart(c)
	if c.State().Palette != DarkPalette {
		t.Error("chart registered in dark mode should start dark")
	}
}

func TestSetLanguageToAndFromDefaultReloads(t *testing.T) {
	ctx := context.Background()
	widget := backend.NewSimulatedWidget(-1)
	a, ls, log := newTestAdapter(t, widget)

	change, err := a.SetLanguage(ctx, "hi")
	if err != nil {
		t.Fatalf("SetLanguage(hi) failed: %v", err)
	}
	if !change.Changed || !change.Reload || change.Language.Code != "hi" {
		t.Errorf("unexpected change %+v", change)
	}
	if widget.Polls() != 0 {
		t.Error("switching from the default language must not use the widget")
	}
	if v, _, _ := ls.GetItem(ctx, session.KeyLanguage); v != "hi" {
		t.Errorf("stored language = %q", v)
	}

	change, err = a.SetLanguage(ctx, "en")
	if err != nil || !change.Reload {
		t.Errorf("back to default should reload, got %+v err=%v", change, err)
	}
	last := log.types[len(log.types)-1]
	if last != uibus.SignalReload {
		t.Errorf("expected a reload signal last, got %s", last)
	}
}

func TestSetLanguageBetweenNonDefaultUsesWidget(t *testing.T) {
	ctx := context.Background()
	widget := backend.NewSimulatedWidget(3, "hi", "ta")
	a, ls, _ := newTestAdapter(t, widget)
	a.Restore(models.Preferences{Language: "hi"})

	change, err := a.SetLanguage(ctx, "ta")
	if err != nil {
		t.Fatalf("SetLanguage(ta) failed: %v", err)
	}
	if change.Reload || !change.Changed {
		t.Errorf("unexpected change %+v", change)
	}
	if widget.Selected() != "ta" || widget.Polls() != 4 {
		t.Errorf("widget selected=%q polls=%d, want ta after 4 polls", widget.Selected(), widget.Polls())
	}
	if v, _, _ := ls.GetItem(ctx, session.KeyLanguage); v != "ta" {
		t.Errorf("stored language = %q", v)
	}
}

func TestSetLanguageTimeoutKeepsPrevious(t *testing.T) {
	ctx := context.Background()
	widget := backend.NewSimulatedWidget(-1, "ta")
	a, ls, _ := newTestAdapter(t, widget)
	a.Restore(models.Preferences{Language: "hi"})
	_ = ls.SetItem(ctx, session.KeyLanguage, "hi")

	_, err := a.SetLanguage(ctx, "ta")
	var timeout *models.ExternalServiceTimeout
	if !errors.As(err, &timeout) {
		t.Fatalf("expected ExternalServiceTimeout, got %v", err)
	}
	if timeout.Attempts != DefaultTranslateAttempts {
		t.Errorf("attempts = %d, want %d", timeout.Attempts, DefaultTranslateAttempts)
	}
	if a.Language().Code != "hi" {
		t.Errorf("language changed to %s after timeout", a.Language().Code)
	}
	if v, _, _ := ls.GetItem(ctx, session.KeyLanguage); v != "hi" {
		t.Errorf("stored language changed to %q", v)
	}
}

func TestSetLanguageRejectsUnknownAndIgnoresSame(t *testing.T) {
	ctx := context.Background()
	a, ls, log := newTestAdapter(t, backend.NewSimulatedWidget(0))

	if _, err := a.SetLanguage(ctx, "fr"); err == nil {
		t.Error("expected validation error for fr")
	}
	change, err := a.SetLanguage(ctx, "en")
	if err != nil || change.Changed {
		t.Errorf("same language should be a no-op, got %+v err=%v", change, err)
	}
	if snap, _ := ls.Snapshot(ctx); len(snap) != 0 {
		t.Errorf("storage written: %v", snap)
	}
	if len(log.types) != 0 {
		t.Errorf("unexpected signals %v", log.types)
	}
}

func TestTranslatorSelectErrorIsNotRetried(t *testing.T) {
	ctx := context.Background()
	w := &brokenWidget{}
	tr := NewTranslator(w, WithInterval(time.Millisecond))
	outcome, err := tr.Apply(ctx, "ta")
	if outcome != TimedOut || err == nil {
		t.Fatalf("expected failure, got %s %v", outcome, err)
	}
	if w.polls != 1 {
		t.Errorf("permanent select error should stop polling, polled %d times", w.polls)
	}
}

type brokenWidget struct{ polls int }

func (b *brokenWidget) MenuOptions(context.Context) ([]models.LanguageCode, error) {
	b.polls++
	return []models.LanguageCode{"ta"}, nil
}

func (b *brokenWidget) Select(context.Context, models.LanguageCode) error {
	return errors.New("option not clickable")
}
