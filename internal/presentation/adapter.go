// Package presentation applies the user's display preferences to the page:
// the light/dark theme (including every live chart's palette) and the page
// language, direction and translation.
package presentation

import (
	"context"
	"log/slog"
	"sync"

	"github.com/BTreeMap/FarmGenius/internal/models"
	"github.com/BTreeMap/FarmGenius/internal/session"
	"github.com/BTreeMap/FarmGenius/internal/uibus"
)

// Publisher receives presentation changes. *uibus.Bus satisfies it.
type Publisher interface {
	Publish(t uibus.SignalType, payload any)
}

// ThemeState accompanies uibus.SignalTheme.
type ThemeState struct {
	DarkMode bool           `json:"dark_mode"`
	Palette  models.Palette `json:"palette"`
}

// LanguageChange describes the outcome of SetLanguage.
type LanguageChange struct {
	Language Language `json:"language"`
	Changed  bool     `json:"changed"`
	// Reload is set when the page must reload its content to switch.
	Reload bool `json:"reload"`
}

// Adapter owns the theme and language of one page.
type Adapter struct {
	prefs      *session.PreferenceStore
	registry   *Registry
	translator *Translator
	pub        Publisher

	// switchMu serializes language switches, which may poll for seconds.
	switchMu sync.Mutex

	mu     sync.Mutex
	dark   bool
	lang   Language
	charts []ChartWidget
}

// NewAdapter creates an adapter in the light theme and default language.
func NewAdapter(prefs *session.PreferenceStore, registry *Registry, translator *Translator, pub Publisher) *Adapter {
	return &Adapter{
		prefs:      prefs,
		registry:   registry,
		translator: translator,
		pub:        pub,
		lang:       registry.Default(),
	}
}

// Restore applies stored preferences without writing them back.
func (a *Adapter) Restore(p models.Preferences) {
	a.mu.Lock()
	a.dark = p.DarkMode
	if l, ok := a.registry.Lookup(p.Language); ok {
		a.lang = l
	}
	a.repaintLocked()
	a.mu.Unlock()
}

// RegisterChart adds a live chart and paints it with the current theme.
func (a *Adapter) RegisterChart(c ChartWidget) {
	a.mu.Lock()
	defer a.mu.Unlock()
	c.SetPalette(PaletteFor(a.dark))
	a.charts = append(a.charts, c)
}

// Charts returns the state of every registered chart.
func (a *Adapter) Charts() []ChartState {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]ChartState, len(a.charts))
	for i, c := range a.charts {
		out[i] = c.State()
	}
	return out
}

// SetDarkMode persists the theme and re-skins every chart.
func (a *Adapter) SetDarkMode(ctx context.Context, enabled bool) error {
	if err := a.prefs.SaveDarkMode(ctx, enabled); err != nil {
		return err
	}
	a.mu.Lock()
	a.dark = enabled
	a.repaintLocked()
	state := ThemeState{DarkMode: enabled, Palette: PaletteFor(enabled)}
	charts := len(a.charts)
	a.mu.Unlock()

	a.publish(uibus.SignalTheme, state)
	slog.Debug("Adapter.SetDarkMode", "enabled", enabled, "charts", charts)
	return nil
}

// ToggleDarkMode flips the theme and returns the new setting.
func (a *Adapter) ToggleDarkMode(ctx context.Context) (bool, error) {
	a.mu.Lock()
	next := !a.dark
	a.mu.Unlock()
	if err := a.SetDarkMode(ctx, next); err != nil {
		return !next, err
	}
	return next, nil
}

// DarkMode reports the current theme.
func (a *Adapter) DarkMode() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.dark
}

// Theme returns the current theme state.
func (a *Adapter) Theme() ThemeState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return ThemeState{DarkMode: a.dark, Palette: PaletteFor(a.dark)}
}

func (a *Adapter) repaintLocked() {
	p := PaletteFor(a.dark)
	for _, c := range a.charts {
		c.SetPalette(p)
	}
}

// Registry returns the languages the page offers.
func (a *Adapter) Registry() *Registry { return a.registry }

// Language returns the current page language.
func (a *Adapter) Language() Language {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lang
}

// SetLanguage switches the page language. Switching to or from the default
// language persists the choice and asks for a content reload. Switching
// between two other languages drives the translation widget first and
// persists only once it has applied; if the widget never responds the
// previous language stays and a *models.ExternalServiceTimeout is returned.
func (a *Adapter) SetLanguage(ctx context.Context, code models.LanguageCode) (LanguageChange, error) {
	target, ok := a.registry.Lookup(code)
	if !ok {
		slog.Warn("Adapter.SetLanguage: unsupported language", "code", code)
		return LanguageChange{}, &models.ValidationError{Kind: models.InvalidValue, Field: "language", Message: "Please select a supported language"}
	}

	a.switchMu.Lock()
	defer a.switchMu.Unlock()

	current := a.Language()
	if current.Code == target.Code {
		return LanguageChange{Language: current}, nil
	}

	def := a.registry.Default().Code
	reload := current.Code == def || target.Code == def
	if !reload {
		if _, err := a.translator.Apply(ctx, target.Code); err != nil {
			return LanguageChange{Language: current}, err
		}
	}
	if err := a.prefs.SaveLanguage(ctx, target.Code); err != nil {
		return LanguageChange{Language: current}, err
	}

	a.mu.Lock()
	a.lang = target
	a.mu.Unlock()

	a.publish(uibus.SignalLanguage, target)
	if reload {
		a.publish(uibus.SignalReload, target)
	}
	slog.Info("Adapter.SetLanguage: language changed", "from", current.Code, "to", target.Code, "reload", reload)
	return LanguageChange{Language: target, Changed: true, Reload: reload}, nil
}

func (a *Adapter) publish(t uibus.SignalType, payload any) {
	if a.pub != nil {
		a.pub.Publish(t, payload)
	}
}
