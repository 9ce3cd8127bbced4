package session

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/BTreeMap/FarmGenius/internal/models"
	"github.com/BTreeMap/FarmGenius/internal/store"
)

// DefaultLanguage is the fallback when a store is created without a default.
const DefaultLanguage models.LanguageCode = "en"

// PreferenceStore persists the theme and language preferences. They survive
// logout.
type PreferenceStore struct {
	ls        *store.LocalStorage
	def       models.LanguageCode
	supported func(models.LanguageCode) bool
}

// NewPreferenceStore creates a preference store. def is the language used
// when nothing valid is stored (empty means DefaultLanguage). supported
// decides which stored codes are honoured; nil accepts only def.
func NewPreferenceStore(ls *store.LocalStorage, def models.LanguageCode, supported func(models.LanguageCode) bool) *PreferenceStore {
	if def == "" {
		def = DefaultLanguage
	}
	if supported == nil {
		supported = func(c models.LanguageCode) bool { return c == def }
	}
	return &PreferenceStore{ls: ls, def: def, supported: supported}
}

// Default returns the language used when nothing valid is stored.
func (p *PreferenceStore) Default() models.LanguageCode { return p.def }

// Load returns the stored preferences with defaults for anything absent or invalid.
func (p *PreferenceStore) Load(ctx context.Context) (models.Preferences, error) {
	prefs := models.Preferences{Language: p.def}

	dark, ok, err := p.ls.GetItem(ctx, KeyDarkMode)
	if err != nil {
		return prefs, fmt.Errorf("failed to read dark mode: %w", err)
	}
	prefs.DarkMode = ok && dark == "true"

	lang, ok, err := p.ls.GetItem(ctx, KeyLanguage)
	if err != nil {
		return prefs, fmt.Errorf("failed to read language: %w", err)
	}
	if ok {
		if code := models.LanguageCode(lang); p.supported(code) {
			prefs.Language = code
		} else {
			slog.Warn("PreferenceStore.Load: unsupported stored language, using default", "stored", lang, "default", p.def)
		}
	}
	return prefs, nil
}

// SaveDarkMode stores the theme flag as "true" or "false".
func (p *PreferenceStore) SaveDarkMode(ctx context.Context, enabled bool) error {
	if err := p.ls.SetItem(ctx, KeyDarkMode, strconv.FormatBool(enabled)); err != nil {
		return fmt.Errorf("failed to persist dark mode: %w", err)
	}
	return nil
}

// SaveLanguage stores a supported language code.
func (p *PreferenceStore) SaveLanguage(ctx context.Context, code models.LanguageCode) error {
	if !p.supported(code) {
		return &models.ValidationError{Kind: models.InvalidValue, Field: "language", Message: fmt.Sprintf("Unsupported language %q", code)}
	}
	if err := p.ls.SetItem(ctx, KeyLanguage, string(code)); err != nil {
		return fmt.Errorf("failed to persist language: %w", err)
	}
	return nil
}
