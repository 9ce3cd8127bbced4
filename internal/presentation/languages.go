package presentation

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/BTreeMap/FarmGenius/internal/models"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// DefaultLanguageCodes are the languages offered by the page, default first.
var DefaultLanguageCodes = []models.LanguageCode{"en", "hi", "pa", "mr", "ta", "te", "bn", "gu", "ur"}

// Language is one entry of the language picker.
type Language struct {
	Code      models.LanguageCode `json:"code"`
	Name      string              `json:"name"`
	Label     string              `json:"label"`
	Direction models.Direction    `json:"direction"`
}

// Registry is the fixed set of supported languages. The first is the default.
type Registry struct {
	langs []Language
	index map[models.LanguageCode]int
}

// ParseCodes checks that every code is a BCP 47 tag and returns them in order.
func ParseCodes(codes []string) ([]models.LanguageCode, error) {
	out := make([]models.LanguageCode, 0, len(codes))
	for _, c := range codes {
		c = strings.TrimSpace(c)
		if _, err := language.Parse(c); err != nil {
			return nil, fmt.Errorf("invalid language code %q: %w", c, err)
		}
		out = append(out, models.LanguageCode(c))
	}
	return out, nil
}

// NewRegistry builds a registry; with no codes it uses DefaultLanguageCodes.
// Codes that do not parse as BCP 47 are skipped, and if none is left the
// registry falls back to DefaultLanguageCodes.
func NewRegistry(codes ...models.LanguageCode) *Registry {
	if len(codes) == 0 {
		codes = DefaultLanguageCodes
	}
	r := buildRegistry(codes)
	if len(r.langs) == 0 {
		slog.Warn("NewRegistry: no valid language codes, using defaults", "codes", codes)
		r = buildRegistry(DefaultLanguageCodes)
	}
	return r
}

func buildRegistry(codes []models.LanguageCode) *Registry {
	r := &Registry{index: make(map[models.LanguageCode]int)}
	for _, code := range codes {
		tag, err := language.Parse(string(code))
		if err != nil {
			slog.Warn("NewRegistry: skipping invalid language code", "code", code, "error", err)
			continue
		}
		if _, dup := r.index[code]; dup {
			continue
		}
		r.index[code] = len(r.langs)
		r.langs = append(r.langs, Language{
			Code:      code,
			Name:      display.English.Languages().Name(tag),
			Label:     display.Self.Name(tag),
			Direction: directionOf(tag),
		})
	}
	return r
}

// directionOf derives text direction from the language's likely script.
func directionOf(tag language.Tag) models.Direction {
	script, _ := tag.Script()
	switch script.String() {
	case "Arab", "Hebr", "Syrc", "Thaa", "Nkoo", "Adlm", "Rohg":
		return models.DirectionRTL
	}
	return models.DirectionLTR
}

// Default returns the default language.
func (r *Registry) Default() Language {
	return r.langs[0]
}

// Lookup finds a language by code.
func (r *Registry) Lookup(code models.LanguageCode) (Language, bool) {
	i, ok := r.index[code]
	if !ok {
		return Language{}, false
	}
	return r.langs[i], true
}

// Supported reports whether code is in the registry.
func (r *Registry) Supported(code models.LanguageCode) bool {
	_, ok := r.index[code]
	return ok
}

// Languages lists every language in registry order.
func (r *Registry) Languages() []Language {
	return append([]Language(nil), r.langs...)
}

// Codes lists every language code in registry order.
func (r *Registry) Codes() []models.LanguageCode {
	out := make([]models.LanguageCode, len(r.langs))
	for i, l := range r.langs {
		out[i] = l.Code
	}
	return out
}
