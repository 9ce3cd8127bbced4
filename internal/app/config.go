package app

import (
	"time"

	"github.com/BTreeMap/FarmGenius/internal/backend"
	"github.com/BTreeMap/FarmGenius/internal/chat"
	"github.com/BTreeMap/FarmGenius/internal/models"
	"github.com/BTreeMap/FarmGenius/internal/presentation"
	"github.com/BTreeMap/FarmGenius/internal/responder"
	"github.com/BTreeMap/FarmGenius/internal/store"
	"github.com/BTreeMap/FarmGenius/internal/uibus"
)

// Simulated action durations.
const (
	LoginDelay          = 1500 * time.Millisecond
	RegisterDelay       = 1500 * time.Millisecond
	AnalyzeDelay        = 2000 * time.Millisecond
	PredictYieldDelay   = 2000 * time.Millisecond
	RefreshMarketDelay  = 1200 * time.Millisecond
	FilterDelay         = 800 * time.Millisecond
	DefaultWelcomeDelay = 3 * time.Second
	DefaultNewsInterval = 5 * time.Second
	DefaultIdleTTL      = 30 * time.Minute
)

// Deps are the collaborators shared by every page.
type Deps struct {
	Store      store.Store
	Auth       backend.AuthBackend
	Market     backend.MarketDataSource
	Classifier backend.DiseaseClassifier
	Predictor  backend.YieldPredictor
	Policies   backend.PolicyCatalog
	Weather    backend.WeatherSource
	News       backend.NewsFeed
	Responder  *responder.Responder
	// Completer optionally answers chat messages no rule matches.
	Completer chat.Completer
	// Widget creates the translation widget of a new page offering codes.
	Widget func(codes ...models.LanguageCode) backend.TranslationWidget
}

// SimulatedDeps wires every collaborator to one in-memory backend.
func SimulatedDeps(st store.Store) Deps {
	sim := backend.NewSimulated()
	return Deps{
		Store:      st,
		Auth:       sim,
		Market:     sim,
		Classifier: sim,
		Predictor:  sim,
		Policies:   sim,
		Weather:    sim,
		News:       sim,
		Responder:  responder.New(nil),
		Widget: func(codes ...models.LanguageCode) backend.TranslationWidget {
			return backend.NewSimulatedWidget(2, codes...)
		},
	}
}

// Config tunes page timing.
type Config struct {
	ToastDuration     time.Duration
	ThinkingDelay     time.Duration
	WelcomeDelay      time.Duration
	DelayScale        float64
	TranslateAttempts int
	TranslateInterval time.Duration
	Languages         []string
	NewsInterval      time.Duration
	IdleTTL           time.Duration
}

// DefaultConfig returns the timings of the live page.
func DefaultConfig() Config {
	return Config{
		ToastDuration:     uibus.DefaultToastDuration,
		ThinkingDelay:     chat.DefaultThinkingDelay,
		WelcomeDelay:      DefaultWelcomeDelay,
		DelayScale:        1,
		TranslateAttempts: presentation.DefaultTranslateAttempts,
		TranslateInterval: presentation.DefaultTranslateInterval,
		NewsInterval:      DefaultNewsInterval,
		IdleTTL:           DefaultIdleTTL,
	}
}

// Option configures pages.
type Option func(*Config)

// WithToastDuration sets how long toasts stay up.
func WithToastDuration(d time.Duration) Option {
	return func(c *Config) { c.ToastDuration = d }
}

// WithThinkingDelay sets the assistant's pause before answering.
func WithThinkingDelay(d time.Duration) Option {
	return func(c *Config) { c.ThinkingDelay = d }
}

// WithWelcomeDelay sets when the welcome toast appears; 0 disables it.
func WithWelcomeDelay(d time.Duration) Option {
	return func(c *Config) { c.WelcomeDelay = d }
}

// WithDelayScale multiplies every simulated action duration.
func WithDelayScale(f float64) Option {
	return func(c *Config) { c.DelayScale = f }
}

// WithTranslateRetry sets the translation widget polling limits.
func WithTranslateRetry(attempts int, interval time.Duration) Option {
	return func(c *Config) {
		c.TranslateAttempts = attempts
		c.TranslateInterval = interval
	}
}

// WithLanguages restricts the language picker, default first.
func WithLanguages(codes ...string) Option {
	return func(c *Config) { c.Languages = codes }
}

// WithNewsInterval sets the news carousel rotation period.
func WithNewsInterval(d time.Duration) Option {
	return func(c *Config) { c.NewsInterval = d }
}

// WithIdleTTL sets how long an untouched page is kept.
func WithIdleTTL(d time.Duration) Option {
	return func(c *Config) { c.IdleTTL = d }
}
