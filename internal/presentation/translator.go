package presentation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/BTreeMap/FarmGenius/internal/backend"
	"github.com/BTreeMap/FarmGenius/internal/models"
	"github.com/cenkalti/backoff/v5"
)

// Translation widget polling limits.
const (
	DefaultTranslateAttempts = 20
	DefaultTranslateInterval = 200 * time.Millisecond
)

// TranslationService names the widget in errors and toasts.
const TranslationService = "Translation service"

// Outcome is the result of a translation attempt.
type Outcome string

const (
	Applied  Outcome = "applied"
	TimedOut Outcome = "timed_out"
)

var errMenuNotReady = errors.New("translation menu option not rendered yet")

// Translator drives the third-party translation widget with bounded retry.
type Translator struct {
	widget   backend.TranslationWidget
	attempts int
	interval time.Duration
}

// TranslatorOption configures a Translator.
type TranslatorOption func(*Translator)

// WithAttempts sets how many times the widget menu is polled.
func WithAttempts(n int) TranslatorOption {
	return func(t *Translator) {
		if n > 0 {
			t.attempts = n
		}
	}
}

// WithInterval sets the pause between polls.
func WithInterval(d time.Duration) TranslatorOption {
	return func(t *Translator) {
		if d >= 0 {
			t.interval = d
		}
	}
}

// NewTranslator creates a translator polling 20 times, 200ms apart.
func NewTranslator(w backend.TranslationWidget, opts ...TranslatorOption) *Translator {
	t := &Translator{widget: w, attempts: DefaultTranslateAttempts, interval: DefaultTranslateInterval}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Apply polls the widget menu until code is offered, then selects it. When
// the option never appears it returns TimedOut and a
// *models.ExternalServiceTimeout.
func (t *Translator) Apply(ctx context.Context, code models.LanguageCode) (Outcome, error) {
	tries := 0
	op := func() (struct{}, error) {
		tries++
		options, err := t.widget.MenuOptions(ctx)
		if err != nil {
			return struct{}{}, err
		}
		if !slices.Contains(options, code) {
			return struct{}{}, errMenuNotReady
		}
		if err := t.widget.Select(ctx, code); err != nil {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, nil
	}

	_, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(backoff.NewConstantBackOff(t.interval)),
		backoff.WithMaxTries(uint(t.attempts)),
	)
	if err == nil {
		slog.Debug("Translator.Apply: applied", "language", code, "attempts", tries)
		return Applied, nil
	}
	if ctx.Err() != nil {
		return TimedOut, fmt.Errorf("translation to %s interrupted: %w", code, ctx.Err())
	}
	slog.Warn("Translator.Apply: widget did not respond", "language", code, "attempts", tries, "error", err)
	return TimedOut, &models.ExternalServiceTimeout{Service: TranslationService, Attempts: tries, Err: err}
}
