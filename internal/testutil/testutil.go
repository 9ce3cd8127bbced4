// Package testutil provides common test helpers for FarmGenius tests.
package testutil

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/BTreeMap/FarmGenius/internal/app"
	"github.com/BTreeMap/FarmGenius/internal/store"
)

// TB is the subset of testing.TB the assertions need, so they can be
// exercised against a recorder.
type TB interface {
	Helper()
	Errorf(format string, args ...any)
	Fatalf(format string, args ...any)
}

// Envelope is the standard API response with the result left undecoded.
type Envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
}

// FastPageOptions removes every simulated delay and background job so page
// tests run in milliseconds.
func FastPageOptions() []app.Option {
	return []app.Option{
		app.WithDelayScale(0),
		app.WithToastDuration(5 * time.Millisecond),
		app.WithThinkingDelay(0),
		app.WithWelcomeDelay(0),
		app.WithTranslateRetry(3, time.Millisecond),
		app.WithNewsInterval(0),
		app.WithIdleTTL(0),
	}
}

// NewTestPages creates a page registry over deps with FastPageOptions
// followed by opts. It is closed when the test ends.
func NewTestPages(t testing.TB, deps app.Deps, opts ...app.Option) *app.Pages {
	t.Helper()
	if deps.Store == nil {
		deps = app.SimulatedDeps(store.NewInMemoryStore())
	}
	pages, err := app.NewPages(deps, append(FastPageOptions(), opts...)...)
	if err != nil {
		t.Fatalf("NewPages failed: %v", err)
	}
	t.Cleanup(func() { pages.Close(context.Background()) })
	return pages
}

// AssertHTTPStatus checks the HTTP status code and fails the test if it doesn't match.
func AssertHTTPStatus(t TB, expected, actual int, context string) {
	t.Helper()
	if actual != expected {
		t.Errorf("%s: expected status %d, got %d", context, expected, actual)
	}
}

// AssertJSONResponse decodes the response envelope and validates its status field.
func AssertJSONResponse(t TB, rr *httptest.ResponseRecorder, expectedStatus string) Envelope {
	t.Helper()
	var env Envelope
	if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil {
		t.Fatalf("failed to decode JSON response: %v", err)
		return env
	}
	if env.Status != expectedStatus {
		t.Errorf("expected status '%s', got '%s' (message %q)", expectedStatus, env.Status, env.Message)
	}
	return env
}

// Eventually polls cond until it holds or timeout passes.
func Eventually(t TB, timeout time.Duration, cond func() bool, what string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Errorf("condition not met within %s: %s", timeout, what)
}

// MustMarshalJSON marshals an object to JSON and fails test on error.
func MustMarshalJSON(t TB, v any) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("failed to marshal JSON: %v", err)
	}
	return data
}

// MustUnmarshalJSON unmarshals JSON data into target and fails test on error.
func MustUnmarshalJSON(t TB, data []byte, target any) {
	t.Helper()
	if err := json.Unmarshal(data, target); err != nil {
		t.Fatalf("failed to unmarshal JSON: %v", err)
	}
}
