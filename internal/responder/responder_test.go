package responder

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestRespondCategories(t *testing.T) {
	r := New(nil)
	tests := []struct {
		input    string
		category string
	}{
		{"What's the weather today?", "weather"},
		{"WILL IT RAIN tomorrow", "weather"},
		{"my wheat has leaf spot", "crop_disease"},
		{"current grain price at the mandi", "market"},
		{"how much will I harvest", "yield"},
		{"which fertilizer for sandy soil", "fertilizer"},
		{"drip irrigation setup", "irrigation"},
		{"any subsidy for tractors?", "schemes"},
		{"thank you", "thanks"},
		{"Namaste", "greeting"},
		{"xyzzy", FallbackCategory},
		{"", FallbackCategory},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := r.Respond(tt.input)
			if got.Category != tt.category {
				t.Errorf("Respond(%q) category = %q, want %q", tt.input, got.Category, tt.category)
			}
			if len(got.Suggestions) != 4 {
				t.Errorf("Respond(%q) returned %d suggestions, want 4", tt.input, len(got.Suggestions))
			}
			if got.Text == "" {
				t.Errorf("Respond(%q) returned empty text", tt.input)
			}
		})
	}
}

func TestFirstMatchWins(t *testing.T) {
	// Mentions both weather and market keywords; weather is listed first.
	if got := New(nil).Respond("weather impact on market price").Category; got != "weather" {
		t.Errorf("expected weather to win, got %q", got)
	}
}

func TestAllKeywordsMustMatch(t *testing.T) {
	rules, err := ParseRules([]byte(`
categories:
  - name: crop_disease
    all: [crop, disease]
    response: Upload a photo.
    suggestions: [a, b, c, d]
fallback:
  response: Sorry.
  suggestions: [w, x, y, z]
`))
	if err != nil {
		t.Fatalf("ParseRules failed: %v", err)
	}
	r := New(rules)
	if got := r.Respond("Crop DISEASE help").Category; got != "crop_disease" {
		t.Errorf("expected crop_disease, got %q", got)
	}
	if got := r.Respond("crop help").Category; got != FallbackCategory {
		t.Errorf("expected fallback when only one all-keyword matches, got %q", got)
	}
}

func TestSuggestionsAreCopies(t *testing.T) {
	r := New(nil)
	first := r.Respond("thank you")
	first.Suggestions[0] = "mutated"
	if r.Respond("thank you").Suggestions[0] == "mutated" {
		t.Error("reply suggestions alias the rule table")
	}
}

func TestParseRulesRejectsInvalid(t *testing.T) {
	bad := map[string]string{
		"no keywords": "categories:\n  - name: x\n    response: y\nfallback:\n  response: z\n",
		"no fallback": "categories:\n  - name: x\n    any: [a]\n    response: y\n",
		"not yaml":    "categories: [",
	}
	for name, doc := range bad {
		if _, err := ParseRules([]byte(doc)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestCategoriesOrder(t *testing.T) {
	cats := New(nil).Categories()
	if len(cats) == 0 || cats[0] != "weather" {
		t.Errorf("expected weather first, got %v", cats)
	}
}

func TestWatchReloadsRules(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	write := func(response string) {
		doc := "categories:\n  - name: greeting\n    any: [hello]\n    response: " + response +
			"\n    suggestions: [a, b, c, d]\nfallback:\n  response: Sorry.\n  suggestions: [w, x, y, z]\n"
		if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
			t.Fatalf("write rules: %v", err)
		}
	}
	write("first")
	rules, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	r := New(rules)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Watch(ctx, path, r) }()
	defer func() {
		cancel()
		<-done
	}()

	// Give the watcher a moment to register before writing.
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		write("second")
		time.Sleep(50 * time.Millisecond)
		if r.Respond("hello").Text == "second" {
			return
		}
	}
	t.Fatalf("rules were not reloaded, still %q", r.Respond("hello").Text)
}

func TestWatchKeepsRulesOnBadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	r := New(nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Watch(ctx, path, r) }()

	time.Sleep(50 * time.Millisecond)
	if err := os.WriteFile(path, []byte("categories: ["), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	time.Sleep(100 * time.Millisecond)
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Watch returned error: %v", err)
	}
	if got := r.Respond("thank you").Category; got != "thanks" {
		t.Errorf("default rules lost after bad reload, got %q", got)
	}
}
