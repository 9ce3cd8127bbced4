// Package responder picks the assistant's canned reply for a chat message.
//
// Replies come from an ordered table of keyword categories. Matching is plain
// substring containment on the lower-cased message, and the first matching
// category wins; a message matching nothing gets the fallback reply.
package responder

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed rules.yaml
var defaultRules []byte

// FallbackCategory is the category reported when no rule matches.
const FallbackCategory = "fallback"

// Rule is one response category.
type Rule struct {
	Name        string   `yaml:"name"`
	All         []string `yaml:"all,omitempty"`
	Any         []string `yaml:"any,omitempty"`
	Response    string   `yaml:"response"`
	Suggestions []string `yaml:"suggestions"`
}

// Matches reports whether the lower-cased message satisfies the rule.
func (r Rule) Matches(lower string) bool {
	for _, kw := range r.All {
		if !strings.Contains(lower, kw) {
			return false
		}
	}
	if len(r.Any) == 0 {
		return true
	}
	for _, kw := range r.Any {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// Rules is a complete response table.
type Rules struct {
	Categories []Rule `yaml:"categories"`
	Fallback   Rule   `yaml:"fallback"`
}

// ParseRules decodes and validates a YAML rule table. Keywords are
// lower-cased so authors may write them in any case.
func ParseRules(data []byte) (*Rules, error) {
	var rules Rules
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("failed to parse rules: %w", err)
	}
	for i := range rules.Categories {
		c := &rules.Categories[i]
		if c.Name == "" {
			return nil, fmt.Errorf("rule %d has no name", i)
		}
		if len(c.All)+len(c.Any) == 0 {
			return nil, fmt.Errorf("rule %q has no keywords", c.Name)
		}
		if strings.TrimSpace(c.Response) == "" {
			return nil, fmt.Errorf("rule %q has no response", c.Name)
		}
		c.All = lowerAll(c.All)
		c.Any = lowerAll(c.Any)
	}
	if strings.TrimSpace(rules.Fallback.Response) == "" {
		return nil, fmt.Errorf("rules have no fallback response")
	}
	rules.Fallback.Name = FallbackCategory
	return &rules, nil
}

// LoadFile reads a rule table from disk.
func LoadFile(path string) (*Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file %s: %w", path, err)
	}
	return ParseRules(data)
}

// DefaultRules returns the built-in table.
func DefaultRules() *Rules {
	rules, err := ParseRules(defaultRules)
	if err != nil {
		panic(fmt.Sprintf("embedded rules are invalid: %v", err))
	}
	return rules
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Reply is the assistant's answer.
type Reply struct {
	Category    string   `json:"category"`
	Text        string   `json:"text"`
	Suggestions []string `json:"suggestions"`
}

// Responder answers messages from a replaceable rule table.
type Responder struct {
	mu    sync.RWMutex
	rules *Rules
}

// New creates a responder. A nil table uses DefaultRules.
func New(rules *Rules) *Responder {
	if rules == nil {
		rules = DefaultRules()
	}
	return &Responder{rules: rules}
}

// Respond returns the reply for text. It never fails.
func (r *Responder) Respond(text string) Reply {
	lower := strings.ToLower(text)
	r.mu.RLock()
	rules := r.rules
	r.mu.RUnlock()

	for _, c := range rules.Categories {
		if c.Matches(lower) {
			return reply(c)
		}
	}
	return reply(rules.Fallback)
}

// Matched reports whether text hits a category other than the fallback.
func (r *Responder) Matched(text string) bool {
	return r.Respond(text).Category != FallbackCategory
}

// Replace swaps the rule table atomically.
func (r *Responder) Replace(rules *Rules) {
	r.mu.Lock()
	r.rules = rules
	r.mu.Unlock()
	slog.Info("Responder.Replace: rules updated", "categories", len(rules.Categories))
}

// Categories lists the category names in match order.
func (r *Responder) Categories() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.rules.Categories))
	for i, c := range r.rules.Categories {
		out[i] = c.Name
	}
	return out
}

func reply(rule Rule) Reply {
	return Reply{
		Category:    rule.Name,
		Text:        strings.TrimSpace(rule.Response),
		Suggestions: append([]string(nil), rule.Suggestions...),
	}
}
