package util

import (
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestNewClientIDIsUUID(t *testing.T) {
	id := NewClientID()
	if _, err := uuid.Parse(id); err != nil {
		t.Errorf("NewClientID() = %q is not a UUID: %v", id, err)
	}
}

func TestNewTurnIDSortsByCreation(t *testing.T) {
	prev := NewTurnID()
	for i := 0; i < 100; i++ {
		next := NewTurnID()
		if next <= prev {
			t.Fatalf("turn ids not increasing: %q then %q", prev, next)
		}
		prev = next
	}
}

func TestNewActionID(t *testing.T) {
	got := NewActionID()
	if !strings.HasPrefix(got, "act_") {
		t.Errorf("NewActionID() = %v, want prefix act_", got)
	}
	if len(got) != 20 {
		t.Errorf("NewActionID() length = %v, want 20", len(got))
	}
	if !isValidHex(got[4:]) {
		t.Errorf("NewActionID() hex part = %v is not valid hex", got[4:])
	}
}

func TestGenerateRandomHex(t *testing.T) {
	tests := []struct {
		name   string
		length int
		want   int
	}{
		{"zero length", 0, 0},
		{"negative length", -1, 0},
		{"small length", 8, 8},
		{"large length", 64, 64},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GenerateRandomHex(tt.length)
			if len(got) != tt.want {
				t.Errorf("GenerateRandomHex() length = %v, want %v", len(got), tt.want)
			}
			if tt.want > 0 && !isValidHex(got) {
				t.Errorf("GenerateRandomHex() = %v is not valid hex", got)
			}
		})
	}
}

func TestRandomIntRange(t *testing.T) {
	for i := 0; i < 1000; i++ {
		v := RandomIntRange(30, 100)
		if v < 30 || v > 100 {
			t.Fatalf("RandomIntRange(30, 100) = %d out of range", v)
		}
	}
	if v := RandomIntRange(5, 5); v != 5 {
		t.Errorf("RandomIntRange(5, 5) = %d, want 5", v)
	}
	if v := RandomIntRange(10, 1); v < 1 || v > 10 {
		t.Errorf("RandomIntRange(10, 1) = %d, want swapped bounds", v)
	}
}

func isValidHex(s string) bool {
	for _, c := range s {
		if !strings.ContainsRune("0123456789abcdef", c) {
			return false
		}
	}
	return true
}
