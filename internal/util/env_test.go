package util

import (
	"testing"
	"time"
)

func TestParseBoolEnv(t *testing.T) {
	tests := []struct {
		value string
		def   bool
		want  bool
	}{
		{"", true, true},
		{"yes", false, true},
		{"OFF", true, false},
		{"maybe", true, true},
	}
	for _, tt := range tests {
		t.Setenv("FARMGENIUS_TEST_BOOL", tt.value)
		if got := ParseBoolEnv("FARMGENIUS_TEST_BOOL", tt.def); got != tt.want {
			t.Errorf("ParseBoolEnv(%q, %v) = %v, want %v", tt.value, tt.def, got, tt.want)
		}
	}
}

func TestParseDurationEnv(t *testing.T) {
	t.Setenv("FARMGENIUS_TEST_DUR", "750ms")
	if got := ParseDurationEnv("FARMGENIUS_TEST_DUR", time.Second); got != 750*time.Millisecond {
		t.Errorf("got %v, want 750ms", got)
	}
	t.Setenv("FARMGENIUS_TEST_DUR", "soon")
	if got := ParseDurationEnv("FARMGENIUS_TEST_DUR", time.Second); got != time.Second {
		t.Errorf("got %v, want default 1s", got)
	}
}

func TestEnvOr(t *testing.T) {
	t.Setenv("FARMGENIUS_TEST_STR", "")
	if got := EnvOr("FARMGENIUS_TEST_STR", "fallback"); got != "fallback" {
		t.Errorf("got %q, want fallback", got)
	}
	t.Setenv("FARMGENIUS_TEST_STR", "set")
	if got := EnvOr("FARMGENIUS_TEST_STR", "fallback"); got != "set" {
		t.Errorf("got %q, want set", got)
	}
}
