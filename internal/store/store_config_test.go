package store

import (
	"testing"
	"time"
)

func TestIntFromEnv(t *testing.T) {
	cases := []struct {
		name  string
		value string
		want  int
	}{
		{"unset", "", 3},
		{"parsed", "4", 4},
		{"invalid", "bad", 3},
		{"non-positive", "0", 3},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(maxOpenConnsEnvKey, tc.value)
			if got := intFromEnv(maxOpenConnsEnvKey, 3); got != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, got)
			}
		})
	}
}

func TestDurationFromEnv(t *testing.T) {
	cases := []struct {
		name  string
		value string
		want  time.Duration
	}{
		{"unset", "", 2 * time.Minute},
		{"duration string", "45s", 45 * time.Second},
		{"bare seconds", "30", 30 * time.Second},
		{"invalid", "invalid", 2 * time.Minute},
		{"negative", "-10s", 2 * time.Minute},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(connMaxLifetimeEnvKey, tc.value)
			if got := durationFromEnv(connMaxLifetimeEnvKey, 2*time.Minute); got != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}
