package config

import (
	"testing"
	"time"
)

func TestParseSeconds(t *testing.T) {
	cases := []struct {
		in   string
		want time.Duration
	}{
		{"", 300 * time.Second},
		{"300", 300 * time.Second},
		{"3600", time.Hour},
		{"1.5", 1500 * time.Millisecond},
		{"5m", 5 * time.Minute},
	}
	for _, tc := range cases {
		got, err := ParseSeconds(tc.in, 300*time.Second)
		if err != nil {
			t.Fatalf("ParseSeconds(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("ParseSeconds(%q) = %s, want %s", tc.in, got, tc.want)
		}
	}
}

func TestParseSecondsRejectsInvalid(t *testing.T) {
	for _, in := range []string{"0", "-5", "soon", "-1m"} {
		if _, err := ParseSeconds(in, time.Second); err == nil {
			t.Fatalf("expected error for %q", in)
		}
	}
}
