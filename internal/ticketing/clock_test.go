package ticketing

import (
	"testing"
	"time"
)

func TestFormatCode(t *testing.T) {
	cases := []struct {
		counter  string
		sequence int
		want     string
	}{
		{"A", 1, "A001"},
		{"B", 7, "B007"},
		{"A", 42, "A042"},
		{"B", 123, "B123"},
		{"B", 1234, "B1234"},
	}
	for _, tt := range cases {
		if got := FormatCode(tt.counter, tt.sequence); got != tt.want {
			t.Fatalf("FormatCode(%q, %d)=%q, want %q", tt.counter, tt.sequence, got, tt.want)
		}
	}
}

func TestDayOfUsesLocalZone(t *testing.T) {
	utc := time.Date(2026, 10, 15, 17, 30, 0, 0, time.UTC)
	if got := DayOf(utc, DefaultLocation); got != "2026-10-16" {
		t.Fatalf("expected 2026-10-16, got %s", got)
	}
	if got := DayOf(utc, time.UTC); got != "2026-10-15" {
		t.Fatalf("expected 2026-10-15, got %s", got)
	}
}

func TestCutoffDay(t *testing.T) {
	cases := []struct {
		name      string
		reference time.Time
		days      int
		want      string
	}{
		{"morning", time.Date(2026, 10, 15, 9, 0, 0, 0, DefaultLocation), 7, "2026-10-08"},
		{"utc evening is next local day", time.Date(2026, 10, 15, 18, 0, 0, 0, time.UTC), 7, "2026-10-09"},
		{"month boundary", time.Date(2026, 3, 3, 1, 0, 0, 0, DefaultLocation), 7, "2026-02-24"},
		{"one day", time.Date(2026, 10, 15, 23, 59, 0, 0, DefaultLocation), 1, "2026-10-14"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CutoffDay(tc.reference, DefaultLocation, tc.days); got != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
		})
	}
}
