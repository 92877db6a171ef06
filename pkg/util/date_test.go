package util

import (
	"testing"
	"time"
)

func TestParseSettlementTimeNoOffset(t *testing.T) {
	got, err := ParseSettlementTime("2026-08-23T14:05:00", "+10:00")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := time.Date(2026, 8, 23, 14, 5, 0, 0, time.FixedZone("", 10*3600)).UnixMilli()
	if got != want {
		t.Fatalf("got %d want %d", got, want)
	}
}

func TestParseSettlementTimeExplicitOffset(t *testing.T) {
	got, err := ParseSettlementTime("2026-08-23T14:05:00+10:00", "+05:00")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// The record's own offset wins over the configured one.
	want := time.Date(2026, 8, 23, 14, 5, 0, 0, time.FixedZone("", 10*3600)).UnixMilli()
	if got != want {
		t.Fatalf("got %d want %d", got, want)
	}
}

func TestParseSettlementTimeZulu(t *testing.T) {
	got, err := ParseSettlementTime("2026-08-23T04:05:00Z", "+10:00")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := time.Date(2026, 8, 23, 4, 5, 0, 0, time.UTC).UnixMilli()
	if got != want {
		t.Fatalf("got %d want %d", got, want)
	}
}

func TestParseSettlementTimeInvalid(t *testing.T) {
	for _, s := range []string{"", "garbage", "2026-13-99T99:99:99"} {
		if _, err := ParseSettlementTime(s, "+10:00"); err == nil {
			t.Fatalf("expected error for %q", s)
		}
	}
}
