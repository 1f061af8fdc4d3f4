package reconnect

import (
	"testing"
	"time"
)

func TestExponentialBackoff(t *testing.T) {
	s := New(100*time.Millisecond, 10*time.Second)

	want := []time.Duration{
		100 * time.Millisecond,
		200 * time.Millisecond,
		400 * time.Millisecond,
		800 * time.Millisecond,
	}
	for i, w := range want {
		got := s.NextDelay()
		if got != w {
			t.Fatalf("attempt %d: got %v, want %v", i, got, w)
		}
	}
	if s.Attempt() != 4 {
		t.Fatalf("expected attempt 4, got %d", s.Attempt())
	}
}

func TestMaxIntervalCap(t *testing.T) {
	s := New(100*time.Millisecond, 500*time.Millisecond)

	s.NextDelay() // 100
	s.NextDelay() // 200
	s.NextDelay() // 400
	if got := s.NextDelay(); got != 500*time.Millisecond {
		t.Fatalf("expected capped 500ms, got %v", got)
	}
	if got := s.NextDelay(); got != 500*time.Millisecond {
		t.Fatalf("expected capped 500ms, got %v", got)
	}
}

func TestReset(t *testing.T) {
	s := New(100*time.Millisecond, 10*time.Second)
	s.NextDelay()
	s.NextDelay()
	s.NextDelay()
	if s.Attempt() != 3 {
		t.Fatalf("expected attempt 3, got %d", s.Attempt())
	}

	s.Reset()
	if s.Attempt() != 0 {
		t.Fatalf("expected attempt 0 after reset, got %d", s.Attempt())
	}
	if got := s.NextDelay(); got != 100*time.Millisecond {
		t.Fatalf("expected 100ms after reset, got %v", got)
	}
}
