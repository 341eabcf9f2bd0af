package jitter

import (
	"testing"
	"time"
)

func TestDurationStaysInRange(t *testing.T) {
	d := 100 * time.Millisecond
	for i := 0; i < 1000; i++ {
		got := Duration(d, DefaultJitter)
		if got < d || got > d+d/2 {
			t.Fatalf("Duration(%v) = %v, want within [%v, %v]", d, got, d, d+d/2)
		}
	}
}

func TestDurationWithoutFactor(t *testing.T) {
	if got := Duration(time.Second, 0); got != time.Second {
		t.Errorf("got %v, want %v", got, time.Second)
	}
}

func TestExponentialBackoffIsCapped(t *testing.T) {
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 100 * time.Millisecond},
		{1, 200 * time.Millisecond},
		{2, 400 * time.Millisecond},
		{3, 500 * time.Millisecond},
		{10, 500 * time.Millisecond},
	}

	b := Backoff{Base: 100 * time.Millisecond, Max: 500 * time.Millisecond}
	for _, tt := range tests {
		if got := b.Next(tt.attempt); got != tt.want {
			t.Errorf("attempt %d: got %v, want %v", tt.attempt, got, tt.want)
		}
	}
}
