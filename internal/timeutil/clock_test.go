package timeutil

import (
	"testing"
	"time"
)

func TestRealClock(t *testing.T) {
	c := RealClock{}
	start := c.Now()
	if c.Since(start) < 0 {
		t.Error("Since should not be negative")
	}
}

func TestMockClock(t *testing.T) {
	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	c := NewMockClock(start)

	if !c.Now().Equal(start) {
		t.Errorf("Now() = %v, want %v", c.Now(), start)
	}

	c.Advance(40 * time.Millisecond)
	if got := c.Since(start); got != 40*time.Millisecond {
		t.Errorf("Since() = %v, want 40ms", got)
	}

	later := start.Add(time.Hour)
	c.Set(later)
	if !c.Now().Equal(later) {
		t.Errorf("Now() after Set = %v, want %v", c.Now(), later)
	}
}
