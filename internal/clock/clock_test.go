package clock

import (
	"testing"
	"time"
)

func TestManualAdvance(t *testing.T) {
	start := time.Date(2025, 3, 9, 10, 30, 0, 0, time.UTC)
	c := NewManual(start)

	if got := c.Now(); !got.Equal(start) {
		t.Errorf("expected %v, got %v", start, got)
	}

	c.Advance(2500 * time.Millisecond)
	want := start.Add(2500 * time.Millisecond)
	if got := c.Now(); !got.Equal(want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestManualSet(t *testing.T) {
	c := NewManual(time.Unix(0, 0))
	want := time.Date(2025, 3, 9, 11, 0, 0, 0, time.UTC)

	c.Set(want)
	if got := c.Now(); !got.Equal(want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestSystemClockMovesForward(t *testing.T) {
	c := System()
	a := c.Now()
	b := c.Now()
	if b.Before(a) {
		t.Errorf("expected system clock to move forward, got %v then %v", a, b)
	}
}
