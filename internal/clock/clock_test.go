package clock

import (
	"testing"
	"time"
)

func TestMockClockAdvance(t *testing.T) {
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c := NewMockClock(start)

	if !c.Now().Equal(start) {
		t.Fatalf("Expected Now to be %v, got %v", start, c.Now())
	}

	c.Advance(90 * time.Second)

	if got := c.Since(start); got != 90*time.Second {
		t.Errorf("Expected Since to be 90s, got %v", got)
	}
}

func TestMockClockAfterFiresOnAdvance(t *testing.T) {
	c := NewMockClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))

	ch := c.After(10 * time.Second)

	select {
	case <-ch:
		t.Fatal("After channel fired before the deadline")
	default:
	}

	c.Advance(5 * time.Second)
	select {
	case <-ch:
		t.Fatal("After channel fired 5s before the deadline")
	default:
	}

	c.Advance(5 * time.Second)
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("After channel did not fire at the deadline")
	}
}

func TestMockClockAfterMultipleWaiters(t *testing.T) {
	c := NewMockClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))

	short := c.After(10 * time.Second)
	long := c.After(60 * time.Second)

	c.Advance(30 * time.Second)

	select {
	case <-short:
	default:
		t.Error("Short waiter should have fired after 30s")
	}

	select {
	case <-long:
		t.Error("Long waiter should not have fired after 30s")
	default:
	}

	c.Advance(30 * time.Second)
	select {
	case <-long:
	default:
		t.Error("Long waiter should have fired after 60s")
	}
}
