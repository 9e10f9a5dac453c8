package playback

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"speakerremote/internal/clock"
)

// fakeTarget records power commands
type fakeTarget struct {
	mu  sync.Mutex
	on  int
	off int
}

func (f *fakeTarget) SwitchOn() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.on++
}

func (f *fakeTarget) SwitchOff() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.off++
}

func (f *fakeTarget) counts() (on, off int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.on, f.off
}

func newTestSupervisor(target PowerTarget, clk clock.Clock) *Supervisor {
	return NewSupervisor(target, clk, zap.NewNop())
}

func TestSignalIgnoresRepeatedState(t *testing.T) {
	clk := clock.NewMockClock(time.Date(2025, 6, 1, 20, 0, 0, 0, time.UTC))
	target := &fakeTarget{}
	s := newTestSupervisor(target, clk)

	s.Signal(Stopped)

	// Drain the wake slot so a second identical signal would be visible
	select {
	case <-s.wake:
	default:
		t.Fatal("First signal should have armed the wake channel")
	}

	clk.Advance(30 * time.Second)
	s.Signal(Stopped)

	select {
	case <-s.wake:
		t.Error("Repeated signal must not wake the loop")
	default:
	}

	// The change timestamp must not have been reset by the repeat
	_, idle := s.snapshot()
	if idle != 30*time.Second {
		t.Errorf("Expected 30s since state change, got %v", idle)
	}
}

func TestEvaluatePlayingSwitchesOn(t *testing.T) {
	clk := clock.NewMockClock(time.Now())
	target := &fakeTarget{}
	s := newTestSupervisor(target, clk)

	s.Signal(Playing)
	s.evaluate()

	on, off := target.counts()
	if on != 1 || off != 0 {
		t.Errorf("Expected 1 on / 0 off, got %d on / %d off", on, off)
	}

	// Keep-alive: every evaluation re-asserts on while playing
	s.evaluate()
	on, _ = target.counts()
	if on != 2 {
		t.Errorf("Expected keep-alive re-assertion, got %d on calls", on)
	}
}

func TestEvaluateInactiveSwitchesOffImmediately(t *testing.T) {
	clk := clock.NewMockClock(time.Now())
	target := &fakeTarget{}
	s := newTestSupervisor(target, clk)

	s.Signal(Inactive)
	s.evaluate()

	on, off := target.counts()
	if on != 0 || off != 1 {
		t.Errorf("Expected 0 on / 1 off, got %d on / %d off", on, off)
	}
}

func TestEvaluateStoppedRespectsGracePeriod(t *testing.T) {
	clk := clock.NewMockClock(time.Date(2025, 6, 1, 20, 0, 0, 0, time.UTC))
	target := &fakeTarget{}
	s := newTestSupervisor(target, clk)

	s.Signal(Playing)
	s.evaluate()

	clk.Advance(5 * time.Second)
	s.Signal(Stopped)

	// Polls right after stopping and just inside the grace period
	for _, advance := range []time.Duration{0, 10 * time.Second, 49 * time.Second} {
		clk.Advance(advance)
		s.evaluate()
		_, off := target.counts()
		if off != 0 {
			t.Fatal("SwitchOff fired inside the grace period")
		}
	}

	// 59s elapsed so far; the first poll at or after 60s powers off
	clk.Advance(time.Second)
	s.evaluate()
	_, off := target.counts()
	if off != 1 {
		t.Errorf("Expected SwitchOff at the grace period boundary, got %d off calls", off)
	}
}

func TestEvaluateColdStartTreatsGraceAsExpired(t *testing.T) {
	clk := clock.NewMockClock(time.Now())
	target := &fakeTarget{}
	s := newTestSupervisor(target, clk)

	// No signal ever received: an early poll must resolve to off
	s.evaluate()

	on, off := target.counts()
	if on != 0 || off != 1 {
		t.Errorf("Expected cold-start poll to switch off, got %d on / %d off", on, off)
	}
}

func TestEvaluateColdStartInactiveSignal(t *testing.T) {
	clk := clock.NewMockClock(time.Now())
	target := &fakeTarget{}
	s := newTestSupervisor(target, clk)

	s.Signal(Inactive)
	s.evaluate()

	_, off := target.counts()
	if off != 1 {
		t.Errorf("Expected immediate SwitchOff on cold-start Inactive, got %d", off)
	}
}

func TestSupervisorWakesOnSignalBeforePoll(t *testing.T) {
	target := &fakeTarget{}
	s := newTestSupervisor(target, clock.NewRealClock())
	// Poll far in the future so only the signal wake can trigger work
	s.pollInterval = time.Hour

	s.Start()
	defer s.Stop()

	s.Signal(Playing)
	require.Eventually(t, func() bool {
		on, _ := target.counts()
		return on >= 1
	}, time.Second, 5*time.Millisecond, "Playing signal should preempt the poll wait")

	s.Signal(Inactive)
	require.Eventually(t, func() bool {
		_, off := target.counts()
		return off >= 1
	}, time.Second, 5*time.Millisecond, "Inactive signal should preempt the poll wait")
}

func TestSupervisorKeepAliveWhilePlaying(t *testing.T) {
	target := &fakeTarget{}
	s := newTestSupervisor(target, clock.NewRealClock())
	s.pollInterval = 10 * time.Millisecond

	s.Start()
	defer s.Stop()

	s.Signal(Playing)
	require.Eventually(t, func() bool {
		on, _ := target.counts()
		return on >= 3
	}, time.Second, 5*time.Millisecond, "SwitchOn should be re-asserted on every poll")
}

func TestSupervisorStoppedDebounceEndToEnd(t *testing.T) {
	target := &fakeTarget{}
	s := newTestSupervisor(target, clock.NewRealClock())
	s.pollInterval = 20 * time.Millisecond
	s.gracePeriod = 300 * time.Millisecond

	s.Start()
	defer s.Stop()

	s.Signal(Playing)
	require.Eventually(t, func() bool {
		on, _ := target.counts()
		return on >= 1
	}, time.Second, 5*time.Millisecond)

	s.Signal(Stopped)
	time.Sleep(100 * time.Millisecond)
	_, off := target.counts()
	require.Zero(t, off, "speakers must stay on during a brief pause")

	require.Eventually(t, func() bool {
		_, off := target.counts()
		return off >= 1
	}, 2*time.Second, 10*time.Millisecond, "sustained pause should power speakers off")
}
