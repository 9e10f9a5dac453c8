// Package playback contains the state machine that links receiver
// playback status to speaker power. Status signals may arrive from any
// goroutine; a single supervisory loop debounces them into power
// commands.
package playback

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"speakerremote/internal/clock"
)

const (
	// GracePeriod is how long playback must stay stopped before the
	// speakers are powered off, absorbing brief pauses.
	GracePeriod = 60 * time.Second

	// PollInterval bounds how long the supervisory loop waits between
	// evaluations when no signal arrives.
	PollInterval = 10 * time.Second
)

// State is the derived playback state of the media receiver
type State int

const (
	// stateUnknown is the pre-initialization sentinel; the first real
	// signal always differs from it and therefore always registers.
	stateUnknown State = iota

	// Playing means media is actively rendering
	Playing

	// Stopped means a receiver session exists but media is paused or idle
	Stopped

	// Inactive means the receiver has no active session at all
	Inactive
)

func (s State) String() string {
	switch s {
	case Playing:
		return "playing"
	case Stopped:
		return "stopped"
	case Inactive:
		return "inactive"
	default:
		return "unknown"
	}
}

// PowerTarget is the device surface the supervisor drives
type PowerTarget interface {
	SwitchOn()
	SwitchOff()
}

// Supervisor debounces playback signals into speaker power commands.
// While Playing it re-asserts power on every poll as a keep-alive, so
// a speaker that missed a command converges on the next cycle.
type Supervisor struct {
	target PowerTarget
	clock  clock.Clock
	logger *zap.Logger

	gracePeriod  time.Duration
	pollInterval time.Duration

	// state, changedAt and the wake channel are updated as one unit
	// under mu so the loop never sees a new timestamp with a stale
	// state or vice versa.
	mu        sync.Mutex
	state     State
	changedAt time.Time
	wake      chan struct{}

	stopChan    chan struct{}
	stoppedChan chan struct{}
}

// NewSupervisor creates a supervisor driving the given power target
func NewSupervisor(target PowerTarget, clk clock.Clock, logger *zap.Logger) *Supervisor {
	return NewSupervisorWithTimings(target, clk, GracePeriod, PollInterval, logger)
}

// NewSupervisorWithTimings creates a supervisor with explicit grace
// period and poll interval, for tests that cannot wait out the real
// durations
func NewSupervisorWithTimings(target PowerTarget, clk clock.Clock, gracePeriod, pollInterval time.Duration, logger *zap.Logger) *Supervisor {
	return &Supervisor{
		target:       target,
		clock:        clk,
		logger:       logger.Named("playback"),
		gracePeriod:  gracePeriod,
		pollInterval: pollInterval,
		wake:         make(chan struct{}, 1),
		stopChan:     make(chan struct{}),
		stoppedChan:  make(chan struct{}),
	}
}

// Signal reports a new playback state. Safe to call from any
// goroutine, including the receiver client's read loop. Repeated
// signals for the current state are no-ops: the change timestamp is
// not reset, so they never extend the grace period.
func (s *Supervisor) Signal(next State) {
	s.mu.Lock()
	if s.state == next {
		s.mu.Unlock()
		return
	}
	s.state = next
	s.changedAt = s.clock.Now()
	select {
	case s.wake <- struct{}{}:
	default:
	}
	s.mu.Unlock()

	s.logger.Info("Playback state changed", zap.Stringer("state", next))
}

// State returns the current playback state
func (s *Supervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start launches the supervisory loop
func (s *Supervisor) Start() {
	s.logger.Info("Starting playback supervisor")
	go s.run()
}

// Stop terminates the supervisory loop and waits for it to exit
func (s *Supervisor) Stop() {
	close(s.stopChan)
	<-s.stoppedChan
	s.logger.Info("Playback supervisor stopped")
}

func (s *Supervisor) run() {
	defer close(s.stoppedChan)

	for {
		select {
		case <-s.wake:
		case <-s.clock.After(s.pollInterval):
		case <-s.stopChan:
			return
		}

		s.evaluate()
	}
}

// evaluate applies the current state to the power target. Commands are
// re-issued every cycle on purpose: the device layer suppresses writes
// when the plug already reports the desired state, and a plug that was
// unreachable or manually toggled converges on the next poll.
func (s *Supervisor) evaluate() {
	state, idle := s.snapshot()

	switch state {
	case Playing:
		s.target.SwitchOn()
	case Inactive:
		s.target.SwitchOff()
	default:
		// Stopped, or no signal received yet: power off once the
		// grace period has elapsed.
		if idle >= s.gracePeriod {
			s.target.SwitchOff()
		}
	}
}

// snapshot returns the current state and the time since it changed.
// Before the first signal the elapsed time is reported as already past
// the grace period, so an early poll resolves to "off" instead of
// waiting in an undefined state.
func (s *Supervisor) snapshot() (State, time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.changedAt.IsZero() {
		return s.state, s.gracePeriod
	}
	return s.state, s.clock.Since(s.changedAt)
}
