// Package device drives smart-plug-controlled speakers. Each Speaker
// owns at most one live protocol session, recreated lazily after any
// failure, and a Group fans power commands out to all speakers without
// letting one unreachable device block the others.
package device

import (
	"net"
	"sync"

	"go.uber.org/zap"

	"speakerremote/internal/config"
)

// Session is the device control protocol contract. Implementations
// report I/O failures as errors so the Speaker can discard the session.
type Session interface {
	Auth() error
	CheckPower() (bool, error)
	SetPower(on bool) error
	Close() error
}

// DialFunc establishes a protocol session with a device
type DialFunc func(host string, port int, mac net.HardwareAddr, devtype uint16) (Session, error)

// PowerStateText returns "on" or "off" for log messages
func PowerStateText(on bool) string {
	if on {
		return "on"
	}
	return "off"
}

// Speaker wraps one physical speaker plug
type Speaker struct {
	name    string
	host    string
	port    int
	mac     net.HardwareAddr
	devtype uint16
	dial    DialFunc
	logger  *zap.Logger

	mu      sync.Mutex // serializes session access
	session Session
}

// NewSpeaker creates a speaker handle from its resolved parameters and
// attempts an initial connection so authentication happens up front.
// A failed initial connection is only logged; the session is recreated
// lazily on first use.
func NewSpeaker(name, host string, port int, mac net.HardwareAddr, devtype uint16, dial DialFunc, logger *zap.Logger) *Speaker {
	s := &Speaker{
		name:    name,
		host:    host,
		port:    port,
		mac:     mac,
		devtype: devtype,
		dial:    dial,
		logger:  logger,
	}

	if err := s.Connect(); err != nil {
		logger.Warn("Could not connect to speaker",
			zap.String("speaker", name),
			zap.Error(err))
	}

	return s
}

// FromConfig builds a speaker handle from a configuration entry
func FromConfig(name string, cfg config.SpeakerConfig, dial DialFunc, logger *zap.Logger) (*Speaker, error) {
	host, port, err := cfg.HostPort()
	if err != nil {
		return nil, err
	}

	mac, err := cfg.HardwareAddr()
	if err != nil {
		return nil, err
	}

	devtype, err := cfg.DeviceType()
	if err != nil {
		return nil, err
	}

	return NewSpeaker(name, host, port, mac, devtype, dial, logger), nil
}

// Name returns the speaker's configured name
func (s *Speaker) Name() string {
	return s.name
}

// Connect establishes a session and performs the authentication
// handshake. The stored session is replaced only on success.
func (s *Speaker) Connect() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connectLocked()
}

func (s *Speaker) connectLocked() error {
	sess, err := s.dial(s.host, s.port, s.mac, s.devtype)
	if err != nil {
		return &ConnectError{Device: s.name, Err: err}
	}

	if err := sess.Auth(); err != nil {
		sess.Close()
		return &ConnectError{Device: s.name, Err: err}
	}

	s.session = sess
	s.logger.Info("Connected to speaker", zap.String("speaker", s.name))
	return nil
}

// sessionLocked returns the live session, connecting first if none exists
func (s *Speaker) sessionLocked() (Session, error) {
	if s.session == nil {
		if err := s.connectLocked(); err != nil {
			return nil, err
		}
	}
	return s.session, nil
}

// CurrentPower reports the device's power state, connecting lazily if
// needed. On I/O failure the session is discarded and a ConnectError
// returned so a future call retries from scratch.
func (s *Speaker) CurrentPower() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessionLocked()
	if err != nil {
		return false, err
	}

	on, err := sess.CheckPower()
	if err != nil {
		s.dropSessionLocked()
		return false, &ConnectError{Device: s.name, Err: err}
	}

	return on, nil
}

// SetPower commands the device's power state, connecting lazily if
// needed. Redundant writes are suppressed: if the device already
// reports the desired state, no command is sent.
func (s *Speaker) SetPower(on bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessionLocked()
	if err != nil {
		return err
	}

	current, err := sess.CheckPower()
	if err != nil {
		s.dropSessionLocked()
		return &ConnectError{Device: s.name, Err: err}
	}

	if current == on {
		return nil
	}

	s.logger.Info("Switching speaker",
		zap.String("speaker", s.name),
		zap.String("power", PowerStateText(on)))

	if err := sess.SetPower(on); err != nil {
		s.dropSessionLocked()
		return &ConnectError{Device: s.name, Err: err}
	}

	return nil
}

// SetState drives the speaker to the desired power state, swallowing
// connection errors so a single unreachable speaker never aborts a
// group command. Failures are observable only through the log.
func (s *Speaker) SetState(on bool) {
	if err := s.SetPower(on); err != nil {
		s.logger.Warn("Could not switch speaker",
			zap.String("speaker", s.name),
			zap.String("power", PowerStateText(on)),
			zap.Error(err))
	}
}

func (s *Speaker) dropSessionLocked() {
	if s.session != nil {
		s.session.Close()
		s.session = nil
	}
}
