package device

import (
	"fmt"
	"net"
	"sync"
)

// MockSession implements Session for testing. It records call counts
// and can be scripted to fail individual operations.
type MockSession struct {
	mu sync.Mutex

	power bool

	AuthErr  error
	CheckErr error
	SetErr   error

	AuthCalls  int
	CheckCalls int
	SetCalls   int
	Closed     bool
}

// NewMockSession creates a mock session with the given initial power state
func NewMockSession(power bool) *MockSession {
	return &MockSession{power: power}
}

// Auth simulates the authentication handshake
func (m *MockSession) Auth() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AuthCalls++
	return m.AuthErr
}

// CheckPower returns the mock power state
func (m *MockSession) CheckPower() (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CheckCalls++
	if m.CheckErr != nil {
		return false, m.CheckErr
	}
	return m.power, nil
}

// SetPower records the commanded power state
func (m *MockSession) SetPower(on bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SetCalls++
	if m.SetErr != nil {
		return m.SetErr
	}
	m.power = on
	return nil
}

// Close marks the session closed
func (m *MockSession) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Closed = true
	return nil
}

// Power returns the current mock power state
func (m *MockSession) Power() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.power
}

// Counts returns the recorded call counts
func (m *MockSession) Counts() (auth, check, set int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.AuthCalls, m.CheckCalls, m.SetCalls
}

// MockDialer produces MockSessions and records dial attempts
type MockDialer struct {
	mu sync.Mutex

	DialErr  error
	Sessions []*MockSession
	Dials    int
	next     *MockSession
}

// NewMockDialer creates a dialer whose sessions start powered off
func NewMockDialer() *MockDialer {
	return &MockDialer{}
}

// SetNext makes the dialer hand out the given session on the next dial
func (d *MockDialer) SetNext(s *MockSession) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.next = s
}

// SetDialErr makes subsequent dials fail with err
func (d *MockDialer) SetDialErr(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.DialErr = err
}

// Dial implements DialFunc
func (d *MockDialer) Dial(host string, port int, mac net.HardwareAddr, devtype uint16) (Session, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.Dials++
	if d.DialErr != nil {
		return nil, fmt.Errorf("dial %s:%d: %w", host, port, d.DialErr)
	}

	sess := d.next
	if sess == nil {
		sess = NewMockSession(false)
	}
	d.next = nil
	d.Sessions = append(d.Sessions, sess)
	return sess, nil
}

// DialCount returns the number of successful dials
func (d *MockDialer) DialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.Sessions)
}
