package device

import "fmt"

// ConnectError indicates that a speaker session could not be established
// or authenticated, or that an I/O operation on it failed mid-flight.
// It is always recoverable: the session is discarded and recreated
// lazily on the next attempt.
type ConnectError struct {
	Device string
	Err    error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("speaker %s: connection error: %v", e.Device, e.Err)
}

func (e *ConnectError) Unwrap() error {
	return e.Err
}
