package ipc

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrAlreadyInitialized = errors.New("ipc: trying to initialize 2nd client")
	ErrNotConnected       = errors.New("ipc: not connected")
	ErrShortIO            = errors.New("ipc: short read or write")
	ErrProtocolMismatch   = errors.New("ipc: unexpected response")
	ErrUnsupportedSize    = errors.New("ipc: unsupported access size")
)

// ConnectionError is returned by Init when the socket can't be set up.
type ConnectionError struct {
	Path string
	Err  error
}

func (c *ConnectionError) Error() string {
	return fmt.Sprintf("ipc: connecting to %s: %v", c.Path, c.Err)
}

func (c *ConnectionError) Cause() error {
	return c.Err
}

// IsConnectionError reports whether err, or anything it wraps, came from a failed Init.
func IsConnectionError(err error) bool {
	type causer interface {
		Cause() error
	}
	for err != nil {
		if _, ok := err.(*ConnectionError); ok {
			return true
		}
		cause, ok := err.(causer)
		if !ok {
			break
		}
		err = cause.Cause()
	}
	return false
}

// IsSticky reports whether err poisons the session for every later call.
func IsSticky(err error) bool {
	switch errors.Cause(err) {
	case ErrShortIO, ErrProtocolMismatch:
		return true
	}
	return false
}
