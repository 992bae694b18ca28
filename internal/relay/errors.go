package relay

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidSession is returned when the session token is missing.
	ErrInvalidSession = errors.New("missing a session id")
	// ErrNoData signals that a session has no live frame to deliver.
	// It is a normal outcome, not a failure.
	ErrNoData = errors.New("no data")
	// ErrFrameTooLarge is returned when an upload exceeds MaxFrameBytes.
	ErrFrameTooLarge = errors.New("frame exceeds maximum size")
	// ErrEmptyFrame is returned when an upload carried no bytes.
	ErrEmptyFrame = errors.New("frame is empty")
)

// StoreError wraps a failed blob store operation.
type StoreError struct {
	Op  string
	Key string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s %s: %v", e.Op, e.Key, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func storeErr(op, key string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Key: key, Err: err}
}
