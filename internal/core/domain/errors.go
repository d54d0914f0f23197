package domain

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownFamily    = errors.New("unknown device family")
	ErrUnknownCamera    = errors.New("unknown camera")
	ErrUnknownSwitch    = errors.New("unknown switch")
	ErrInvalidDoorIndex = errors.New("invalid garage door index")
	ErrInvalidDuration  = errors.New("invalid circulation duration")
)

// TransportError wraps a failure to reach the backend at all.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: transport error: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// StatusError is a non-success HTTP status returned by the backend.
type StatusError struct {
	Op      string
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: status %d: %s", e.Op, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: status %d", e.Op, e.Code)
}

// CommandError is an application error reported inside a success envelope.
type CommandError struct {
	Op      string
	Message string
}

func (e *CommandError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: command failed", e.Op)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

// ParseError is a payload that could not be decoded or failed validation.
type ParseError struct {
	Op     string
	Family Family
	Err    error
}

func (e *ParseError) Error() string {
	if e.Family != "" {
		return fmt.Sprintf("%s: malformed %s payload: %v", e.Op, e.Family, e.Err)
	}
	return fmt.Sprintf("%s: malformed payload: %v", e.Op, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// IsStatusCode reports whether err carries the given backend status code.
func IsStatusCode(err error, code int) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.Code == code
}
