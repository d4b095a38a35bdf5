package backend

import (
	"errors"
	"fmt"
)

// TransportError is a request that never produced an HTTP response.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: transport: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// RejectionError is a non-2xx response. Detail holds the message of a
// structured error body when the server sent one.
type RejectionError struct {
	Op     string
	Status int
	Detail string
}

func (e *RejectionError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s: status %d", e.Op, e.Status)
	}
	return fmt.Sprintf("%s: status %d: %s", e.Op, e.Status, e.Detail)
}

// LogicalError is a 2xx response whose body reports a failure.
type LogicalError struct {
	Op      string
	Message string
}

func (e *LogicalError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

// Reason returns the message shown to the user for a failed call.
func Reason(err error) string {
	var rejection *RejectionError
	var logical *LogicalError
	var transport *TransportError
	switch {
	case errors.As(err, &logical):
		if logical.Message != "" {
			return logical.Message
		}
		return "parse failed"
	case errors.As(err, &rejection):
		if rejection.Detail != "" {
			return rejection.Detail
		}
		return fmt.Sprintf("server error (%d)", rejection.Status)
	case errors.As(err, &transport):
		return "network unreachable"
	case err == nil:
		return ""
	default:
		return err.Error()
	}
}
