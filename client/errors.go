package client

import (
	"errors"
	"fmt"
)

// TransportError is a call that never produced a usable envelope: network
// failure, non-2xx status or an undecodable body.
type TransportError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: http status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// APIError is a semantic failure: the server answered with success=false.
type APIError struct {
	Op               string
	Message          string
	StatusCode       int
	Code             string
	ValidationErrors map[string][]string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return e.Op + ": request rejected"
	}
	return e.Op + ": " + e.Message
}

// ErrEmptyResponse is returned when a successful envelope carries no data
// for an operation that requires it.
var ErrEmptyResponse = errors.New("empty response data")

// IsTransport reports whether err is a transport-level failure.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// AsAPIError unwraps a semantic failure.
func AsAPIError(err error) (*APIError, bool) {
	var ae *APIError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}
