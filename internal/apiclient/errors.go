package apiclient

import (
	"errors"
	"fmt"
)

// ErrUnauthorized means the request could not be authorized: the session was
// torn down, the refresh failed, or the replay was rejected again.
var ErrUnauthorized = errors.New("apiclient: unauthorized")

// StatusError is a non-2xx backend response.
type StatusError struct {
	Method string
	Path   string
	Status int
	Detail string // backend "detail" or "message", if any
}

func (e *StatusError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s %s: HTTP %d: %s", e.Method, e.Path, e.Status, e.Detail)
	}
	return fmt.Sprintf("%s %s: HTTP %d", e.Method, e.Path, e.Status)
}

// NetworkError is a transport failure or timeout. It never triggers a refresh.
type NetworkError struct {
	Method  string
	Path    string
	Err     error
	timeout bool
}

func (e *NetworkError) Error() string {
	if e.timeout {
		return fmt.Sprintf("%s %s: timeout: %v", e.Method, e.Path, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// Timeout reports whether the request exceeded its deadline.
func (e *NetworkError) Timeout() bool { return e.timeout }

// IsStatus reports whether err is a StatusError with the given code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Status == code
}
