package apierr

import (
	"errors"
	"fmt"
)

// Error is a business failure that maps directly onto an HTTP response.
// Services return it for expected outcomes; anything else is treated as a
// server error at the boundary.
type Error struct {
	Status  int
	Code    string
	Err     error
	Payload any
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

// WithPayload attaches a response body fragment carried alongside the error,
// for endpoints that return data on failure (a completed attempt, for one).
func (e *Error) WithPayload(p any) *Error {
	if e == nil {
		return nil
	}
	e.Payload = p
	return e
}

// As extracts an *Error from an error chain.
func As(err error) (*Error, bool) {
	var ae *Error
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}
