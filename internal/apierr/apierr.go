// Package apierr defines the typed error kinds the request surface maps
// onto the {reason, code, message} envelope.
package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Reason is the machine-readable error discriminator carried on the wire.
type Reason string

const (
	ReasonInvalidArgument Reason = "ERR_INVALID_ARGUMENT"
	ReasonInvalidState    Reason = "ERR_INVALID_STATE"
	ReasonNotFound        Reason = "ERR_NOT_FOUND"
)

// Code is the numeric twin of Reason.
func (r Reason) Code() int {
	switch r {
	case ReasonInvalidArgument:
		return 1
	case ReasonInvalidState:
		return 2
	case ReasonNotFound:
		return 3
	default:
		return 0
	}
}

// HTTPStatus is the status code a Reason maps to.
func (r Reason) HTTPStatus() int {
	switch r {
	case ReasonInvalidArgument, ReasonInvalidState:
		return http.StatusBadRequest
	case ReasonNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Error is a typed, user-visible failure that carries its own reason and
// message, as opposed to an internal/system failure.
type Error struct {
	Reason  Reason
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Reason, e.Message)
}

func NotFound(format string, args ...any) *Error {
	return &Error{Reason: ReasonNotFound, Message: fmt.Sprintf(format, args...)}
}

func InvalidArgument(format string, args ...any) *Error {
	return &Error{Reason: ReasonInvalidArgument, Message: fmt.Sprintf(format, args...)}
}

func InvalidState(format string, args ...any) *Error {
	return &Error{Reason: ReasonInvalidState, Message: fmt.Sprintf(format, args...)}
}

// As is a thin wrapper over errors.As for the common case of pulling an
// *Error out of an error chain.
func As(err error) (*Error, bool) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// Envelope is the wire shape of every error response.
type Envelope struct {
	Reason  Reason `json:"reason"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Envelope() Envelope {
	return Envelope{Reason: e.Reason, Code: e.Reason.Code(), Message: e.Message}
}
