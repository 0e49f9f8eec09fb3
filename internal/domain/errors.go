package domain

import (
	"errors"
	"fmt"
)

// ErrStaleResponse marks a result that arrived after a newer request of the
// same kind was issued. It is used internally and never shown to users.
var ErrStaleResponse = errors.New("stale response discarded")

type NotFoundError struct {
	Resource string
	Err      error
}

func (e NotFoundError) Error() string {
	if e.Resource == "" {
		return "not found"
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

func (e NotFoundError) Unwrap() error { return e.Err }

type ValidationError struct {
	Field string
	Msg   string
	Err   error
}

func (e ValidationError) Error() string {
	if e.Msg != "" && e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Msg)
	}
	if e.Msg != "" {
		return e.Msg
	}
	if e.Field != "" {
		return fmt.Sprintf("invalid %s", e.Field)
	}
	return "validation error"
}

func (e ValidationError) Unwrap() error { return e.Err }

type ConflictError struct {
	Resource string
	Msg      string
	Err      error
}

func (e ConflictError) Error() string {
	switch {
	case e.Msg != "" && e.Resource != "":
		return fmt.Sprintf("%s conflict: %s", e.Resource, e.Msg)
	case e.Msg != "":
		return e.Msg
	case e.Resource != "":
		return fmt.Sprintf("%s conflict", e.Resource)
	default:
		return "conflict"
	}
}

func (e ConflictError) Unwrap() error { return e.Err }

type InternalError struct {
	Msg string
	Err error
}

func (e InternalError) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	return "internal error"
}

func (e InternalError) Unwrap() error { return e.Err }

// NetworkError is a failed call to a remote collaborator (fare, booking,
// geocoding). Msg is safe to show to the user.
type NetworkError struct {
	Op      string
	Msg     string
	Code    string
	Details any
	Err     error
}

func (e NetworkError) Error() string {
	msg := e.Msg
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if msg == "" {
		msg = "request failed"
	}
	if e.Op == "" {
		return msg
	}
	return fmt.Sprintf("%s: %s", e.Op, msg)
}

func (e NetworkError) Unwrap() error { return e.Err }

// UserMessage returns the human-readable part without the operation prefix.
func (e NetworkError) UserMessage() string {
	if e.Msg != "" {
		return e.Msg
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "request failed"
}

type GeolocationReason string

const (
	GeolocationDenied      GeolocationReason = "permission_denied"
	GeolocationUnavailable GeolocationReason = "unavailable"
	GeolocationTimeout     GeolocationReason = "timeout"
)

// GeolocationError degrades the flow to manual address entry.
type GeolocationError struct {
	Reason GeolocationReason
	Err    error
}

func (e GeolocationError) Error() string {
	switch e.Reason {
	case GeolocationDenied:
		return "location permission denied"
	case GeolocationTimeout:
		return "location request timed out"
	default:
		return "location unavailable"
	}
}

func (e GeolocationError) Unwrap() error { return e.Err }

// ParseGeolocationReason maps a client-reported code onto a known reason.
func ParseGeolocationReason(s string) GeolocationReason {
	switch GeolocationReason(s) {
	case GeolocationDenied, GeolocationTimeout:
		return GeolocationReason(s)
	default:
		return GeolocationUnavailable
	}
}

func IsNotFound(err error) bool {
	var target NotFoundError
	return errors.As(err, &target)
}

func IsValidation(err error) bool {
	var target ValidationError
	return errors.As(err, &target)
}

func IsConflict(err error) bool {
	var target ConflictError
	return errors.As(err, &target)
}

func IsInternal(err error) bool {
	var target InternalError
	return errors.As(err, &target)
}

func IsNetwork(err error) bool {
	var target NetworkError
	return errors.As(err, &target)
}

func IsGeolocation(err error) bool {
	var target GeolocationError
	return errors.As(err, &target)
}

// UserMessage picks the message a client should see for err.
func UserMessage(err error) string {
	var netErr NetworkError
	if errors.As(err, &netErr) {
		return netErr.UserMessage()
	}
	return err.Error()
}
