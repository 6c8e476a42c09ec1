package adapter

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	// ErrorKindNetwork covers transport-level failures: DNS, refused
	// connections, timeouts, unreadable bodies. Transient by assumption.
	ErrorKindNetwork ErrorKind = "network"
	// ErrorKindUnauthorized means the bearer credential was missing,
	// expired, or rejected. Surfaced distinctly so callers can prompt
	// re-authentication.
	ErrorKindUnauthorized ErrorKind = "unauthorized"
	// ErrorKindBackend is any other non-2xx response, carrying the
	// backend-supplied message when there is one.
	ErrorKindBackend ErrorKind = "backend"
)

// APIError is the uniform failure shape every BackendGateway call returns.
type APIError struct {
	Kind    ErrorKind
	Status  int
	Message string
	Err     error
}

func (e *APIError) Error() string {
	switch {
	case e.Message != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	default:
		return string(e.Kind)
	}
}

func (e *APIError) Unwrap() error { return e.Err }

func errorKind(err error) (ErrorKind, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind, true
	}
	return "", false
}

func IsUnauthorized(err error) bool {
	k, ok := errorKind(err)
	return ok && k == ErrorKindUnauthorized
}

func IsNetwork(err error) bool {
	k, ok := errorKind(err)
	return ok && k == ErrorKindNetwork
}
