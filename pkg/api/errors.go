package api

import (
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
)

// TransportError reports a network failure or a non-2xx response. Message is
// what users see, verbatim.
type TransportError struct {
	Method     string
	Path       string
	StatusCode int
	Message    string
	Body       string
}

func (e *TransportError) Error() string { return e.Message }

func (e *TransportError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
	}
	return false
}

func statusError(method, path string, code int, body string) *TransportError {
	return &TransportError{
		Method:     method,
		Path:       path,
		StatusCode: code,
		Message:    fmt.Sprintf("Request failed with status code %d", code),
		Body:       body,
	}
}

func networkError(method, path string, err error) *TransportError {
	return &TransportError{
		Method:  method,
		Path:    path,
		Message: err.Error(),
	}
}

// ActivationError is the named failure of the final activate write.
type ActivationError struct {
	Err error
}

func (e *ActivationError) Error() string { return "Error activating trigger" }

func (e *ActivationError) Unwrap() error { return e.Err }
