package client

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error answer from the Directory API.
type Kind string

const (
	KindValidation Kind = "validation"
	KindNotFound   Kind = "not_found"
	KindConflict   Kind = "conflict"
	KindInternal   Kind = "internal"
)

// APIError is a non-2xx answer. Msg is the server's human-readable message.
type APIError struct {
	Kind   Kind
	Status int
	Msg    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("directory api: %d %s", e.Status, e.Msg)
}

// NetworkError means no response was received at all.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("directory api: %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

const msgUnreachable = "Could not reach the directory service. Check your connection and try again."

// Message returns the text a user should see for err.
func Message(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Msg
	}
	var netErr *NetworkError
	if errors.As(err, &netErr) {
		return msgUnreachable
	}
	return err.Error()
}

// IsKind reports whether err is an APIError of the given kind.
func IsKind(err error, kind Kind) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Kind == kind
}

func kindFor(status int) Kind {
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return KindValidation
	case http.StatusNotFound:
		return KindNotFound
	case http.StatusConflict:
		return KindConflict
	default:
		return KindInternal
	}
}
