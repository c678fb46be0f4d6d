package ledger

import (
	"fmt"
	"net/http"
)

// ForbiddenError : caller lacks the rights for this transition.
type ForbiddenError struct {
	Reason string
}

func (e *ForbiddenError) Error() string { return e.Reason }

// ConflictError : a PENDING transfer already exists for the asset.
type ConflictError struct {
	Reason string
}

func (e *ConflictError) Error() string { return e.Reason }

// AlreadyActedError : duplicate approval attempt.
type AlreadyActedError struct {
	Reason string
}

func (e *AlreadyActedError) Error() string { return e.Reason }

// ExpiredError : action attempted past the transfer deadline.
type ExpiredError struct {
	Reason string
}

func (e *ExpiredError) Error() string { return e.Reason }

// NotFoundError : unknown asset or transfer.
type NotFoundError struct {
	Reason string
}

func (e *NotFoundError) Error() string { return e.Reason }

// ServerError : the backend failed in a way outside the transfer taxonomy.
type ServerError struct {
	StatusCode int
	Reason     string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("ledger error (HTTP %d): %s", e.StatusCode, e.Reason)
}

// TransportError : the request never produced a server verdict. The mutation
// may still have landed; callers must reconcile with a fresh fetch before
// retrying.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: transport failure: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// errorBody is the backend's error envelope.
type errorBody struct {
	Error string `json:"error"`
}

// apiError maps a non-2xx response to the transfer error taxonomy. 409 is
// ambiguous on the wire: initiate uses it for an existing pending transfer,
// approve for a duplicate signature.
func apiError(op string, statusCode int, msg string) error {
	if msg == "" {
		msg = http.StatusText(statusCode)
	}
	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return &ForbiddenError{Reason: msg}
	case http.StatusNotFound:
		return &NotFoundError{Reason: msg}
	case http.StatusConflict:
		if op == "initiate" {
			return &ConflictError{Reason: msg}
		}
		return &AlreadyActedError{Reason: msg}
	case http.StatusGone:
		return &ExpiredError{Reason: msg}
	}
	return &ServerError{StatusCode: statusCode, Reason: msg}
}
