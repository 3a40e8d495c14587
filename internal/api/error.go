package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure so callers can branch without string matching.
type Kind string

const (
	KindNetworkUnreachable     Kind = "network_unreachable"
	KindAuthenticationRejected Kind = "authentication_rejected"
	KindAuthorizationDenied    Kind = "authorization_denied"
	KindUnauthenticated        Kind = "unauthenticated"
	KindValidationFailed       Kind = "validation_failed"
	KindForbidden              Kind = "forbidden"
	KindNotFound               Kind = "not_found"
	KindResourceConflict       Kind = "resource_conflict"
	KindPaymentDeclined        Kind = "payment_declined"
	KindServerError            Kind = "server_error"
)

var (
	ErrMissingToken       = errors.New("missing auth token")
	ErrUnexpectedResponse = errors.New("unexpected response shape")
)

// Error is returned by every Client operation.
type Error struct {
	Op      string // e.g. "api.AcceptCourierOrder"
	Kind    Kind
	Status  int    // HTTP status, 0 when no response arrived
	Message string // server-provided message when available
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Status != 0 && e.Message != "":
		return fmt.Sprintf("%s: %s (%d): %s", e.Op, e.Kind, e.Status, e.Message)
	case e.Status != 0:
		return fmt.Sprintf("%s: %s (%d)", e.Op, e.Kind, e.Status)
	case e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	default:
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError builds an Error that did not come from an HTTP response.
func NewError(op string, kind Kind, err error) *Error {
	return &Error{Op: op, Kind: kind, Err: err}
}

// KindOf returns the Kind of err, or "" when err is not an *Error.
func KindOf(err error) Kind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return ""
}

func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// MessageOf returns the server message carried by err, if any.
func MessageOf(err error) string {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return ""
}

// retryable reports whether a GET may be attempted again.
func retryable(err error) bool {
	switch KindOf(err) {
	case KindNetworkUnreachable, KindServerError:
		return true
	}
	return false
}

func kindForStatus(status int, authEndpoint bool) Kind {
	switch {
	case status == http.StatusUnauthorized && authEndpoint:
		return KindAuthenticationRejected
	case status == http.StatusUnauthorized:
		return KindAuthorizationDenied
	case status == http.StatusBadRequest, status == http.StatusUnprocessableEntity:
		return KindValidationFailed
	case status == http.StatusPaymentRequired:
		return KindPaymentDeclined
	case status == http.StatusForbidden:
		return KindForbidden
	case status == http.StatusNotFound:
		return KindNotFound
	case status == http.StatusConflict:
		return KindResourceConflict
	default:
		return KindServerError
	}
}

func statusError(op string, status int, body []byte, authEndpoint bool) *Error {
	return &Error{
		Op:      op,
		Kind:    kindForStatus(status, authEndpoint),
		Status:  status,
		Message: serverMessage(body),
	}
}

// serverMessage pulls "error" and then "message" out of a JSON error body.
func serverMessage(body []byte) string {
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	for _, key := range []string{"error", "message"} {
		if s, ok := payload[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}
