package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/styleslot/styleslot-go/internal/appointment"
)

// ErrNetwork marks transient transport failures (connection refused, timeout,
// unreadable response). Status-transition callers surface it without retrying;
// the poll loop retries on its next scheduled tick.
var ErrNetwork = errors.New("api: network error")

// Error is a failure reported by the backend. Reason carries the backend's
// human-readable explanation verbatim; Kind (when set) is one of the
// appointment error sentinels so callers can branch with errors.Is.
type Error struct {
	StatusCode int
	Reason     string
	Kind       error
}

func (e *Error) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("api: %s (status=%d)", e.Reason, e.StatusCode)
	}
	return fmt.Sprintf("api: http status %d", e.StatusCode)
}

func (e *Error) Unwrap() error {
	return e.Kind
}

// errorEnvelope is the backend's uniform failure payload.
type errorEnvelope struct {
	Error string `json:"error"`
}

// decodeError builds an *Error from a non-2xx response. kindFor maps the HTTP
// status to a domain error kind for the operation that failed; the server's
// classification is authoritative over any local gating.
func decodeError(status int, body []byte, kindFor func(int) error) error {
	var envelope errorEnvelope
	reason := ""
	if err := json.Unmarshal(body, &envelope); err == nil {
		reason = envelope.Error
	}
	if reason == "" {
		reason = string(body)
	}
	var kind error
	if kindFor != nil {
		kind = kindFor(status)
	}
	return &Error{StatusCode: status, Reason: reason, Kind: kind}
}

// permissionKind maps auth failures; other statuses carry no kind.
func permissionKind(status int) error {
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return appointment.ErrPermissionDenied
	}
	return nil
}

// bookingKind classifies booking rejections: auth failures are permission
// errors, everything else client-visible means the slot cannot be booked.
func bookingKind(status int) error {
	if kind := permissionKind(status); kind != nil {
		return kind
	}
	if status == http.StatusConflict || status == http.StatusUnprocessableEntity || status == http.StatusNotFound {
		return appointment.ErrIneligibleBooking
	}
	return nil
}

// transitionKind classifies accept/decline/cancel/complete rejections: a 409
// or 422 means the appointment is not in a state that admits the action.
func transitionKind(status int) error {
	if kind := permissionKind(status); kind != nil {
		return kind
	}
	if status == http.StatusConflict || status == http.StatusUnprocessableEntity {
		return appointment.ErrInvalidTransition
	}
	return nil
}
