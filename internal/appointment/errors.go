package appointment

import "errors"

// Error kinds the lifecycle distinguishes. Remote failures are wrapped in one
// of these by the API layer so callers can branch with errors.Is while the
// backend's reason string stays available verbatim through Error().
var (
	// ErrIneligibleBooking means the slot is no longer available or not in a
	// bookable state. Not retryable until the user picks a different slot.
	ErrIneligibleBooking = errors.New("appointment is not available for booking")

	// ErrInvalidTransition means the action was attempted against a terminal
	// or mismatched status. It usually indicates a stale local snapshot.
	ErrInvalidTransition = errors.New("invalid appointment state transition")

	// ErrPermissionDenied means the viewer lacks the role or ownership the
	// action requires. The server's verdict overrides local gating.
	ErrPermissionDenied = errors.New("permission denied")
)
