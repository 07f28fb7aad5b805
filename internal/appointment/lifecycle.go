package appointment

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/styleslot/styleslot-go/internal/observability/metrics"
	"github.com/styleslot/styleslot-go/pkg/logging"
)

var lifecycleTracer = otel.Tracer("styleslot.internal.appointment")

// Backend is the remote system of record for appointment transitions. Every
// method proposes a transition (or reads a snapshot) and returns the updated
// appointment on acknowledgement.
type Backend interface {
	Appointment(ctx context.Context, id int64) (Appointment, error)
	Book(ctx context.Context, id int64, selectedService string) (Appointment, error)
	Accept(ctx context.Context, id int64) (Appointment, error)
	Cancel(ctx context.Context, id int64) (Appointment, error)
	StylistCancel(ctx context.Context, id int64) (Appointment, error)
	Complete(ctx context.Context, id int64) (Appointment, error)
}

// Lifecycle tracks one appointment snapshot for one viewer and applies status
// transitions through the backend. The local snapshot is only replaced after
// the backend acknowledges a transition; a failed call leaves it untouched.
type Lifecycle struct {
	backend Backend
	viewer  Viewer
	logger  *logging.Logger
	metrics *metrics.LifecycleMetrics

	mu      sync.Mutex
	current Appointment
}

// NewLifecycle creates a lifecycle tracker seeded with a snapshot.
func NewLifecycle(backend Backend, viewer Viewer, snapshot Appointment, logger *logging.Logger, m *metrics.LifecycleMetrics) *Lifecycle {
	if backend == nil {
		panic("appointment: backend required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Lifecycle{
		backend: backend,
		viewer:  viewer,
		logger:  logger,
		metrics: m,
		current: snapshot,
	}
}

// Current returns the last acknowledged snapshot.
func (l *Lifecycle) Current() Appointment {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.current
}

// Viewer returns the actor this lifecycle evaluates eligibility for.
func (l *Lifecycle) Viewer() Viewer {
	return l.viewer
}

// Refresh replaces the snapshot with a fresh read from the backend.
func (l *Lifecycle) Refresh(ctx context.Context) (Appointment, error) {
	ctx, span := lifecycleTracer.Start(ctx, "appointment.refresh")
	defer span.End()

	l.mu.Lock()
	id := l.current.ID
	l.mu.Unlock()

	fresh, err := l.backend.Appointment(ctx, id)
	if err != nil {
		span.RecordError(err)
		return Appointment{}, err
	}
	l.mu.Lock()
	l.current = fresh
	l.mu.Unlock()
	return fresh, nil
}

// Book attaches the viewing customer to an open slot. The appointment stays
// pending afterwards, awaiting stylist confirmation.
func (l *Lifecycle) Book(ctx context.Context, selectedService string) (Appointment, error) {
	if l.viewer.Role != RoleCustomer {
		return Appointment{}, fmt.Errorf("book: %w", ErrPermissionDenied)
	}
	return l.apply(ctx, "book", func(a Appointment) error {
		// Any non-bookable state (taken slot, terminal status) is the same
		// failure from the customer's perspective: pick a different slot.
		if !CanBook(a) {
			return fmt.Errorf("book: %w", ErrIneligibleBooking)
		}
		return nil
	}, func(ctx context.Context, id int64) (Appointment, error) {
		return l.backend.Book(ctx, id, selectedService)
	})
}

// Accept confirms a pending booking request. Only the owning stylist may call
// it.
func (l *Lifecycle) Accept(ctx context.Context) (Appointment, error) {
	return l.apply(ctx, "accept", func(a Appointment) error {
		if !OwnedBy(a, l.viewer) {
			return fmt.Errorf("accept: %w", ErrPermissionDenied)
		}
		if !CanAcceptOrDecline(a, l.viewer) {
			return fmt.Errorf("accept: status is %s: %w", a.Status, ErrInvalidTransition)
		}
		return nil
	}, l.backend.Accept)
}

// Decline rejects a pending booking request, cancelling the appointment.
func (l *Lifecycle) Decline(ctx context.Context) (Appointment, error) {
	return l.apply(ctx, "decline", func(a Appointment) error {
		if !OwnedBy(a, l.viewer) {
			return fmt.Errorf("decline: %w", ErrPermissionDenied)
		}
		if !CanAcceptOrDecline(a, l.viewer) {
			return fmt.Errorf("decline: status is %s: %w", a.Status, ErrInvalidTransition)
		}
		return nil
	}, l.backend.StylistCancel)
}

// Cancel cancels a pending or booked appointment from either side. The
// backend route depends on which side the viewer is on.
func (l *Lifecycle) Cancel(ctx context.Context) (Appointment, error) {
	call := l.backend.Cancel
	if l.viewer.Role == RoleStylist {
		call = l.backend.StylistCancel
	}
	return l.apply(ctx, "cancel", func(a Appointment) error {
		if a.Status.Terminal() {
			return fmt.Errorf("cancel: status is %s: %w", a.Status, ErrInvalidTransition)
		}
		if !CanCancel(a, l.viewer) {
			return fmt.Errorf("cancel: %w", ErrPermissionDenied)
		}
		return nil
	}, call)
}

// Complete marks a booked appointment as completed. Stylist only.
func (l *Lifecycle) Complete(ctx context.Context) (Appointment, error) {
	return l.apply(ctx, "complete", func(a Appointment) error {
		if !OwnedBy(a, l.viewer) {
			return fmt.Errorf("complete: %w", ErrPermissionDenied)
		}
		if !CanComplete(a, l.viewer) {
			return fmt.Errorf("complete: status is %s: %w", a.Status, ErrInvalidTransition)
		}
		return nil
	}, l.backend.Complete)
}

// apply runs one transition: local precondition check, remote call, commit on
// acknowledgement. A server-side invalid-transition verdict forces a snapshot
// refresh since it means the local view went stale.
func (l *Lifecycle) apply(ctx context.Context, action string, precondition func(Appointment) error, call func(context.Context, int64) (Appointment, error)) (Appointment, error) {
	ctx, span := lifecycleTracer.Start(ctx, "appointment."+action)
	defer span.End()

	l.mu.Lock()
	snapshot := l.current
	l.mu.Unlock()

	span.SetAttributes(
		attribute.Int64("styleslot.appointment_id", snapshot.ID),
		attribute.String("styleslot.status", string(snapshot.Status)),
	)

	if err := precondition(snapshot); err != nil {
		l.metrics.ObserveTransition(action, "rejected_local")
		span.RecordError(err)
		return Appointment{}, err
	}

	updated, err := call(ctx, snapshot.ID)
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, ErrInvalidTransition) {
			l.metrics.ObserveTransition(action, "rejected_stale")
			l.logger.Warn("transition rejected by backend, refreshing snapshot",
				"action", action,
				"appointment_id", snapshot.ID,
			)
			if _, refreshErr := l.Refresh(ctx); refreshErr != nil {
				l.logger.Warn("snapshot refresh failed",
					"appointment_id", snapshot.ID,
					"error", refreshErr,
				)
			}
			return Appointment{}, err
		}
		l.metrics.ObserveTransition(action, "failed")
		return Appointment{}, err
	}

	l.mu.Lock()
	l.current = updated
	l.mu.Unlock()

	l.metrics.ObserveTransition(action, "committed")
	l.logger.Info("appointment transition committed",
		"action", action,
		"appointment_id", updated.ID,
		"status", updated.Status,
	)
	return updated, nil
}
