// Package archive mirrors synced conversation messages and observed
// appointment status changes into Postgres. It is a write-behind record for
// the agent: the sync and lifecycle cores never read from it, the backend
// stays the sole source of truth.
package archive

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/styleslot/styleslot-go/internal/appointment"
	"github.com/styleslot/styleslot-go/internal/conversation"
)

// Querier is the subset of pgx used by the store.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store persists the archive tables.
type Store struct {
	db Querier
}

func NewStore(db Querier) *Store {
	if db == nil {
		return nil
	}
	return &Store{db: db}
}

// SaveMessages inserts messages for a conversation. Message ids are globally
// unique, so replays from either sync channel are no-ops.
func (s *Store) SaveMessages(ctx context.Context, conversationID int64, msgs []conversation.Message) error {
	for _, m := range msgs {
		query := `
			INSERT INTO archived_messages (id, conversation_id, content, sent_by_me, created_at)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (id) DO NOTHING
		`
		if _, err := s.db.Exec(ctx, query, m.ID, conversationID, m.Content, m.SentByMe, m.CreatedAt); err != nil {
			return fmt.Errorf("archive: save message %d: %w", m.ID, err)
		}
	}
	return nil
}

// Messages returns archived messages for a conversation, ascending by
// created_at, capped at limit.
func (s *Store) Messages(ctx context.Context, conversationID int64, limit int) ([]conversation.Message, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `
		SELECT id, content, sent_by_me, created_at
		FROM archived_messages
		WHERE conversation_id = $1
		ORDER BY created_at ASC, id ASC
		LIMIT $2
	`
	rows, err := s.db.Query(ctx, query, conversationID, limit)
	if err != nil {
		return nil, fmt.Errorf("archive: list messages: %w", err)
	}
	defer rows.Close()

	var out []conversation.Message
	for rows.Next() {
		var m conversation.Message
		if err := rows.Scan(&m.ID, &m.Content, &m.SentByMe, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("archive: scan message: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("archive: iterate messages: %w", err)
	}
	return out, nil
}

// StatusChange is one observed appointment status, with when the agent first
// saw it.
type StatusChange struct {
	AppointmentID int64
	Status        appointment.Status
	ObservedAt    time.Time
}

// RecordStatus notes the appointment's current status. Re-observing the same
// status is a no-op, so the table ends up holding one row per transition the
// agent witnessed.
func (s *Store) RecordStatus(ctx context.Context, a appointment.Appointment, observedAt time.Time) error {
	query := `
		INSERT INTO appointment_status_history (appointment_id, status, observed_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (appointment_id, status) DO NOTHING
	`
	if _, err := s.db.Exec(ctx, query, a.ID, string(a.Status), observedAt); err != nil {
		return fmt.Errorf("archive: record status: %w", err)
	}
	return nil
}

// StatusHistory returns the witnessed status changes for an appointment in
// observation order.
func (s *Store) StatusHistory(ctx context.Context, appointmentID int64) ([]StatusChange, error) {
	query := `
		SELECT appointment_id, status, observed_at
		FROM appointment_status_history
		WHERE appointment_id = $1
		ORDER BY observed_at ASC
	`
	rows, err := s.db.Query(ctx, query, appointmentID)
	if err != nil {
		return nil, fmt.Errorf("archive: status history: %w", err)
	}
	defer rows.Close()

	var out []StatusChange
	for rows.Next() {
		var sc StatusChange
		var status string
		if err := rows.Scan(&sc.AppointmentID, &status, &sc.ObservedAt); err != nil {
			return nil, fmt.Errorf("archive: scan status change: %w", err)
		}
		sc.Status = appointment.Status(status)
		out = append(out, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("archive: iterate status history: %w", err)
	}
	return out, nil
}
