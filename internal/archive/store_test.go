package archive

import (
	"context"
	"errors"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"

	"github.com/styleslot/styleslot-go/internal/appointment"
	"github.com/styleslot/styleslot-go/internal/conversation"
)

func newMockStore(t *testing.T) (*Store, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	t.Cleanup(mock.Close)
	return NewStore(mock), mock
}

func TestSaveMessages(t *testing.T) {
	store, mock := newMockStore(t)
	at := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	msgs := []conversation.Message{
		{ID: 1, Content: "hi", CreatedAt: at, SentByMe: false},
		{ID: 2, Content: "hello", CreatedAt: at.Add(time.Minute), SentByMe: true},
	}

	mock.ExpectExec("INSERT INTO archived_messages").
		WithArgs(int64(1), int64(7), "hi", false, at).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO archived_messages").
		WithArgs(int64(2), int64(7), "hello", true, at.Add(time.Minute)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	if err := store.SaveMessages(context.Background(), 7, msgs); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSaveMessagesReplayIsNoop(t *testing.T) {
	store, mock := newMockStore(t)
	at := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)

	// ON CONFLICT DO NOTHING reports zero rows affected for a replay.
	mock.ExpectExec("INSERT INTO archived_messages").
		WithArgs(int64(1), int64(7), "hi", false, at).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	err := store.SaveMessages(context.Background(), 7, []conversation.Message{{ID: 1, Content: "hi", CreatedAt: at}})
	if err != nil {
		t.Fatalf("replay must not error: %v", err)
	}
}

func TestSaveMessagesPropagatesError(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec("INSERT INTO archived_messages").
		WillReturnError(errors.New("connection lost"))

	err := store.SaveMessages(context.Background(), 7, []conversation.Message{{ID: 1}})
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestMessages(t *testing.T) {
	store, mock := newMockStore(t)
	at := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT id, content, sent_by_me, created_at").
		WithArgs(int64(7), 2).
		WillReturnRows(pgxmock.NewRows([]string{"id", "content", "sent_by_me", "created_at"}).
			AddRow(int64(1), "hi", false, at).
			AddRow(int64(2), "hello", true, at.Add(time.Minute)))

	msgs, err := store.Messages(context.Background(), 7, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(msgs) != 2 || msgs[0].ID != 1 || msgs[1].SentByMe != true {
		t.Fatalf("messages = %+v", msgs)
	}
}

func TestRecordStatusAndHistory(t *testing.T) {
	store, mock := newMockStore(t)
	at := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	appt := appointment.Appointment{ID: 5, Status: appointment.StatusBooked}

	mock.ExpectExec("INSERT INTO appointment_status_history").
		WithArgs(int64(5), "booked", at).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	if err := store.RecordStatus(context.Background(), appt, at); err != nil {
		t.Fatalf("record: %v", err)
	}

	mock.ExpectQuery("SELECT appointment_id, status, observed_at").
		WithArgs(int64(5)).
		WillReturnRows(pgxmock.NewRows([]string{"appointment_id", "status", "observed_at"}).
			AddRow(int64(5), "pending", at.Add(-time.Hour)).
			AddRow(int64(5), "booked", at))

	history, err := store.StatusHistory(context.Background(), 5)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("history = %+v", history)
	}
	if history[0].Status != appointment.StatusPending || history[1].Status != appointment.StatusBooked {
		t.Fatalf("history order wrong: %+v", history)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestNewStoreNilDB(t *testing.T) {
	if NewStore(nil) != nil {
		t.Fatal("nil db must yield nil store")
	}
}
