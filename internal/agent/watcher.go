package agent

import (
	"context"
	"time"

	"github.com/styleslot/styleslot-go/internal/api"
	"github.com/styleslot/styleslot-go/internal/appointment"
	"github.com/styleslot/styleslot-go/internal/conversation"
	"github.com/styleslot/styleslot-go/pkg/logging"
)

type appointmentSource interface {
	MyAppointments(ctx context.Context, filters api.StatusFilters) (api.AppointmentPage, error)
	StylistAppointments(ctx context.Context, filters api.StatusFilters) (api.AppointmentPage, error)
	Conversations(ctx context.Context) ([]conversation.Conversation, error)
}

type statusRecorder interface {
	RecordStatus(ctx context.Context, a appointment.Appointment, observedAt time.Time) error
}

type messageArchiver interface {
	SaveMessages(ctx context.Context, conversationID int64, msgs []conversation.Message) error
}

// Watcher periodically walks the account's appointments and conversations. It
// records every status the agent witnesses, keeps a sync session open for each
// conversation, and mirrors the synced messages into the archive.
type Watcher struct {
	source   appointmentSource
	sessions *conversation.Registry
	recorder statusRecorder
	archiver messageArchiver
	viewer   appointment.Viewer
	logger   *logging.Logger
	interval time.Duration
	pageSize int
}

func NewWatcher(source appointmentSource, sessions *conversation.Registry, viewer appointment.Viewer, logger *logging.Logger) *Watcher {
	if logger == nil {
		logger = logging.Default()
	}
	return &Watcher{
		source:   source,
		sessions: sessions,
		viewer:   viewer,
		logger:   logger,
		interval: 30 * time.Second,
		pageSize: 50,
	}
}

func (w *Watcher) WithInterval(d time.Duration) *Watcher {
	if d > 0 {
		w.interval = d
	}
	return w
}

func (w *Watcher) WithPageSize(n int) *Watcher {
	if n > 0 {
		w.pageSize = n
	}
	return w
}

// WithArchive attaches the optional Postgres archive. Without it the watcher
// still syncs conversations, it just keeps no durable record.
func (w *Watcher) WithArchive(recorder statusRecorder, archiver messageArchiver) *Watcher {
	w.recorder = recorder
	w.archiver = archiver
	return w
}

// Run drains immediately, then on every tick until the context is cancelled.
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	w.drain(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.drain(ctx)
		}
	}
}

func (w *Watcher) drain(ctx context.Context) {
	if w.source == nil {
		return
	}
	w.recordAppointments(ctx)
	w.syncConversations(ctx)
}

// recordAppointments pages through the account's appointment list for the
// viewer's side of the marketplace and notes each current status. Re-observed
// statuses are no-ops in the archive, so only genuine transitions accumulate.
func (w *Watcher) recordAppointments(ctx context.Context) {
	list := w.source.MyAppointments
	if w.viewer.Role == appointment.RoleStylist {
		list = w.source.StylistAppointments
	}

	observedAt := time.Now().UTC()
	for page := 1; ; page++ {
		result, err := list(ctx, api.StatusFilters{Page: page, PerPage: w.pageSize})
		if err != nil {
			if ctx.Err() == nil {
				w.logger.Warn("appointment poll failed", "page", page, "error", err)
			}
			return
		}
		for _, a := range result.Appointments {
			if w.recorder == nil {
				continue
			}
			if err := w.recorder.RecordStatus(ctx, a, observedAt); err != nil {
				w.logger.Error("status record failed", "appointment_id", a.ID, "error", err)
			}
		}
		if !result.Meta.More() {
			return
		}
	}
}

// syncConversations makes sure every conversation the account participates in
// has a live sync session, then mirrors each session's merged thread into the
// archive.
func (w *Watcher) syncConversations(ctx context.Context) {
	if w.sessions == nil {
		return
	}
	conversations, err := w.source.Conversations(ctx)
	if err != nil {
		if ctx.Err() == nil {
			w.logger.Warn("conversation list poll failed", "error", err)
		}
		return
	}
	for _, conv := range conversations {
		session, err := w.sessions.Subscribe(ctx, conv.ID)
		if err != nil {
			w.logger.Error("conversation subscribe failed", "conversation_id", conv.ID, "error", err)
			continue
		}
		if w.archiver == nil {
			continue
		}
		msgs := session.Messages()
		if len(msgs) == 0 {
			continue
		}
		if err := w.archiver.SaveMessages(ctx, conv.ID, msgs); err != nil {
			w.logger.Error("message archive failed", "conversation_id", conv.ID, "error", err)
		}
	}
}
