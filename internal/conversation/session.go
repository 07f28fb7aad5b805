package conversation

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/styleslot/styleslot-go/internal/observability/metrics"
	"github.com/styleslot/styleslot-go/pkg/logging"
)

var sessionTracer = otel.Tracer("styleslot.internal.conversation")

// DefaultPollInterval matches the reference client's 3-second poll cadence,
// which bounds staleness even when the push channel is unavailable.
const DefaultPollInterval = 3 * time.Second

var (
	ErrSessionStarted = errors.New("conversation: session already started")
	ErrSessionStopped = errors.New("conversation: session stopped")
)

// Fetcher reads the authoritative full message list for a conversation.
type Fetcher interface {
	Conversation(ctx context.Context, id int64) (Conversation, error)
}

// Sender submits a new message; the backend assigns id and created_at.
type Sender interface {
	SendMessage(ctx context.Context, conversationID int64, content string) (Message, error)
}

// PushSource is an optional real-time channel delivering individual new
// messages as they occur. Subscribe returns a release function that tears the
// subscription down. Implementations that cannot connect should return an
// error; the session then degrades to poll-only.
type PushSource interface {
	Subscribe(ctx context.Context, conversationID int64, deliver func(Message)) (release func(), err error)
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithPollInterval overrides the poll cadence. Non-positive values are ignored.
func WithPollInterval(d time.Duration) SessionOption {
	return func(s *Session) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithPushSource attaches an optional push channel.
func WithPushSource(p PushSource) SessionOption {
	return func(s *Session) { s.push = p }
}

// WithOnUpdate registers a callback invoked with the merged message list
// whenever new messages arrive. The callback runs on the session's goroutine;
// it must not block.
func WithOnUpdate(fn func([]Message)) SessionOption {
	return func(s *Session) { s.onUpdate = fn }
}

// WithSyncMetrics attaches Prometheus counters.
func WithSyncMetrics(m *metrics.SyncMetrics) SessionOption {
	return func(s *Session) { s.metrics = m }
}

// Session maintains the local view of one conversation, reconciling the poll
// and push channels into a single deduplicated, time-ordered thread. A session
// is owned by whoever opened it: Start begins polling (and the push
// subscription, when available) and Stop tears both down. Results of fetches
// still in flight when Stop is called are discarded.
type Session struct {
	conversationID int64
	fetcher        Fetcher
	sender         Sender
	push           PushSource
	interval       time.Duration
	logger         *logging.Logger
	metrics        *metrics.SyncMetrics
	onUpdate       func([]Message)

	mu          sync.Mutex
	thread      *Thread
	started     bool
	stopped     bool
	cancel      context.CancelFunc
	releasePush func()
	loopDone    chan struct{}
}

// NewSession creates a session for one conversation. fetcher and sender are
// required; the push source is optional.
func NewSession(conversationID int64, fetcher Fetcher, sender Sender, logger *logging.Logger, opts ...SessionOption) *Session {
	if fetcher == nil {
		panic("conversation: fetcher required")
	}
	if sender == nil {
		panic("conversation: sender required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	s := &Session{
		conversationID: conversationID,
		fetcher:        fetcher,
		sender:         sender,
		interval:       DefaultPollInterval,
		logger:         logger,
		thread:         NewThread(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ConversationID returns the conversation this session is bound to.
func (s *Session) ConversationID() int64 {
	return s.conversationID
}

// Start begins the poll loop and, when a push source is configured, the push
// subscription. A push connect failure is not fatal: the session logs it and
// continues poll-only. Start may be called once per session.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return ErrSessionStopped
	}
	if s.started {
		s.mu.Unlock()
		return ErrSessionStarted
	}
	s.started = true
	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.loopDone = make(chan struct{})
	s.mu.Unlock()

	if s.push != nil {
		release, err := s.push.Subscribe(loopCtx, s.conversationID, s.deliverPush)
		if err != nil {
			s.logger.Warn("push channel unavailable, continuing poll-only",
				"conversation_id", s.conversationID,
				"error", err,
			)
		} else {
			s.mu.Lock()
			s.releasePush = release
			s.mu.Unlock()
		}
	}

	go s.pollLoop(loopCtx)
	return nil
}

// Stop cancels polling and releases the push subscription. It is idempotent.
// No state updates are applied after Stop returns.
func (s *Session) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	cancel := s.cancel
	release := s.releasePush
	s.releasePush = nil
	done := s.loopDone
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if release != nil {
		release()
	}
	if done != nil {
		<-done
	}
	s.logger.Debug("conversation session stopped", "conversation_id", s.conversationID)
}

// Messages returns the current merged, ascending-ordered message list.
func (s *Session) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.thread.Messages()
}

// Send submits a message and then refreshes immediately so the local list
// picks up the server-assigned id and created_at. The message is never
// inserted locally first, which is what prevents a duplicate echo once the
// poll result arrives.
func (s *Session) Send(ctx context.Context, content string) error {
	ctx, span := sessionTracer.Start(ctx, "conversation.send")
	defer span.End()

	if _, err := s.sender.SendMessage(ctx, s.conversationID, content); err != nil {
		s.metrics.ObserveSend("error")
		span.RecordError(err)
		return err
	}
	s.metrics.ObserveSend("ok")
	s.refresh(ctx)
	return nil
}

// Refresh forces one poll fetch outside the regular cadence.
func (s *Session) Refresh(ctx context.Context) {
	s.refresh(ctx)
}

func (s *Session) pollLoop(ctx context.Context) {
	defer close(s.loopDone)
	s.refresh(ctx)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.refresh(ctx)
		}
	}
}

// refresh fetches the authoritative message list and merges it. A failed poll
// is logged and skipped; the next scheduled tick retries at the same fixed
// interval.
func (s *Session) refresh(ctx context.Context) {
	start := time.Now()
	conv, err := s.fetcher.Conversation(ctx, s.conversationID)
	if err != nil {
		if ctx.Err() == nil {
			s.metrics.ObservePoll("error", time.Since(start).Seconds())
			s.logger.Warn("conversation poll failed",
				"conversation_id", s.conversationID,
				"error", err,
			)
		}
		return
	}
	s.metrics.ObservePoll("ok", time.Since(start).Seconds())
	s.apply(conv.Messages)
}

func (s *Session) deliverPush(msg Message) {
	s.metrics.ObservePushEvent("new_message")
	s.apply([]Message{msg})
}

// apply merges messages under the session lock, discarding deliveries that
// arrive after Stop so a stale subscriber never observes new state.
func (s *Session) apply(msgs []Message) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	added, deduped := s.thread.Merge(msgs...)
	var snapshot []Message
	if added > 0 && s.onUpdate != nil {
		snapshot = s.thread.Messages()
	}
	s.mu.Unlock()

	s.metrics.ObserveMerge(added, deduped)
	if snapshot != nil {
		s.onUpdate(snapshot)
	}
}
