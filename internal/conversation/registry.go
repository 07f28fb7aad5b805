package conversation

import (
	"context"
	"sync"

	"github.com/styleslot/styleslot-go/pkg/logging"
)

// Registry owns at most one live session per conversation. Subscribing to a
// conversation that already has a session is a no-op returning the existing
// handle, so screens cannot accidentally double-poll a thread.
type Registry struct {
	open   func(conversationID int64) *Session
	logger *logging.Logger

	mu       sync.Mutex
	sessions map[int64]*Session
}

// NewRegistry creates a registry. open builds a fresh (unstarted) session for
// a conversation id.
func NewRegistry(open func(conversationID int64) *Session, logger *logging.Logger) *Registry {
	if open == nil {
		panic("conversation: open factory required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Registry{
		open:     open,
		logger:   logger,
		sessions: make(map[int64]*Session),
	}
}

// Subscribe returns the live session for the conversation, starting a new one
// if none exists.
func (r *Registry) Subscribe(ctx context.Context, conversationID int64) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.sessions[conversationID]; ok {
		return existing, nil
	}

	session := r.open(conversationID)
	if err := session.Start(ctx); err != nil {
		return nil, err
	}
	r.sessions[conversationID] = session
	r.logger.Debug("conversation session opened", "conversation_id", conversationID)
	return session, nil
}

// Unsubscribe stops and forgets the session for the conversation, if any.
func (r *Registry) Unsubscribe(conversationID int64) {
	r.mu.Lock()
	session, ok := r.sessions[conversationID]
	delete(r.sessions, conversationID)
	r.mu.Unlock()

	if ok {
		session.Stop()
	}
}

// Session returns the live session for a conversation, or nil.
func (r *Registry) Session(conversationID int64) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessions[conversationID]
}

// Close stops every live session.
func (r *Registry) Close() {
	r.mu.Lock()
	sessions := make([]*Session, 0, len(r.sessions))
	for id, s := range r.sessions {
		sessions = append(sessions, s)
		delete(r.sessions, id)
	}
	r.mu.Unlock()

	for _, s := range sessions {
		s.Stop()
	}
}
