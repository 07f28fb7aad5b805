package conversation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// fakeBackend serves as both poll fetcher and sender, mimicking the server:
// sends append to the authoritative list, polls return a snapshot of it.
type fakeBackend struct {
	mu       sync.Mutex
	messages []Message
	nextID   int64
	fetchErr error
	sendErr  error
	fetches  int
}

func newFakeBackend(seed ...Message) *fakeBackend {
	f := &fakeBackend{nextID: 100}
	f.messages = append(f.messages, seed...)
	return f
}

func (f *fakeBackend) Conversation(ctx context.Context, id int64) (Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	if f.fetchErr != nil {
		return Conversation{}, f.fetchErr
	}
	msgs := make([]Message, len(f.messages))
	copy(msgs, f.messages)
	return Conversation{ID: id, Messages: msgs}, nil
}

func (f *fakeBackend) SendMessage(ctx context.Context, conversationID int64, content string) (Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return Message{}, f.sendErr
	}
	f.nextID++
	m := Message{ID: f.nextID, Content: content, CreatedAt: time.Now(), SentByMe: true}
	f.messages = append(f.messages, m)
	return m, nil
}

func (f *fakeBackend) append(m Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, m)
}

// fakePush hands the session's deliver callback back to the test.
type fakePush struct {
	mu       sync.Mutex
	deliver  func(Message)
	released bool
	err      error
}

func (f *fakePush) Subscribe(ctx context.Context, conversationID int64, deliver func(Message)) (func(), error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	f.deliver = deliver
	f.mu.Unlock()
	return func() {
		f.mu.Lock()
		f.released = true
		f.mu.Unlock()
	}, nil
}

func (f *fakePush) send(m Message) {
	f.mu.Lock()
	deliver := f.deliver
	f.mu.Unlock()
	if deliver != nil {
		deliver(m)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func TestSessionPollMergesAuthoritativeList(t *testing.T) {
	backend := newFakeBackend(
		msg(1, "2026-02-01T10:00:00Z", "hi"),
		msg(2, "2026-02-01T10:01:00Z", "hello"),
	)
	s := NewSession(7, backend, backend, nil, WithPollInterval(5*time.Millisecond))
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer s.Stop()

	waitFor(t, func() bool { return len(s.Messages()) == 2 })

	backend.append(msg(3, "2026-02-01T10:02:00Z", "anyone there?"))
	waitFor(t, func() bool { return len(s.Messages()) == 3 })

	got := s.Messages()
	if got[2].ID != 3 {
		t.Fatalf("latest message should be last, got id %d", got[2].ID)
	}
}

func TestSessionPushAndPollConverge(t *testing.T) {
	backend := newFakeBackend(msg(1, "2026-02-01T10:00:00Z", "hi"))
	push := &fakePush{}
	s := NewSession(7, backend, backend, nil,
		WithPollInterval(5*time.Millisecond),
		WithPushSource(push),
	)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer s.Stop()

	waitFor(t, func() bool { return len(s.Messages()) == 1 })

	// The same message arrives on both channels; it must appear once.
	m := msg(2, "2026-02-01T10:01:00Z", "new")
	backend.append(m)
	push.send(m)

	waitFor(t, func() bool { return len(s.Messages()) == 2 })
	time.Sleep(20 * time.Millisecond)
	if got := len(s.Messages()); got != 2 {
		t.Fatalf("duplicate across channels leaked: %d messages", got)
	}
}

func TestSessionPushFailureDegradesToPollOnly(t *testing.T) {
	backend := newFakeBackend(msg(1, "2026-02-01T10:00:00Z", "hi"))
	push := &fakePush{err: errors.New("cable down")}
	s := NewSession(7, backend, backend, nil,
		WithPollInterval(5*time.Millisecond),
		WithPushSource(push),
	)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("start must not fail on push errors: %v", err)
	}
	defer s.Stop()

	waitFor(t, func() bool { return len(s.Messages()) == 1 })
}

func TestSessionSendRefreshesWithoutEcho(t *testing.T) {
	backend := newFakeBackend()
	s := NewSession(7, backend, backend, nil, WithPollInterval(time.Hour))
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer s.Stop()

	if err := s.Send(context.Background(), "on my way"); err != nil {
		t.Fatalf("send: %v", err)
	}
	got := s.Messages()
	if len(got) != 1 {
		t.Fatalf("want exactly one message after send, got %d", len(got))
	}
	if got[0].ID == 0 {
		t.Fatal("message must carry the server-assigned id")
	}
	if !got[0].SentByMe {
		t.Fatal("sent message should be attributed to the viewer")
	}
}

func TestSessionSendFailureLeavesThread(t *testing.T) {
	backend := newFakeBackend()
	backend.sendErr = errors.New("rejected")
	s := NewSession(7, backend, backend, nil, WithPollInterval(time.Hour))
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer s.Stop()

	if err := s.Send(context.Background(), "on my way"); err == nil {
		t.Fatal("expected send error")
	}
	// No optimistic insert: nothing may appear locally.
	waitFor(t, func() bool { return true })
	if got := len(s.Messages()); got != 0 {
		t.Fatalf("failed send must not leave a local message, got %d", got)
	}
}

func TestSessionPollErrorSkipsAndRetries(t *testing.T) {
	backend := newFakeBackend(msg(1, "2026-02-01T10:00:00Z", "hi"))
	backend.fetchErr = errors.New("503")
	s := NewSession(7, backend, backend, nil, WithPollInterval(5*time.Millisecond))
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer s.Stop()

	waitFor(t, func() bool {
		backend.mu.Lock()
		defer backend.mu.Unlock()
		return backend.fetches >= 2
	})
	if len(s.Messages()) != 0 {
		t.Fatal("failed polls must not change the thread")
	}

	backend.mu.Lock()
	backend.fetchErr = nil
	backend.mu.Unlock()
	waitFor(t, func() bool { return len(s.Messages()) == 1 })
}

func TestSessionStopDiscardsLateDeliveries(t *testing.T) {
	backend := newFakeBackend(msg(1, "2026-02-01T10:00:00Z", "hi"))
	push := &fakePush{}
	s := NewSession(7, backend, backend, nil,
		WithPollInterval(5*time.Millisecond),
		WithPushSource(push),
	)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	waitFor(t, func() bool { return len(s.Messages()) == 1 })

	s.Stop()
	if !push.released {
		t.Fatal("stop must release the push subscription")
	}

	// A delivery that was in flight when Stop ran must be dropped.
	push.send(msg(2, "2026-02-01T10:01:00Z", "late"))
	if got := len(s.Messages()); got != 1 {
		t.Fatalf("late delivery applied after stop: %d messages", got)
	}
}

func TestSessionStopIdempotentAndStartOnce(t *testing.T) {
	backend := newFakeBackend()
	s := NewSession(7, backend, backend, nil, WithPollInterval(time.Hour))
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := s.Start(context.Background()); !errors.Is(err, ErrSessionStarted) {
		t.Fatalf("second start: want ErrSessionStarted, got %v", err)
	}
	s.Stop()
	s.Stop()
	if err := s.Start(context.Background()); !errors.Is(err, ErrSessionStopped) {
		t.Fatalf("restart after stop: want ErrSessionStopped, got %v", err)
	}
}

func TestSessionOnUpdateFiresOnNewMessagesOnly(t *testing.T) {
	backend := newFakeBackend(msg(1, "2026-02-01T10:00:00Z", "hi"))
	var mu sync.Mutex
	var calls int
	s := NewSession(7, backend, backend, nil,
		WithPollInterval(5*time.Millisecond),
		WithOnUpdate(func(msgs []Message) {
			mu.Lock()
			calls++
			mu.Unlock()
		}),
	)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer s.Stop()

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return calls == 1
	})

	// Subsequent polls return the same list; the callback must stay quiet.
	time.Sleep(30 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	if calls != 1 {
		t.Fatalf("onUpdate fired %d times for unchanged list", calls)
	}
}
