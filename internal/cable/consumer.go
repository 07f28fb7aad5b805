// Package cable implements the client side of the backend's Action Cable
// websocket, used as the optional push source for conversation sync. A failed
// connection is never fatal: the caller degrades to poll-only delivery.
package cable

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/styleslot/styleslot-go/internal/conversation"
	"github.com/styleslot/styleslot-go/pkg/logging"
)

const (
	conversationChannel = "ConversationChannel"
	welcomeTimeout      = 10 * time.Second
)

var (
	ErrNotConnected      = errors.New("cable: not connected")
	ErrAlreadySubscribed = errors.New("cable: already subscribed to conversation")
)

// Consumer multiplexes channel subscriptions over one websocket connection,
// mirroring the Action Cable wire protocol: a subscribe command per channel
// identifier, ping/welcome/confirm control frames, and broadcast frames whose
// payload carries the actual event.
type Consumer struct {
	cableURL string
	token    string
	dialer   *websocket.Dialer
	logger   *logging.Logger

	mu      sync.Mutex
	conn    *websocket.Conn
	subs    map[string]func(conversation.Message)
	closed  bool
	writeMu sync.Mutex
}

// NewConsumer creates a consumer for the given cable endpoint. The session
// token is passed as a query parameter, the way the backend expects it.
func NewConsumer(cableURL, token string, logger *logging.Logger) *Consumer {
	if logger == nil {
		logger = logging.Default()
	}
	return &Consumer{
		cableURL: cableURL,
		token:    token,
		dialer:   websocket.DefaultDialer,
		logger:   logger,
		subs:     make(map[string]func(conversation.Message)),
	}
}

// frame is an inbound Action Cable message.
type frame struct {
	Type       string          `json:"type,omitempty"`
	Identifier string          `json:"identifier,omitempty"`
	Message    json.RawMessage `json:"message,omitempty"`
	Reason     string          `json:"reason,omitempty"`
}

// command is an outbound Action Cable message.
type command struct {
	Command    string `json:"command"`
	Identifier string `json:"identifier"`
}

type channelIdentifier struct {
	Channel        string `json:"channel"`
	ConversationID int64  `json:"conversation_id"`
}

// broadcastPayload is what the backend broadcasts on a conversation channel.
type broadcastPayload struct {
	Type    string               `json:"type"`
	Message conversation.Message `json:"message"`
}

// Connect dials the cable endpoint and waits for the server's welcome frame
// before starting the read loop. Calling Connect on a live consumer is a
// no-op.
func (c *Consumer) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errors.New("cable: consumer closed")
	}
	if c.conn != nil {
		return nil
	}

	u, err := url.Parse(c.cableURL)
	if err != nil {
		return fmt.Errorf("cable: parse url: %w", err)
	}
	q := u.Query()
	q.Set("token", c.token)
	u.RawQuery = q.Encode()

	conn, _, err := c.dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("cable: dial: %w", err)
	}

	// The server greets with a welcome frame; anything else before it is a
	// protocol error.
	_ = conn.SetReadDeadline(time.Now().Add(welcomeTimeout))
	var f frame
	if err := conn.ReadJSON(&f); err != nil {
		conn.Close()
		return fmt.Errorf("cable: read welcome: %w", err)
	}
	if f.Type != "welcome" {
		conn.Close()
		return fmt.Errorf("cable: unexpected frame %q before welcome", f.Type)
	}
	_ = conn.SetReadDeadline(time.Time{})

	c.conn = conn
	go c.readLoop(conn)
	c.logger.Debug("cable connected", "url", c.cableURL)
	return nil
}

// Subscribe attaches a handler for new-message events on one conversation,
// connecting first if necessary. The returned release function unsubscribes
// the channel. Subscribe satisfies conversation.PushSource.
func (c *Consumer) Subscribe(ctx context.Context, conversationID int64, deliver func(conversation.Message)) (func(), error) {
	if err := c.Connect(ctx); err != nil {
		return nil, err
	}

	identifier, err := json.Marshal(channelIdentifier{
		Channel:        conversationChannel,
		ConversationID: conversationID,
	})
	if err != nil {
		return nil, fmt.Errorf("cable: marshal identifier: %w", err)
	}
	ident := string(identifier)

	c.mu.Lock()
	if c.conn == nil {
		c.mu.Unlock()
		return nil, ErrNotConnected
	}
	if _, ok := c.subs[ident]; ok {
		c.mu.Unlock()
		return nil, ErrAlreadySubscribed
	}
	c.subs[ident] = deliver
	conn := c.conn
	c.mu.Unlock()

	if err := c.writeJSON(conn, command{Command: "subscribe", Identifier: ident}); err != nil {
		c.mu.Lock()
		delete(c.subs, ident)
		c.mu.Unlock()
		return nil, fmt.Errorf("cable: subscribe: %w", err)
	}

	release := func() {
		c.mu.Lock()
		delete(c.subs, ident)
		conn := c.conn
		c.mu.Unlock()
		if conn != nil {
			if err := c.writeJSON(conn, command{Command: "unsubscribe", Identifier: ident}); err != nil {
				c.logger.Debug("cable unsubscribe write failed", "error", err)
			}
		}
	}
	return release, nil
}

// Close tears the connection down and drops all subscriptions.
func (c *Consumer) Close() {
	c.mu.Lock()
	c.closed = true
	conn := c.conn
	c.conn = nil
	c.subs = make(map[string]func(conversation.Message))
	c.mu.Unlock()
	if conn != nil {
		conn.Close()
	}
}

func (c *Consumer) writeJSON(conn *websocket.Conn, v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return conn.WriteJSON(v)
}

func (c *Consumer) readLoop(conn *websocket.Conn) {
	for {
		var f frame
		if err := conn.ReadJSON(&f); err != nil {
			c.dropConn(conn)
			c.logger.Debug("cable read loop ended", "error", err)
			return
		}
		switch f.Type {
		case "ping":
			// Keepalive, nothing to do.
		case "confirm_subscription":
			c.logger.Debug("cable subscription confirmed", "identifier", f.Identifier)
		case "reject_subscription":
			c.logger.Warn("cable subscription rejected", "identifier", f.Identifier)
			c.mu.Lock()
			delete(c.subs, f.Identifier)
			c.mu.Unlock()
		case "disconnect":
			c.logger.Warn("cable server disconnect", "reason", f.Reason)
			c.dropConn(conn)
			conn.Close()
			return
		case "":
			c.dispatch(f)
		default:
			c.logger.Debug("cable frame ignored", "type", f.Type)
		}
	}
}

// dispatch routes a broadcast frame to its channel handler. Only new_message
// events are meaningful to this client.
func (c *Consumer) dispatch(f frame) {
	if f.Identifier == "" || len(f.Message) == 0 {
		return
	}
	c.mu.Lock()
	deliver, ok := c.subs[f.Identifier]
	c.mu.Unlock()
	if !ok {
		return
	}
	var payload broadcastPayload
	if err := json.Unmarshal(f.Message, &payload); err != nil {
		c.logger.Warn("cable broadcast decode failed", "error", err)
		return
	}
	if payload.Type != "new_message" {
		return
	}
	deliver(payload.Message)
}

// dropConn clears the stored connection if it is still the one the read loop
// was serving, so a later Connect can establish a fresh one.
func (c *Consumer) dropConn(conn *websocket.Conn) {
	c.mu.Lock()
	if c.conn == conn {
		c.conn = nil
	}
	c.mu.Unlock()
}
