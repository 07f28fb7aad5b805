package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/styleslot/styleslot-go/internal/conversation"
)

type conversationEnvelope struct {
	Conversation conversation.Conversation `json:"conversation"`
}

type conversationsEnvelope struct {
	Conversations []conversation.Conversation `json:"conversations"`
}

type messageEnvelope struct {
	Message conversation.Message `json:"message"`
}

// Conversations lists the viewer's conversations with last-message previews.
func (c *Client) Conversations(ctx context.Context) ([]conversation.Conversation, error) {
	var envelope conversationsEnvelope
	if err := c.get(ctx, "/conversations", nil, &envelope); err != nil {
		return nil, err
	}
	return envelope.Conversations, nil
}

// Conversation fetches the full ordered message list for one conversation.
// This is the poll source: each call returns the authoritative set for that
// point in time.
func (c *Client) Conversation(ctx context.Context, id int64) (conversation.Conversation, error) {
	var envelope conversationEnvelope
	if err := c.get(ctx, fmt.Sprintf("/conversations/%d", id), nil, &envelope); err != nil {
		return conversation.Conversation{}, err
	}
	return envelope.Conversation, nil
}

// CreateConversation opens (or returns the existing) conversation for an
// appointment.
func (c *Client) CreateConversation(ctx context.Context, appointmentID int64) (conversation.Conversation, error) {
	data, _, err := c.invoke(ctx, http.MethodPost, fmt.Sprintf("/appointments/%d/conversations", appointmentID), nil, nil, permissionKind)
	if err != nil {
		return conversation.Conversation{}, err
	}
	var envelope conversationEnvelope
	if err := decodeInto("conversation", data, &envelope); err != nil {
		return conversation.Conversation{}, err
	}
	return envelope.Conversation, nil
}

// SendMessage submits a message; the returned message carries the
// server-assigned id and created_at.
func (c *Client) SendMessage(ctx context.Context, conversationID int64, content string) (conversation.Message, error) {
	if strings.TrimSpace(content) == "" {
		return conversation.Message{}, errors.New("api: message content required")
	}
	body := map[string]map[string]string{"message": {"content": content}}
	data, _, err := c.invoke(ctx, http.MethodPost, fmt.Sprintf("/conversations/%d/messages", conversationID), nil, body, permissionKind)
	if err != nil {
		return conversation.Message{}, err
	}
	var envelope messageEnvelope
	if err := decodeInto("message", data, &envelope); err != nil {
		return conversation.Message{}, err
	}
	return envelope.Message, nil
}
