package conversation

import "time"

// Message is one chat message as the backend reports it to the viewer.
type Message struct {
	ID        int64     `json:"id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	SentByMe  bool      `json:"sent_by_me"`
}

// Participant is the other side of a conversation.
type Participant struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Conversation is a message thread between the viewer and one other user.
type Conversation struct {
	ID          int64        `json:"id"`
	OtherUser   *Participant `json:"other_user,omitempty"`
	Messages    []Message    `json:"messages,omitempty"`
	LastMessage *Message     `json:"last_message,omitempty"`
	UnreadCount int          `json:"unread_count"`
}
