package models

import (
	"time"
)

// Message roles. The speaker is an explicit field on the message rather
// than being inferred from id parity, so a desynchronized counter can
// never flip who said what.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is a single turn in a conversation. IDs are assigned by the
// owning session's local counter: 0-based, strictly increasing, gap-free.
// Empty text on an assistant message means the reply is still pending.
type ChatMessage struct {
	ID   int    `json:"id"`
	Role string `json:"role"`
	Text string `json:"text"`
}

// Pending reports whether the message is an unresolved assistant placeholder.
func (m ChatMessage) Pending() bool {
	return m.Role == RoleAssistant && m.Text == ""
}

// Chat is one saved conversation. A chat without an ID exists only in
// local session state and has not been persisted yet.
type Chat struct {
	ID             string        `json:"id"`
	OwnerEmail     string        `json:"owner_email"`
	Title          string        `json:"title"`
	CreatedAt      time.Time     `json:"created_at"`
	LastModifiedAt time.Time     `json:"last_modified_at"`
	Messages       []ChatMessage `json:"messages"`
}

type UpdateChatRequest struct {
	Title string `json:"title"`
}

type UpdateChatMessagesRequest struct {
	Messages []ChatMessage `json:"messages"`
}

// SendMessageRequest drives one user turn: append the user message, append
// an assistant placeholder, resolve it with the generated image URL (or a
// literal error string), and persist.
type SendMessageRequest struct {
	ChatID string `json:"chat_id,omitempty"`
	Text   string `json:"text"`
}
