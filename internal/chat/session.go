package chat

import (
	"context"
	"fmt"

	"snaptext/internal/domain/models"
)

// Persister is the slice of the sync client a session needs to save
// itself. The first successful save assigns the chat id; every later
// save updates the existing record.
type Persister interface {
	SaveChat(ctx context.Context, chat *models.Chat) (string, error)
	UpdateChatMessages(ctx context.Context, chatID string, messages []models.ChatMessage) error
}

// SessionState describes where a session is in its lifecycle.
type SessionState string

const (
	// StateEmpty - no messages yet
	StateEmpty SessionState = "empty"
	// StateActive - messages exist locally, nothing persisted
	StateActive SessionState = "active"
	// StatePersisted - a remote chat id has been assigned
	StatePersisted SessionState = "persisted"
)

// Session owns the in-memory message log for exactly one open
// conversation. The local counter, not server state, is the single source
// of truth for message id assignment: ids stay strictly increasing and
// gap-free even while a send is still in flight and the paired pending
// assistant placeholder has already been appended.
type Session struct {
	persister Persister
	chatID    string
	nextID    int
	messages  []models.ChatMessage
}

// NewSession creates an empty, unpersisted session
func NewSession(persister Persister) *Session {
	return &Session{
		persister: persister,
		messages:  []models.ChatMessage{},
	}
}

// ResumeSession reopens a persisted chat: messages are adopted and the id
// counter continues after the highest existing id.
func ResumeSession(persister Persister, chat *models.Chat) *Session {
	messages := make([]models.ChatMessage, len(chat.Messages))
	copy(messages, chat.Messages)

	nextID := 0
	for _, msg := range messages {
		if msg.ID >= nextID {
			nextID = msg.ID + 1
		}
	}

	return &Session{
		persister: persister,
		chatID:    chat.ID,
		nextID:    nextID,
		messages:  messages,
	}
}

// State returns the session's lifecycle state
func (s *Session) State() SessionState {
	switch {
	case s.chatID != "":
		return StatePersisted
	case len(s.messages) > 0:
		return StateActive
	default:
		return StateEmpty
	}
}

// ChatID returns the assigned remote id, empty while unpersisted
func (s *Session) ChatID() string {
	return s.chatID
}

// Messages returns a copy of the current message log
func (s *Session) Messages() []models.ChatMessage {
	out := make([]models.ChatMessage, len(s.messages))
	copy(out, s.messages)
	return out
}

// AppendUserMessage assigns the next id and appends a user turn
func (s *Session) AppendUserMessage(text string) models.ChatMessage {
	msg := models.ChatMessage{
		ID:   s.nextID,
		Role: models.RoleUser,
		Text: text,
	}
	s.nextID++
	s.messages = append(s.messages, msg)
	return msg
}

// AppendPendingAssistantMessage assigns the next id and appends an
// assistant turn with empty text; the rendering layer shows empty text
// as "in progress".
func (s *Session) AppendPendingAssistantMessage() models.ChatMessage {
	msg := models.ChatMessage{
		ID:   s.nextID,
		Role: models.RoleAssistant,
	}
	s.nextID++
	s.messages = append(s.messages, msg)
	return msg
}

// ResolveAssistantMessage replaces the text of the message with the given
// id. The text channel carries both success payloads and human-readable
// failures; there is no separate error field. Resolving an unknown id
// leaves the log unchanged and returns false.
func (s *Session) ResolveAssistantMessage(id int, textOrError string) bool {
	for i := range s.messages {
		if s.messages[i].ID == id {
			s.messages[i].Text = textOrError
			return true
		}
	}
	return false
}

// Persist saves the session remotely. The first successful save creates a
// chat titled from the first user message and records the assigned id;
// later saves update the existing record's messages and timestamp.
func (s *Session) Persist(ctx context.Context, ownerEmail string) error {
	if s.chatID != "" {
		return s.persister.UpdateChatMessages(ctx, s.chatID, s.Messages())
	}

	chat := &models.Chat{
		OwnerEmail: ownerEmail,
		Title:      s.titleFromFirstUserMessage(),
		Messages:   s.Messages(),
	}

	id, err := s.persister.SaveChat(ctx, chat)
	if err != nil {
		return fmt.Errorf("persist session: %w", err)
	}

	s.chatID = id
	return nil
}

func (s *Session) titleFromFirstUserMessage() string {
	for _, msg := range s.messages {
		if msg.Role == models.RoleUser {
			return NormalizeTitle(msg.Text)
		}
	}
	return FallbackTitle
}
