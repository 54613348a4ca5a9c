package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"snaptext/internal/domain"
	"snaptext/internal/domain/models"
	"snaptext/internal/domain/repositories"
)

// PostgresChatStore implements the ChatStore interface using PostgreSQL.
// Message lists are stored as a JSONB column and re-parsed field by field
// on the way out, so a malformed entry degrades to defaults instead of
// surfacing a type error.
type PostgresChatStore struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewChatStore creates a new PostgresChatStore
func NewChatStore(config *RepositoryConfig) repositories.ChatStore {
	return &PostgresChatStore{
		pool:   config.Pool,
		logger: config.Logger,
	}
}

// Insert stores a new chat and writes the assigned id back
func (s *PostgresChatStore) Insert(ctx context.Context, chat *models.Chat) error {
	payload, err := json.Marshal(chat.Messages)
	if err != nil {
		return fmt.Errorf("encode messages: %w", err)
	}

	query := `
		INSERT INTO chats (owner_email, title, created_at, last_modified_at, messages)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	err = s.pool.QueryRow(ctx, query,
		chat.OwnerEmail,
		chat.Title,
		chat.CreatedAt,
		chat.LastModifiedAt,
		payload,
	).Scan(&chat.ID)

	if err != nil {
		return fmt.Errorf("insert chat: %w", err)
	}

	return nil
}

// Get retrieves a chat by id
func (s *PostgresChatStore) Get(ctx context.Context, chatID string) (*models.Chat, error) {
	query := `
		SELECT id, owner_email, title, created_at, last_modified_at, messages
		FROM chats
		WHERE id = $1
	`

	var (
		chat models.Chat
		raw  []byte
	)
	err := s.pool.QueryRow(ctx, query, chatID).Scan(
		&chat.ID,
		&chat.OwnerEmail,
		&chat.Title,
		&chat.CreatedAt,
		&chat.LastModifiedAt,
		&raw,
	)

	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, fmt.Errorf("chat %s: %w", chatID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get chat: %w", err)
	}

	chat.Messages = s.parseMessages(chat.ID, raw)

	return &chat, nil
}

// ListByOwner retrieves all chats for an owner email. A chat whose row
// fails to scan is skipped rather than aborting the batch.
func (s *PostgresChatStore) ListByOwner(ctx context.Context, ownerEmail string) ([]models.Chat, error) {
	query := `
		SELECT id, owner_email, title, created_at, last_modified_at, messages
		FROM chats
		WHERE owner_email = $1
		ORDER BY last_modified_at DESC
	`

	rows, err := s.pool.Query(ctx, query, ownerEmail)
	if err != nil {
		return nil, fmt.Errorf("list chats: %w", err)
	}
	defer rows.Close()

	chats := []models.Chat{}
	for rows.Next() {
		var (
			chat models.Chat
			raw  []byte
		)
		err := rows.Scan(
			&chat.ID,
			&chat.OwnerEmail,
			&chat.Title,
			&chat.CreatedAt,
			&chat.LastModifiedAt,
			&raw,
		)
		if err != nil {
			s.logger.Warn("skipping unreadable chat row", "owner_email", ownerEmail, "error", err)
			continue
		}

		chat.Messages = s.parseMessages(chat.ID, raw)
		chats = append(chats, chat)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chats: %w", err)
	}

	return chats, nil
}

// UpdateTitle replaces the title, stamping last_modified_at in the same write
func (s *PostgresChatStore) UpdateTitle(ctx context.Context, chatID, title string, modifiedAt time.Time) error {
	query := `
		UPDATE chats
		SET title = $1, last_modified_at = $2
		WHERE id = $3
	`

	result, err := s.pool.Exec(ctx, query, title, modifiedAt, chatID)
	if err != nil {
		return fmt.Errorf("update chat title: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("chat %s: %w", chatID, domain.ErrNotFound)
	}

	return nil
}

// UpdateMessages replaces the message list, stamping last_modified_at in the same write
func (s *PostgresChatStore) UpdateMessages(ctx context.Context, chatID string, messages []models.ChatMessage, modifiedAt time.Time) error {
	payload, err := json.Marshal(messages)
	if err != nil {
		return fmt.Errorf("encode messages: %w", err)
	}

	query := `
		UPDATE chats
		SET messages = $1, last_modified_at = $2
		WHERE id = $3
	`

	result, err := s.pool.Exec(ctx, query, payload, modifiedAt, chatID)
	if err != nil {
		return fmt.Errorf("update chat messages: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("chat %s: %w", chatID, domain.ErrNotFound)
	}

	return nil
}

// Delete removes a chat. Deleting an absent id is a no-op.
func (s *PostgresChatStore) Delete(ctx context.Context, chatID string) error {
	query := `
		DELETE FROM chats
		WHERE id = $1
	`

	if _, err := s.pool.Exec(ctx, query, chatID); err != nil {
		return fmt.Errorf("delete chat: %w", err)
	}

	return nil
}

// ReferencedImageURLs returns every http(s) URL carried in chat message texts
func (s *PostgresChatStore) ReferencedImageURLs(ctx context.Context) ([]string, error) {
	query := `
		SELECT id, messages
		FROM chats
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list chat messages: %w", err)
	}
	defer rows.Close()

	urls := []string{}
	for rows.Next() {
		var (
			chatID string
			raw    []byte
		)
		if err := rows.Scan(&chatID, &raw); err != nil {
			return nil, fmt.Errorf("scan chat messages: %w", err)
		}

		for _, msg := range s.parseMessages(chatID, raw) {
			if strings.HasPrefix(msg.Text, "http://") || strings.HasPrefix(msg.Text, "https://") {
				urls = append(urls, msg.Text)
			}
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chat messages: %w", err)
	}

	return urls, nil
}

// parseMessages reconstructs a typed message list from the raw JSONB value.
// Entries that are not objects are dropped; missing fields default. A
// partial record never surfaces a type error to the caller.
func (s *PostgresChatStore) parseMessages(chatID string, raw []byte) []models.ChatMessage {
	if len(raw) == 0 {
		return []models.ChatMessage{}
	}

	var entries []map[string]any
	if err := json.Unmarshal(raw, &entries); err != nil {
		s.logger.Warn("unparseable chat messages, returning empty list", "chat_id", chatID, "error", err)
		return []models.ChatMessage{}
	}

	messages := make([]models.ChatMessage, 0, len(entries))
	for _, entry := range entries {
		var msg models.ChatMessage
		if id, ok := entry["id"].(float64); ok {
			msg.ID = int(id)
		}
		if role, ok := entry["role"].(string); ok {
			msg.Role = role
		}
		if text, ok := entry["text"].(string); ok {
			msg.Text = text
		}

		// Rows written before the role field existed fall back to the
		// old id-parity convention on read.
		if msg.Role == "" {
			if msg.ID%2 == 0 {
				msg.Role = models.RoleUser
			} else {
				msg.Role = models.RoleAssistant
			}
		}

		messages = append(messages, msg)
	}

	return messages
}
