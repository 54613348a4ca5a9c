package repositories

import (
	"context"
	"time"

	"snaptext/internal/domain/models"
)

// ChatStore is the remote chat collection.
type ChatStore interface {
	// Insert stores a new chat and writes the assigned ID back onto chat.
	Insert(ctx context.Context, chat *models.Chat) error

	// Get returns the chat with the given ID, or domain.ErrNotFound.
	Get(ctx context.Context, chatID string) (*models.Chat, error)

	// ListByOwner returns every chat whose owner email matches. Rows that
	// fail to parse are skipped, never fatal for the batch.
	ListByOwner(ctx context.Context, ownerEmail string) ([]models.Chat, error)

	// UpdateTitle replaces the title and stamps lastModifiedAt in the
	// same write.
	UpdateTitle(ctx context.Context, chatID, title string, modifiedAt time.Time) error

	// UpdateMessages replaces the full message list and stamps
	// lastModifiedAt in the same write.
	UpdateMessages(ctx context.Context, chatID string, messages []models.ChatMessage, modifiedAt time.Time) error

	// Delete removes a chat. Idempotent.
	Delete(ctx context.Context, chatID string) error

	// ReferencedImageURLs returns every blob URL carried inside chat
	// messages, for orphaned-blob reconciliation.
	ReferencedImageURLs(ctx context.Context) ([]string, error)
}
