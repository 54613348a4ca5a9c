package repositories

import (
	"context"

	"snaptext/internal/domain/models"
)

// DocumentStore is the remote document collection for saved OCR captures.
type DocumentStore interface {
	// Insert stores a new document. The store assigns the ID and the
	// captured-at timestamp and writes them back onto doc.
	Insert(ctx context.Context, doc *models.Document) error

	// ListByOwner returns every document whose owner email matches.
	// A single corrupt row must never abort the batch.
	ListByOwner(ctx context.Context, ownerEmail string) ([]models.Document, error)

	// UpdateText replaces the extracted text of one document.
	UpdateText(ctx context.Context, documentID, text string) error

	// Delete removes a document record. Deleting an absent ID is not an
	// error (idempotent delete).
	Delete(ctx context.Context, documentID string) error

	// ReferencedImageURLs returns every image URL currently referenced by
	// a document record, for orphaned-blob reconciliation.
	ReferencedImageURLs(ctx context.Context) ([]string, error)
}
