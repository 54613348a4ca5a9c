package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"snaptext/internal/domain"
	"snaptext/internal/domain/models"
	"snaptext/internal/domain/repositories"
)

// PostgresDocumentStore implements the DocumentStore interface using PostgreSQL
type PostgresDocumentStore struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewDocumentStore creates a new PostgresDocumentStore
func NewDocumentStore(config *RepositoryConfig) repositories.DocumentStore {
	return &PostgresDocumentStore{
		pool:   config.Pool,
		logger: config.Logger,
	}
}

// Insert stores a new document and writes the assigned id and timestamp back
func (s *PostgresDocumentStore) Insert(ctx context.Context, doc *models.Document) error {
	query := `
		INSERT INTO documents (owner_email, image_url, text)
		VALUES ($1, $2, $3)
		RETURNING id, captured_at
	`

	err := s.pool.QueryRow(ctx, query,
		doc.OwnerEmail,
		doc.ImageURL,
		doc.Text,
	).Scan(&doc.ID, &doc.CapturedAt)

	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}

	return nil
}

// ListByOwner returns every document for the owner email. A row that fails
// to scan is logged and skipped so one corrupt record never aborts the batch.
func (s *PostgresDocumentStore) ListByOwner(ctx context.Context, ownerEmail string) ([]models.Document, error) {
	query := `
		SELECT id, owner_email, image_url, text, captured_at
		FROM documents
		WHERE owner_email = $1
		ORDER BY captured_at DESC
	`

	rows, err := s.pool.Query(ctx, query, ownerEmail)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	documents := []models.Document{}
	for rows.Next() {
		var (
			doc        models.Document
			imageURL   *string
			text       *string
			capturedAt *time.Time
		)
		err := rows.Scan(&doc.ID, &doc.OwnerEmail, &imageURL, &text, &capturedAt)
		if err != nil {
			s.logger.Warn("skipping unreadable document row", "owner_email", ownerEmail, "error", err)
			continue
		}

		// Missing fields default instead of failing the record
		if imageURL != nil {
			doc.ImageURL = *imageURL
		}
		if text != nil {
			doc.Text = *text
		}
		if capturedAt != nil {
			doc.CapturedAt = *capturedAt
		} else {
			doc.CapturedAt = time.Now()
		}

		documents = append(documents, doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}

	return documents, nil
}

// UpdateText replaces the extracted text of one document
func (s *PostgresDocumentStore) UpdateText(ctx context.Context, documentID, text string) error {
	query := `
		UPDATE documents
		SET text = $1
		WHERE id = $2
	`

	result, err := s.pool.Exec(ctx, query, text, documentID)
	if err != nil {
		return fmt.Errorf("update document text: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("document %s: %w", documentID, domain.ErrNotFound)
	}

	return nil
}

// Delete removes a document record. Deleting an absent id is a no-op.
func (s *PostgresDocumentStore) Delete(ctx context.Context, documentID string) error {
	query := `
		DELETE FROM documents
		WHERE id = $1
	`

	if _, err := s.pool.Exec(ctx, query, documentID); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}

	return nil
}

// ReferencedImageURLs returns every image URL held by a document record
func (s *PostgresDocumentStore) ReferencedImageURLs(ctx context.Context) ([]string, error) {
	query := `
		SELECT image_url
		FROM documents
		WHERE image_url <> ''
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list referenced image urls: %w", err)
	}
	defer rows.Close()

	urls := []string{}
	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			return nil, fmt.Errorf("scan image url: %w", err)
		}
		urls = append(urls, url)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate image urls: %w", err)
	}

	return urls, nil
}
