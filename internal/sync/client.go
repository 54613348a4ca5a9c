// Package sync implements the single point of translation between typed
// local records and the remote document, chat and blob stores.
package sync

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-resty/resty/v2"

	"snaptext/internal/config"
	"snaptext/internal/domain"
	"snaptext/internal/domain/models"
	"snaptext/internal/domain/repositories"
)

// Blob path categories, matching {owner}/{category}/{id}.jpg
const (
	documentImageCategory = "images"
	chatImageCategory     = "chat_images"
)

// Client mediates between callers and the remote stores. It owns no
// long-lived state beyond its store handles; none of its operations
// retries automatically.
type Client struct {
	documents repositories.DocumentStore
	chats     repositories.ChatStore
	blobs     repositories.BlobStore
	http      *resty.Client
	logger    *slog.Logger
}

// NewClient creates a sync client over explicit store handles. The resty
// client is used only to fetch generated images for rehosting.
func NewClient(
	documents repositories.DocumentStore,
	chats repositories.ChatStore,
	blobs repositories.BlobStore,
	httpClient *resty.Client,
	logger *slog.Logger,
) *Client {
	return &Client{
		documents: documents,
		chats:     chats,
		blobs:     blobs,
		http:      httpClient,
		logger:    logger,
	}
}

// SaveDocument uploads the image at localImagePath to the owner's blob
// path, then inserts a document record holding the blob URL and the text.
// Returns the stored record so the caller can patch its local list in
// place instead of re-fetching.
func (c *Client) SaveDocument(ctx context.Context, ownerEmail, localImagePath, text string) (*models.Document, error) {
	if ownerEmail == "" {
		return nil, fmt.Errorf("save document: %w", domain.ErrUnauthenticated)
	}

	f, err := os.Open(localImagePath)
	if err != nil {
		return nil, fmt.Errorf("%w: open image %s: %v", domain.ErrUploadFailed, localImagePath, err)
	}
	defer f.Close()

	imageURL, err := c.blobs.Upload(ctx, ownerEmail, documentImageCategory, f)
	if err != nil {
		return nil, err
	}

	doc := &models.Document{
		OwnerEmail: ownerEmail,
		ImageURL:   imageURL,
		Text:       text,
	}
	if err := c.documents.Insert(ctx, doc); err != nil {
		// The uploaded blob is now unreferenced; the reconciliation
		// sweep collects it.
		c.logger.Warn("document insert failed after upload, blob left for sweep",
			"owner_email", ownerEmail,
			"image_url", imageURL,
			"error", err,
		)
		return nil, fmt.Errorf("%w: %v", domain.ErrWriteFailed, err)
	}

	return doc, nil
}

// ListDocuments returns every document for the owner. Read failures are
// carried back to the caller; the HTTP layer decides whether to render an
// empty list instead.
func (c *Client) ListDocuments(ctx context.Context, ownerEmail string) ([]models.Document, error) {
	docs, err := c.documents.ListByOwner(ctx, ownerEmail)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrReadFailed, err)
	}
	return docs, nil
}

// UpdateDocumentText replaces the extracted text of one document
func (c *Client) UpdateDocumentText(ctx context.Context, documentID, newText string) error {
	if err := c.documents.UpdateText(ctx, documentID, newText); err != nil {
		return wrapWrite(err)
	}
	return nil
}

// DeleteDocument removes the record first, then the blob. A blob failure
// after the record is gone leaves an orphan; that is logged and left to
// the reconciliation sweep rather than rolled back.
func (c *Client) DeleteDocument(ctx context.Context, documentID, imageURL string) error {
	if err := c.documents.Delete(ctx, documentID); err != nil {
		return wrapWrite(err)
	}

	if imageURL == "" {
		return nil
	}
	if err := c.blobs.DeleteByURL(ctx, imageURL); err != nil {
		c.logger.Warn("blob delete failed after record delete, orphan left for sweep",
			"document_id", documentID,
			"image_url", imageURL,
			"error", err,
		)
	}

	return nil
}

// SaveChat validates and inserts a new chat, returning its assigned id.
// An empty title is rejected before anything reaches the store.
func (c *Client) SaveChat(ctx context.Context, chat *models.Chat) (string, error) {
	if err := validateTitle(chat.Title); err != nil {
		return "", fmt.Errorf("%w: the chat title cannot be empty: %v", domain.ErrValidation, err)
	}

	now := time.Now()
	if chat.CreatedAt.IsZero() {
		chat.CreatedAt = now
	}
	if chat.LastModifiedAt.IsZero() {
		chat.LastModifiedAt = now
	}
	if chat.Messages == nil {
		chat.Messages = []models.ChatMessage{}
	}

	if err := c.chats.Insert(ctx, chat); err != nil {
		return "", wrapWrite(err)
	}

	c.logger.Info("chat saved",
		"chat_id", chat.ID,
		"owner_email", chat.OwnerEmail,
		"title", chat.Title,
	)

	return chat.ID, nil
}

// UpdateChatTitle replaces the title and refreshes lastModifiedAt
func (c *Client) UpdateChatTitle(ctx context.Context, chatID, newTitle string) error {
	if err := validateTitle(newTitle); err != nil {
		return fmt.Errorf("%w: the chat title cannot be empty: %v", domain.ErrValidation, err)
	}

	if err := c.chats.UpdateTitle(ctx, chatID, newTitle, time.Now()); err != nil {
		return wrapWrite(err)
	}
	return nil
}

// DeleteChat removes a chat
func (c *Client) DeleteChat(ctx context.Context, chatID string) error {
	if err := c.chats.Delete(ctx, chatID); err != nil {
		return wrapWrite(err)
	}
	return nil
}

// UpdateChatMessages replaces the message list, stamping lastModifiedAt
// as part of the same write.
func (c *Client) UpdateChatMessages(ctx context.Context, chatID string, messages []models.ChatMessage) error {
	if err := c.chats.UpdateMessages(ctx, chatID, messages, time.Now()); err != nil {
		return wrapWrite(err)
	}
	return nil
}

// GetChatByID reconstructs a typed chat record, or domain.ErrNotFound
func (c *Client) GetChatByID(ctx context.Context, chatID string) (*models.Chat, error) {
	return c.chats.Get(ctx, chatID)
}

// ListChats returns every chat for the owner, most recently modified
// first. Same read-error contract as ListDocuments.
func (c *Client) ListChats(ctx context.Context, ownerEmail string) ([]models.Chat, error) {
	chats, err := c.chats.ListByOwner(ctx, ownerEmail)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrReadFailed, err)
	}
	return chats, nil
}

// RehostImage downloads a generated image from a third-party URL and
// re-uploads it into the owner's blob path, so chat messages never depend
// on the longevity of an external URL.
func (c *Client) RehostImage(ctx context.Context, ownerEmail, imageURL string) (string, error) {
	if ownerEmail == "" {
		return "", fmt.Errorf("rehost image: %w", domain.ErrUnauthenticated)
	}
	if !strings.HasPrefix(imageURL, "http") {
		return "", fmt.Errorf("%w: invalid image URL %q", domain.ErrValidation, imageURL)
	}

	resp, err := c.http.R().SetContext(ctx).Get(imageURL)
	if err != nil {
		return "", fmt.Errorf("%w: fetch generated image: %v", domain.ErrUploadFailed, err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("%w: fetch generated image: status %d", domain.ErrUploadFailed, resp.StatusCode())
	}

	return c.blobs.Upload(ctx, ownerEmail, chatImageCategory, bytes.NewReader(resp.Body()))
}

// SweepOrphans deletes blobs that no document or chat references and that
// are older than grace. Returns the number of blobs removed. The grace
// period keeps the sweep from racing an upload whose record insert is
// still in flight.
func (c *Client) SweepOrphans(ctx context.Context, grace time.Duration) (int, error) {
	blobs, err := c.blobs.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrReadFailed, err)
	}

	referenced := make(map[string]struct{})
	docURLs, err := c.documents.ReferencedImageURLs(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrReadFailed, err)
	}
	for _, u := range docURLs {
		referenced[u] = struct{}{}
	}

	chatURLs, err := c.chats.ReferencedImageURLs(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrReadFailed, err)
	}
	for _, u := range chatURLs {
		referenced[u] = struct{}{}
	}

	cutoff := time.Now().Add(-grace)
	removed := 0
	for _, blob := range blobs {
		if _, ok := referenced[blob.URL]; ok {
			continue
		}
		if blob.ModTime.After(cutoff) {
			continue
		}

		if err := c.blobs.DeleteByURL(ctx, blob.URL); err != nil {
			c.logger.Warn("orphan sweep: delete failed", "url", blob.URL, "error", err)
			continue
		}
		removed++
	}

	if removed > 0 {
		c.logger.Info("orphan sweep completed", "removed", removed)
	}

	return removed, nil
}

func validateTitle(title string) error {
	return validation.Validate(title,
		validation.Required,
		validation.Length(1, config.MaxChatTitleLength),
	)
}

// wrapWrite wraps store write failures while letting not-found pass
// through for precise HTTP mapping.
func wrapWrite(err error) error {
	if err == nil {
		return nil
	}
	if domainErr := domainPassthrough(err); domainErr != nil {
		return domainErr
	}
	return fmt.Errorf("%w: %v", domain.ErrWriteFailed, err)
}

func domainPassthrough(err error) error {
	for _, sentinel := range []error{domain.ErrNotFound, domain.ErrValidation, domain.ErrConflict} {
		if errors.Is(err, sentinel) {
			return err
		}
	}
	return nil
}
