package sync

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"snaptext/internal/domain"
	"snaptext/internal/domain/models"
	"snaptext/internal/domain/repositories"
)

type fakeDocumentStore struct {
	docs       map[string]models.Document
	insertErr  error
	listErr    error
	inserted   int
	nextSerial int
}

func newFakeDocumentStore() *fakeDocumentStore {
	return &fakeDocumentStore{docs: map[string]models.Document{}}
}

func (f *fakeDocumentStore) Insert(_ context.Context, doc *models.Document) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.nextSerial++
	doc.ID = fmt.Sprintf("doc-%d", f.nextSerial)
	doc.CapturedAt = time.Now()
	f.docs[doc.ID] = *doc
	f.inserted++
	return nil
}

func (f *fakeDocumentStore) ListByOwner(_ context.Context, ownerEmail string) ([]models.Document, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []models.Document
	for _, d := range f.docs {
		if d.OwnerEmail == ownerEmail {
			out = append(out, d)
		}
	}
	return out, nil
}

func (f *fakeDocumentStore) UpdateText(_ context.Context, id, text string) error {
	d, ok := f.docs[id]
	if !ok {
		return fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
	}
	d.Text = text
	f.docs[id] = d
	return nil
}

func (f *fakeDocumentStore) Delete(_ context.Context, id string) error {
	delete(f.docs, id)
	return nil
}

func (f *fakeDocumentStore) ReferencedImageURLs(context.Context) ([]string, error) {
	var urls []string
	for _, d := range f.docs {
		urls = append(urls, d.ImageURL)
	}
	return urls, nil
}

type fakeChatStore struct {
	chats      map[string]models.Chat
	insertErr  error
	inserted   int
	nextSerial int
}

func newFakeChatStore() *fakeChatStore {
	return &fakeChatStore{chats: map[string]models.Chat{}}
}

func (f *fakeChatStore) Insert(_ context.Context, chat *models.Chat) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.nextSerial++
	chat.ID = fmt.Sprintf("chat-%d", f.nextSerial)
	f.chats[chat.ID] = *chat
	f.inserted++
	return nil
}

func (f *fakeChatStore) Get(_ context.Context, id string) (*models.Chat, error) {
	c, ok := f.chats[id]
	if !ok {
		return nil, fmt.Errorf("chat %s: %w", id, domain.ErrNotFound)
	}
	return &c, nil
}

func (f *fakeChatStore) ListByOwner(_ context.Context, ownerEmail string) ([]models.Chat, error) {
	var out []models.Chat
	for _, c := range f.chats {
		if c.OwnerEmail == ownerEmail {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeChatStore) UpdateTitle(_ context.Context, id, title string, modifiedAt time.Time) error {
	c, ok := f.chats[id]
	if !ok {
		return fmt.Errorf("chat %s: %w", id, domain.ErrNotFound)
	}
	c.Title = title
	c.LastModifiedAt = modifiedAt
	f.chats[id] = c
	return nil
}

func (f *fakeChatStore) UpdateMessages(_ context.Context, id string, messages []models.ChatMessage, modifiedAt time.Time) error {
	c, ok := f.chats[id]
	if !ok {
		return fmt.Errorf("chat %s: %w", id, domain.ErrNotFound)
	}
	c.Messages = messages
	c.LastModifiedAt = modifiedAt
	f.chats[id] = c
	return nil
}

func (f *fakeChatStore) Delete(_ context.Context, id string) error {
	delete(f.chats, id)
	return nil
}

func (f *fakeChatStore) ReferencedImageURLs(context.Context) ([]string, error) {
	var urls []string
	for _, c := range f.chats {
		for _, m := range c.Messages {
			if len(m.Text) > 4 && m.Text[:4] == "http" {
				urls = append(urls, m.Text)
			}
		}
	}
	return urls, nil
}

type fakeBlobStore struct {
	uploads    []string
	blobs      []repositories.BlobInfo
	deleted    []string
	uploadErr  error
	deleteErr  error
	nextSerial int
}

func (f *fakeBlobStore) Upload(_ context.Context, ownerEmail, category string, r io.Reader) (string, error) {
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	if _, err := io.ReadAll(r); err != nil {
		return "", err
	}
	f.nextSerial++
	url := fmt.Sprintf("https://files.example.com/files/%s/%s/%d.jpg", ownerEmail, category, f.nextSerial)
	f.uploads = append(f.uploads, url)
	return url, nil
}

func (f *fakeBlobStore) DeleteByURL(_ context.Context, url string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, url)
	return nil
}

func (f *fakeBlobStore) List(context.Context) ([]repositories.BlobInfo, error) {
	return f.blobs, nil
}

func newTestClient(docs *fakeDocumentStore, chats *fakeChatStore, blobs *fakeBlobStore) *Client {
	return NewClient(docs, chats, blobs, resty.New(), slog.Default())
}

func writeTempImage(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "capture.jpg")
	require.NoError(t, os.WriteFile(path, []byte("jpegbytes"), 0o644))
	return path
}

func TestSaveDocument(t *testing.T) {
	docs := newFakeDocumentStore()
	blobs := &fakeBlobStore{}
	c := newTestClient(docs, newFakeChatStore(), blobs)

	doc, err := c.SaveDocument(context.Background(), "user@example.com", writeTempImage(t), "extracted text")
	require.NoError(t, err)
	assert.NotEmpty(t, doc.ID)
	assert.Equal(t, "user@example.com", doc.OwnerEmail)
	assert.Equal(t, "extracted text", doc.Text)
	assert.Contains(t, doc.ImageURL, "/files/user@example.com/images/")
	assert.Len(t, blobs.uploads, 1)
}

func TestSaveDocumentUnauthenticated(t *testing.T) {
	docs := newFakeDocumentStore()
	blobs := &fakeBlobStore{}
	c := newTestClient(docs, newFakeChatStore(), blobs)

	_, err := c.SaveDocument(context.Background(), "", writeTempImage(t), "text")
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
	assert.Empty(t, blobs.uploads, "nothing should be uploaded without an owner")
	assert.Zero(t, docs.inserted)
}

func TestSaveDocumentInsertFailureLeavesBlobForSweep(t *testing.T) {
	docs := newFakeDocumentStore()
	docs.insertErr = errors.New("db down")
	blobs := &fakeBlobStore{}
	c := newTestClient(docs, newFakeChatStore(), blobs)

	_, err := c.SaveDocument(context.Background(), "user@example.com", writeTempImage(t), "text")
	assert.ErrorIs(t, err, domain.ErrWriteFailed)
	assert.Len(t, blobs.uploads, 1, "the orphaned blob is left for the sweep")
	assert.Empty(t, blobs.deleted)
}

func TestListDocumentsReadFailure(t *testing.T) {
	docs := newFakeDocumentStore()
	docs.listErr = errors.New("connection refused")
	c := newTestClient(docs, newFakeChatStore(), &fakeBlobStore{})

	items, err := c.ListDocuments(context.Background(), "user@example.com")
	assert.ErrorIs(t, err, domain.ErrReadFailed)
	assert.Nil(t, items)
}

func TestDeleteDocumentThenListExcludesIt(t *testing.T) {
	docs := newFakeDocumentStore()
	blobs := &fakeBlobStore{}
	c := newTestClient(docs, newFakeChatStore(), blobs)

	doc, err := c.SaveDocument(context.Background(), "user@example.com", writeTempImage(t), "text")
	require.NoError(t, err)

	require.NoError(t, c.DeleteDocument(context.Background(), doc.ID, doc.ImageURL))

	items, err := c.ListDocuments(context.Background(), "user@example.com")
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Equal(t, []string{doc.ImageURL}, blobs.deleted)
}

func TestDeleteDocumentToleratesBlobFailure(t *testing.T) {
	docs := newFakeDocumentStore()
	blobs := &fakeBlobStore{deleteErr: errors.New("storage unreachable")}
	c := newTestClient(docs, newFakeChatStore(), blobs)

	doc, err := c.SaveDocument(context.Background(), "user@example.com", writeTempImage(t), "text")
	require.NoError(t, err)

	// Record-first delete succeeds even when the blob delete fails
	assert.NoError(t, c.DeleteDocument(context.Background(), doc.ID, doc.ImageURL))

	items, err := c.ListDocuments(context.Background(), "user@example.com")
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestSaveChatRejectsEmptyTitle(t *testing.T) {
	chats := newFakeChatStore()
	c := newTestClient(newFakeDocumentStore(), chats, &fakeBlobStore{})

	_, err := c.SaveChat(context.Background(), &models.Chat{
		OwnerEmail: "user@example.com",
		Title:      "",
	})
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Zero(t, chats.inserted, "validation failures must not reach the store")
}

func TestSaveChatStampsTimestamps(t *testing.T) {
	chats := newFakeChatStore()
	c := newTestClient(newFakeDocumentStore(), chats, &fakeBlobStore{})

	chat := &models.Chat{OwnerEmail: "user@example.com", Title: "Groceries"}
	id, err := c.SaveChat(context.Background(), chat)
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.False(t, chat.CreatedAt.IsZero())
	assert.False(t, chat.LastModifiedAt.IsZero())
	assert.NotNil(t, chat.Messages)
}

func TestUpdateChatTitleRejectsEmpty(t *testing.T) {
	chats := newFakeChatStore()
	c := newTestClient(newFakeDocumentStore(), chats, &fakeBlobStore{})

	id, err := c.SaveChat(context.Background(), &models.Chat{OwnerEmail: "user@example.com", Title: "Old"})
	require.NoError(t, err)

	assert.ErrorIs(t, c.UpdateChatTitle(context.Background(), id, ""), domain.ErrValidation)

	got, err := c.GetChatByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "Old", got.Title)
}

func TestUpdateChatMessagesStampsLastModified(t *testing.T) {
	chats := newFakeChatStore()
	c := newTestClient(newFakeDocumentStore(), chats, &fakeBlobStore{})

	chat := &models.Chat{
		OwnerEmail:     "user@example.com",
		Title:          "Groceries",
		LastModifiedAt: time.Now().Add(-time.Hour),
	}
	id, err := c.SaveChat(context.Background(), chat)
	require.NoError(t, err)
	before := chats.chats[id].LastModifiedAt

	msgs := []models.ChatMessage{{ID: 0, Role: models.RoleUser, Text: "hi"}}
	require.NoError(t, c.UpdateChatMessages(context.Background(), id, msgs))

	got, err := c.GetChatByID(context.Background(), id)
	require.NoError(t, err)
	assert.Len(t, got.Messages, 1)
	assert.True(t, got.LastModifiedAt.After(before))
}

func TestUpdateChatMessagesNotFound(t *testing.T) {
	c := newTestClient(newFakeDocumentStore(), newFakeChatStore(), &fakeBlobStore{})

	err := c.UpdateChatMessages(context.Background(), "missing", nil)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRehostImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("jpegbytes"))
	}))
	defer srv.Close()

	blobs := &fakeBlobStore{}
	c := newTestClient(newFakeDocumentStore(), newFakeChatStore(), blobs)

	url, err := c.RehostImage(context.Background(), "user@example.com", srv.URL+"/gen.jpg")
	require.NoError(t, err)
	assert.Contains(t, url, "/files/user@example.com/chat_images/")
}

func TestRehostImageRejectsBadInput(t *testing.T) {
	c := newTestClient(newFakeDocumentStore(), newFakeChatStore(), &fakeBlobStore{})

	_, err := c.RehostImage(context.Background(), "", "https://example.com/a.jpg")
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)

	_, err = c.RehostImage(context.Background(), "user@example.com", "not-a-url")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestRehostImageUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := newTestClient(newFakeDocumentStore(), newFakeChatStore(), &fakeBlobStore{})

	_, err := c.RehostImage(context.Background(), "user@example.com", srv.URL+"/gone.jpg")
	assert.ErrorIs(t, err, domain.ErrUploadFailed)
}

func TestSweepOrphans(t *testing.T) {
	docs := newFakeDocumentStore()
	chats := newFakeChatStore()

	referencedByDoc := "https://files.example.com/files/u/images/1.jpg"
	referencedByChat := "https://files.example.com/files/u/chat_images/2.jpg"
	oldOrphan := "https://files.example.com/files/u/images/3.jpg"
	freshOrphan := "https://files.example.com/files/u/images/4.jpg"

	docs.docs["doc-1"] = models.Document{ID: "doc-1", OwnerEmail: "u", ImageURL: referencedByDoc}
	chats.chats["chat-1"] = models.Chat{
		ID:         "chat-1",
		OwnerEmail: "u",
		Messages:   []models.ChatMessage{{ID: 1, Role: models.RoleAssistant, Text: referencedByChat}},
	}

	blobs := &fakeBlobStore{blobs: []repositories.BlobInfo{
		{URL: referencedByDoc, ModTime: time.Now().Add(-72 * time.Hour)},
		{URL: referencedByChat, ModTime: time.Now().Add(-72 * time.Hour)},
		{URL: oldOrphan, ModTime: time.Now().Add(-72 * time.Hour)},
		{URL: freshOrphan, ModTime: time.Now().Add(-time.Minute)},
	}}

	c := newTestClient(docs, chats, blobs)

	removed, err := c.SweepOrphans(context.Background(), 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.Equal(t, []string{oldOrphan}, blobs.deleted, "only the aged unreferenced blob is removed")
}
