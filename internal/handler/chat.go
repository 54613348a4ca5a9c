package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"snaptext/internal/chat"
	"snaptext/internal/domain"
	"snaptext/internal/domain/models"
	"snaptext/internal/httputil"
	syncclient "snaptext/internal/sync"
)

// ChatHandler handles chat HTTP requests
type ChatHandler struct {
	sync      *syncclient.Client
	grouper   *chat.Grouper
	responder *chat.Responder
	logger    *slog.Logger
}

// NewChatHandler creates a new chat handler
func NewChatHandler(
	sync *syncclient.Client,
	grouper *chat.Grouper,
	responder *chat.Responder,
	logger *slog.Logger,
) *ChatHandler {
	return &ChatHandler{
		sync:      sync,
		grouper:   grouper,
		responder: responder,
		logger:    logger,
	}
}

type createChatRequest struct {
	Title    string               `json:"title"`
	Messages []models.ChatMessage `json:"messages,omitempty"`
}

// CreateChat saves a new chat
// POST /api/chats
func (h *ChatHandler) CreateChat(w http.ResponseWriter, r *http.Request) {
	var req createChatRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	newChat := &models.Chat{
		OwnerEmail: httputil.GetOwnerEmail(r),
		Title:      strings.TrimSpace(req.Title),
		Messages:   req.Messages,
	}

	if _, err := h.sync.SaveChat(r.Context(), newChat); err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, newChat)
}

// ListChats retrieves the owner's chats, optionally grouped by recency
// GET /api/chats[?grouped=1]
//
// Same fail-soft contract as the document list: a read failure renders
// as an empty result and is logged.
func (h *ChatHandler) ListChats(w http.ResponseWriter, r *http.Request) {
	ownerEmail := httputil.GetOwnerEmail(r)
	grouped := r.URL.Query().Get("grouped") != ""

	chats, err := h.sync.ListChats(r.Context(), ownerEmail)
	if err != nil {
		if errors.Is(err, domain.ErrReadFailed) {
			h.logger.Warn("chat list read failed, rendering empty", "owner_email", ownerEmail, "error", err)
			if grouped {
				httputil.RespondJSON(w, http.StatusOK, []chat.Bucket{})
			} else {
				httputil.RespondJSON(w, http.StatusOK, []models.Chat{})
			}
			return
		}
		handleError(w, err)
		return
	}

	if !grouped {
		httputil.RespondJSON(w, http.StatusOK, chats)
		return
	}

	buckets := h.grouper.Group(time.Now(), chats)
	for i := range buckets {
		chat.SortByLastModifiedDesc(buckets[i].Chats)
	}

	httputil.RespondJSON(w, http.StatusOK, buckets)
}

// GetChat retrieves a single chat by id
// GET /api/chats/{id}
func (h *ChatHandler) GetChat(w http.ResponseWriter, r *http.Request) {
	chatID, ok := PathParam(w, r, "id", "Chat ID")
	if !ok {
		return
	}

	found, err := h.loadOwnedChat(r, chatID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, found)
}

// UpdateChat renames a chat
// PATCH /api/chats/{id}
func (h *ChatHandler) UpdateChat(w http.ResponseWriter, r *http.Request) {
	chatID, ok := PathParam(w, r, "id", "Chat ID")
	if !ok {
		return
	}

	var req models.UpdateChatRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.sync.UpdateChatTitle(r.Context(), chatID, strings.TrimSpace(req.Title)); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// DeleteChat removes a chat
// DELETE /api/chats/{id}
func (h *ChatHandler) DeleteChat(w http.ResponseWriter, r *http.Request) {
	chatID, ok := PathParam(w, r, "id", "Chat ID")
	if !ok {
		return
	}

	if err := h.sync.DeleteChat(r.Context(), chatID); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// UpdateMessages replaces a chat's message list
// PUT /api/chats/{id}/messages
func (h *ChatHandler) UpdateMessages(w http.ResponseWriter, r *http.Request) {
	chatID, ok := PathParam(w, r, "id", "Chat ID")
	if !ok {
		return
	}

	var req models.UpdateChatMessagesRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.sync.UpdateChatMessages(r.Context(), chatID, req.Messages); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type sendMessageResponse struct {
	ChatID   string               `json:"chat_id"`
	Messages []models.ChatMessage `json:"messages"`
}

// SendMessage runs one user turn through a session: append the user
// message and an assistant placeholder, resolve the placeholder with the
// generated reply, and persist. Without a chat_id the first successful
// persist creates the chat, titled from the first user message.
// POST /api/messages
func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	ownerEmail := httputil.GetOwnerEmail(r)

	var req models.SendMessageRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	text := strings.TrimSpace(req.Text)
	if text == "" {
		httputil.RespondError(w, http.StatusBadRequest, "message text is required")
		return
	}

	var session *chat.Session
	if req.ChatID != "" {
		existing, err := h.loadOwnedChat(r, req.ChatID)
		if err != nil {
			handleError(w, err)
			return
		}
		session = chat.ResumeSession(h.sync, existing)
	} else {
		session = chat.NewSession(h.sync)
	}

	session.AppendUserMessage(text)
	pending := session.AppendPendingAssistantMessage()

	reply := h.responder.Reply(r.Context(), ownerEmail, text)
	session.ResolveAssistantMessage(pending.ID, reply)

	if err := session.Persist(r.Context(), ownerEmail); err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, sendMessageResponse{
		ChatID:   session.ChatID(),
		Messages: session.Messages(),
	})
}

// loadOwnedChat fetches a chat and hides other owners' chats behind
// not-found.
func (h *ChatHandler) loadOwnedChat(r *http.Request, chatID string) (*models.Chat, error) {
	found, err := h.sync.GetChatByID(r.Context(), chatID)
	if err != nil {
		return nil, err
	}
	if found.OwnerEmail != httputil.GetOwnerEmail(r) {
		return nil, fmt.Errorf("chat %s: %w", chatID, domain.ErrNotFound)
	}
	return found, nil
}
