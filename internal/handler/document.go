package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"

	syncclient "snaptext/internal/sync"

	"snaptext/internal/config"
	"snaptext/internal/domain"
	"snaptext/internal/domain/models"
	"snaptext/internal/httputil"
)

// DocumentHandler handles saved-document HTTP requests
type DocumentHandler struct {
	sync   *syncclient.Client
	logger *slog.Logger
}

// NewDocumentHandler creates a new document handler
func NewDocumentHandler(sync *syncclient.Client, logger *slog.Logger) *DocumentHandler {
	return &DocumentHandler{
		sync:   sync,
		logger: logger,
	}
}

// SaveDocument stores a captured image and its extracted text
// POST /api/documents (multipart: image, text)
func (h *DocumentHandler) SaveDocument(w http.ResponseWriter, r *http.Request) {
	ownerEmail := httputil.GetOwnerEmail(r)

	if err := r.ParseMultipartForm(config.MaxUploadBytes); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "image file is required")
		return
	}
	defer file.Close()

	// Stage the upload in local temporary storage; the sync client reads
	// captured images from a local path.
	tmp, err := os.CreateTemp("", "capture-*.jpg")
	if err != nil {
		handleError(w, err)
		return
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, file); err != nil {
		tmp.Close()
		handleError(w, err)
		return
	}
	tmp.Close()

	doc, err := h.sync.SaveDocument(r.Context(), ownerEmail, tmp.Name(), r.FormValue("text"))
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, doc)
}

// ListDocuments retrieves the owner's saved documents
// GET /api/documents
//
// Read failures render as an empty list so a transient store error never
// breaks the list view; the failure stays visible in the logs.
func (h *DocumentHandler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	ownerEmail := httputil.GetOwnerEmail(r)

	docs, err := h.sync.ListDocuments(r.Context(), ownerEmail)
	if err != nil {
		if errors.Is(err, domain.ErrReadFailed) {
			h.logger.Warn("document list read failed, rendering empty", "owner_email", ownerEmail, "error", err)
			httputil.RespondJSON(w, http.StatusOK, []models.Document{})
			return
		}
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, docs)
}

// UpdateDocument replaces a document's extracted text
// PATCH /api/documents/{id}
func (h *DocumentHandler) UpdateDocument(w http.ResponseWriter, r *http.Request) {
	documentID, ok := PathParam(w, r, "id", "Document ID")
	if !ok {
		return
	}

	var req models.UpdateDocumentRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.sync.UpdateDocumentText(r.Context(), documentID, req.Text); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// DeleteDocument removes a document record and its stored image
// DELETE /api/documents/{id}?image_url=...
func (h *DocumentHandler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	documentID, ok := PathParam(w, r, "id", "Document ID")
	if !ok {
		return
	}

	imageURL := r.URL.Query().Get("image_url")
	if err := h.sync.DeleteDocument(r.Context(), documentID, imageURL); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
