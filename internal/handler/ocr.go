package handler

import (
	"log/slog"
	"net/http"

	"snaptext/internal/config"
	"snaptext/internal/httputil"
	"snaptext/internal/inference"
)

// OCRHandler proxies capture images to the inference server
type OCRHandler struct {
	inference *inference.Client
	logger    *slog.Logger
}

// NewOCRHandler creates a new OCR handler
func NewOCRHandler(client *inference.Client, logger *slog.Logger) *OCRHandler {
	return &OCRHandler{
		inference: client,
		logger:    logger,
	}
}

// ExtractText runs OCR over an uploaded image
// POST /api/ocr (multipart: image)
//
// The response is always 200 with a text field; OCR failures arrive as
// literal error strings in place of extracted text, matching the wire
// contract of the inference server.
func (h *OCRHandler) ExtractText(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(config.MaxUploadBytes); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "image file is required")
		return
	}
	defer file.Close()

	text := h.inference.ExtractText(r.Context(), file, header.Filename)

	httputil.RespondJSON(w, http.StatusOK, map[string]string{"text": text})
}
