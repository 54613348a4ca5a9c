package models

import (
	"time"
)

// Document is one saved OCR capture: the scanned image (as a durable blob
// URL) plus the text extracted from it.
type Document struct {
	ID         string    `json:"document_id" db:"id"`
	OwnerEmail string    `json:"owner_email" db:"owner_email"`
	ImageURL   string    `json:"image_url" db:"image_url"`
	Text       string    `json:"text" db:"text"`
	CapturedAt time.Time `json:"captured_at" db:"captured_at"`
}

type UpdateDocumentRequest struct {
	Text string `json:"text"`
}
