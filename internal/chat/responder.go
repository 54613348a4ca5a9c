package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// ImageGenerator produces a third-party URL for a generated image.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt string) (string, error)
}

// Rehoster copies an external image into the owner's blob path and
// returns the durable URL.
type Rehoster interface {
	RehostImage(ctx context.Context, ownerEmail, imageURL string) (string, error)
}

// Responder turns a user prompt into the assistant's reply text: the
// durable blob URL of the generated image on success, or a literal
// "Error: ..." string on any failure. The reply channel carries both;
// there is no structured error alongside it.
type Responder struct {
	generator ImageGenerator
	rehoster  Rehoster
	logger    *slog.Logger
}

// NewResponder creates a Responder
func NewResponder(generator ImageGenerator, rehoster Rehoster, logger *slog.Logger) *Responder {
	return &Responder{
		generator: generator,
		rehoster:  rehoster,
		logger:    logger,
	}
}

// Reply resolves one assistant turn for the given prompt
func (r *Responder) Reply(ctx context.Context, ownerEmail, prompt string) string {
	imageURL, err := r.generator.GenerateImage(ctx, prompt)
	if err != nil {
		r.logger.Warn("image generation failed", "owner_email", ownerEmail, "error", err)
		return fmt.Sprintf("Error: %v", err)
	}

	if !strings.HasPrefix(imageURL, "http") {
		return "Error: Image generation failed or returned an invalid URL"
	}

	hosted, err := r.rehoster.RehostImage(ctx, ownerEmail, imageURL)
	if err != nil {
		r.logger.Warn("image rehost failed", "owner_email", ownerEmail, "url", imageURL, "error", err)
		return fmt.Sprintf("Error: %v", err)
	}

	return hosted
}
