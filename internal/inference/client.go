// Package inference is the client for the remote OCR / image-generation
// HTTP server. Per the wire contract, OCR failures surface as literal
// strings in place of extracted text; no structured error type crosses
// this boundary.
package inference

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"
)

type Client struct {
	http   *resty.Client
	logger *slog.Logger
}

// NewClient creates an inference client for the given base URL
func NewClient(baseURL string, logger *slog.Logger) *Client {
	c := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(2 * time.Minute)

	return &Client{
		http:   c,
		logger: logger,
	}
}

type ocrResponse struct {
	Text string `json:"text"`
}

type generateRequest struct {
	Prompt string `json:"prompt"`
}

type generateResponse struct {
	ImageURL string `json:"image_url"`
}

// ExtractText posts JPEG bytes as the multipart form field "image" to
// {base}/ocr and returns the extracted text. Non-2xx responses and
// transport failures yield a literal error string in place of text.
func (c *Client) ExtractText(ctx context.Context, image io.Reader, filename string) string {
	resp, err := c.http.R().
		SetContext(ctx).
		SetFileReader("image", filename, image).
		Post("/ocr")
	if err != nil {
		c.logger.Warn("ocr request failed", "error", err)
		return fmt.Sprintf("Error: %v", err)
	}

	if resp.IsError() {
		return fmt.Sprintf("OCR Failed: %d", resp.StatusCode())
	}

	var body ocrResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil || body.Text == "" {
		return "No text found"
	}

	return body.Text
}

// GenerateImage posts the prompt to {base}/generate_image and returns the
// third-party URL of the generated image. Callers re-upload that image
// into the blob store before persisting anything.
func (c *Client) GenerateImage(ctx context.Context, prompt string) (string, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(&generateRequest{Prompt: prompt}).
		Post("/generate_image")
	if err != nil {
		return "", fmt.Errorf("generate image: %w", err)
	}

	if resp.IsError() {
		return "", fmt.Errorf("Server responded with code %d", resp.StatusCode())
	}

	var body generateResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return "", fmt.Errorf("decode generate response: %w", err)
	}

	return body.ImageURL, nil
}
