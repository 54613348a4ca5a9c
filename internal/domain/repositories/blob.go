package repositories

import (
	"context"
	"io"
	"time"
)

// BlobInfo describes one stored blob for reconciliation sweeps.
type BlobInfo struct {
	URL     string
	ModTime time.Time
}

// BlobStore holds image bytes at owner-scoped paths and returns durable
// download URLs for them.
type BlobStore interface {
	// Upload streams r into an object at {owner}/{category}/{generated}.jpg
	// and returns its durable download URL.
	Upload(ctx context.Context, ownerEmail, category string, r io.Reader) (string, error)

	// DeleteByURL removes the blob addressed by a URL previously returned
	// from Upload. Deleting an unknown URL is not an error.
	DeleteByURL(ctx context.Context, url string) error

	// List enumerates every stored blob.
	List(ctx context.Context) ([]BlobInfo, error)
}
