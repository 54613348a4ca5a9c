// Package blob implements the image blob store on the local filesystem.
// Objects live under an owner-scoped directory tree and are addressed by
// durable download URLs served from the /files/ route.
package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"snaptext/internal/domain"
	"snaptext/internal/domain/repositories"
)

// DiskStore implements the BlobStore interface on a local directory
type DiskStore struct {
	root       string
	publicBase string // URL prefix for download URLs, no trailing slash
	logger     *slog.Logger
}

// NewDiskStore creates a DiskStore rooted at dir. Download URLs are formed
// as {publicBase}/files/{owner}/{category}/{name}.
func NewDiskStore(dir, publicBase string, logger *slog.Logger) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create blob root: %w", err)
	}

	return &DiskStore{
		root:       dir,
		publicBase: strings.TrimSuffix(publicBase, "/"),
		logger:     logger,
	}, nil
}

// Root returns the directory the store serves files from
func (s *DiskStore) Root() string {
	return s.root
}

// Upload streams r into a new object and returns its durable download URL
func (s *DiskStore) Upload(ctx context.Context, ownerEmail, category string, r io.Reader) (string, error) {
	if ownerEmail == "" {
		return "", fmt.Errorf("owner email required: %w", domain.ErrUnauthenticated)
	}
	if err := checkSegment(ownerEmail); err != nil {
		return "", err
	}
	if err := checkSegment(category); err != nil {
		return "", err
	}

	name := uuid.NewString() + ".jpg"
	dir := filepath.Join(s.root, ownerEmail, category)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("%w: create object directory: %v", domain.ErrUploadFailed, err)
	}

	dest := filepath.Join(dir, name)
	f, err := os.Create(dest)
	if err != nil {
		return "", fmt.Errorf("%w: create object: %v", domain.ErrUploadFailed, err)
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(dest)
		return "", fmt.Errorf("%w: write object: %v", domain.ErrUploadFailed, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(dest)
		return "", fmt.Errorf("%w: close object: %v", domain.ErrUploadFailed, err)
	}

	return s.urlFor(ownerEmail, category, name), nil
}

// DeleteByURL removes the blob behind a previously returned download URL.
// Unknown or already-deleted URLs are not an error.
func (s *DiskStore) DeleteByURL(ctx context.Context, rawURL string) error {
	rel, err := s.relPath(rawURL)
	if err != nil {
		return err
	}

	if err := os.Remove(filepath.Join(s.root, filepath.FromSlash(rel))); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("delete blob: %w", err)
	}

	return nil
}

// List enumerates every stored blob with its modification time
func (s *DiskStore) List(ctx context.Context) ([]repositories.BlobInfo, error) {
	infos := []repositories.BlobInfo{}

	err := filepath.WalkDir(s.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		fi, err := d.Info()
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			return err
		}

		parts := strings.Split(filepath.ToSlash(rel), "/")
		for i, part := range parts {
			parts[i] = url.PathEscape(part)
		}

		infos = append(infos, repositories.BlobInfo{
			URL:     s.publicBase + "/files/" + strings.Join(parts, "/"),
			ModTime: fi.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk blob root: %w", err)
	}

	return infos, nil
}

// Owns reports whether a URL addresses an object in this store
func (s *DiskStore) Owns(rawURL string) bool {
	return strings.HasPrefix(rawURL, s.publicBase+"/files/")
}

func (s *DiskStore) urlFor(segments ...string) string {
	escaped := make([]string, len(segments))
	for i, seg := range segments {
		escaped[i] = url.PathEscape(seg)
	}
	return s.publicBase + "/files/" + path.Join(escaped...)
}

// relPath maps a download URL back to a root-relative slash path
func (s *DiskStore) relPath(rawURL string) (string, error) {
	if !s.Owns(rawURL) {
		return "", fmt.Errorf("url %q is not served by this blob store", rawURL)
	}

	escaped := strings.TrimPrefix(rawURL, s.publicBase+"/files/")
	parts := strings.Split(escaped, "/")
	for i, part := range parts {
		seg, err := url.PathUnescape(part)
		if err != nil {
			return "", fmt.Errorf("malformed blob url %q: %w", rawURL, err)
		}
		if err := checkSegment(seg); err != nil {
			return "", err
		}
		parts[i] = seg
	}

	return path.Join(parts...), nil
}

// checkSegment rejects path components that could escape the store root
func checkSegment(seg string) error {
	if seg == "" || seg == "." || seg == ".." ||
		strings.ContainsAny(seg, "/\\") {
		return fmt.Errorf("invalid blob path segment %q", seg)
	}
	return nil
}
