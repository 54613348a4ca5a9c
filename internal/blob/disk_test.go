package blob

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBase = "http://localhost:8080"

func newTestStore(t *testing.T) *DiskStore {
	t.Helper()
	store, err := NewDiskStore(t.TempDir(), testBase+"/", slog.Default())
	require.NoError(t, err)
	return store
}

func TestUploadAndDelete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	url, err := store.Upload(ctx, "user@example.com", "images", strings.NewReader("jpegbytes"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, testBase+"/files/user%40example.com/images/"), "url = %s", url)
	assert.True(t, strings.HasSuffix(url, ".jpg"))
	assert.True(t, store.Owns(url))

	// The object exists on disk under {owner}/{category}
	entries, err := os.ReadDir(filepath.Join(store.Root(), "user@example.com", "images"))
	require.NoError(t, err)
	require.Len(t, entries, 1)

	data, err := os.ReadFile(filepath.Join(store.Root(), "user@example.com", "images", entries[0].Name()))
	require.NoError(t, err)
	assert.Equal(t, "jpegbytes", string(data))

	require.NoError(t, store.DeleteByURL(ctx, url))
	entries, err = os.ReadDir(filepath.Join(store.Root(), "user@example.com", "images"))
	require.NoError(t, err)
	assert.Empty(t, entries)

	// Deleting an already-removed URL is a no-op
	assert.NoError(t, store.DeleteByURL(ctx, url))
}

func TestUploadRejectsBadSegments(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.Upload(ctx, "", "images", strings.NewReader("x"))
	assert.Error(t, err)

	_, err = store.Upload(ctx, "../escape", "images", strings.NewReader("x"))
	assert.Error(t, err)

	_, err = store.Upload(ctx, "user@example.com", "a/b", strings.NewReader("x"))
	assert.Error(t, err)
}

func TestDeleteByURLRejectsForeignAndTraversal(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	err := store.DeleteByURL(ctx, "https://elsewhere.example.com/files/u/images/a.jpg")
	assert.Error(t, err, "URLs from another store must be rejected")

	err = store.DeleteByURL(ctx, testBase+"/files/u/images/%2E%2E")
	assert.Error(t, err, "dot-dot segments must be rejected")

	err = store.DeleteByURL(ctx, testBase+"/files/u/images/a%2Fb.jpg")
	assert.Error(t, err, "encoded slashes must be rejected")
}

func TestList(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	url1, err := store.Upload(ctx, "a@example.com", "images", strings.NewReader("one"))
	require.NoError(t, err)
	url2, err := store.Upload(ctx, "b@example.com", "chat_images", strings.NewReader("two"))
	require.NoError(t, err)

	infos, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, infos, 2)

	got := map[string]bool{}
	for _, info := range infos {
		got[info.URL] = true
		assert.False(t, info.ModTime.IsZero())
	}
	assert.True(t, got[url1], "List URLs must round-trip with Upload URLs")
	assert.True(t, got[url2])
}

func TestListEmptyStore(t *testing.T) {
	store := newTestStore(t)

	infos, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, infos)
}
