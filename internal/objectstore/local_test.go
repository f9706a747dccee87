package objectstore

import (
	"context"
	"io"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestStore(t *testing.T) *Local {
	t.Helper()
	return NewLocal(t.TempDir(), "http://localhost:8080/files", "test-signing-key", time.Hour, zap.NewNop())
}

func parseSignedURL(t *testing.T, signed string) (key, signature string, expires int64) {
	t.Helper()
	u, err := url.Parse(signed)
	require.NoError(t, err)

	key = strings.TrimPrefix(u.Path, "/files/")
	signature = u.Query().Get("signature")
	expires, err = strconv.ParseInt(u.Query().Get("expires"), 10, 64)
	require.NoError(t, err)
	return key, signature, expires
}

func TestPresignUpload(t *testing.T) {
	ctx := context.Background()

	t.Run("derives content-addressed key with extension", func(t *testing.T) {
		store := newTestStore(t)
		handle, err := store.PresignUpload(ctx, "abc123", "image/png")
		require.NoError(t, err)
		assert.Equal(t, "invoices/abc123.png", handle.Key)
		assert.Contains(t, handle.URL, "/files/invoices/abc123.png?")
	})

	t.Run("unknown mime type gets no extension", func(t *testing.T) {
		store := newTestStore(t)
		handle, err := store.PresignUpload(ctx, "abc123", "application/x-weird")
		require.NoError(t, err)
		assert.Equal(t, "invoices/abc123", handle.Key)
	})

	t.Run("requires a content hash", func(t *testing.T) {
		store := newTestStore(t)
		_, err := store.PresignUpload(ctx, "", "image/png")
		require.Error(t, err)
	})

	t.Run("upload url verifies for PUT only", func(t *testing.T) {
		store := newTestStore(t)
		handle, err := store.PresignUpload(ctx, "abc123", "image/jpeg")
		require.NoError(t, err)

		key, signature, expires := parseSignedURL(t, handle.URL)
		assert.True(t, store.Verify("PUT", key, signature, expires))
		assert.False(t, store.Verify("GET", key, signature, expires))
	})
}

func TestPresignDownload(t *testing.T) {
	ctx := context.Background()

	t.Run("signed url verifies", func(t *testing.T) {
		store := newTestStore(t)
		signed, err := store.PresignDownload(ctx, "invoices/abc123.png")
		require.NoError(t, err)

		key, signature, expires := parseSignedURL(t, signed)
		assert.Equal(t, "invoices/abc123.png", key)
		assert.True(t, store.Verify("GET", key, signature, expires))
	})

	t.Run("requires a key", func(t *testing.T) {
		store := newTestStore(t)
		_, err := store.PresignDownload(ctx, "")
		require.Error(t, err)
	})

	t.Run("tampered key fails verification", func(t *testing.T) {
		store := newTestStore(t)
		signed, err := store.PresignDownload(ctx, "invoices/abc123.png")
		require.NoError(t, err)

		_, signature, expires := parseSignedURL(t, signed)
		assert.False(t, store.Verify("GET", "invoices/other.png", signature, expires))
	})

	t.Run("different signing key fails verification", func(t *testing.T) {
		store := newTestStore(t)
		signed, err := store.PresignDownload(ctx, "invoices/abc123.png")
		require.NoError(t, err)

		other := NewLocal(t.TempDir(), "http://localhost:8080/files", "other-key", time.Hour, zap.NewNop())
		key, signature, expires := parseSignedURL(t, signed)
		assert.False(t, other.Verify("GET", key, signature, expires))
	})

	t.Run("expired url fails verification", func(t *testing.T) {
		store := newTestStore(t)
		signed, err := store.PresignDownload(ctx, "invoices/abc123.png")
		require.NoError(t, err)

		key, signature, expires := parseSignedURL(t, signed)
		store.now = func() time.Time { return time.Unix(expires+1, 0) }
		assert.False(t, store.Verify("GET", key, signature, expires))
	})
}

func TestPutGet(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		store := newTestStore(t)
		require.NoError(t, store.Put("invoices/abc123.png", strings.NewReader("receipt bytes")))

		r, err := store.Get("invoices/abc123.png")
		require.NoError(t, err)
		defer r.Close()

		data, err := io.ReadAll(r)
		require.NoError(t, err)
		assert.Equal(t, "receipt bytes", string(data))
	})

	t.Run("missing key", func(t *testing.T) {
		store := newTestStore(t)
		_, err := store.Get("invoices/missing.png")
		require.Error(t, err)
	})

	t.Run("keys cannot escape the base directory", func(t *testing.T) {
		store := newTestStore(t)
		require.NoError(t, store.Put("invoices/../../escape.txt", strings.NewReader("nope")))

		// Cleaning rewrites the traversal; the file lands inside the base
		// directory under the normalized key.
		r, err := store.Get("escape.txt")
		require.NoError(t, err)
		r.Close()
	})

	t.Run("empty key rejected", func(t *testing.T) {
		store := newTestStore(t)
		require.Error(t, store.Put("", strings.NewReader("x")))
	})
}
