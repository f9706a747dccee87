// Package objectstore issues short-lived upload and download handles for
// invoice attachments. Keys are content-addressed (derived from the client
// supplied content hash) so identical uploads dedupe naturally; the ledger
// persists only the opaque key, never a durable public URL.
package objectstore

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// UploadHandle is a short-lived destination for one attachment upload.
type UploadHandle struct {
	URL string `json:"presignedUrl"`
	Key string `json:"key"`
}

// Store issues attachment handles.
type Store interface {
	PresignUpload(ctx context.Context, contentHash, mimeType string) (UploadHandle, error)
	PresignDownload(ctx context.Context, key string) (string, error)
}

// Local signs attachment URLs against a local file gateway with an HMAC
// token, standing in for a cloud object store in single-node deployments.
type Local struct {
	baseDir    string
	publicURL  string
	signingKey []byte
	expiry     time.Duration
	logger     *zap.Logger
	now        func() time.Time
}

// NewLocal creates a local attachment store rooted at baseDir.
func NewLocal(baseDir, publicURL, signingKey string, expiry time.Duration, logger *zap.Logger) *Local {
	if expiry <= 0 {
		expiry = time.Hour
	}
	return &Local{
		baseDir:    baseDir,
		publicURL:  strings.TrimRight(publicURL, "/"),
		signingKey: []byte(signingKey),
		expiry:     expiry,
		logger:     logger,
		now:        time.Now,
	}
}

// extensions maps accepted attachment MIME types to file extensions.
// Unknown types get no extension rather than being rejected; the ledger does
// not interpret attachment content.
var extensions = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"application/pdf": ".pdf",
}

// PresignUpload derives a content-addressed key and signs a PUT URL for it.
func (s *Local) PresignUpload(ctx context.Context, contentHash, mimeType string) (UploadHandle, error) {
	if contentHash == "" {
		return UploadHandle{}, fmt.Errorf("content hash is required")
	}

	key := "invoices/" + contentHash + extensions[mimeType]
	signed, err := s.sign("PUT", key)
	if err != nil {
		return UploadHandle{}, err
	}

	s.logger.Debug("Presigned attachment upload",
		zap.String("key", key),
		zap.String("mime_type", mimeType))
	return UploadHandle{URL: signed, Key: key}, nil
}

// PresignDownload signs a GET URL for a stored key.
func (s *Local) PresignDownload(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("attachment key is required")
	}
	return s.sign("GET", key)
}

func (s *Local) sign(method, key string) (string, error) {
	expires := s.now().Add(s.expiry).Unix()

	mac := hmac.New(sha256.New, s.signingKey)
	fmt.Fprintf(mac, "%s\n%s\n%d", method, key, expires)
	token := hex.EncodeToString(mac.Sum(nil))

	q := url.Values{}
	q.Set("expires", strconv.FormatInt(expires, 10))
	q.Set("signature", token)
	return fmt.Sprintf("%s/%s?%s", s.publicURL, key, q.Encode()), nil
}

// Put writes attachment bytes under key. Keys must stay inside the base
// directory; anything that escapes after cleaning is rejected.
func (s *Local) Put(key string, r io.Reader) error {
	path, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create attachment directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create attachment file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		return fmt.Errorf("failed to write attachment: %w", err)
	}

	s.logger.Debug("Stored attachment", zap.String("key", key))
	return nil
}

// Get opens the attachment stored under key. The caller closes the reader.
func (s *Local) Get(key string) (io.ReadCloser, error) {
	path, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open attachment: %w", err)
	}
	return f, nil
}

func (s *Local) resolve(key string) (string, error) {
	cleaned := filepath.Clean("/" + key)
	if cleaned == "/" {
		return "", fmt.Errorf("invalid attachment key %q", key)
	}
	return filepath.Join(s.baseDir, cleaned), nil
}

// Verify checks a signed URL's token and expiry. The file gateway calls this
// before serving or accepting bytes.
func (s *Local) Verify(method, key, signature string, expires int64) bool {
	if s.now().Unix() > expires {
		return false
	}
	mac := hmac.New(sha256.New, s.signingKey)
	fmt.Fprintf(mac, "%s\n%s\n%d", method, key, expires)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
