package images

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"strings"
)

// Service combines validation, storage and URL resolution.
type Service struct {
	validator Validator
	store     Store
	baseURL   string
	prefix    string
}

// NewService builds an image service. publicBaseURL is prefixed to relative
// references (e.g. "/images" or "https://cdn.example.com/nvl").
func NewService(store Store, maxSize int64, publicBaseURL string) *Service {
	return &Service{
		validator: Validator{MaxSize: maxSize},
		store:     store,
		baseURL:   strings.TrimSuffix(publicBaseURL, "/"),
		prefix:    "nvl",
	}
}

// Validate lists the problems with f.
func (s *Service) Validate(f File) []string {
	return s.validator.Validate(f)
}

// Upload validates and stores f, returning the reference to save on the record.
func (s *Service) Upload(ctx context.Context, f File) (string, error) {
	if err := s.validator.Check(f); err != nil {
		return "", err
	}
	key, err := s.store.Save(ctx, s.prefix, f.MIME, bytes.NewReader(f.Data))
	if err != nil {
		return "", fmt.Errorf("store image %q: %w", f.Name, err)
	}
	return s.Resolve(key), nil
}

// Open streams a stored image by key.
func (s *Service) Open(ctx context.Context, key string) (io.ReadCloser, string, error) {
	return s.store.Open(ctx, key)
}

// Resolve turns a stored reference into a URL a browser can load. Absolute
// URLs, data URLs and rooted paths are returned unchanged.
func (s *Service) Resolve(ref string) string {
	ref = strings.TrimSpace(ref)
	switch {
	case ref == "":
		return ""
	case strings.HasPrefix(ref, "/"),
		strings.HasPrefix(ref, "data:"),
		strings.Contains(ref, "://"):
		return ref
	}
	return s.baseURL + "/" + strings.TrimPrefix(ref, "./")
}

// DataURL renders f inline for previews before upload.
func DataURL(f File) string {
	mime := f.MIME
	if mime == "" {
		mime = "application/octet-stream"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(f.Data)
}
