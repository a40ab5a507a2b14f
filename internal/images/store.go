package images

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrNotFound      = errors.New("image not found")
	ErrPathTraversal = errors.New("path traversal attempt")
)

// Store persists image bytes under opaque keys.
type Store interface {
	Save(ctx context.Context, prefix, mimeType string, r io.Reader) (key string, err error)
	Open(ctx context.Context, key string) (io.ReadCloser, string, error)
	Delete(ctx context.Context, key string) error
}

// LocalStore keeps images in a directory on disk.
type LocalStore struct {
	dir string
}

// NewLocalStore creates dir if needed.
func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create image directory: %w", err)
	}
	return &LocalStore{dir: dir}, nil
}

// Save writes r to a new file named prefix_<uuid><ext> and returns that name.
func (s *LocalStore) Save(ctx context.Context, prefix, mimeType string, r io.Reader) (string, error) {
	key := fmt.Sprintf("%s_%s%s", prefix, uuid.NewString(), extFor(mimeType))
	path, err := s.safeJoin(key)
	if err != nil {
		return "", err
	}

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create image file: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		if rerr := os.Remove(path); rerr != nil {
			slog.Error("failed to remove partial image", "path", path, "error", rerr)
		}
		return "", fmt.Errorf("write image file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("close image file: %w", err)
	}
	return key, nil
}

// Open returns the stored bytes and their MIME type.
func (s *LocalStore) Open(ctx context.Context, key string) (io.ReadCloser, string, error) {
	path, err := s.safeJoin(key)
	if err != nil {
		return nil, "", err
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", ErrNotFound
		}
		return nil, "", fmt.Errorf("open image file: %w", err)
	}
	return f, mimeFor(path), nil
}

// Delete removes a stored image.
func (s *LocalStore) Delete(ctx context.Context, key string) error {
	path, err := s.safeJoin(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return fmt.Errorf("delete image file: %w", err)
	}
	return nil
}

// safeJoin resolves key inside dir and rejects anything that escapes it.
func (s *LocalStore) safeJoin(key string) (string, error) {
	base, err := filepath.Abs(s.dir)
	if err != nil {
		return "", fmt.Errorf("invalid image directory: %w", err)
	}
	path, err := filepath.Abs(filepath.Join(s.dir, key))
	if err != nil {
		return "", fmt.Errorf("invalid image key: %w", err)
	}
	if !strings.HasPrefix(path, base+string(filepath.Separator)) {
		return "", ErrPathTraversal
	}
	return path, nil
}

func extFor(mimeType string) string {
	switch mimeType {
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ".jpg"
	}
}

func mimeFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	default:
		return "image/jpeg"
	}
}
