// Package storage keeps test artifacts such as screenshots on the local
// filesystem or in S3.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"
)

var (
	// ErrFileNotFound is returned when a requested artifact does not exist.
	ErrFileNotFound = errors.New("file not found")

	// ErrInvalidPath is returned for empty, absolute or escaping keys.
	ErrInvalidPath = errors.New("invalid path")

	ErrUnsupportedType = errors.New("unsupported storage type")
)

// BlobStorage stores artifacts under slash-separated keys.
type BlobStorage interface {
	// Upload stores the content of reader at key.
	Upload(ctx context.Context, key string, reader io.Reader) error

	// Download opens the artifact stored at key.
	Download(ctx context.Context, key string) (io.ReadCloser, error)

	Delete(ctx context.Context, key string) error

	Exists(ctx context.Context, key string) (bool, error)

	// List returns the keys below prefix in lexical order.
	List(ctx context.Context, prefix string) ([]string, error)

	// GetURL returns a location the artifact can be fetched from. For S3 it is
	// a presigned URL.
	GetURL(ctx context.Context, key string) (string, error)
}

// Config selects and configures a BlobStorage.
type Config struct {
	Type string

	// Local
	BaseDir string

	// S3
	Bucket        string
	Region        string
	Endpoint      string
	Prefix        string
	PresignExpiry time.Duration
}

// New creates the BlobStorage described by cfg.
func New(ctx context.Context, cfg Config) (BlobStorage, error) {
	switch strings.ToLower(cfg.Type) {
	case "", "local":
		if cfg.BaseDir == "" {
			return nil, fmt.Errorf("%w: base_dir is required for local storage", ErrInvalidPath)
		}
		return NewLocalStorage(cfg.BaseDir)

	case "s3":
		s, err := NewS3Storage(ctx, S3Options{
			Bucket:   cfg.Bucket,
			Region:   cfg.Region,
			Endpoint: cfg.Endpoint,
			Prefix:   cfg.Prefix,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize S3 storage: %w", err)
		}
		if cfg.PresignExpiry > 0 {
			s.presignExpiration = cfg.PresignExpiry
		}
		return s, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, cfg.Type)
}

// CleanKey normalises key and rejects keys that are empty, absolute or point
// outside the store.
func CleanKey(key string) (string, error) {
	key = strings.ReplaceAll(key, `\`, "/")
	if strings.TrimSpace(key) == "" {
		return "", fmt.Errorf("%w: key cannot be empty", ErrInvalidPath)
	}
	if strings.HasPrefix(key, "/") {
		return "", fmt.Errorf("%w: absolute keys not allowed", ErrInvalidPath)
	}
	clean := path.Clean(key)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("%w: path traversal detected", ErrInvalidPath)
	}
	return clean, nil
}

// ContentType guesses the media type of an artifact from its key.
func ContentType(key string) string {
	switch strings.ToLower(path.Ext(key)) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".webm":
		return "video/webm"
	case ".mp4":
		return "video/mp4"
	case ".json":
		return "application/json"
	case ".html":
		return "text/html; charset=utf-8"
	case ".txt", ".log":
		return "text/plain; charset=utf-8"
	}
	return "application/octet-stream"
}
