package storage

import (
	"context"
	"crypto/sha256"
	"fmt"
	"strings"
	"time"
)

type Storage interface {
	// Put stores data with the given key and returns the storage URL
	Put(ctx context.Context, key string, data []byte) (string, error)
	// Get retrieves data from the given storage URL
	Get(ctx context.Context, url string) ([]byte, error)
}

type Config struct {
	// Backend is "file" (default) or "s3".
	Backend   string
	Directory string
	Bucket    string
}

func New(ctx context.Context, c Config) (Storage, error) {
	switch c.Backend {
	case "", "file":
		s, err := NewFileStorage(ctx, FileConfig{
			Directory: c.Directory,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create file storage backend: %w", err)
		}
		return s, nil
	case "s3":
		s, err := NewS3Storage(ctx, S3Config{
			Bucket: c.Bucket,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create S3 storage backend: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", c.Backend)
	}
}

// Key builds Snapshot/<kind>/<hash>/<timestamp>.<ext>, where hash is the
// first 16 hex digits of the SHA-256 of seed.
func Key(kind string, seed string, ext string, now time.Time) string {
	hash := fmt.Sprintf("%x", sha256.Sum256([]byte(seed)))[:16]
	return fmt.Sprintf("Snapshot/%s/%s/%s.%s", kind, hash, now.Format("20060102150405"), strings.TrimPrefix(ext, "."))
}

// ParseS3URL splits s3://bucket/key.
func ParseS3URL(url string) (bucket string, key string, ok bool) {
	rest, found := strings.CutPrefix(url, "s3://")
	if !found {
		return "", "", false
	}
	bucket, key, found = strings.Cut(rest, "/")
	if !found || bucket == "" || key == "" {
		return "", "", false
	}
	return bucket, key, true
}
