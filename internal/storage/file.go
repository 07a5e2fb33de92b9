package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var InvalidKeyError = errors.New("invalid key")

type fileStorage struct {
	config FileConfig
}

type FileConfig struct {
	Directory string
}

// NewFileStorage stores objects under Directory, "." when empty.
func NewFileStorage(ctx context.Context, f FileConfig) (Storage, error) {
	if f.Directory == "" {
		f.Directory = "."
	}

	return &fileStorage{
		config: f,
	}, nil
}

// Put writes data to Directory/key and returns that path. The file is written
// to a temporary name first and renamed, so readers never see a partially
// written diff image.
func (a *fileStorage) Put(ctx context.Context, key string, data []byte) (string, error) {
	filePath, err := a.path(key)
	if err != nil {
		return "", err
	}

	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	f, err := os.CreateTemp(dir, "."+filepath.Base(filePath)+".*")
	if err != nil {
		return "", fmt.Errorf("failed to create temporary file: %w", err)
	}
	defer os.Remove(f.Name())

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	if err := f.Chmod(0644); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("failed to chmod file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close file: %w", err)
	}
	if err := os.Rename(f.Name(), filePath); err != nil {
		return "", fmt.Errorf("failed to rename file: %w", err)
	}

	return filePath, nil
}

// path resolves key below the storage directory. Absolute keys and keys
// escaping the directory are rejected.
func (a *fileStorage) path(key string) (string, error) {
	if key == "" || filepath.IsAbs(key) || !filepath.IsLocal(filepath.FromSlash(key)) {
		return "", fmt.Errorf("%q: %w", key, InvalidKeyError)
	}
	return filepath.Join(a.config.Directory, filepath.FromSlash(key)), nil
}

func (a *fileStorage) Get(ctx context.Context, url string) ([]byte, error) {
	data, err := os.ReadFile(strings.TrimPrefix(url, "file://"))
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	return data, nil
}
