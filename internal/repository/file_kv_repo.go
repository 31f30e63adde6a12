package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"
)

var errCorruptFile = errors.New("failed to decode storage file")

// fileKVRepository mirrors browser local storage: every entry lives in one
// JSON object on local disk, rewritten atomically on each change.
type fileKVRepository struct {
	path   string
	logger *logrus.Logger
	mu     sync.Mutex
}

// NewFileKVRepository stores entries in the JSON file at path, creating parent
// directories as needed. Reads of a corrupt file fail; the next write replaces it.
func NewFileKVRepository(path string, logger *logrus.Logger) (KVRepository, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &fileKVRepository{path: path, logger: logger}, nil
}

func (r *fileKVRepository) Get(_ context.Context, key string) (string, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries, err := r.load()
	if err != nil {
		return "", false, err
	}
	val, ok := entries[key]
	return val, ok, nil
}

func (r *fileKVRepository) Set(_ context.Context, key, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries, err := r.loadForWrite()
	if err != nil {
		return err
	}
	entries[key] = value
	return r.save(entries)
}

func (r *fileKVRepository) Delete(_ context.Context, keys ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries, err := r.loadForWrite()
	if err != nil {
		return err
	}
	for _, k := range keys {
		delete(entries, k)
	}
	return r.save(entries)
}

func (r *fileKVRepository) load() (map[string]string, error) {
	entries := map[string]string{}
	data, err := os.ReadFile(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		return entries, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read storage file: %w", err)
	}
	if len(data) == 0 {
		return entries, nil
	}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("%w: %w", errCorruptFile, err)
	}
	return entries, nil
}

// loadForWrite starts over from an empty map when the file cannot be decoded
func (r *fileKVRepository) loadForWrite() (map[string]string, error) {
	entries, err := r.load()
	if errors.Is(err, errCorruptFile) {
		r.logger.WithError(err).WithField("path", r.path).Warn("Replacing corrupt storage file")
		return map[string]string{}, nil
	}
	return entries, err
}

func (r *fileKVRepository) save(entries map[string]string) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(r.path), ".kv-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp storage file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write storage file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), r.path)
}
