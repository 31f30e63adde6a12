package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Downloader delivers a finished file and reports where it went
type Downloader interface {
	Download(ctx context.Context, name string, data []byte) (string, error)
}

// DirDownloader writes files into a directory, creating it when missing
type DirDownloader struct {
	dir string
}

func NewDirDownloader(dir string) *DirDownloader {
	return &DirDownloader{dir: dir}
}

func (d *DirDownloader) Download(ctx context.Context, name string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}
	path := filepath.Join(d.dir, filepath.Base(name))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}

// NewDownloader archives into dir when it is set and otherwise only buffers
// the file for the caller to stream
func NewDownloader(dir string) Downloader {
	if dir == "" {
		return NewBufferDownloader()
	}
	return NewDirDownloader(dir)
}

// File is one delivered download
type File struct {
	Name string
	Data []byte
}

// BufferDownloader keeps the last delivered file in memory
type BufferDownloader struct {
	mu   sync.Mutex
	last *File
}

func NewBufferDownloader() *BufferDownloader {
	return &BufferDownloader{}
}

func (b *BufferDownloader) Download(ctx context.Context, name string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.last = &File{Name: name, Data: data}
	return name, nil
}

// Take returns and forgets the last file
func (b *BufferDownloader) Take() (File, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.last == nil {
		return File{}, false
	}
	f := *b.last
	b.last = nil
	return f, true
}
