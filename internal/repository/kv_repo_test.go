package repository

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nullLogger() *logrus.Logger {
	logger, _ := logtest.NewNullLogger()
	return logger
}

func exerciseKV(t *testing.T, repo KVRepository) {
	ctx := context.Background()

	_, found, err := repo.Get(ctx, "invoiceData")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, repo.Set(ctx, "invoiceData", `{"invoiceNumber":"INV-2026-0001"}`))
	require.NoError(t, repo.Set(ctx, "selectedTemplate", "modern"))
	require.NoError(t, repo.Set(ctx, "selectedTemplate", "classic"))

	val, found, err := repo.Get(ctx, "selectedTemplate")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "classic", val)

	require.NoError(t, repo.Delete(ctx, "invoiceData", "selectedTemplate", "missing"))

	_, found, err = repo.Get(ctx, "invoiceData")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMemoryKVRepository(t *testing.T) {
	repo := NewMemoryKVRepository()
	exerciseKV(t, repo)
	assert.Equal(t, 0, repo.Len())
}

func TestFileKVRepository(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "storage.json")
	repo, err := NewFileKVRepository(path, nullLogger())
	require.NoError(t, err)

	exerciseKV(t, repo)

	require.NoError(t, repo.Set(context.Background(), "selectedTemplate", "gradient"))

	// a second repository on the same file sees the persisted value
	reopened, err := NewFileKVRepository(path, nullLogger())
	require.NoError(t, err)
	val, found, err := reopened.Get(context.Background(), "selectedTemplate")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "gradient", val)
}

func TestFileKVRepositoryCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "storage.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	repo, err := NewFileKVRepository(path, nullLogger())
	require.NoError(t, err)

	_, _, err = repo.Get(context.Background(), "invoiceData")
	assert.ErrorIs(t, err, errCorruptFile)
}

func TestFileKVRepositoryReplacesCorruptFileOnWrite(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "storage.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o644))

	logger, hook := logtest.NewNullLogger()
	repo, err := NewFileKVRepository(path, logger)
	require.NoError(t, err)

	require.NoError(t, repo.Set(ctx, "selectedTemplate", "modern"))
	require.Len(t, hook.Entries, 1)
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)

	val, found, err := repo.Get(ctx, "selectedTemplate")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "modern", val)

	require.NoError(t, os.WriteFile(path, []byte("{broken"), 0o644))
	require.NoError(t, repo.Delete(ctx, "invoiceData", "selectedTemplate"))
	_, found, err = repo.Get(ctx, "selectedTemplate")
	require.NoError(t, err)
	assert.False(t, found)
}
