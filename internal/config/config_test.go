package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "STORAGE_DRIVER", "EXPORT_DIR", "RASTER_FALLBACK_FONT", "EXPORT_SETTLE_MS", "EXPORT_SCALE", "NOTIFY_TTL_SECONDS", "CORS_ORIGINS", "DB_PORT"} {
		t.Setenv(key, "")
	}

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, StorageFile, cfg.StorageDriver)
	assert.Equal(t, 300*time.Millisecond, cfg.SettleDelay)
	assert.Equal(t, 2.0, cfg.ExportScale)
	assert.Equal(t, 5*time.Second, cfg.NotifyTTL)
	assert.Equal(t, []string{"http://localhost:5173", "http://127.0.0.1:5173"}, cfg.CORSOrigins)
	assert.Equal(t, "5432", cfg.DB.Port)
	assert.Empty(t, cfg.ExportDir, "exports are not archived by default")
	assert.Empty(t, cfg.FallbackFont)
}

func TestLoadFromEnvFile(t *testing.T) {
	for _, key := range []string{"PORT", "STORAGE_DRIVER", "EXPORT_SETTLE_MS", "DB_PORT", "CORS_ORIGINS"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("PORT=9090\nSTORAGE_DRIVER=mysql\nEXPORT_SETTLE_MS=0\nCORS_ORIGINS= https://a.test , https://b.test\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, StorageMySQL, cfg.StorageDriver)
	assert.Equal(t, "3306", cfg.DB.Port)
	assert.Zero(t, cfg.SettleDelay)
	assert.Equal(t, []string{"https://a.test", "https://b.test"}, cfg.CORSOrigins)
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "sqlite")
	_, err := Load("")
	assert.ErrorContains(t, err, "STORAGE_DRIVER")

	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("EXPORT_SCALE", "big")
	_, err = Load("")
	assert.ErrorContains(t, err, "EXPORT_SCALE")
}

func TestDSNs(t *testing.T) {
	db := DBConfig{Host: "db", Port: "5432", User: "app", Password: "p@ss", Name: "inv", SSLMode: "disable"}
	assert.Equal(t, "postgres://app:p%40ss@db:5432/inv?sslmode=disable", db.PostgresDSN())

	db.Port = "3306"
	assert.Equal(t, "app:p@ss@tcp(db:3306)/inv?charset=utf8mb4&parseTime=True&loc=UTC", db.MySQLDSN())
}

func TestNewLogger(t *testing.T) {
	logger := NewLogger(&Config{GinMode: "release", LogLevel: "debug"})
	assert.IsType(t, &logrus.JSONFormatter{}, logger.Formatter)
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())

	logger = NewLogger(&Config{GinMode: "debug", LogLevel: "loud"})
	assert.IsType(t, &logrus.TextFormatter{}, logger.Formatter)
	assert.Equal(t, logrus.InfoLevel, logger.GetLevel())
}
