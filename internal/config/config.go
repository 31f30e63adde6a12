// Package config reads service settings from the environment, after loading
// configs/.env when present.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Storage backends for the persisted invoice snapshot
const (
	StorageMemory   = "memory"
	StorageFile     = "file"
	StoragePostgres = "postgres"
	StorageMySQL    = "mysql"
	StorageRedis    = "redis"
)

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

type RedisConfig struct {
	Address  string
	Password string
	DB       int
	Prefix   string
}

type Config struct {
	Port      string
	GinMode   string
	LogLevel  string
	LogFormat string

	StorageDriver string
	StorageFile   string
	DB            DBConfig
	Redis         RedisConfig

	// ExportDir keeps a copy of every export when set
	ExportDir    string
	FallbackFont string
	SettleDelay  time.Duration
	ExportScale float64
	NotifyTTL   time.Duration

	CORSOrigins []string
}

// Load reads envFile (ignored when missing) and then the process environment
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		_ = godotenv.Load(envFile)
	}

	driver := strings.ToLower(getEnv("STORAGE_DRIVER", StorageFile))
	switch driver {
	case StorageMemory, StorageFile, StoragePostgres, StorageMySQL, StorageRedis:
	default:
		return nil, fmt.Errorf("unsupported STORAGE_DRIVER %q", driver)
	}

	cfg := &Config{
		Port:          getEnv("PORT", "8080"),
		GinMode:       getEnv("GIN_MODE", "debug"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogFormat:     getEnv("LOG_FORMAT", ""),
		StorageDriver: driver,
		StorageFile:   getEnv("STORAGE_FILE", "data/invoice.json"),
		DB: DBConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", defaultDBPort(driver)),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			Name:     getEnv("DB_NAME", "invoicegen"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Address:  getEnv("REDIS_ADDRESS", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			Prefix:   getEnv("REDIS_PREFIX", "invoicegen:"),
		},
		ExportDir:    getEnv("EXPORT_DIR", ""),
		FallbackFont: getEnv("RASTER_FALLBACK_FONT", ""),
		CORSOrigins:  splitList(getEnv("CORS_ORIGINS", "http://localhost:5173,http://127.0.0.1:5173")),
	}

	var err error
	if cfg.Redis.DB, err = getInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	settle, err := getInt("EXPORT_SETTLE_MS", 300)
	if err != nil {
		return nil, err
	}
	cfg.SettleDelay = time.Duration(settle) * time.Millisecond
	if cfg.ExportScale, err = getFloat("EXPORT_SCALE", 2); err != nil {
		return nil, err
	}
	ttl, err := getInt("NOTIFY_TTL_SECONDS", 5)
	if err != nil {
		return nil, err
	}
	cfg.NotifyTTL = time.Duration(ttl) * time.Second

	return cfg, nil
}

// PostgresDSN builds the URL form accepted by the pgx driver
func (c DBConfig) PostgresDSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     c.Host + ":" + c.Port,
		Path:     "/" + c.Name,
		RawQuery: "sslmode=" + url.QueryEscape(c.SSLMode),
	}
	return u.String()
}

// MySQLDSN builds a go-sql-driver DSN
func (c DBConfig) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		c.User, c.Password, c.Host, c.Port, c.Name)
}

func defaultDBPort(driver string) string {
	if driver == StorageMySQL {
		return "3306"
	}
	return "5432"
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	v := getEnv(key, "")
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getFloat(key string, fallback float64) (float64, error) {
	v := getEnv(key, "")
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
