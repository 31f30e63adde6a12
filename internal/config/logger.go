package config

import (
	"os"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// NewLogger builds the service logger. JSON is used in release mode unless
// LOG_FORMAT says otherwise; an unknown level falls back to info.
func NewLogger(cfg *Config) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)

	format := cfg.LogFormat
	if format == "" && cfg.GinMode == gin.ReleaseMode {
		format = "json"
	}
	if format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logger.WithField("level", cfg.LogLevel).Warn("Unknown LOG_LEVEL, using info")
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	return logger
}
