package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Blob backends.
const (
	BlobFilesystem = "fs"
	BlobS3         = "s3"
)

type Config struct {
	Port     string
	LogLevel slog.Level

	// Auth
	APIKey string

	// Case database
	DBPath string

	// Original file storage
	BlobBackend string
	UploadDir   string
	S3Bucket    string
	S3Region    string
	S3Prefix    string
	S3Endpoint  string

	// Summaries
	LexiconFile   string
	AutoSummarize bool

	// Worker pool
	WorkerCount  int
	MaxQueueSize int

	// Upload limits
	MaxUploadBytes int64

	// Job state
	JobTTL time.Duration

	// PDF
	PDFFallbackPdftotext bool
	ReportFontPath       string
}

func Load() Config {
	cfg := Config{
		Port:     envOr("PORT", "8090"),
		LogLevel: envLevel("LOG_LEVEL", slog.LevelInfo),

		APIKey: os.Getenv("CASEFINDER_API_KEY"),

		DBPath: envOr("DB_PATH", "data/cases.db"),

		BlobBackend: strings.ToLower(envOr("BLOB_BACKEND", BlobFilesystem)),
		UploadDir:   envOr("UPLOAD_DIR", "data/uploads"),
		S3Bucket:    os.Getenv("S3_BUCKET"),
		S3Region:    os.Getenv("S3_REGION"),
		S3Prefix:    os.Getenv("S3_PREFIX"),
		S3Endpoint:  os.Getenv("S3_ENDPOINT"),

		LexiconFile:   os.Getenv("LEXICON_FILE"),
		AutoSummarize: envBool("AUTO_SUMMARIZE", true),

		WorkerCount:  envInt("WORKER_COUNT", 2),
		MaxQueueSize: envInt("MAX_QUEUE_SIZE", 100),

		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", 52428800), // 50MB

		JobTTL: envDuration("JOB_TTL", 1*time.Hour),

		PDFFallbackPdftotext: envBool("PDF_FALLBACK_PDFTOTEXT", true),
		ReportFontPath:       os.Getenv("REPORT_FONT_PATH"),
	}

	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 2
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 100
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 52428800
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = 1 * time.Hour
	}

	return cfg
}

func (c Config) Validate() error {
	if c.APIKey == "" {
		return errors.New("CASEFINDER_API_KEY is required")
	}
	if c.DBPath == "" {
		return errors.New("DB_PATH must not be empty")
	}
	switch c.BlobBackend {
	case BlobFilesystem:
		if c.UploadDir == "" {
			return errors.New("UPLOAD_DIR must not be empty")
		}
	case BlobS3:
		if c.S3Bucket == "" {
			return errors.New("S3_BUCKET is required when BLOB_BACKEND=s3")
		}
	default:
		return fmt.Errorf("BLOB_BACKEND must be %q or %q, got %q", BlobFilesystem, BlobS3, c.BlobBackend)
	}
	if c.ReportFontPath != "" {
		if _, err := os.Stat(c.ReportFontPath); err != nil {
			return fmt.Errorf("REPORT_FONT_PATH: %w", err)
		}
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envLevel(key string, fallback slog.Level) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(os.Getenv(key))); err != nil {
		return fallback
	}
	return l
}
