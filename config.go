package sniperz

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap/zapcore"
)

// Config holds every tunable of the orchestrator. All values have working
// defaults; the zero-config path scrapes and downloads into the current
// directory with 5 parallel downloads.
type Config struct {
	DestinationDir       string        `envconfig:"DESTINATION_DIR" default:"."`
	DownloadConcurrency  int           `envconfig:"DOWNLOAD_CONCURRENCY" default:"5"`
	ThumbnailConcurrency int           `envconfig:"THUMBNAIL_CONCURRENCY" default:"8"`
	MaxDownloadAttempts  int           `envconfig:"MAX_DOWNLOAD_ATTEMPTS" default:"3"`
	DownloadTimeout      time.Duration `envconfig:"DOWNLOAD_TIMEOUT" default:"60s"`
	MetadataTimeout      time.Duration `envconfig:"METADATA_TIMEOUT" default:"15s"`
	ProgressEmitInterval time.Duration `envconfig:"PROGRESS_EMIT_INTERVAL" default:"100ms"`

	// ThumbnailCachePath persists fetched thumbnails between runs; empty keeps
	// the cache in memory only.
	ThumbnailCachePath string `envconfig:"THUMBNAIL_CACHE_PATH"`
	// ArchivePath tracks completed downloads between runs so they are skipped;
	// empty disables the archive.
	ArchivePath string `envconfig:"ARCHIVE_PATH"`

	LogLevel string `envconfig:"LOG_LEVEL" default:"INFO"`
}

// LoadConfig populates a Config from SNIPERZ_* environment variables,
// falling back to the defaults above.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("sniperz", &cfg); err != nil {
		return nil, fmt.Errorf("error processing env: %w", err)
	}
	return &cfg, nil
}

func (c *Config) ZapLevel() zapcore.Level {
	switch strings.ToUpper(c.LogLevel) {
	case "DEBUG":
		return zapcore.DebugLevel
	case "WARN":
		return zapcore.WarnLevel
	case "ERROR":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// EnsureDestinationDir creates the destination directory if absent and
// verifies it is writable by creating and removing a probe file.
func (c *Config) EnsureDestinationDir() error {
	if err := os.MkdirAll(c.DestinationDir, 0755); err != nil {
		return fmt.Errorf("failed to create destination directory: %w", err)
	}
	probe, err := os.CreateTemp(c.DestinationDir, ".sniperz-probe-*")
	if err != nil {
		return fmt.Errorf("destination directory is not writable: %w", err)
	}
	name := probe.Name()
	_ = probe.Close()
	_ = os.Remove(name)
	return nil
}
