package sniperz

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	assert_ "github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
)

func TestLoadConfigDefaults(t *testing.T) {
	assert := assert_.New(t)
	cfg, err := LoadConfig()
	assert.NoError(err)
	assert.Equal(".", cfg.DestinationDir)
	assert.Equal(5, cfg.DownloadConcurrency)
	assert.Equal(8, cfg.ThumbnailConcurrency)
	assert.Equal(3, cfg.MaxDownloadAttempts)
	assert.Equal(60*time.Second, cfg.DownloadTimeout)
	assert.Equal(15*time.Second, cfg.MetadataTimeout)
	assert.Equal(100*time.Millisecond, cfg.ProgressEmitInterval)
	assert.Equal(zapcore.InfoLevel, cfg.ZapLevel())
}

func TestLoadConfigFromEnv(t *testing.T) {
	assert := assert_.New(t)
	t.Setenv("SNIPERZ_DOWNLOAD_CONCURRENCY", "2")
	t.Setenv("SNIPERZ_LOG_LEVEL", "debug")
	cfg, err := LoadConfig()
	assert.NoError(err)
	assert.Equal(2, cfg.DownloadConcurrency)
	assert.Equal(zapcore.DebugLevel, cfg.ZapLevel())
}

func TestEnsureDestinationDir(t *testing.T) {
	assert := assert_.New(t)
	dir := filepath.Join(t.TempDir(), "videos", "shorts")
	cfg := Config{DestinationDir: dir}
	assert.NoError(cfg.EnsureDestinationDir())
	info, err := os.Stat(dir)
	assert.NoError(err)
	assert.True(info.IsDir())

	// No probe files left behind
	entries, err := os.ReadDir(dir)
	assert.NoError(err)
	assert.Empty(entries)

	// Idempotent on an existing directory
	assert.NoError(cfg.EnsureDestinationDir())
}
