package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	viper.Reset()
	dir := t.TempDir()
	t.Setenv("CONFIG_DIR", dir)
	t.Setenv("SOURCE_KANAV_WEIGHT", "0")
	t.Setenv("SOURCE_JABLE_COOKIE", "cf=1")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, CacheBackendRedis, cfg.CacheBackend)
	assert.Equal(t, 30*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, filepath.Join(dir, "nassav.db"), cfg.DatabaseFile)
	assert.Equal(t, filepath.Join(dir, "data"), cfg.DataDir)
	assert.Equal(t, []string{"ollama", "openai"}, cfg.TranslatorOrder)

	require.Len(t, cfg.Sources, 5)
	assert.Equal(t, "missav", cfg.Sources[0].Name)
	assert.Equal(t, "cf=1", cfg.Sources[1].Cookie)
	assert.Equal(t, 0, cfg.Sources[4].Weight)
	require.Len(t, cfg.Enrichment, 2)
	assert.Equal(t, "www.javbus.com", cfg.Enrichment[0].Domain)
}

func TestValidate(t *testing.T) {
	cfg := &Config{
		CacheBackend:   CacheBackendMemory,
		DownloaderPath: "dl",
		Sources:        []SourceConfig{{Name: "missav", Weight: 0}},
	}
	assert.Error(t, cfg.Validate())

	cfg.Sources[0].Weight = 1
	assert.NoError(t, cfg.Validate())

	cfg.CacheBackend = "etcd"
	assert.Error(t, cfg.Validate())
}
