package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsAreValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 1000, cfg.Analysis.ChunkSize)
	assert.Equal(t, 200, cfg.Analysis.ChunkOverlap)
	assert.Equal(t, 5, cfg.Analysis.BatchSize)
	assert.Equal(t, 4, cfg.Analysis.MaxConcurrentLLM)
	assert.Equal(t, 3, cfg.Analysis.RetryAttempts)
	assert.Equal(t, time.Second, cfg.Analysis.RetryBase())
	assert.Equal(t, 24*time.Hour, cfg.Cache.TTL)
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default().Analysis, cfg.Analysis)
	assert.NotNil(t, cfg.Providers)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")
	cfg := Default()
	cfg.SelectedProvider = "openai"
	cfg.AddAPIKey("openai", "sk-1")
	cfg.AddAPIKey("openai", "sk-2")
	cfg.AddAPIKey("openai", "sk-1")
	cfg.Cache.TTL = 2 * time.Hour
	require.NoError(t, Save(path, cfg))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "openai", loaded.SelectedProvider)
	assert.Equal(t, []string{"sk-1", "sk-2"}, loaded.APIKeys("openai"))
	assert.Equal(t, 2*time.Hour, loaded.Cache.TTL)
}

func TestPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("analysis:\n  batch_size: 8\ncache:\n  ttl: 1h\n"), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Analysis.BatchSize)
	assert.Equal(t, 1000, cfg.Analysis.ChunkSize)
	assert.Equal(t, time.Hour, cfg.Cache.TTL)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("GOOGLE_API_KEYS", `["g1", "g2", "g1"]`)
	t.Setenv("OPENAI_API_KEYS", "o1, o2,,")
	t.Setenv("CLAUSEGUARD_CACHE_BACKEND", "sqlite")
	t.Setenv("CLAUSEGUARD_SQLITE_PATH", "/tmp/cg.db")
	t.Setenv("NDPA_QA_INDEX_PATH", "/data/ndpa.json")
	t.Setenv("CLAUSEGUARD_MAX_CONCURRENT_LLM", "8")

	cfg, err := Load(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, []string{"g1", "g2"}, cfg.APIKeys("gemini"))
	assert.Equal(t, []string{"o1", "o2"}, cfg.APIKeys("openai"))
	assert.Equal(t, "sqlite", cfg.Cache.Backend)
	assert.Equal(t, "/data/ndpa.json", cfg.Retrieval.IndexPath)
	assert.Equal(t, 8, cfg.Analysis.MaxConcurrentLLM)
	assert.NoError(t, cfg.Validate())

	t.Setenv("GOOGLE_API_KEYS", `["broken`)
	_, err = Load(filepath.Join(t.TempDir(), "config.yaml"))
	assert.ErrorContains(t, err, "GOOGLE_API_KEYS")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"zero chunk size", func(c *Config) { c.Analysis.ChunkSize = 0 }, "chunk_size"},
		{"overlap too large", func(c *Config) { c.Analysis.ChunkOverlap = 1000 }, "chunk_overlap"},
		{"zero batch", func(c *Config) { c.Analysis.BatchSize = 0 }, "batch_size"},
		{"zero concurrency", func(c *Config) { c.Analysis.MaxConcurrentLLM = 0 }, "max_concurrent_llm"},
		{"zero attempts", func(c *Config) { c.Analysis.RetryAttempts = 0 }, "llm_retry_attempts"},
		{"sqlite without path", func(c *Config) { c.Cache.Backend = "sqlite" }, "sqlite_path"},
		{"arango without url", func(c *Config) { c.Cache.Backend = "arango" }, "arango_url"},
		{"unknown backend", func(c *Config) { c.Cache.Backend = "redis" }, "unknown cache backend"},
		{"zero ttl", func(c *Config) { c.Cache.TTL = 0 }, "ttl"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.errMsg)
		})
	}
}

func TestSetAPIKeys(t *testing.T) {
	cfg := Default()
	cfg.SetAPIKeys("anthropic", []string{" a ", "", "b", "a"})
	assert.Equal(t, []string{"a", "b"}, cfg.APIKeys("anthropic"))
	assert.Empty(t, cfg.APIKeys("gemini"))
}
