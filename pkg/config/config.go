// Package config loads and saves the clauseguard settings file.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DirName is the settings directory under the user's home.
const DirName = ".clauseguard"

// ProviderConfig holds the credentials for one LLM provider. Every key
// becomes one client in the rotation pool.
type ProviderConfig struct {
	APIKeys []string `yaml:"api_keys"`
	BaseURL string   `yaml:"base_url,omitempty"`
}

// AnalysisConfig tunes chunking and oracle dispatch.
type AnalysisConfig struct {
	ChunkSize        int     `yaml:"chunk_size"`
	ChunkOverlap     int     `yaml:"chunk_overlap"`
	BatchSize        int     `yaml:"batch_size"`
	MaxConcurrentLLM int     `yaml:"max_concurrent_llm"`
	RetryAttempts    int     `yaml:"llm_retry_attempts"`
	RetrySeconds     float64 `yaml:"llm_retry_seconds"`
	Temperature      float32 `yaml:"llm_temperature"`
}

// RetryBase returns RetrySeconds as a duration.
func (a AnalysisConfig) RetryBase() time.Duration {
	return time.Duration(a.RetrySeconds * float64(time.Second))
}

// CacheConfig selects and configures the verdict store.
type CacheConfig struct {
	Backend        string        `yaml:"backend"`
	TTL            time.Duration `yaml:"ttl"`
	SQLitePath     string        `yaml:"sqlite_path,omitempty"`
	ArangoURL      string        `yaml:"arango_url,omitempty"`
	ArangoUser     string        `yaml:"arango_user,omitempty"`
	ArangoPassword string        `yaml:"arango_password,omitempty"`
	ArangoDatabase string        `yaml:"arango_database,omitempty"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr         string `yaml:"addr"`
	AllowOrigins string `yaml:"allow_origins,omitempty"`
}

// FetchConfig configures policy page downloads.
type FetchConfig struct {
	Timeout   time.Duration `yaml:"timeout"`
	UserAgent string        `yaml:"user_agent,omitempty"`
	MaxBytes  int64         `yaml:"max_bytes"`
}

// RetrievalConfig configures the QA index.
type RetrievalConfig struct {
	IndexPath      string `yaml:"index_path,omitempty"`
	EmbeddingModel string `yaml:"embedding_model,omitempty"`
	TopK           int    `yaml:"top_k"`
}

// EventsConfig configures verdict publishing. An empty NATSURL disables it.
type EventsConfig struct {
	NATSURL string `yaml:"nats_url,omitempty"`
	Subject string `yaml:"subject,omitempty"`
}

// Config is the full settings file.
type Config struct {
	SelectedProvider string                    `yaml:"selected_provider"`
	SelectedModel    string                    `yaml:"selected_model"`
	Providers        map[string]ProviderConfig `yaml:"providers"`
	Analysis         AnalysisConfig            `yaml:"analysis"`
	Cache            CacheConfig               `yaml:"cache"`
	Server           ServerConfig              `yaml:"server"`
	Fetch            FetchConfig               `yaml:"fetch"`
	Retrieval        RetrievalConfig           `yaml:"retrieval"`
	Events           EventsConfig              `yaml:"events"`
	RegistryPath     string                    `yaml:"registry_path,omitempty"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		SelectedProvider: "gemini",
		SelectedModel:    "gemini-2.0-flash",
		Providers:        make(map[string]ProviderConfig),
		Analysis: AnalysisConfig{
			ChunkSize:        1000,
			ChunkOverlap:     200,
			BatchSize:        5,
			MaxConcurrentLLM: 4,
			RetryAttempts:    3,
			RetrySeconds:     1.0,
			Temperature:      0,
		},
		Cache: CacheConfig{
			Backend:        "memory",
			TTL:            24 * time.Hour,
			ArangoDatabase: "clauseguard",
		},
		Server: ServerConfig{Addr: ":8000"},
		Fetch: FetchConfig{
			Timeout:  30 * time.Second,
			MaxBytes: 10 * 1024 * 1024,
		},
		Retrieval: RetrievalConfig{
			EmbeddingModel: "text-embedding-004",
			TopK:           3,
		},
		Events: EventsConfig{Subject: "clauseguard.verdicts"},
	}
}

// DefaultPath returns ~/.clauseguard/config.yaml, creating the directory.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(home, DirName)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load reads path over the defaults and applies environment overrides. An
// empty path selects DefaultPath. A missing file is not an error.
func Load(path string) (*Config, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, err
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	if cfg.Providers == nil {
		cfg.Providers = make(map[string]ProviderConfig)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg to path with owner-only permissions. An empty path
// selects DefaultPath.
func Save(path string, cfg *Config) error {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return err
		}
		path = p
	} else if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// Validate rejects settings the pipeline cannot run with.
func (c *Config) Validate() error {
	a := c.Analysis
	switch {
	case a.ChunkSize <= 0:
		return fmt.Errorf("analysis.chunk_size must be positive")
	case a.ChunkOverlap < 0:
		return fmt.Errorf("analysis.chunk_overlap must not be negative")
	case a.ChunkOverlap >= a.ChunkSize:
		return fmt.Errorf("analysis.chunk_overlap (%d) must be less than chunk_size (%d)", a.ChunkOverlap, a.ChunkSize)
	case a.BatchSize <= 0:
		return fmt.Errorf("analysis.batch_size must be positive")
	case a.MaxConcurrentLLM <= 0:
		return fmt.Errorf("analysis.max_concurrent_llm must be positive")
	case a.RetryAttempts <= 0:
		return fmt.Errorf("analysis.llm_retry_attempts must be positive")
	case a.RetrySeconds < 0:
		return fmt.Errorf("analysis.llm_retry_seconds must not be negative")
	case a.Temperature < 0 || a.Temperature > 2:
		return fmt.Errorf("analysis.llm_temperature must be within [0, 2]")
	}

	switch c.Cache.Backend {
	case "memory":
	case "sqlite":
		if c.Cache.SQLitePath == "" {
			return fmt.Errorf("cache.sqlite_path is required for the sqlite backend")
		}
	case "arango":
		if c.Cache.ArangoURL == "" {
			return fmt.Errorf("cache.arango_url is required for the arango backend")
		}
	default:
		return fmt.Errorf("unknown cache backend %q", c.Cache.Backend)
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache.ttl must be positive")
	}
	if c.Retrieval.TopK <= 0 {
		return fmt.Errorf("retrieval.top_k must be positive")
	}
	return nil
}

// APIKeys returns the keys configured for provider.
func (c *Config) APIKeys(provider string) []string {
	return c.Providers[provider].APIKeys
}

// SetAPIKeys replaces the keys for provider.
func (c *Config) SetAPIKeys(provider string, keys []string) {
	p := c.Providers[provider]
	p.APIKeys = cleanKeys(keys)
	c.Providers[provider] = p
}

// AddAPIKey appends key for provider unless it is already present.
func (c *Config) AddAPIKey(provider, key string) {
	key = strings.TrimSpace(key)
	if key == "" {
		return
	}
	p := c.Providers[provider]
	for _, k := range p.APIKeys {
		if k == key {
			return
		}
	}
	p.APIKeys = append(p.APIKeys, key)
	c.Providers[provider] = p
}

func (c *Config) applyEnv() error {
	for provider, env := range map[string]string{
		"gemini":    "GOOGLE_API_KEYS",
		"openai":    "OPENAI_API_KEYS",
		"anthropic": "ANTHROPIC_API_KEYS",
	} {
		raw := GetEnvDefault(env, "")
		if raw == "" {
			continue
		}
		keys, err := ParseKeyList(raw)
		if err != nil {
			return fmt.Errorf("%s: %w", env, err)
		}
		c.SetAPIKeys(provider, keys)
	}

	c.SelectedProvider = GetEnvDefault("CLAUSEGUARD_PROVIDER", c.SelectedProvider)
	c.SelectedModel = GetEnvDefault("CLAUSEGUARD_MODEL", c.SelectedModel)
	c.Server.Addr = GetEnvDefault("CLAUSEGUARD_ADDR", c.Server.Addr)
	c.Cache.Backend = GetEnvDefault("CLAUSEGUARD_CACHE_BACKEND", c.Cache.Backend)
	c.Cache.SQLitePath = GetEnvDefault("CLAUSEGUARD_SQLITE_PATH", c.Cache.SQLitePath)
	c.Cache.ArangoURL = GetEnvDefault("ARANGO_URL", c.Cache.ArangoURL)
	c.Cache.ArangoUser = GetEnvDefault("ARANGO_USER", c.Cache.ArangoUser)
	c.Cache.ArangoPassword = GetEnvDefault("ARANGO_PASS", c.Cache.ArangoPassword)
	c.Events.NATSURL = GetEnvDefault("NATS_URL", c.Events.NATSURL)
	c.Retrieval.IndexPath = GetEnvDefault("NDPA_QA_INDEX_PATH", c.Retrieval.IndexPath)

	if v := GetEnvDefault("CLAUSEGUARD_MAX_CONCURRENT_LLM", ""); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("CLAUSEGUARD_MAX_CONCURRENT_LLM: %w", err)
		}
		c.Analysis.MaxConcurrentLLM = n
	}
	return nil
}

// GetEnvDefault returns the value of key, or defVal when it is unset.
func GetEnvDefault(key, defVal string) string {
	val, ok := os.LookupEnv(key)
	if !ok {
		return defVal
	}
	return val
}

// ParseKeyList accepts a JSON string array or a comma separated list.
func ParseKeyList(raw string) ([]string, error) {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "[") {
		var keys []string
		if err := json.Unmarshal([]byte(raw), &keys); err != nil {
			return nil, fmt.Errorf("parse key list: %w", err)
		}
		return cleanKeys(keys), nil
	}
	return cleanKeys(strings.Split(raw, ",")), nil
}

func cleanKeys(keys []string) []string {
	out := make([]string, 0, len(keys))
	seen := make(map[string]bool, len(keys))
	for _, k := range keys {
		k = strings.TrimSpace(k)
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	return out
}
