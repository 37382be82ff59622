package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the skumatch API configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Judge     JudgeConfig     `yaml:"judge"`
	Reranker  RerankerConfig  `yaml:"reranker"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Resolve   ResolveConfig   `yaml:"resolve"`
	Rank      RankConfig      `yaml:"rank"`
	Trace     TraceConfig     `yaml:"trace"`
	Storage   StorageConfig   `yaml:"storage"`
	Auth      AuthConfig      `yaml:"auth"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds the Redis connection settings.
type DatabaseConfig struct {
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// EmbeddingConfig holds the dense embedding backend settings.
type EmbeddingConfig struct {
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
}

// JudgeConfig holds the reasoning service settings for the rule-governed gate.
type JudgeConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

// RerankerConfig holds the external cross-encoder service settings.
type RerankerConfig struct {
	Endpoint  string `yaml:"endpoint"`
	Model     string `yaml:"model"`
	TimeoutMs int    `yaml:"timeout_ms"`
}

// RetrievalConfig holds the dual-representation retrieval settings.
type RetrievalConfig struct {
	FetchK            int `yaml:"fetch_k"`             // per-representation top-K
	SubqueryTimeoutMs int `yaml:"subquery_timeout_ms"` // per-sub-query bound
	PostingsLimit     int `yaml:"postings_limit"`      // max postings read per sparse term
}

// ResolveConfig holds the entity-resolution pipeline settings.
type ResolveConfig struct {
	Candidates  int `yaml:"candidates"`    // fused set size shown to the judge
	CacheTTLSec int `yaml:"cache_ttl_sec"` // positive-match cache TTL
}

// RankConfig holds the ranked-list pipeline settings.
type RankConfig struct {
	PoolSize     int     `yaml:"pool_size"` // rerank pool bound
	MinScore     float64 `yaml:"min_score"`
	DefaultCount int     `yaml:"default_count"`
	MaxCount     int     `yaml:"max_count"`
	CacheTTLSec  int     `yaml:"cache_ttl_sec"`
}

// TraceConfig holds the async trace recorder settings.
type TraceConfig struct {
	Path    string `yaml:"path"`
	Workers int    `yaml:"workers"`
}

// StorageConfig holds storage settings.
type StorageConfig struct {
	KeyPrefix string `yaml:"key_prefix"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Embedding.Dimensions <= 0 {
		c.Embedding.Dimensions = 384
	}
	if c.Judge.Model == "" {
		c.Judge.Model = "gpt-4o-mini"
	}
	if c.Reranker.TimeoutMs <= 0 {
		c.Reranker.TimeoutMs = 500
	}
	if c.Retrieval.FetchK <= 0 {
		c.Retrieval.FetchK = 20
	}
	if c.Retrieval.SubqueryTimeoutMs <= 0 {
		c.Retrieval.SubqueryTimeoutMs = 500
	}
	if c.Retrieval.PostingsLimit <= 0 {
		c.Retrieval.PostingsLimit = 1000
	}
	if c.Resolve.Candidates <= 0 {
		c.Resolve.Candidates = 5
	}
	if c.Resolve.CacheTTLSec <= 0 {
		c.Resolve.CacheTTLSec = 86400
	}
	if c.Rank.PoolSize <= 0 {
		c.Rank.PoolSize = 12
	}
	if c.Rank.DefaultCount <= 0 {
		c.Rank.DefaultCount = 10
	}
	if c.Rank.MaxCount <= 0 {
		c.Rank.MaxCount = 50
	}
	if c.Rank.CacheTTLSec <= 0 {
		c.Rank.CacheTTLSec = 3600
	}
	if c.Trace.Path == "" {
		c.Trace.Path = "pipeline_traces.jsonl"
	}
	if c.Trace.Workers <= 0 {
		c.Trace.Workers = 4
	}
	if c.Storage.KeyPrefix == "" {
		c.Storage.KeyPrefix = "skumatch:"
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if len(c.Database.Addrs) == 0 {
		return fmt.Errorf("database.addrs is required")
	}
	if c.Embedding.Model == "" {
		return fmt.Errorf("embedding.model is required")
	}
	if c.Rank.MinScore < 0 || c.Rank.MinScore > 1 {
		return fmt.Errorf("rank.min_score must be within [0, 1], got %g", c.Rank.MinScore)
	}
	if c.Rank.DefaultCount > c.Rank.MaxCount {
		return fmt.Errorf("rank.default_count %d exceeds rank.max_count %d",
			c.Rank.DefaultCount, c.Rank.MaxCount)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
