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

// Config holds the nexus service configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Database   DatabaseConfig   `yaml:"database"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Generation GenerationConfig `yaml:"generation"`
	Index      IndexConfig      `yaml:"index"`
	Sources    SourcesConfig    `yaml:"sources"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds Redis connection settings.
type DatabaseConfig struct {
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// EmbeddingConfig holds embedding provider settings.
// Model and Dimensions default to the pinned model identity when empty.
type EmbeddingConfig struct {
	BaseURL             string `yaml:"base_url"`
	APIKey              string `yaml:"api_key"`
	Model               string `yaml:"model"`
	Dimensions          int    `yaml:"dimensions"`
	BatchSize           int    `yaml:"batch_size"`
	Concurrency         int    `yaml:"concurrency"`
	DocumentInstruction string `yaml:"document_instruction"`
	QueryInstruction    string `yaml:"query_instruction"`
}

// GenerationConfig holds answer generation settings.
// An empty APIKey disables generation; search then always answers with
// the deterministic fallback.
type GenerationConfig struct {
	BaseURL         string `yaml:"base_url"`
	APIKey          string `yaml:"api_key"`
	Model           string `yaml:"model"`
	TimeoutSec      int    `yaml:"timeout_sec"`
	MaxContextBytes int    `yaml:"max_context_bytes"`
}

// Enabled reports whether answer generation is configured.
func (g GenerationConfig) Enabled() bool {
	return g.APIKey != ""
}

// IndexConfig holds vector index and retrieval settings.
type IndexConfig struct {
	Name            string `yaml:"name"`
	Namespace       string `yaml:"namespace"`
	Metric          string `yaml:"metric"`    // cosine, l2, ip (default: cosine)
	Algorithm       string `yaml:"algorithm"` // flat, hnsw (default: flat)
	HNSWM           int    `yaml:"hnsw_m"`
	HNSWEFConstruct int    `yaml:"hnsw_ef_construction"`
	MaxBatchSize    int    `yaml:"max_batch_size"`
	DefaultTopK     int    `yaml:"default_top_k"`
	MaxTopK         int    `yaml:"max_top_k"`
	PollBudgetSec   int    `yaml:"poll_budget_sec"`
}

// SourcesConfig holds ingestion source settings.
// Each source validates its own credentials when selected.
type SourcesConfig struct {
	Airtable AirtableConfig `yaml:"airtable"`
	Notion   NotionConfig   `yaml:"notion"`
	File     FileConfig     `yaml:"file"`
}

// AirtableConfig holds Airtable REST API settings.
type AirtableConfig struct {
	APIKey string `yaml:"api_key"`
	BaseID string `yaml:"base_id"`
	Table  string `yaml:"table"`
	View   string `yaml:"view"`
}

// Validate checks the credentials the Airtable source needs.
func (a AirtableConfig) Validate() error {
	if a.APIKey == "" {
		return fmt.Errorf("sources.airtable.api_key is required")
	}
	if a.BaseID == "" {
		return fmt.Errorf("sources.airtable.base_id is required")
	}
	if a.Table == "" {
		return fmt.Errorf("sources.airtable.table is required")
	}
	return nil
}

// NotionConfig holds Notion API settings.
type NotionConfig struct {
	APIKey     string `yaml:"api_key"`
	DatabaseID string `yaml:"database_id"`
}

// Validate checks the credentials the Notion source needs.
func (n NotionConfig) Validate() error {
	if n.APIKey == "" {
		return fmt.Errorf("sources.notion.api_key is required")
	}
	if n.DatabaseID == "" {
		return fmt.Errorf("sources.notion.database_id is required")
	}
	return nil
}

// FileConfig holds file dump source settings.
type FileConfig struct {
	Path string `yaml:"path"`
}

// Validate checks the file source settings.
func (f FileConfig) Validate() error {
	if f.Path == "" {
		return fmt.Errorf("sources.file.path is required")
	}
	return nil
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

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
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
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Embedding.BatchSize <= 0 {
		c.Embedding.BatchSize = 64
	}
	if c.Embedding.Concurrency <= 0 {
		c.Embedding.Concurrency = 4
	}
	if c.Generation.BaseURL == "" {
		c.Generation.BaseURL = "https://generativelanguage.googleapis.com/v1beta/openai/"
	}
	if c.Generation.Model == "" {
		c.Generation.Model = "gemini-2.0-flash-lite"
	}
	if c.Generation.TimeoutSec <= 0 {
		c.Generation.TimeoutSec = 30
	}
	if c.Generation.MaxContextBytes <= 0 {
		c.Generation.MaxContextBytes = 16384
	}
	if c.Index.Name == "" {
		c.Index.Name = "nexus"
	}
	if c.Index.Namespace == "" {
		c.Index.Namespace = "default"
	}
	if c.Index.Metric == "" {
		c.Index.Metric = "cosine"
	}
	if c.Index.Algorithm == "" {
		c.Index.Algorithm = "flat"
	}
	if c.Index.HNSWM <= 0 {
		c.Index.HNSWM = 32
	}
	if c.Index.HNSWEFConstruct <= 0 {
		c.Index.HNSWEFConstruct = 400
	}
	if c.Index.MaxBatchSize <= 0 {
		c.Index.MaxBatchSize = 100
	}
	if c.Index.DefaultTopK <= 0 {
		c.Index.DefaultTopK = 5
	}
	if c.Index.MaxTopK <= 0 {
		c.Index.MaxTopK = 100
	}
	if c.Index.PollBudgetSec <= 0 {
		c.Index.PollBudgetSec = 30
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
	if c.Embedding.BaseURL == "" {
		return fmt.Errorf("embedding.base_url is required")
	}
	if c.Embedding.Dimensions < 0 {
		return fmt.Errorf("embedding.dimensions must not be negative, got %d", c.Embedding.Dimensions)
	}
	switch c.Index.Metric {
	case "", "cosine", "l2", "ip":
	default:
		return fmt.Errorf("index.metric must be \"cosine\", \"l2\" or \"ip\", got %q", c.Index.Metric)
	}
	switch c.Index.Algorithm {
	case "", "flat", "hnsw":
	default:
		return fmt.Errorf("index.algorithm must be \"flat\" or \"hnsw\", got %q", c.Index.Algorithm)
	}
	if c.Index.MaxTopK > 0 && c.Index.DefaultTopK > c.Index.MaxTopK {
		return fmt.Errorf(
			"index.default_top_k (%d) must not exceed index.max_top_k (%d)",
			c.Index.DefaultTopK, c.Index.MaxTopK,
		)
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
