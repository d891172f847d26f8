package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/docqa/internal/domain"
)

// Config holds the docqa configuration.
type Config struct {
	Logging   LoggingConfig   `yaml:"logging"`
	HTTP      HTTPConfig      `yaml:"http"`
	Search    SearchConfig    `yaml:"search"`
	Storage   StorageConfig   `yaml:"storage"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Chat      ChatConfig      `yaml:"chat"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Ingest    IngestConfig    `yaml:"ingest"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// HTTPConfig holds settings of the serve command.
type HTTPConfig struct {
	Port            int      `yaml:"port"`
	ReadTimeoutSec  int      `yaml:"read_timeout_sec"`
	WriteTimeoutSec int      `yaml:"write_timeout_sec"`
	ShutdownSec     int      `yaml:"shutdown_timeout_sec"`
	APIKeys         []string `yaml:"api_keys"`
	SessionTTLSec   int      `yaml:"session_ttl_sec"`
	SessionMaxTurns int      `yaml:"session_max_turns"`
}

// SearchConfig points at the Redis Stack server that holds the index.
type SearchConfig struct {
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	TLS              bool     `yaml:"tls"`
	IndexName        string   `yaml:"index_name"`
	KeyPrefix        string   `yaml:"key_prefix"`
	Dimensions       int      `yaml:"dimensions"`
	Algorithm        string   `yaml:"algorithm"`       // HNSW (default) or FLAT
	DistanceMetric   string   `yaml:"distance_metric"` // COSINE (default), L2, IP
	HNSWM            int      `yaml:"hnsw_m"`
	HNSWEFConstruct  int      `yaml:"hnsw_ef_construction"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// StorageConfig points at the blob container holding source PDFs.
type StorageConfig struct {
	Account    string `yaml:"account"`
	AccountKey string `yaml:"account_key"` // empty: DefaultAzureCredential
	Container  string `yaml:"container"`
	Endpoint   string `yaml:"endpoint"` // default https://<account>.blob.core.windows.net/
	DataDir    string `yaml:"data_dir"`
	Pattern    string `yaml:"pattern"`
}

// EmbeddingConfig holds embedding endpoint settings.
type EmbeddingConfig struct {
	APIType           string      `yaml:"api_type"` // azure (default) or openai
	BaseURL           string      `yaml:"base_url"`
	APIKey            string      `yaml:"api_key"`
	APIVersion        string      `yaml:"api_version"`
	Deployment        string      `yaml:"deployment"`
	Dimensions        int         `yaml:"dimensions"`
	MaxInputChars     int         `yaml:"max_input_chars"`
	RequestsPerSecond float64     `yaml:"requests_per_second"` // 0 = unlimited
	TimeoutSec        int         `yaml:"timeout_sec"`
	Cache             CacheConfig `yaml:"cache"`
}

// CacheConfig controls the embedding cache kept next to the index.
type CacheConfig struct {
	Enabled bool `yaml:"enabled"`
	TTLSec  int  `yaml:"ttl_sec"` // 0 = no expiry
}

// ChatConfig holds chat completion settings. Endpoint and key are shared with embedding.
type ChatConfig struct {
	Deployment   string   `yaml:"deployment"`
	Temp         *float32 `yaml:"temperature"` // default 0.7, 0 is kept
	MaxTokens    int      `yaml:"max_tokens"`
	TimeoutSec   int      `yaml:"timeout_sec"`
	SystemPrompt string   `yaml:"system_prompt"`
}

// Temperature returns the configured sampling temperature.
func (c ChatConfig) Temperature() float32 {
	if c.Temp == nil {
		return 0
	}
	return *c.Temp
}

// RetrievalConfig controls grounding of chat answers on the index.
type RetrievalConfig struct {
	Enabled    *bool  `yaml:"enabled"` // default true
	QueryType  string `yaml:"query_type"`
	TopN       int    `yaml:"top_n"`
	Strictness int    `yaml:"strictness"`
}

// IngestConfig holds chunking and batching settings.
type IngestConfig struct {
	ChunkSize     int  `yaml:"chunk_size"`
	ChunkOverlap  *int `yaml:"chunk_overlap"` // default 200
	BatchSize     int  `yaml:"batch_size"`
	ProgressEvery int  `yaml:"progress_every"`
}

// Overlap returns the configured chunk overlap.
func (c IngestConfig) Overlap() int {
	if c.ChunkOverlap == nil {
		return 0
	}
	return *c.ChunkOverlap
}

// Defaults that are not plain zero-value replacements.
const (
	DefaultSystemPrompt = "You are a technical documentation assistant. " +
		"Answer accurately and concisely, and say when the documents do not contain the answer."
	DefaultAPIVersion = "2024-02-15-preview"
)

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	return LoadFile(findConfigPath(env))
}

// LoadFile reads configuration from an explicit YAML path.
func LoadFile(configPath string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("%w: failed to read config %s: %w", domain.ErrConfig, configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("%w: failed to parse config: %w", domain.ErrConfig, err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%w: invalid config: %w", domain.ErrConfig, err)
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
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8080
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 90
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.HTTP.SessionTTLSec <= 0 {
		c.HTTP.SessionTTLSec = 24 * 60 * 60
	}
	if c.HTTP.SessionMaxTurns <= 0 {
		c.HTTP.SessionMaxTurns = 20
	}

	if c.Search.IndexName == "" {
		c.Search.IndexName = "docqa-index"
	}
	if c.Search.KeyPrefix == "" {
		c.Search.KeyPrefix = "docqa:"
	}
	if c.Search.Dimensions <= 0 {
		c.Search.Dimensions = 1536
	}
	if c.Search.Algorithm == "" {
		c.Search.Algorithm = "HNSW"
	}
	if c.Search.DistanceMetric == "" {
		c.Search.DistanceMetric = "COSINE"
	}
	if c.Search.HNSWM <= 0 {
		c.Search.HNSWM = 16
	}
	if c.Search.HNSWEFConstruct <= 0 {
		c.Search.HNSWEFConstruct = 200
	}
	if c.Search.ReadinessTimeout <= 0 {
		c.Search.ReadinessTimeout = 10
	}

	if c.Storage.DataDir == "" {
		c.Storage.DataDir = "data"
	}
	if c.Storage.Pattern == "" {
		c.Storage.Pattern = "*.pdf"
	}
	if c.Storage.Endpoint == "" && c.Storage.Account != "" {
		c.Storage.Endpoint = fmt.Sprintf("https://%s.blob.core.windows.net/", c.Storage.Account)
	}

	if c.Embedding.APIType == "" {
		c.Embedding.APIType = "azure"
	}
	if c.Embedding.APIVersion == "" {
		c.Embedding.APIVersion = DefaultAPIVersion
	}
	if c.Embedding.Dimensions <= 0 {
		c.Embedding.Dimensions = c.Search.Dimensions
	}
	if c.Embedding.MaxInputChars <= 0 {
		c.Embedding.MaxInputChars = 8000
	}
	if c.Embedding.TimeoutSec <= 0 {
		c.Embedding.TimeoutSec = 30
	}

	if c.Chat.Temp == nil {
		temperature := float32(0.7)
		c.Chat.Temp = &temperature
	}
	if c.Chat.MaxTokens <= 0 {
		c.Chat.MaxTokens = 1000
	}
	if c.Chat.TimeoutSec <= 0 {
		c.Chat.TimeoutSec = 60
	}
	if c.Chat.SystemPrompt == "" {
		c.Chat.SystemPrompt = DefaultSystemPrompt
	}

	if c.Retrieval.Enabled == nil {
		enabled := true
		c.Retrieval.Enabled = &enabled
	}
	if c.Retrieval.QueryType == "" {
		c.Retrieval.QueryType = string(domain.QueryVector)
	}
	if c.Retrieval.TopN <= 0 {
		c.Retrieval.TopN = domain.DefaultTopN
	}
	if c.Retrieval.Strictness <= 0 {
		c.Retrieval.Strictness = domain.DefaultStrictness
	}

	if c.Ingest.ChunkSize <= 0 {
		c.Ingest.ChunkSize = 1000
	}
	if c.Ingest.ChunkOverlap == nil {
		overlap := 200
		if overlap >= c.Ingest.ChunkSize {
			overlap = c.Ingest.ChunkSize / 5
		}
		c.Ingest.ChunkOverlap = &overlap
	}
	if c.Ingest.BatchSize <= 0 {
		c.Ingest.BatchSize = 50
	}
	if c.Ingest.ProgressEvery <= 0 {
		c.Ingest.ProgressEvery = 10
	}
}

// Validate checks value ranges and enumerations. Presence of credentials is
// checked per command by the Require* methods, since not every command talks
// to every service.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Search.Algorithm {
	case "HNSW", "FLAT":
	default:
		return fmt.Errorf("search.algorithm must be \"HNSW\" or \"FLAT\", got %q", c.Search.Algorithm)
	}
	switch c.Search.DistanceMetric {
	case "COSINE", "L2", "IP":
	default:
		return fmt.Errorf("search.distance_metric must be COSINE, L2 or IP, got %q", c.Search.DistanceMetric)
	}
	if c.Embedding.Dimensions != c.Search.Dimensions {
		return fmt.Errorf("embedding.dimensions (%d) must match search.dimensions (%d)",
			c.Embedding.Dimensions, c.Search.Dimensions)
	}
	switch c.Embedding.APIType {
	case "azure", "openai":
	default:
		return fmt.Errorf("embedding.api_type must be \"azure\" or \"openai\", got %q", c.Embedding.APIType)
	}
	if c.Embedding.RequestsPerSecond < 0 {
		return fmt.Errorf("embedding.requests_per_second must not be negative")
	}
	if t := c.Chat.Temperature(); t < 0 || t > 2 {
		return fmt.Errorf("chat.temperature must be between 0 and 2, got %g", t)
	}
	if err := c.RetrievalOptions().Validate(); err != nil {
		return fmt.Errorf("retrieval: %w", err)
	}
	if overlap := c.Ingest.Overlap(); overlap < 0 || overlap >= c.Ingest.ChunkSize {
		return fmt.Errorf("ingest.chunk_overlap must be in [0, %d), got %d", c.Ingest.ChunkSize, overlap)
	}
	return nil
}

// RequireSearch checks that the search index can be reached.
func (c *Config) RequireSearch() error {
	if len(c.Search.Addrs) == 0 {
		return fmt.Errorf("%w: search.addrs is required", domain.ErrConfig)
	}
	return nil
}

// RequireEmbedding checks the embedding endpoint credentials.
func (c *Config) RequireEmbedding() error {
	if c.Embedding.APIType == "azure" && c.Embedding.BaseURL == "" {
		return fmt.Errorf("%w: embedding.base_url is required for api_type azure", domain.ErrConfig)
	}
	if c.Embedding.APIKey == "" {
		return fmt.Errorf("%w: embedding.api_key is required", domain.ErrConfig)
	}
	if c.Embedding.Deployment == "" {
		return fmt.Errorf("%w: embedding.deployment is required", domain.ErrConfig)
	}
	return nil
}

// RequireChat checks the chat deployment on top of the shared endpoint credentials.
func (c *Config) RequireChat() error {
	if err := c.RequireEmbedding(); err != nil {
		return err
	}
	if c.Chat.Deployment == "" {
		return fmt.Errorf("%w: chat.deployment is required", domain.ErrConfig)
	}
	return nil
}

// RequireStorage checks the blob storage settings.
func (c *Config) RequireStorage() error {
	if c.Storage.Account == "" && c.Storage.Endpoint == "" {
		return fmt.Errorf("%w: storage.account is required", domain.ErrConfig)
	}
	if c.Storage.Container == "" {
		return fmt.Errorf("%w: storage.container is required", domain.ErrConfig)
	}
	return nil
}

// RetrievalEnabled reports whether chat answers are grounded on the index.
func (c *Config) RetrievalEnabled() bool {
	return c.Retrieval.Enabled == nil || *c.Retrieval.Enabled
}

// RetrievalOptions builds the retrieval part of a chat request.
func (c *Config) RetrievalOptions() domain.RetrievalConfig {
	auth := domain.AuthDescriptor{Type: domain.AuthNone}
	if c.Search.Password != "" {
		auth = domain.AuthDescriptor{Type: domain.AuthPassword, Username: c.Search.Username}
	}
	endpoint := ""
	if len(c.Search.Addrs) > 0 {
		endpoint = c.Search.Addrs[0]
	}
	return domain.RetrievalConfig{
		Endpoint:            endpoint,
		IndexName:           c.Search.IndexName,
		Auth:                auth,
		QueryType:           domain.QueryType(c.Retrieval.QueryType),
		EmbeddingDeployment: c.Embedding.Deployment,
		TopN:                c.Retrieval.TopN,
		Strictness:          c.Retrieval.Strictness,
	}
}

// ChatOptions builds the generation parameters of a chat request.
func (c *Config) ChatOptions() domain.ChatOptions {
	opts := domain.ChatOptions{
		Model:       c.Chat.Deployment,
		Temperature: c.Chat.Temperature(),
		MaxTokens:   c.Chat.MaxTokens,
	}
	if c.RetrievalEnabled() {
		r := c.RetrievalOptions()
		opts.Retrieval = &r
	}
	return opts
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// relative to the source file, for tests and `go run`
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b)))
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

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
		expr := string(match[2 : len(match)-1])
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
