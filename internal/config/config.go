// Package config provides configuration loading and structs for pad.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Notes     NotesConfig     `yaml:"notes"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Index     IndexConfig     `yaml:"index"`
	Search    SearchConfig    `yaml:"search"`
	Server    ServerConfig    `yaml:"server"`
	Watch     WatchConfig     `yaml:"watch"`
}

// NotesConfig holds the locations of the notes file and the persisted vector store.
type NotesConfig struct {
	Dir            string `yaml:"dir"`
	NotesFile      string `yaml:"notes_file"`
	EmbeddingsFile string `yaml:"embeddings_file"`
	// Backend selects the vector store persister: "json" (default) or "sqlite".
	Backend string `yaml:"backend"`
	// Compress stores the JSON file zstd-compressed. Ignored by the sqlite backend.
	Compress bool `yaml:"compress"`
	// Codec selects the JSON implementation for the json backend: "go-json"
	// (default) or "json".
	Codec string `yaml:"codec"`
}

// NotesPath returns the absolute path of the plain-text notes file.
func (n *NotesConfig) NotesPath() string {
	return joinUnlessAbs(n.Dir, n.NotesFile)
}

// StorePath returns the absolute path of the persisted vector store.
func (n *NotesConfig) StorePath() string {
	p := joinUnlessAbs(n.Dir, n.EmbeddingsFile)
	if n.Compress && n.Backend != "sqlite" && !strings.HasSuffix(p, ".zst") {
		p += ".zst"
	}
	return p
}

func joinUnlessAbs(dir, name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(dir, name)
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	// Provider is one of "onnx", "ollama" or "mock".
	Provider          string        `yaml:"provider"`
	ModelPath         string        `yaml:"model_path"`
	Dimensions        int           `yaml:"dimensions"`
	MaxTokens         int           `yaml:"max_tokens"`
	CacheSize         int           `yaml:"cache_size"`
	OllamaURL         string        `yaml:"ollama_url"`
	OllamaModel       string        `yaml:"ollama_model"`
	Timeout           time.Duration `yaml:"timeout"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
}

// IndexConfig holds ANN index construction and query parameters.
type IndexConfig struct {
	// Type is "hnsw" (default) or "flat".
	Type string `yaml:"type"`
	// Metric is "cosine" (default) or "l2" (squared Euclidean).
	Metric         string `yaml:"metric"`
	MaxConnections int    `yaml:"max_connections"`
	MaxLayers      int    `yaml:"max_layers"`
	MinMaxElements int    `yaml:"min_max_elements"`
	EfConstruction int    `yaml:"ef_construction"`
	EfSearch       int    `yaml:"ef_search"`
	Seed           int64  `yaml:"seed"`
}

// SearchConfig holds caller-side search settings.
type SearchConfig struct {
	DefaultLimit int `yaml:"default_limit"`
	MaxLimit     int `yaml:"max_limit"`
	// MaxDistance drops results farther than this; 0 disables the filter.
	MaxDistance float64 `yaml:"max_distance"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// WatchConfig controls reloading the store when it changes on disk.
type WatchConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)
	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	configDir := filepath.Dir(path)
	cfg.Notes.Dir = expandPath(cfg.Notes.Dir, configDir)
	cfg.Embedding.ModelPath = expandPath(cfg.Embedding.ModelPath, configDir)

	return &cfg, nil
}

// Default returns a config with all defaults applied and paths expanded
// relative to the home directory.
func Default() *Config {
	var cfg Config
	ApplyDefaults(&cfg)
	cfg.Notes.Dir = expandPath(cfg.Notes.Dir, ".")
	cfg.Embedding.ModelPath = expandPath(cfg.Embedding.ModelPath, ".")
	return &cfg
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Validate rejects settings that cannot be mixed or would break the index.
func Validate(cfg *Config) error {
	switch cfg.Index.Metric {
	case "cosine", "l2":
	default:
		return fmt.Errorf("invalid index metric %q (supported: cosine, l2)", cfg.Index.Metric)
	}
	switch cfg.Index.Type {
	case "hnsw", "flat":
	default:
		return fmt.Errorf("invalid index type %q (supported: hnsw, flat)", cfg.Index.Type)
	}
	switch cfg.Notes.Backend {
	case "json", "sqlite":
	default:
		return fmt.Errorf("invalid notes backend %q (supported: json, sqlite)", cfg.Notes.Backend)
	}
	switch cfg.Notes.Codec {
	case "go-json", "json":
	default:
		return fmt.Errorf("invalid notes codec %q (supported: go-json, json)", cfg.Notes.Codec)
	}
	switch cfg.Embedding.Provider {
	case "onnx", "ollama", "mock":
	default:
		return fmt.Errorf("invalid embedding provider %q (supported: onnx, ollama, mock)", cfg.Embedding.Provider)
	}
	if cfg.Embedding.Dimensions <= 0 {
		return fmt.Errorf("embedding dimensions must be positive, got %d", cfg.Embedding.Dimensions)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "~/") {
		path = strings.TrimPrefix(path, "~/")
	} else if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
