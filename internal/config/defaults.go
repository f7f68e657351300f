package config

import "time"

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Notes.Dir == "" {
		cfg.Notes.Dir = "notes"
	}
	if cfg.Notes.NotesFile == "" {
		cfg.Notes.NotesFile = "notes.txt"
	}
	if cfg.Notes.EmbeddingsFile == "" {
		if cfg.Notes.Backend == "sqlite" {
			cfg.Notes.EmbeddingsFile = "embeddings.db"
		} else {
			cfg.Notes.EmbeddingsFile = "embeddings.json"
		}
	}
	if cfg.Notes.Backend == "" {
		cfg.Notes.Backend = "json"
	}
	if cfg.Notes.Codec == "" {
		cfg.Notes.Codec = "go-json"
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "onnx"
	}
	if cfg.Embedding.ModelPath == "" {
		cfg.Embedding.ModelPath = ".local/share/pad/models/all-MiniLM-L6-v2.onnx"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 384
	}
	if cfg.Embedding.MaxTokens == 0 {
		cfg.Embedding.MaxTokens = 256
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 1000
	}
	if cfg.Embedding.OllamaURL == "" {
		cfg.Embedding.OllamaURL = "http://localhost:11434"
	}
	if cfg.Embedding.OllamaModel == "" {
		cfg.Embedding.OllamaModel = "all-minilm"
	}
	if cfg.Embedding.Timeout == 0 {
		cfg.Embedding.Timeout = 2 * time.Minute
	}
	if cfg.Index.Type == "" {
		cfg.Index.Type = "hnsw"
	}
	if cfg.Index.Metric == "" {
		cfg.Index.Metric = "cosine"
	}
	if cfg.Index.MaxConnections == 0 {
		cfg.Index.MaxConnections = 16
	}
	if cfg.Index.MaxLayers == 0 {
		cfg.Index.MaxLayers = 16
	}
	if cfg.Index.MinMaxElements == 0 {
		cfg.Index.MinMaxElements = 200
	}
	if cfg.Index.EfConstruction == 0 {
		cfg.Index.EfConstruction = 200
	}
	if cfg.Index.EfSearch == 0 {
		cfg.Index.EfSearch = cfg.Index.EfConstruction
	}
	if cfg.Search.DefaultLimit == 0 {
		cfg.Search.DefaultLimit = 5
	}
	if cfg.Search.MaxLimit == 0 {
		cfg.Search.MaxLimit = 100
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 7878
	}
}
