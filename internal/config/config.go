package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/xxxsen/common/logger"
)

type Config struct {
	Port        int               `json:"port"`
	JWTSecret   string            `json:"jwt_secret"`
	JWTTTLHours int               `json:"jwt_ttl_hours"`
	LogConfig   logger.LogConfig  `json:"log_config"`
	Database    DatabaseConfig    `json:"database"`
	FileStore   FileStoreConfig   `json:"file_store"`
	VectorStore VectorStoreConfig `json:"vector_store"`
	AI          AIConfig          `json:"ai"`
	Index       IndexConfig       `json:"index"`
	Ask         AskConfig         `json:"ask"`
	Jobs        JobsConfig        `json:"jobs"`
}

type DatabaseConfig struct {
	DSN      string `json:"dsn"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"dbname"`
	SSLMode  string `json:"sslmode"`
}

type FileStoreConfig struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type VectorStoreConfig struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type AIConfig struct {
	Provider   string             `json:"provider"`
	EmbedModel string             `json:"embed_model"`
	ChatModel  string             `json:"chat_model"`
	Timeout    int                `json:"timeout"`
	Data       interface{}        `json:"data"`
	Fallbacks  []AIProviderConfig `json:"fallbacks"`
}

// AIProviderConfig describes one extra provider used as a fallback when the
// primary fails. Model names default to the primary's when empty.
type AIProviderConfig struct {
	Provider   string      `json:"provider"`
	EmbedModel string      `json:"embed_model"`
	ChatModel  string      `json:"chat_model"`
	Data       interface{} `json:"data"`
}

type IndexConfig struct {
	ChunkSize       int   `json:"chunk_size"`
	ChunkOverlap    int   `json:"chunk_overlap"`
	BatchSize       int   `json:"batch_size"`
	DiscardRawText  bool  `json:"discard_raw_text"`
	ExtractOnUpload bool  `json:"extract_on_upload"`
	EnableReindex   *bool `json:"enable_reindex"`
	QueueSize       int   `json:"queue_size"`
}

type AskConfig struct {
	TopKDefault   int `json:"top_k_default"`
	RatePerMinute int `json:"rate_per_minute"`
	CacheSize     int `json:"cache_size"`
	CacheTTLMins  int `json:"cache_ttl_mins"`
}

type JobsConfig struct {
	JobRetentionDays   int    `json:"job_retention_days"`
	CacheRetentionDays int    `json:"cache_retention_days"`
	CleanupSpec        string `json:"cleanup_spec"`
}

func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("jwt_secret is required")
	}
	if cfg.Port == 0 {
		return nil, fmt.Errorf("port is required")
	}
	if cfg.Database.DSN == "" && cfg.Database.Host == "" {
		return nil, fmt.Errorf("database.dsn or database.host is required")
	}
	if cfg.AI.Provider == "" {
		return nil, fmt.Errorf("ai.provider is required")
	}
	if cfg.JWTTTLHours == 0 {
		cfg.JWTTTLHours = 72
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	if cfg.FileStore.Type == "" {
		cfg.FileStore.Type = "local"
	}
	if cfg.VectorStore.Type == "" {
		cfg.VectorStore.Type = "pgvector"
	}
	if cfg.AI.EmbedModel == "" {
		cfg.AI.EmbedModel = "text-embedding-3-small"
	}
	if cfg.AI.ChatModel == "" {
		cfg.AI.ChatModel = "gpt-4o-mini"
	}
	if cfg.Index.ChunkSize == 0 {
		cfg.Index.ChunkSize = 900
	}
	if cfg.Index.ChunkOverlap == 0 {
		cfg.Index.ChunkOverlap = 150
	}
	if cfg.Index.ChunkOverlap >= cfg.Index.ChunkSize {
		return nil, fmt.Errorf("index.chunk_overlap must be smaller than index.chunk_size")
	}
	if cfg.Index.BatchSize == 0 {
		cfg.Index.BatchSize = 64
	}
	if cfg.Index.QueueSize == 0 {
		cfg.Index.QueueSize = 256
	}
	if cfg.Ask.TopKDefault == 0 {
		cfg.Ask.TopKDefault = 6
	}
	if cfg.Ask.RatePerMinute == 0 {
		cfg.Ask.RatePerMinute = 60
	}
	if cfg.Ask.CacheSize == 0 {
		cfg.Ask.CacheSize = 1024
	}
	if cfg.Ask.CacheTTLMins == 0 {
		cfg.Ask.CacheTTLMins = 30
	}
	if cfg.Jobs.JobRetentionDays == 0 {
		cfg.Jobs.JobRetentionDays = 14
	}
	if cfg.Jobs.CacheRetentionDays == 0 {
		cfg.Jobs.CacheRetentionDays = 30
	}
	if cfg.Jobs.CleanupSpec == "" {
		cfg.Jobs.CleanupSpec = "30 3 * * *"
	}
	return &cfg, nil
}

// ReindexEnabled reports whether re-indexing already indexed documents is
// allowed. Defaults to true when unset.
func (c *Config) ReindexEnabled() bool {
	if c.Index.EnableReindex == nil {
		return true
	}
	return *c.Index.EnableReindex
}
