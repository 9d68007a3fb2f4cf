package config

import "time"

type Config struct {
	DatabaseURL      string
	JWTSecret        string
	Environment      string
	Port             string
	RedisURL         string
	NATSURL          string
	UploadDir        string
	SpeechServiceURL string
	RateLimitChat    string
	RateLimitUpload  string
	AllowedOrigins   []string
	VectorStore      VectorStoreConfig
	Pipeline         Pipeline
}

type VectorStoreConfig struct {
	Kind         string // pgvector, chromem, qdrant or memory
	QdrantURL    string
	QdrantAPIKey string
	ChromemPath  string
}

// tuning knobs for ingestion and chat, loadable from CONFIG_FILE
type Pipeline struct {
	ChunkSize         int           `yaml:"chunk_size"`
	ChunkOverlap      int           `yaml:"chunk_overlap"`
	EmbedBatchSize    int           `yaml:"embed_batch_size"`
	Workers           int           `yaml:"workers"`
	QueueSize         int           `yaml:"queue_size"`
	ExtractTimeout    time.Duration `yaml:"extract_timeout"`
	EmbedTimeout      time.Duration `yaml:"embed_timeout"`
	VectorTimeout     time.Duration `yaml:"vector_timeout"`
	LLMTimeout        time.Duration `yaml:"llm_timeout"`
	RetryBackoff      time.Duration `yaml:"retry_backoff"`
	HistoryLimit      int           `yaml:"history_limit"`
	MaxUploadBytes    int64         `yaml:"max_upload_bytes"`
	AllowedExtensions []string      `yaml:"allowed_extensions"`
	LLMFallback       bool          `yaml:"llm_fallback"`
}
