package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultChunkSize      = 1000
	defaultChunkOverlap   = 200
	defaultEmbedBatchSize = 10
	defaultWorkers        = 4
	defaultQueueSize      = 256
	defaultHistoryLimit   = 10
	defaultMaxUploadBytes = 10 * 1024 * 1024
)

func DefaultPipeline() Pipeline {
	return Pipeline{
		ChunkSize:         defaultChunkSize,
		ChunkOverlap:      defaultChunkOverlap,
		EmbedBatchSize:    defaultEmbedBatchSize,
		Workers:           defaultWorkers,
		QueueSize:         defaultQueueSize,
		ExtractTimeout:    30 * time.Second,
		EmbedTimeout:      30 * time.Second,
		VectorTimeout:     15 * time.Second,
		LLMTimeout:        60 * time.Second,
		RetryBackoff:      500 * time.Millisecond,
		HistoryLimit:      defaultHistoryLimit,
		MaxUploadBytes:    defaultMaxUploadBytes,
		AllowedExtensions: []string{".pdf", ".txt", ".md", ".docx", ".html", ".json"},
	}
}

// loads pipeline tuning from an optional YAML file, then applies env overrides
func LoadPipeline(path string) (Pipeline, error) {
	p := DefaultPipeline()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return p, fmt.Errorf("failed to read config file: %w", err)
		}

		if err := yaml.Unmarshal(data, &p); err != nil {
			return p, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := applyPipelineEnv(&p); err != nil {
		return p, err
	}

	if err := p.Validate(); err != nil {
		return p, err
	}

	return p, nil
}

func (p Pipeline) Validate() error {
	if p.ChunkSize <= 0 {
		return fmt.Errorf("chunk_size must be positive, got %d", p.ChunkSize)
	}

	if p.ChunkOverlap < 0 {
		return fmt.Errorf("chunk_overlap must not be negative, got %d", p.ChunkOverlap)
	}

	if p.EmbedBatchSize <= 0 {
		return fmt.Errorf("embed_batch_size must be positive, got %d", p.EmbedBatchSize)
	}

	if p.Workers <= 0 {
		return fmt.Errorf("workers must be positive, got %d", p.Workers)
	}

	if p.EmbedTimeout <= 0 || p.VectorTimeout <= 0 || p.LLMTimeout <= 0 || p.ExtractTimeout <= 0 {
		return fmt.Errorf("backend timeouts must be positive")
	}

	return nil
}

func applyPipelineEnv(p *Pipeline) error {
	ints := map[string]*int{
		"CHUNK_SIZE":       &p.ChunkSize,
		"CHUNK_OVERLAP":    &p.ChunkOverlap,
		"EMBED_BATCH_SIZE": &p.EmbedBatchSize,
		"INGEST_WORKERS":   &p.Workers,
		"HISTORY_LIMIT":    &p.HistoryLimit,
	}

	for key, dst := range ints {
		if v := os.Getenv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid %s: %w", key, err)
			}
			*dst = n
		}
	}

	durations := map[string]*time.Duration{
		"EMBED_TIMEOUT":  &p.EmbedTimeout,
		"VECTOR_TIMEOUT": &p.VectorTimeout,
		"LLM_TIMEOUT":    &p.LLMTimeout,
	}

	for key, dst := range durations {
		if v := os.Getenv(key); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("invalid %s: %w", key, err)
			}
			*dst = d
		}
	}

	if v := os.Getenv("MAX_UPLOAD_BYTES"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid MAX_UPLOAD_BYTES: %w", err)
		}
		p.MaxUploadBytes = n
	}

	if v := os.Getenv("LLM_FALLBACK"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid LLM_FALLBACK: %w", err)
		}
		p.LLMFallback = b
	}

	return nil
}
