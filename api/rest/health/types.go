package health

import (
	"context"

	"codeberg.org/docuchat/server/internal/llm"
)

const (
	StatusHealthy  = "healthy"
	StatusDegraded = "degraded"
)

// a named dependency probe; nil error means reachable
type Check func(ctx context.Context) error

type Response struct {
	Status  string            `json:"status"`
	Service string            `json:"service"`
	Version string            `json:"version,omitempty"`
	Checks  map[string]string `json:"checks,omitempty"`
}

type PingResponse struct {
	Message string `json:"message"`
}

type LLMCatalog interface {
	Available() []llm.Name
	Default() llm.Name
}

type EmbedderCatalog interface {
	Models() []string
	Default() string
}

type BackendsResponse struct {
	LLMs            []llm.Name `json:"llm_models"`
	DefaultLLM      llm.Name   `json:"default_llm_model"`
	Embedders       []string   `json:"embedding_models"`
	DefaultEmbedder string     `json:"default_embedding_model"`
	VectorStore     string     `json:"vector_store"`
}
