package embedder

import (
	"context"
	"net/http"
	"time"

	"codeberg.org/docuchat/server/internal/httpx"
)

const (
	DefaultOllamaURL   = "http://localhost:11434"
	defaultOllamaModel = "nomic-embed-text"
)

type OllamaConfig struct {
	BaseURL string
	Model   string
	Timeout time.Duration
}

type OllamaBackend struct {
	client  *http.Client
	baseURL string
	model   string
}

type ollamaEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type ollamaEmbedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

func NewOllamaBackend(cfg OllamaConfig) *OllamaBackend {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultOllamaURL
	}

	if cfg.Model == "" {
		cfg.Model = defaultOllamaModel
	}

	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &OllamaBackend{
		client:  httpx.NewClient(cfg.Timeout),
		baseURL: cfg.BaseURL,
		model:   cfg.Model,
	}
}

func (b *OllamaBackend) Model() string {
	return b.model
}

// /api/embed accepts the whole batch in one request
func (b *OllamaBackend) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	var resp ollamaEmbedResponse

	err := httpx.DoJSON(ctx, b.client, http.MethodPost, b.baseURL+"/api/embed", nil,
		ollamaEmbedRequest{Model: b.model, Input: texts}, &resp)
	if err != nil {
		return nil, err
	}

	return resp.Embeddings, nil
}

// checks the server is reachable without running inference
func (b *OllamaBackend) Ping(ctx context.Context) error {
	return httpx.DoJSON(ctx, b.client, http.MethodGet, b.baseURL+"/api/tags", nil, nil, nil)
}
