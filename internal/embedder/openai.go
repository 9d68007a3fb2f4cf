package embedder

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"codeberg.org/docuchat/server/internal/httpx"
)

const (
	defaultOpenAIBaseURL = "https://api.openai.com/v1"
	defaultOpenAIModel   = "text-embedding-3-small"
)

// shared HTTP client for OpenAI API calls
var openaiHTTPClient = httpx.NewClient(60 * time.Second)

// rate limiter for OpenAI embedding calls (50 requests/second with burst capacity of 10)
var openaiRateLimiter = rate.NewLimiter(50, 10)

type embeddingRequest struct {
	Input    []string `json:"input"`
	Model    string   `json:"model"`
	Encoding string   `json:"encoding_format"`
}

type embeddingResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
	Model string `json:"model"`
}

type OpenAIConfig struct {
	APIKey  string
	Model   string // e.g., "text-embedding-3-small"
	BaseURL string
}

type OpenAIBackend struct {
	config     OpenAIConfig
	httpClient *http.Client
}

func NewOpenAIBackend(config OpenAIConfig) *OpenAIBackend {
	if config.Model == "" {
		config.Model = defaultOpenAIModel
	}

	if config.BaseURL == "" {
		config.BaseURL = defaultOpenAIBaseURL
	}

	return &OpenAIBackend{
		config:     config,
		httpClient: openaiHTTPClient,
	}
}

func (b *OpenAIBackend) Model() string {
	return b.config.Model
}

func (b *OpenAIBackend) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("no texts provided")
	}

	if err := openaiRateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter error: %w", err)
	}

	var resp embeddingResponse
	err := httpx.DoJSON(ctx, b.httpClient, http.MethodPost, b.config.BaseURL+"/embeddings",
		map[string]string{"Authorization": "Bearer " + b.config.APIKey},
		embeddingRequest{Input: texts, Model: b.config.Model, Encoding: "float"},
		&resp,
	)
	if err != nil {
		return nil, err
	}

	// results may arrive out of order; place them by index
	embeddings := make([][]float32, len(texts))
	for _, data := range resp.Data {
		if data.Index < 0 || data.Index >= len(texts) {
			return nil, fmt.Errorf("embedding index %d out of range", data.Index)
		}
		embeddings[data.Index] = data.Embedding
	}

	return embeddings, nil
}
