package llm

import (
	"context"
	"net/http"
	"strings"
	"time"

	"codeberg.org/docuchat/server/internal/httpx"
)

const (
	DefaultOllamaURL   = "http://localhost:11434"
	defaultOllamaModel = "llama3.2"
)

type ollamaChatRequest struct {
	Model    string         `json:"model"`
	Messages []Message      `json:"messages"`
	Stream   bool           `json:"stream"`
	Options  *ollamaOptions `json:"options,omitempty"`
}

type ollamaOptions struct {
	NumPredict  int     `json:"num_predict,omitempty"`
	Temperature float64 `json:"temperature"`
}

type ollamaChatResponse struct {
	Message Message `json:"message"`
	Done    bool    `json:"done"`
}

type OllamaConfig struct {
	BaseURL string
	Model   string
	APIKey  string // set for hosted ollama, sent as a bearer token
	Timeout time.Duration
}

// speaks the ollama /api/chat protocol; the same client serves the local
// daemon and the hosted service
type OllamaBackend struct {
	name   Name
	config OllamaConfig
	client *http.Client
}

func NewOllamaBackend(name Name, cfg OllamaConfig) *OllamaBackend {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultOllamaURL
	}

	if cfg.Model == "" {
		cfg.Model = defaultOllamaModel
	}

	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}

	return &OllamaBackend{
		name:   name,
		config: cfg,
		client: httpx.NewClient(cfg.Timeout),
	}
}

func (b *OllamaBackend) Name() Name {
	return b.name
}

func (b *OllamaBackend) Complete(ctx context.Context, prompt Prompt, params Params) (string, error) {
	var headers map[string]string
	if b.config.APIKey != "" {
		headers = map[string]string{"Authorization": "Bearer " + b.config.APIKey}
	}

	var resp ollamaChatResponse
	err := httpx.DoJSON(ctx, b.client, http.MethodPost, strings.TrimRight(b.config.BaseURL, "/")+"/api/chat", headers,
		ollamaChatRequest{
			Model:    b.config.Model,
			Messages: withSystem(prompt),
			Stream:   false,
			Options: &ollamaOptions{
				NumPredict:  params.MaxTokens,
				Temperature: params.Temperature,
			},
		}, &resp)
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(resp.Message.Content), nil
}
