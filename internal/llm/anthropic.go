package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"codeberg.org/docuchat/server/internal/httpx"
)

const (
	defaultAnthropicURL   = "https://api.anthropic.com/v1/messages"
	anthropicVersion      = "2023-06-01"
	defaultAnthropicModel = "claude-3-5-haiku-20241022"
)

// shared HTTP client for Anthropic API calls
var anthropicHTTPClient = httpx.NewClient(60 * time.Second)

// rate limiter for Anthropic API calls (50 requests/second with burst capacity of 10)
var anthropicRateLimiter = rate.NewLimiter(50, 10)

type anthropicRequest struct {
	Model       string    `json:"model"`
	MaxTokens   int       `json:"max_tokens"`
	System      string    `json:"system,omitempty"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

type AnthropicConfig struct {
	APIKey string
	Model  string // e.g., "claude-3-5-haiku-20241022"
	URL    string
}

type AnthropicBackend struct {
	config     AnthropicConfig
	httpClient *http.Client
}

func NewAnthropicBackend(config AnthropicConfig) *AnthropicBackend {
	if config.Model == "" {
		config.Model = defaultAnthropicModel
	}

	if config.URL == "" {
		config.URL = defaultAnthropicURL
	}

	return &AnthropicBackend{
		config:     config,
		httpClient: anthropicHTTPClient,
	}
}

func (b *AnthropicBackend) Name() Name {
	return Anthropic
}

func (b *AnthropicBackend) Complete(ctx context.Context, prompt Prompt, params Params) (string, error) {
	// the messages API takes the system prompt separately and has no system role
	messages := make([]Message, 0, len(prompt.Messages))
	for _, msg := range prompt.Messages {
		if msg.Role == "system" {
			continue
		}
		messages = append(messages, msg)
	}

	reqBody := anthropicRequest{
		Model:       b.config.Model,
		MaxTokens:   params.MaxTokens,
		System:      prompt.System,
		Temperature: min(params.Temperature, 1), // anthropic caps temperature at 1
		Messages:    messages,
	}

	// rate limiting
	if err := anthropicRateLimiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter error: %w", err)
	}

	var apiResp anthropicResponse
	err := httpx.DoJSON(ctx, b.httpClient, http.MethodPost, b.config.URL, map[string]string{
		"x-api-key":         b.config.APIKey,
		"anthropic-version": anthropicVersion,
	}, reqBody, &apiResp)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, c := range apiResp.Content {
		if c.Type == "text" {
			sb.WriteString(c.Text)
		}
	}

	return strings.TrimSpace(sb.String()), nil
}
