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
	defaultOpenAIBaseURL = "https://api.openai.com/v1"
	defaultOpenAIModel   = "gpt-4o-mini"
)

var openaiHTTPClient = httpx.NewClient(60 * time.Second)

var openaiRateLimiter = rate.NewLimiter(50, 10)

type openaiChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

type openaiChatResponse struct {
	Choices []struct {
		Message      Message `json:"message"`
		FinishReason string  `json:"finish_reason"`
	} `json:"choices"`
}

type OpenAIConfig struct {
	APIKey  string
	Model   string
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

	return &OpenAIBackend{config: config, httpClient: openaiHTTPClient}
}

func (b *OpenAIBackend) Name() Name {
	return OpenAI
}

func (b *OpenAIBackend) Complete(ctx context.Context, prompt Prompt, params Params) (string, error) {
	if err := openaiRateLimiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter error: %w", err)
	}

	var resp openaiChatResponse
	err := httpx.DoJSON(ctx, b.httpClient, http.MethodPost, b.config.BaseURL+"/chat/completions",
		map[string]string{"Authorization": "Bearer " + b.config.APIKey},
		openaiChatRequest{
			Model:       b.config.Model,
			Messages:    withSystem(prompt),
			Temperature: params.Temperature,
			MaxTokens:   params.MaxTokens,
		}, &resp)
	if err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// prepends the system prompt as a system-role message
func withSystem(prompt Prompt) []Message {
	messages := make([]Message, 0, len(prompt.Messages)+1)

	if prompt.System != "" {
		messages = append(messages, Message{Role: "system", Content: prompt.System})
	}

	return append(messages, prompt.Messages...)
}
