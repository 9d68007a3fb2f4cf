package speech

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"codeberg.org/docuchat/server/internal/domain"
	"codeberg.org/docuchat/server/internal/httpx"
)

// returned when SPEECH_SERVICE_URL is unset
var ErrUnavailable = fmt.Errorf("speech %w", domain.ErrNotConfigured)

var speechRateLimiter = rate.NewLimiter(10, 5)

type Language struct {
	From string `json:"from"`
	To   string `json:"to"`
	Name string `json:"name"`
	Type string `json:"type,omitempty"`
}

type synthesizeRequest struct {
	Text  string `json:"text"`
	Voice string `json:"voice"`
}

type synthesizeResponse struct {
	AudioURL string `json:"audio_url"`
}

type translateRequest struct {
	Text       string `json:"text"`
	TargetLang string `json:"target_lang"`
}

type translateResponse struct {
	TranslatedContent string `json:"translated_content"`
}

type languagesResponse struct {
	Languages []Language `json:"languages"`
}

// client for the external text-to-speech and translation service
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpx.NewClient(timeout),
	}
}

func (c *Client) Enabled() bool {
	return c != nil && c.baseURL != ""
}

// renders text as audio and returns where it can be fetched
func (c *Client) Synthesize(ctx context.Context, text, voice string) (string, error) {
	if voice == "" {
		voice = "auto"
	}

	var resp synthesizeResponse
	if err := c.call(ctx, http.MethodPost, "/tts", synthesizeRequest{Text: text, Voice: voice}, &resp); err != nil {
		return "", fmt.Errorf("failed to synthesize audio: %w", err)
	}

	if resp.AudioURL == "" {
		return "", fmt.Errorf("failed to synthesize audio: empty audio_url")
	}

	return resp.AudioURL, nil
}

func (c *Client) Translate(ctx context.Context, text, targetLang string) (string, error) {
	var resp translateResponse
	if err := c.call(ctx, http.MethodPost, "/translate", translateRequest{Text: text, TargetLang: targetLang}, &resp); err != nil {
		return "", fmt.Errorf("failed to translate text: %w", err)
	}

	return resp.TranslatedContent, nil
}

func (c *Client) Languages(ctx context.Context) ([]Language, error) {
	var resp languagesResponse
	if err := c.call(ctx, http.MethodGet, "/languages", nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to list languages: %w", err)
	}

	if resp.Languages == nil {
		return []Language{}, nil
	}

	return resp.Languages, nil
}

func (c *Client) call(ctx context.Context, method, path string, in, out any) error {
	if !c.Enabled() {
		return ErrUnavailable
	}

	if err := speechRateLimiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter error: %w", err)
	}

	return httpx.DoJSON(ctx, c.httpClient, method, c.baseURL+path, nil, in, out)
}
