package agent

import (
	"time"

	"codeberg.org/docuchat/server/internal/domain"
	"codeberg.org/docuchat/server/internal/llm"
	"codeberg.org/docuchat/server/internal/retry"
)

// llm backends selectable by name
type Backends interface {
	Get(name string) (llm.Backend, error)
	Fallbacks(name llm.Name) []llm.Backend
}

type Options struct {
	Timeout      time.Duration // per backend call
	Retry        retry.Policy
	HistoryLimit int
	// try the other configured backends when the selected one gives up
	Fallback bool
}

func DefaultOptions() Options {
	return Options{
		Timeout:      60 * time.Second,
		Retry:        retry.Default,
		HistoryLimit: 10,
	}
}

// orchestrates grounded answer generation for a chat session
type Agent struct {
	backends Backends
	opts     Options
}

// contains all inputs for one answer
type GenerateRequest struct {
	Session     *domain.ChatSession
	History     []domain.Message // oldest first
	Sources     []domain.Source
	UserMessage string
}

type GenerateResponse struct {
	Content  string          `json:"content"`
	Sources  []domain.Source `json:"sources"`
	LLMUsed  llm.Name        `json:"llm_used"`
	Attempts int             `json:"-"`
}
