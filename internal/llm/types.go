package llm

import "context"

// identifies a backend variant, matched against a session's llm_model
type Name string

const (
	OllamaCloud Name = "ollama_cloud"
	OllamaLocal Name = "ollama_local"
	OpenAI      Name = "openai"
	Anthropic   Name = "anthropic"
)

// priority order used to pick the default backend and the fallback chain
var Priority = []Name{OllamaCloud, OllamaLocal, OpenAI, Anthropic}

// a text completion capability; implementations are interchangeable
type Backend interface {
	Name() Name
	Complete(ctx context.Context, prompt Prompt, params Params) (string, error)
}

type Prompt struct {
	System   string
	Messages []Message
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type Params struct {
	Temperature float64
	MaxTokens   int
}
