package chat

import (
	"context"

	"codeberg.org/docuchat/server/docuchat/chats"
	"codeberg.org/docuchat/server/internal/agent"
	"codeberg.org/docuchat/server/internal/domain"
	"codeberg.org/docuchat/server/internal/llm"
	"codeberg.org/docuchat/server/internal/sessions"
	"codeberg.org/docuchat/server/internal/speech"
)

const (
	DefaultTitle       = "New Chat"
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 2000
	DefaultTopK        = 5
	MaxTopK            = 20
	MaxTitleLength     = 200
)

type Repository interface {
	CreateSession(ctx context.Context, s *domain.ChatSession) (*domain.ChatSession, error)
	GetSession(ctx context.Context, sessionID, userID string) (*domain.ChatSession, error)
	ListSessions(ctx context.Context, userID string, limit, offset int) ([]domain.ChatSession, int, error)
	UpdateSession(ctx context.Context, sessionID, userID string, mutate func(*domain.ChatSession) error) (*domain.ChatSession, error)
	DeleteSession(ctx context.Context, sessionID, userID string) error
	AppendTurn(ctx context.Context, turn chats.Turn) error
	RecentMessages(ctx context.Context, sessionID string, n int) ([]domain.Message, error)
	ListMessages(ctx context.Context, sessionID string, limit, offset int) ([]domain.Message, error)
	GetMessage(ctx context.Context, messageID, userID string) (*domain.Message, error)
	SetAudio(ctx context.Context, messageID, audioURL string) error
	SetTranslation(ctx context.Context, messageID, translation string) error
}

type CollectionStore interface {
	Get(ctx context.Context, collectionID, userID string) (*domain.Collection, error)
}

type Retriever interface {
	Retrieve(ctx context.Context, session *domain.ChatSession, query string) ([]domain.Source, error)
}

type Generator interface {
	Generate(ctx context.Context, req agent.GenerateRequest) (*agent.GenerateResponse, error)
}

type Backends interface {
	Has(name string) bool
	Default() llm.Name
}

type Speech interface {
	Synthesize(ctx context.Context, text, voice string) (string, error)
	Translate(ctx context.Context, text, targetLang string) (string, error)
	Languages(ctx context.Context) ([]speech.Language, error)
}

type Options struct {
	HistoryLimit int
}

type Service struct {
	repo        Repository
	collections CollectionStore
	retriever   Retriever
	generator   Generator
	backends    Backends
	speech      Speech
	locker      sessions.Locker
	tracker     *sessions.Tracker
	opts        Options
}

// optional fields are nil when the client left them out
type CreateRequest struct {
	CollectionID       string   `json:"collection_id" binding:"required"`
	LLMModel           string   `json:"llm_model"`
	Title              *string  `json:"title"`
	Temperature        *float64 `json:"temperature"`
	MaxTokens          *int     `json:"max_tokens"`
	TopK               *int     `json:"top_k"`
	SystemPrompt       *string  `json:"system_prompt"`
	CustomInstructions *string  `json:"custom_instructions"`
	PromptTemplate     *string  `json:"prompt_template"`
	Personality        *string  `json:"ai_personality"`
	ResponseStyle      *string  `json:"response_style"`
	Voice              *string  `json:"voice"`
}

// partial settings update; nil fields keep their current value
type SettingsUpdate struct {
	Title              *string  `json:"title"`
	LLMModel           *string  `json:"llm_model"`
	Temperature        *float64 `json:"temperature"`
	MaxTokens          *int     `json:"max_tokens"`
	TopK               *int     `json:"top_k"`
	SystemPrompt       *string  `json:"system_prompt"`
	CustomInstructions *string  `json:"custom_instructions"`
	PromptTemplate     *string  `json:"prompt_template"`
	Personality        *string  `json:"ai_personality"`
	ResponseStyle      *string  `json:"response_style"`
	Voice              *string  `json:"voice"`
}

type Reply struct {
	SessionTitle     string          `json:"session_title"`
	UserMessage      *domain.Message `json:"user_message"`
	AssistantMessage *domain.Message `json:"assistant_message"`
}
