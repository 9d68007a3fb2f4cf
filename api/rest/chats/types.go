package chats

import (
	"context"

	"codeberg.org/docuchat/server/api/rest/pagination"
	"codeberg.org/docuchat/server/internal/chat"
	"codeberg.org/docuchat/server/internal/domain"
	"codeberg.org/docuchat/server/internal/speech"
)

type Service interface {
	Create(ctx context.Context, userID string, req chat.CreateRequest) (*domain.ChatSession, error)
	Get(ctx context.Context, sessionID, userID string) (*domain.ChatSession, error)
	List(ctx context.Context, userID string, limit, offset int) ([]domain.ChatSession, int, error)
	Rename(ctx context.Context, sessionID, userID, title string) (*domain.ChatSession, error)
	UpdateSettings(ctx context.Context, sessionID, userID string, u chat.SettingsUpdate) (*domain.ChatSession, error)
	Delete(ctx context.Context, sessionID, userID string) error
	Messages(ctx context.Context, sessionID, userID string, limit, offset int) ([]domain.Message, error)
	Send(ctx context.Context, sessionID, userID, content string) (*chat.Reply, error)
	Audio(ctx context.Context, messageID, userID string) (string, error)
	Translate(ctx context.Context, messageID, userID, targetLang string) (string, error)
	Languages(ctx context.Context) ([]speech.Language, error)
}

type RenameRequest struct {
	Title string `json:"title" binding:"required"`
}

type SendMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

type TranslateRequest struct {
	TargetLang string `json:"target_lang" binding:"required"`
}

type SessionsListResponse struct {
	Sessions   []domain.ChatSession `json:"sessions"`
	Pagination pagination.Meta      `json:"pagination"`
}

type MessagesListResponse struct {
	Messages []domain.Message `json:"messages"`
}

type AudioResponse struct {
	AudioURL string `json:"audio_url"`
}

type TranslateResponse struct {
	TranslatedContent string `json:"translated_content"`
}

type LanguagesResponse struct {
	Languages []speech.Language `json:"languages"`
}

type MessageResponse struct {
	Message string `json:"message"`
}
