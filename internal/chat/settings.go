package chat

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"codeberg.org/docuchat/server/internal/agent"
	"codeberg.org/docuchat/server/internal/domain"
)

// copies the non-nil fields of u onto s
func (u SettingsUpdate) apply(s *domain.ChatSession) {
	set(&s.Title, u.Title)
	set(&s.LLMModel, u.LLMModel)
	set(&s.Temperature, u.Temperature)
	set(&s.MaxTokens, u.MaxTokens)
	set(&s.TopK, u.TopK)
	set(&s.SystemPrompt, u.SystemPrompt)
	set(&s.CustomInstructions, u.CustomInstructions)
	set(&s.PromptTemplate, u.PromptTemplate)
	set(&s.Personality, u.Personality)
	set(&s.ResponseStyle, u.ResponseStyle)
	set(&s.Voice, u.Voice)
}

func set[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

// clamps temperature and rejects settings the pipeline cannot honor.
// llm_model is only checked when checkModel is set, so a session whose
// backend was unconfigured later can still be renamed or tuned.
func (svc *Service) normalize(s *domain.ChatSession, checkModel bool) error {
	s.Title = strings.TrimSpace(s.Title)
	s.LLMModel = strings.TrimSpace(s.LLMModel)
	s.Temperature = min(max(s.Temperature, 0), 2)

	if s.Title == "" {
		return &domain.ValidationError{Field: "title", Reason: "must not be empty"}
	}

	if utf8.RuneCountInString(s.Title) > MaxTitleLength {
		return &domain.ValidationError{Field: "title", Reason: fmt.Sprintf("must be at most %d characters", MaxTitleLength)}
	}

	if checkModel && !svc.backends.Has(s.LLMModel) {
		return fmt.Errorf("%w: llm_model %q", domain.ErrUnknownBackend, s.LLMModel)
	}

	if s.MaxTokens <= 0 {
		return &domain.ValidationError{Field: "max_tokens", Reason: "must be greater than 0"}
	}

	if s.TopK < 1 || s.TopK > MaxTopK {
		return &domain.ValidationError{Field: "top_k", Reason: fmt.Sprintf("must be between 1 and %d", MaxTopK)}
	}

	if !agent.ValidPersonality(s.Personality) {
		return &domain.ValidationError{Field: "ai_personality", Reason: "must be one of " + strings.Join(agent.Personalities(), ", ")}
	}

	if !agent.ValidResponseStyle(s.ResponseStyle) {
		return &domain.ValidationError{Field: "response_style", Reason: "must be one of " + strings.Join(agent.ResponseStyles(), ", ")}
	}

	return nil
}
