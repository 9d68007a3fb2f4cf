package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"codeberg.org/docuchat/server/docuchat/chats"
	"codeberg.org/docuchat/server/internal/agent"
	"codeberg.org/docuchat/server/internal/domain"
	"codeberg.org/docuchat/server/internal/logger"
	"codeberg.org/docuchat/server/internal/sessions"
	"codeberg.org/docuchat/server/internal/speech"
)

func NewService(
	repo Repository,
	collections CollectionStore,
	retriever Retriever,
	generator Generator,
	backends Backends,
	speechClient Speech,
	locker sessions.Locker,
	opts Options,
) *Service {
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = agent.DefaultOptions().HistoryLimit
	}

	if locker == nil {
		locker = sessions.NewMemoryLocker()
	}

	return &Service{
		repo:        repo,
		collections: collections,
		retriever:   retriever,
		generator:   generator,
		backends:    backends,
		speech:      speechClient,
		locker:      locker,
		tracker:     sessions.NewTracker(),
		opts:        opts,
	}
}

func (svc *Service) Create(ctx context.Context, userID string, req CreateRequest) (*domain.ChatSession, error) {
	if _, err := svc.collections.Get(ctx, req.CollectionID, userID); err != nil {
		return nil, err
	}

	s := &domain.ChatSession{
		ID:           uuid.NewString(),
		UserID:       userID,
		CollectionID: req.CollectionID,
		Title:        DefaultTitle,
		LLMModel:     req.LLMModel,
		Temperature:  DefaultTemperature,
		MaxTokens:    DefaultMaxTokens,
		TopK:         DefaultTopK,
	}

	if s.LLMModel == "" {
		s.LLMModel = string(svc.backends.Default())
	}

	SettingsUpdate{
		Title:              req.Title,
		Temperature:        req.Temperature,
		MaxTokens:          req.MaxTokens,
		TopK:               req.TopK,
		SystemPrompt:       req.SystemPrompt,
		CustomInstructions: req.CustomInstructions,
		PromptTemplate:     req.PromptTemplate,
		Personality:        req.Personality,
		ResponseStyle:      req.ResponseStyle,
		Voice:              req.Voice,
	}.apply(s)

	if err := svc.normalize(s, true); err != nil {
		return nil, err
	}

	created, err := svc.repo.CreateSession(ctx, s)
	if err != nil {
		return nil, err
	}

	logger.Info("chat session created",
		"session_id", created.ID,
		"collection_id", created.CollectionID,
		"llm_model", created.LLMModel,
	)

	return created, nil
}

func (svc *Service) Get(ctx context.Context, sessionID, userID string) (*domain.ChatSession, error) {
	return svc.repo.GetSession(ctx, sessionID, userID)
}

func (svc *Service) List(ctx context.Context, userID string, limit, offset int) ([]domain.ChatSession, int, error) {
	return svc.repo.ListSessions(ctx, userID, limit, offset)
}

func (svc *Service) Rename(ctx context.Context, sessionID, userID, title string) (*domain.ChatSession, error) {
	return svc.UpdateSettings(ctx, sessionID, userID, SettingsUpdate{Title: &title})
}

// applies every field of u or none of them
func (svc *Service) UpdateSettings(ctx context.Context, sessionID, userID string, u SettingsUpdate) (*domain.ChatSession, error) {
	return svc.repo.UpdateSession(ctx, sessionID, userID, func(s *domain.ChatSession) error {
		u.apply(s)
		return svc.normalize(s, u.LLMModel != nil)
	})
}

// turns still generating for the session are abandoned without waiting
func (svc *Service) Delete(ctx context.Context, sessionID, userID string) error {
	if _, err := svc.repo.GetSession(ctx, sessionID, userID); err != nil {
		return err
	}

	if n := svc.tracker.CancelSession(sessionID); n > 0 {
		logger.Info("abandoned in-flight chat turns", "session_id", sessionID, "turns", n)
	}

	return svc.repo.DeleteSession(ctx, sessionID, userID)
}

func (svc *Service) Messages(ctx context.Context, sessionID, userID string, limit, offset int) ([]domain.Message, error) {
	if _, err := svc.repo.GetSession(ctx, sessionID, userID); err != nil {
		return nil, err
	}

	return svc.repo.ListMessages(ctx, sessionID, limit, offset)
}

// answers content from the session's collection. turns on one session run
// one at a time; a failed turn leaves the history untouched.
func (svc *Service) Send(ctx context.Context, sessionID, userID, content string) (*Reply, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, &domain.ValidationError{Field: "content", Reason: "must not be empty"}
	}

	unlock, err := svc.locker.Lock(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	ctx, done := svc.tracker.Begin(ctx, sessionID)
	defer done()

	session, err := svc.repo.GetSession(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}

	start := time.Now()

	sources, err := svc.retriever.Retrieve(ctx, session, content)
	switch {
	case errors.Is(err, domain.ErrNoCompletedDocuments):
		logger.Debug("answering without sources", "session_id", sessionID, "reason", err.Error())
		sources = []domain.Source{}
	case err != nil:
		return nil, svc.turnError(ctx, sessionID, err)
	}

	history, err := svc.repo.RecentMessages(ctx, sessionID, svc.opts.HistoryLimit)
	if err != nil {
		return nil, svc.turnError(ctx, sessionID, err)
	}

	resp, err := svc.generator.Generate(ctx, agent.GenerateRequest{
		Session:     session,
		History:     history,
		Sources:     sources,
		UserMessage: content,
	})
	if err != nil {
		return nil, svc.turnError(ctx, sessionID, err)
	}

	// a session deleted mid-generation must not receive the turn
	if err := context.Cause(ctx); err != nil {
		return nil, svc.turnError(ctx, sessionID, err)
	}

	turn := chats.Turn{
		SessionID: sessionID,
		User: &domain.Message{
			ID:      uuid.NewString(),
			Role:    domain.RoleUser,
			Content: content,
		},
		Assistant: &domain.Message{
			ID:      uuid.NewString(),
			Role:    domain.RoleAssistant,
			Content: resp.Content,
			Sources: resp.Sources,
			Model:   string(resp.LLMUsed),
		},
	}

	if len(history) == 0 && session.Title == DefaultTitle {
		if title := autoTitle(content); title != "" {
			turn.Retitle = &chats.TitleChange{From: DefaultTitle, To: title}
		}
	}

	if err := svc.repo.AppendTurn(ctx, turn); err != nil {
		return nil, svc.turnError(ctx, sessionID, err)
	}

	title := session.Title
	if turn.Retitle != nil && turn.Retitle.Applied {
		title = turn.Retitle.To
	}

	logger.FromContext(ctx).Info("chat turn completed",
		"session_id", sessionID,
		"llm_used", resp.LLMUsed,
		"sources", len(resp.Sources),
		"attempts", resp.Attempts,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return &Reply{SessionTitle: title, UserMessage: turn.User, AssistantMessage: turn.Assistant}, nil
}

// reports a turn cut short by session deletion as a missing session
func (svc *Service) turnError(ctx context.Context, sessionID string, err error) error {
	if errors.Is(context.Cause(ctx), sessions.ErrSessionDeleted) {
		return fmt.Errorf("chat session %w", domain.ErrNotFound)
	}

	logger.FromContext(ctx).Warn("chat turn failed", "session_id", sessionID, "error", err)
	return err
}

// synthesizes the message once and returns the stored URL afterwards
func (svc *Service) Audio(ctx context.Context, messageID, userID string) (string, error) {
	msg, err := svc.repo.GetMessage(ctx, messageID, userID)
	if err != nil {
		return "", err
	}

	if msg.AudioURL != nil {
		return *msg.AudioURL, nil
	}

	session, err := svc.repo.GetSession(ctx, msg.SessionID, userID)
	if err != nil {
		return "", err
	}

	url, err := svc.speech.Synthesize(ctx, msg.Content, session.Voice)
	if err != nil {
		logger.Warn("audio generation failed", "message_id", messageID, "error", err)
		return "", err
	}

	err = svc.repo.SetAudio(ctx, messageID, url)
	if errors.Is(err, domain.ErrArtifactAlreadySet) {
		return svc.storedArtifact(ctx, messageID, userID, func(m *domain.Message) *string { return m.AudioURL })
	}

	if err != nil {
		return "", err
	}

	return url, nil
}

// translates the message once; later calls return the stored translation
func (svc *Service) Translate(ctx context.Context, messageID, userID, targetLang string) (string, error) {
	targetLang = strings.TrimSpace(targetLang)
	if targetLang == "" {
		return "", &domain.ValidationError{Field: "target_lang", Reason: "is required"}
	}

	msg, err := svc.repo.GetMessage(ctx, messageID, userID)
	if err != nil {
		return "", err
	}

	if msg.Translation != nil {
		return *msg.Translation, nil
	}

	translated, err := svc.speech.Translate(ctx, msg.Content, targetLang)
	if err != nil {
		logger.Warn("translation failed", "message_id", messageID, "target_lang", targetLang, "error", err)
		return "", err
	}

	err = svc.repo.SetTranslation(ctx, messageID, translated)
	if errors.Is(err, domain.ErrArtifactAlreadySet) {
		return svc.storedArtifact(ctx, messageID, userID, func(m *domain.Message) *string { return m.Translation })
	}

	if err != nil {
		return "", err
	}

	return translated, nil
}

// a concurrent request won the set-once race; its value is the answer
func (svc *Service) storedArtifact(ctx context.Context, messageID, userID string, field func(*domain.Message) *string) (string, error) {
	msg, err := svc.repo.GetMessage(ctx, messageID, userID)
	if err != nil {
		return "", err
	}

	v := field(msg)
	if v == nil {
		return "", domain.ErrArtifactAlreadySet
	}

	return *v, nil
}

func (svc *Service) Languages(ctx context.Context) ([]speech.Language, error) {
	return svc.speech.Languages(ctx)
}
