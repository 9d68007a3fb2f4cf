package chats

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"codeberg.org/docuchat/server/internal/domain"
	"codeberg.org/docuchat/server/internal/logger"
)

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

func scanSession(row pgx.Row) (*domain.ChatSession, error) {
	var s domain.ChatSession

	err := row.Scan(
		&s.ID,
		&s.UserID,
		&s.CollectionID,
		&s.Title,
		&s.LLMModel,
		&s.Temperature,
		&s.MaxTokens,
		&s.TopK,
		&s.SystemPrompt,
		&s.CustomInstructions,
		&s.PromptTemplate,
		&s.Personality,
		&s.ResponseStyle,
		&s.Voice,
		&s.MessageCount,
		&s.CreatedAt,
		&s.UpdatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("chat session %w", domain.ErrNotFound)
	}

	if err != nil {
		return nil, err
	}

	return &s, nil
}

func scanMessage(row pgx.Row) (*domain.Message, error) {
	var (
		m       domain.Message
		sources sourceList
		seq     int64
	)

	err := row.Scan(
		&m.ID,
		&m.SessionID,
		&m.Role,
		&m.Content,
		&sources,
		&m.Model,
		&m.AudioURL,
		&m.Translation,
		&m.CreatedAt,
		&seq,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("message %w", domain.ErrNotFound)
	}

	if err != nil {
		return nil, err
	}

	m.Sources = sources
	return &m, nil
}

func (r *Repository) CreateSession(ctx context.Context, s *domain.ChatSession) (*domain.ChatSession, error) {
	return scanSession(r.db.QueryRow(
		ctx,
		queryCreateSession,
		s.ID,
		s.UserID,
		s.CollectionID,
		s.Title,
		s.LLMModel,
		s.Temperature,
		s.MaxTokens,
		s.TopK,
		s.SystemPrompt,
		s.CustomInstructions,
		s.PromptTemplate,
		s.Personality,
		s.ResponseStyle,
		s.Voice,
	))
}

func (r *Repository) GetSession(ctx context.Context, sessionID, userID string) (*domain.ChatSession, error) {
	return scanSession(r.db.QueryRow(ctx, queryGetSession, sessionID, userID))
}

// most recently updated first
func (r *Repository) ListSessions(ctx context.Context, userID string, limit, offset int) ([]domain.ChatSession, int, error) {
	var total int
	if err := r.db.QueryRow(ctx, queryCountSessions, userID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.Query(ctx, queryListSessions, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}

	defer rows.Close()
	sessions := []domain.ChatSession{}

	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, 0, err
		}

		sessions = append(sessions, *s)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return sessions, total, nil
}

// applies mutate to the locked row and writes every setting back in one
// statement. mutate returning an error aborts the update.
func (r *Repository) UpdateSession(
	ctx context.Context,
	sessionID, userID string,
	mutate func(*domain.ChatSession) error,
) (*domain.ChatSession, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}

	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			logger.Warn("failed to rollback transaction", "error", err)
		}
	}()

	s, err := scanSession(tx.QueryRow(ctx, queryLockSession, sessionID, userID))
	if err != nil {
		return nil, err
	}

	if err := mutate(s); err != nil {
		return nil, err
	}

	_, err = tx.Exec(
		ctx,
		queryUpdateSession,
		s.ID,
		s.Title,
		s.LLMModel,
		s.Temperature,
		s.MaxTokens,
		s.TopK,
		s.SystemPrompt,
		s.CustomInstructions,
		s.PromptTemplate,
		s.Personality,
		s.ResponseStyle,
		s.Voice,
	)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return r.GetSession(ctx, sessionID, userID)
}

func (r *Repository) DeleteSession(ctx context.Context, sessionID, userID string) error {
	tag, err := r.db.Exec(ctx, queryDeleteSession, sessionID, userID)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("chat session %w", domain.ErrNotFound)
	}

	return nil
}

// persists both sides of a turn and bumps the session in one transaction
func (r *Repository) AppendTurn(ctx context.Context, turn Turn) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			logger.Warn("failed to rollback transaction", "error", err)
		}
	}()

	for _, m := range []*domain.Message{turn.User, turn.Assistant} {
		err := tx.QueryRow(
			ctx,
			queryInsertMessage,
			m.ID,
			turn.SessionID,
			m.Role,
			m.Content,
			sourceList(m.Sources),
			m.Model,
		).Scan(&m.CreatedAt)
		if err != nil {
			return err
		}

		m.SessionID = turn.SessionID
	}

	if _, err := tx.Exec(ctx, queryTouchSession, turn.SessionID); err != nil {
		return err
	}

	if rt := turn.Retitle; rt != nil {
		tag, err := tx.Exec(ctx, queryRetitleSession, turn.SessionID, rt.From, rt.To)
		if err != nil {
			return err
		}

		rt.Applied = tag.RowsAffected() == 1
	}

	return tx.Commit(ctx)
}

// the last n messages of a session, oldest first
func (r *Repository) RecentMessages(ctx context.Context, sessionID string, n int) ([]domain.Message, error) {
	return r.queryMessages(ctx, queryRecentMessages, sessionID, n)
}

func (r *Repository) ListMessages(ctx context.Context, sessionID string, limit, offset int) ([]domain.Message, error) {
	return r.queryMessages(ctx, queryListMessages, sessionID, limit, offset)
}

// fetches a message owned by userID
func (r *Repository) GetMessage(ctx context.Context, messageID, userID string) (*domain.Message, error) {
	return scanMessage(r.db.QueryRow(ctx, queryGetMessage, messageID, userID))
}

func (r *Repository) SetAudio(ctx context.Context, messageID, audioURL string) error {
	return r.setOnce(ctx, querySetAudio, messageID, audioURL)
}

func (r *Repository) SetTranslation(ctx context.Context, messageID, translation string) error {
	return r.setOnce(ctx, querySetTranslation, messageID, translation)
}

func (r *Repository) setOnce(ctx context.Context, query, messageID, value string) error {
	tag, err := r.db.Exec(ctx, query, messageID, value)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrArtifactAlreadySet
	}

	return nil
}

func (r *Repository) queryMessages(ctx context.Context, query string, args ...any) ([]domain.Message, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	defer rows.Close()
	messages := []domain.Message{}

	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}

		messages = append(messages, *m)
	}

	return messages, rows.Err()
}
