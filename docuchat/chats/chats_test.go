package chats

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/docuchat/server/docuchat/collections"
	"codeberg.org/docuchat/server/internal/domain"
	"codeberg.org/docuchat/server/internal/storage"
)

type fixture struct {
	repo    *Repository
	userID  string
	session *domain.ChatSession
}

// runs against a real postgres with pgvector when TEST_DATABASE_URL is set
func newFixture(t *testing.T) *fixture {
	t.Helper()

	connString := os.Getenv("TEST_DATABASE_URL")
	if connString == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()

	pool, err := pgxpool.New(ctx, connString)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, storage.Migrate(ctx, pool))

	userID := "test-" + uuid.NewString()
	col, err := collections.NewRepository(pool).Create(ctx, userID, collections.CreateCollectionRequest{
		Name:           "chats",
		EmbeddingModel: "test-embed",
	}, 3)
	require.NoError(t, err)

	t.Cleanup(func() {
		_, _ = pool.Exec(context.Background(), `DELETE FROM collections WHERE id = $1`, col.ID)
	})

	repo := NewRepository(pool)
	session, err := repo.CreateSession(ctx, &domain.ChatSession{
		ID:           uuid.NewString(),
		UserID:       userID,
		CollectionID: col.ID,
		Title:        "New Chat",
		LLMModel:     "ollama_local",
		Temperature:  0.7,
		MaxTokens:    2000,
		TopK:         5,
	})
	require.NoError(t, err)

	return &fixture{repo: repo, userID: userID, session: session}
}

func (f *fixture) turn(question, answer string) Turn {
	return Turn{
		SessionID: f.session.ID,
		User:      &domain.Message{ID: uuid.NewString(), Role: domain.RoleUser, Content: question},
		Assistant: &domain.Message{
			ID:      uuid.NewString(),
			Role:    domain.RoleAssistant,
			Content: answer,
			Model:   "ollama_local",
			Sources: []domain.Source{{
				Content:  "refunds are issued within 14 days",
				Score:    0.9,
				Metadata: domain.ChunkMetadata{DocumentID: "doc-1", Filename: "guide.txt", ChunkIndex: 2},
			}},
		},
	}
}

func TestRepository_AppendTurn(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.repo.AppendTurn(ctx, f.turn("first question", "first answer")))
	require.NoError(t, f.repo.AppendTurn(ctx, f.turn("second question", "second answer")))

	recent, err := f.repo.RecentMessages(ctx, f.session.ID, 3)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, "first answer", recent[0].Content)
	assert.Equal(t, "second question", recent[1].Content)
	assert.Equal(t, "second answer", recent[2].Content)
	require.Len(t, recent[2].Sources, 1)
	assert.Equal(t, "guide.txt", recent[2].Sources[0].Metadata.Filename)

	session, err := f.repo.GetSession(ctx, f.session.ID, f.userID)
	require.NoError(t, err)
	assert.Equal(t, 4, session.MessageCount)
	assert.True(t, session.UpdatedAt.After(f.session.UpdatedAt))
}

func TestRepository_AppendTurnToDeletedSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.repo.DeleteSession(ctx, f.session.ID, f.userID))

	err := f.repo.AppendTurn(ctx, f.turn("question", "answer"))
	require.Error(t, err)

	msgs, err := f.repo.ListMessages(ctx, f.session.ID, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestRepository_RetitleOnlyFromExpectedTitle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first := f.turn("refund policy", "answer")
	first.Retitle = &TitleChange{From: "New Chat", To: "Refund policy"}
	require.NoError(t, f.repo.AppendTurn(ctx, first))
	assert.True(t, first.Retitle.Applied)

	_, err := f.repo.UpdateSession(ctx, f.session.ID, f.userID, func(s *domain.ChatSession) error {
		s.Title = "Chosen by the user"
		return nil
	})
	require.NoError(t, err)

	second := f.turn("more", "answer")
	second.Retitle = &TitleChange{From: "New Chat", To: "Something else"}
	require.NoError(t, f.repo.AppendTurn(ctx, second))
	assert.False(t, second.Retitle.Applied)

	session, err := f.repo.GetSession(ctx, f.session.ID, f.userID)
	require.NoError(t, err)
	assert.Equal(t, "Chosen by the user", session.Title)
}

func TestRepository_UpdateSessionIsAtomic(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	const writers = 10

	var wg sync.WaitGroup
	for range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()

			_, err := f.repo.UpdateSession(ctx, f.session.ID, f.userID, func(s *domain.ChatSession) error {
				s.MaxTokens++
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	session, err := f.repo.GetSession(ctx, f.session.ID, f.userID)
	require.NoError(t, err)
	assert.Equal(t, 2000+writers, session.MaxTokens)

	_, err = f.repo.UpdateSession(ctx, f.session.ID, f.userID, func(s *domain.ChatSession) error {
		s.Title = "discarded"
		s.TopK = 9
		return errors.New("rejected")
	})
	require.Error(t, err)

	session, err = f.repo.GetSession(ctx, f.session.ID, f.userID)
	require.NoError(t, err)
	assert.Equal(t, "New Chat", session.Title)
	assert.Equal(t, 5, session.TopK)

	_, err = f.repo.UpdateSession(ctx, f.session.ID, "someone-else", func(*domain.ChatSession) error { return nil })
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRepository_ArtifactsAreSetOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	turn := f.turn("question", "answer")
	require.NoError(t, f.repo.AppendTurn(ctx, turn))
	id := turn.Assistant.ID

	require.NoError(t, f.repo.SetAudio(ctx, id, "/audio/first.mp3"))
	assert.ErrorIs(t, f.repo.SetAudio(ctx, id, "/audio/second.mp3"), domain.ErrArtifactAlreadySet)

	require.NoError(t, f.repo.SetTranslation(ctx, id, "réponse"))
	assert.ErrorIs(t, f.repo.SetTranslation(ctx, id, "antwort"), domain.ErrArtifactAlreadySet)

	msg, err := f.repo.GetMessage(ctx, id, f.userID)
	require.NoError(t, err)
	require.NotNil(t, msg.AudioURL)
	require.NotNil(t, msg.Translation)
	assert.Equal(t, "/audio/first.mp3", *msg.AudioURL)
	assert.Equal(t, "réponse", *msg.Translation)

	_, err = f.repo.GetMessage(ctx, id, "someone-else")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
