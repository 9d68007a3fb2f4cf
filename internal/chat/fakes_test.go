package chat

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"codeberg.org/docuchat/server/docuchat/chats"
	"codeberg.org/docuchat/server/internal/agent"
	"codeberg.org/docuchat/server/internal/domain"
	"codeberg.org/docuchat/server/internal/llm"
	"codeberg.org/docuchat/server/internal/speech"
)

type fakeRepo struct {
	mu       sync.Mutex
	sessions map[string]*domain.ChatSession
	messages []*domain.Message

	setAudioHook func()
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{sessions: make(map[string]*domain.ChatSession)}
}

func (r *fakeRepo) CreateSession(_ context.Context, s *domain.ChatSession) (*domain.ChatSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *s
	cp.CreatedAt = time.Now()
	cp.UpdatedAt = cp.CreatedAt
	r.sessions[s.ID] = &cp

	out := cp
	return &out, nil
}

func (r *fakeRepo) GetSession(_ context.Context, sessionID, userID string) (*domain.ChatSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[sessionID]
	if !ok || s.UserID != userID {
		return nil, fmt.Errorf("chat session %w", domain.ErrNotFound)
	}

	out := *s
	out.MessageCount = r.countLocked(sessionID)
	return &out, nil
}

func (r *fakeRepo) ListSessions(_ context.Context, userID string, limit, offset int) ([]domain.ChatSession, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var all []domain.ChatSession
	for _, s := range r.sessions {
		if s.UserID == userID {
			all = append(all, *s)
		}
	}

	slices.SortFunc(all, func(a, b domain.ChatSession) int { return b.UpdatedAt.Compare(a.UpdatedAt) })

	total := len(all)
	if offset > total {
		offset = total
	}

	return all[offset:min(offset+limit, total)], total, nil
}

func (r *fakeRepo) UpdateSession(_ context.Context, sessionID, userID string, mutate func(*domain.ChatSession) error) (*domain.ChatSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[sessionID]
	if !ok || s.UserID != userID {
		return nil, fmt.Errorf("chat session %w", domain.ErrNotFound)
	}

	draft := *s
	if err := mutate(&draft); err != nil {
		return nil, err
	}

	draft.UpdatedAt = time.Now()
	r.sessions[sessionID] = &draft

	out := draft
	return &out, nil
}

func (r *fakeRepo) DeleteSession(_ context.Context, sessionID, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[sessionID]
	if !ok || s.UserID != userID {
		return fmt.Errorf("chat session %w", domain.ErrNotFound)
	}

	delete(r.sessions, sessionID)
	r.messages = slices.DeleteFunc(r.messages, func(m *domain.Message) bool { return m.SessionID == sessionID })

	return nil
}

func (r *fakeRepo) AppendTurn(ctx context.Context, turn chats.Turn) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[turn.SessionID]
	if !ok {
		return fmt.Errorf("chat session %w", domain.ErrNotFound)
	}

	for _, m := range []*domain.Message{turn.User, turn.Assistant} {
		m.SessionID = turn.SessionID
		m.CreatedAt = time.Now()
		cp := *m
		r.messages = append(r.messages, &cp)
	}

	if rt := turn.Retitle; rt != nil && s.Title == rt.From {
		s.Title = rt.To
		rt.Applied = true
	}

	s.UpdatedAt = time.Now()
	return nil
}

func (r *fakeRepo) RecentMessages(_ context.Context, sessionID string, n int) ([]domain.Message, error) {
	all, _ := r.ListMessages(context.Background(), sessionID, 1<<30, 0)
	return all[max(len(all)-n, 0):], nil
}

func (r *fakeRepo) ListMessages(_ context.Context, sessionID string, limit, offset int) ([]domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := []domain.Message{}
	for _, m := range r.messages {
		if m.SessionID == sessionID {
			out = append(out, *m)
		}
	}

	offset = min(offset, len(out))
	return out[offset:min(offset+limit, len(out))], nil
}

func (r *fakeRepo) GetMessage(_ context.Context, messageID, userID string) (*domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, m := range r.messages {
		if m.ID == messageID && r.sessions[m.SessionID] != nil && r.sessions[m.SessionID].UserID == userID {
			out := *m
			return &out, nil
		}
	}

	return nil, fmt.Errorf("message %w", domain.ErrNotFound)
}

func (r *fakeRepo) SetAudio(_ context.Context, messageID, audioURL string) error {
	if r.setAudioHook != nil {
		r.setAudioHook()
	}

	return r.setOnce(messageID, func(m *domain.Message) **string { return &m.AudioURL }, audioURL)
}

func (r *fakeRepo) SetTranslation(_ context.Context, messageID, translation string) error {
	return r.setOnce(messageID, func(m *domain.Message) **string { return &m.Translation }, translation)
}

func (r *fakeRepo) setOnce(messageID string, field func(*domain.Message) **string, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, m := range r.messages {
		if m.ID != messageID {
			continue
		}

		f := field(m)
		if *f != nil {
			return domain.ErrArtifactAlreadySet
		}

		*f = &value
		return nil
	}

	return domain.ErrArtifactAlreadySet
}

func (r *fakeRepo) countLocked(sessionID string) int {
	n := 0
	for _, m := range r.messages {
		if m.SessionID == sessionID {
			n++
		}
	}

	return n
}

func (r *fakeRepo) messageCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.messages)
}

type fakeCollections map[string]*domain.Collection

func (f fakeCollections) Get(_ context.Context, collectionID, userID string) (*domain.Collection, error) {
	c, ok := f[collectionID]
	if !ok || c.UserID != userID {
		return nil, fmt.Errorf("collection %w", domain.ErrNotFound)
	}

	return c, nil
}

type mockRetriever struct {
	retrieveFunc func(ctx context.Context, session *domain.ChatSession, query string) ([]domain.Source, error)
}

func (m *mockRetriever) Retrieve(ctx context.Context, session *domain.ChatSession, query string) ([]domain.Source, error) {
	if m.retrieveFunc != nil {
		return m.retrieveFunc(ctx, session, query)
	}

	return []domain.Source{{Content: "chunk", Score: 0.9, Metadata: domain.ChunkMetadata{DocumentID: "doc-1"}}}, nil
}

type mockGenerator struct {
	mu       sync.Mutex
	requests []agent.GenerateRequest

	generateFunc func(ctx context.Context, req agent.GenerateRequest) (*agent.GenerateResponse, error)
}

func (m *mockGenerator) Generate(ctx context.Context, req agent.GenerateRequest) (*agent.GenerateResponse, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	if m.generateFunc != nil {
		return m.generateFunc(ctx, req)
	}

	return &agent.GenerateResponse{
		Content:  "answer to " + req.UserMessage,
		Sources:  req.Sources,
		LLMUsed:  llm.Name(req.Session.LLMModel),
		Attempts: 1,
	}, nil
}

func (m *mockGenerator) last() agent.GenerateRequest {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.requests[len(m.requests)-1]
}

type fakeBackends []llm.Name

func (f fakeBackends) Has(name string) bool {
	return slices.Contains(f, llm.Name(name))
}

func (f fakeBackends) Default() llm.Name {
	return f[0]
}

type mockSpeech struct {
	mu             sync.Mutex
	synthesizeCall int
	translateCall  int

	synthesizeFunc func(ctx context.Context, text, voice string) (string, error)
	translateFunc  func(ctx context.Context, text, targetLang string) (string, error)
}

func (m *mockSpeech) Synthesize(ctx context.Context, text, voice string) (string, error) {
	m.mu.Lock()
	m.synthesizeCall++
	m.mu.Unlock()

	if m.synthesizeFunc != nil {
		return m.synthesizeFunc(ctx, text, voice)
	}

	return "/audio/" + voice + ".mp3", nil
}

func (m *mockSpeech) Translate(ctx context.Context, text, targetLang string) (string, error) {
	m.mu.Lock()
	m.translateCall++
	m.mu.Unlock()

	if m.translateFunc != nil {
		return m.translateFunc(ctx, text, targetLang)
	}

	return "[" + targetLang + "] " + text, nil
}

func (m *mockSpeech) Languages(context.Context) ([]speech.Language, error) {
	return []speech.Language{{From: "en", To: "hi", Name: "English → Hindi"}}, nil
}

type harness struct {
	svc       *Service
	repo      *fakeRepo
	retriever *mockRetriever
	generator *mockGenerator
	speech    *mockSpeech
}

func newHarness() *harness {
	h := &harness{
		repo:      newFakeRepo(),
		retriever: &mockRetriever{},
		generator: &mockGenerator{},
		speech:    &mockSpeech{},
	}

	collections := fakeCollections{
		"col-1": {ID: "col-1", UserID: "user-1", Name: "docs"},
	}

	h.svc = NewService(h.repo, collections, h.retriever, h.generator,
		fakeBackends{llm.OllamaLocal, llm.OpenAI}, h.speech, nil, Options{HistoryLimit: 10})

	return h
}
