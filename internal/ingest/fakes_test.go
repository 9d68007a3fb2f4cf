package ingest

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"codeberg.org/docuchat/server/internal/chunker"
	"codeberg.org/docuchat/server/internal/domain"
	"codeberg.org/docuchat/server/internal/embedder"
	"codeberg.org/docuchat/server/internal/retry"
	"codeberg.org/docuchat/server/internal/vectorstore"
)

// in-memory DocumentStore with the same compare-and-set rules as the repository
type fakeDocs struct {
	mu          sync.Mutex
	docs        map[string]*domain.Document
	transitions map[string][]domain.DocumentStatus
}

func newFakeDocs() *fakeDocs {
	return &fakeDocs{
		docs:        make(map[string]*domain.Document),
		transitions: make(map[string][]domain.DocumentStatus),
	}
}

func (f *fakeDocs) put(doc domain.Document) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if doc.Status == "" {
		doc.Status = domain.StatusPending
	}

	f.docs[doc.ID] = &doc
}

func (f *fakeDocs) setStatus(d *domain.Document, status domain.DocumentStatus) {
	d.Status = status
	f.transitions[d.ID] = append(f.transitions[d.ID], status)
}

func (f *fakeDocs) history(id string) []domain.DocumentStatus {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]domain.DocumentStatus(nil), f.transitions[id]...)
}

func (f *fakeDocs) snapshot(id string) (domain.Document, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	d, ok := f.docs[id]
	if !ok {
		return domain.Document{}, false
	}

	return *d, true
}

func (f *fakeDocs) Create(_ context.Context, doc *domain.Document) (*domain.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	d := *doc
	d.Status = domain.StatusPending
	d.CreatedAt = time.Now()
	f.docs[d.ID] = &d

	out := d
	return &out, nil
}

func (f *fakeDocs) Get(_ context.Context, id string) (*domain.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	d, ok := f.docs[id]
	if !ok {
		return nil, fmt.Errorf("document %w", domain.ErrNotFound)
	}

	out := *d
	return &out, nil
}

func (f *fakeDocs) ListIDsByCollection(_ context.Context, collectionID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var ids []string
	for id, d := range f.docs {
		if d.CollectionID == collectionID {
			ids = append(ids, id)
		}
	}

	return ids, nil
}

func (f *fakeDocs) Claim(_ context.Context, id, token string) (*domain.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	d, ok := f.docs[id]
	if !ok {
		return nil, fmt.Errorf("document %w", domain.ErrNotFound)
	}

	if d.Status != domain.StatusPending {
		return nil, claimStatusError(d.Status)
	}

	f.setStatus(d, domain.StatusProcessing)
	d.ClaimToken = token
	d.ChunkCount = 0
	d.ErrorMessage = ""

	out := *d
	return &out, nil
}

func claimStatusError(status domain.DocumentStatus) error {
	if status == domain.StatusProcessing {
		return domain.ErrAlreadyProcessing
	}

	return domain.ErrInvalidTransition
}

func (f *fakeDocs) finish(id, token string, apply func(*domain.Document)) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	d, ok := f.docs[id]
	if !ok || d.Status != domain.StatusProcessing || d.ClaimToken != token {
		return domain.ErrInvalidTransition
	}

	now := time.Now()
	d.ClaimToken = ""
	d.ProcessedAt = &now
	apply(d)

	return nil
}

func (f *fakeDocs) Complete(_ context.Context, id, token string, chunkCount int) error {
	return f.finish(id, token, func(d *domain.Document) {
		f.setStatus(d, domain.StatusCompleted)
		d.ChunkCount = chunkCount
		d.ErrorMessage = ""
	})
}

func (f *fakeDocs) Fail(_ context.Context, id, token, message string) error {
	return f.finish(id, token, func(d *domain.Document) {
		f.setStatus(d, domain.StatusFailed)
		d.ChunkCount = 0
		d.ErrorMessage = message
	})
}

func (f *fakeDocs) Reset(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	d, ok := f.docs[id]
	if !ok {
		return fmt.Errorf("document %w", domain.ErrNotFound)
	}

	switch d.Status {
	case domain.StatusProcessing:
		return domain.ErrAlreadyProcessing
	case domain.StatusFailed, domain.StatusCompleted:
		f.setStatus(d, domain.StatusPending)
		d.ErrorMessage = ""
	}

	return nil
}

func (f *fakeDocs) ResetStale(_ context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var ids []string
	for id, d := range f.docs {
		if d.Status == domain.StatusProcessing {
			f.setStatus(d, domain.StatusPending)
			d.ClaimToken = ""
			ids = append(ids, id)
		}
	}

	return ids, nil
}

func (f *fakeDocs) ListPending(_ context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var ids []string
	for id, d := range f.docs {
		if d.Status == domain.StatusPending {
			ids = append(ids, id)
		}
	}

	return ids, nil
}

func (f *fakeDocs) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.docs[id]; !ok {
		return fmt.Errorf("document %w", domain.ErrNotFound)
	}

	delete(f.docs, id)
	return nil
}

type fakeCollections map[string]*domain.Collection

func (f fakeCollections) GetByID(_ context.Context, id string) (*domain.Collection, error) {
	c, ok := f[id]
	if !ok {
		return nil, fmt.Errorf("collection %w", domain.ErrNotFound)
	}

	out := *c
	return &out, nil
}

type mockExtractor struct {
	extractFunc func(ctx context.Context, path string) (string, error)
}

func (m *mockExtractor) Supports(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".txt", ".md", ".pdf":
		return true
	}

	return false
}

func (m *mockExtractor) Extract(ctx context.Context, path string) (string, error) {
	return m.extractFunc(ctx, path)
}

type mockBackend struct {
	mu        sync.Mutex
	calls     int
	embedFunc func(call int, texts []string) ([][]float32, error)
}

func (m *mockBackend) Model() string { return testModel }

func (m *mockBackend) Embed(_ context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	m.calls++
	call := m.calls
	m.mu.Unlock()

	if m.embedFunc != nil {
		return m.embedFunc(call, texts)
	}

	return vectorsFor(texts), nil
}

// deterministic three-dimensional vectors derived from the text
func vectorsFor(texts []string) [][]float32 {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t)%7) + 1, 1, float32(len(t) % 3)}
	}

	return out
}

type recordingDispatcher struct {
	mu  sync.Mutex
	ids []string
}

func (d *recordingDispatcher) Dispatch(_ context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.ids = append(d.ids, id)
	return nil
}

func (d *recordingDispatcher) dispatched() []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	return append([]string(nil), d.ids...)
}

const (
	testModel      = "test-embed"
	testCollection = "col-1"
)

type harness struct {
	docs      *fakeDocs
	store     *vectorstore.MemoryStore
	backend   *mockBackend
	extractor *mockExtractor
	pipeline  *Pipeline
}

func newHarness(t *testing.T, text string) *harness {
	t.Helper()

	h := &harness{
		docs:    newFakeDocs(),
		store:   vectorstore.NewMemoryStore(),
		backend: &mockBackend{},
		extractor: &mockExtractor{extractFunc: func(context.Context, string) (string, error) {
			return text, nil
		}},
	}

	policy := retry.Policy{Attempts: 2, Backoff: time.Millisecond}

	registry := embedder.NewRegistry(testModel)
	registry.Register(embedder.New(h.backend, embedder.Options{
		BatchSize: 2,
		Timeout:   time.Second,
		Retry:     policy,
		Dimension: 3,
	}))

	collections := fakeCollections{
		testCollection: {ID: testCollection, Name: "docs", EmbeddingModel: testModel, Dimension: 3},
	}

	h.pipeline = NewPipeline(h.docs, collections, h.extractor, registry, h.store, Options{
		Chunking:         chunker.Options{Size: 500, Overlap: 100},
		UpsertBatch:      2,
		ExtractTimeout:   time.Second,
		VectorTimeout:    time.Second,
		Retry:            policy,
		RollbackAttempts: 3,
	})

	return h
}

func (h *harness) addDocument(id string) {
	h.docs.put(domain.Document{
		ID:           id,
		CollectionID: testCollection,
		Filename:     id + ".txt",
		FilePath:     "/uploads/" + id + ".txt",
		FileType:     "txt",
	})
}
