package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"sync"

	"github.com/philippgille/chromem-go"

	"codeberg.org/docuchat/server/internal/domain"
)

const dimensionKey = "dimension"

// vectors are always supplied by the pipeline
var errNoEmbeddingFunc = errors.New("chromem collections are queried by embedding only")

func noEmbedding(context.Context, string) ([]float32, error) {
	return nil, errNoEmbeddingFunc
}

type ChromemConfig struct {
	Persistent bool
	Path       string
	Compress   bool
}

// embedded store backed by chromem-go, optionally persisted to disk
type ChromemStore struct {
	db *chromem.DB

	mu   sync.Mutex
	dims map[string]int
}

func NewChromemStore(cfg ChromemConfig) (*ChromemStore, error) {
	var db *chromem.DB
	if !cfg.Persistent {
		db = chromem.NewDB()
	} else {
		d, err := chromem.NewPersistentDB(cfg.Path, cfg.Compress)
		if err != nil {
			return nil, fmt.Errorf("failed to open chromem db: %w", err)
		}

		db = d
	}

	return &ChromemStore{db: db, dims: make(map[string]int)}, nil
}

func (s *ChromemStore) EnsureCollection(ctx context.Context, collection string, dimension int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if d, ok := s.dims[collection]; ok {
		if d != dimension {
			return &domain.DimensionMismatchError{Collection: collection, Expected: d, Got: dimension}
		}
		return nil
	}

	c, err := s.db.GetOrCreateCollection(collection, map[string]string{dimensionKey: strconv.Itoa(dimension)}, noEmbedding)
	if err != nil {
		return &domain.VectorStoreError{Op: "ensure_collection", Collection: collection, Err: err}
	}

	// a collection loaded from disk keeps the dimension it was created with
	if err := probeDimension(ctx, c, dimension); err != nil {
		return err
	}

	s.dims[collection] = dimension

	return nil
}

func (s *ChromemStore) collection(name, op string) (*chromem.Collection, int, error) {
	s.mu.Lock()
	dim, ok := s.dims[name]
	s.mu.Unlock()

	c := s.db.GetCollection(name, noEmbedding)
	if !ok || c == nil {
		return nil, 0, &domain.VectorStoreError{Op: op, Collection: name, Err: fmt.Errorf("collection %w", domain.ErrNotFound)}
	}

	return c, dim, nil
}

func (s *ChromemStore) Upsert(ctx context.Context, collection string, entries []domain.VectorEntry) error {
	c, dim, err := s.collection(collection, "upsert")
	if err != nil {
		return err
	}

	if err := CheckDimension(collection, dim, entryVectors(entries)...); err != nil {
		return err
	}

	docs := make([]chromem.Document, len(entries))
	for i, e := range entries {
		docs[i] = chromem.Document{
			ID:        e.ID,
			Metadata:  e.Metadata.ToMap(),
			Embedding: append([]float32(nil), e.Vector...),
			Content:   e.Content,
		}
	}

	if err := c.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return &domain.VectorStoreError{Op: "upsert", Collection: collection, Err: err}
	}

	return nil
}

func (s *ChromemStore) DeleteDocument(ctx context.Context, collection, documentID string) error {
	c := s.db.GetCollection(collection, noEmbedding)
	if c == nil {
		return nil
	}

	if err := c.Delete(ctx, map[string]string{"document_id": documentID}, nil); err != nil {
		return &domain.VectorStoreError{Op: "delete", Collection: collection, Err: err}
	}

	return nil
}

func (s *ChromemStore) Search(ctx context.Context, collection string, query []float32, topK int, filter map[string]string) ([]domain.Hit, error) {
	if err := CheckTopK(topK); err != nil {
		return nil, err
	}

	c, dim, err := s.collection(collection, "search")
	if err != nil {
		return nil, err
	}

	if err := CheckDimension(collection, dim, query); err != nil {
		return nil, err
	}

	// chromem rejects n larger than the collection
	n := min(OverFetch(topK), c.Count())
	if n == 0 {
		return nil, nil
	}

	var where map[string]string
	if len(filter) > 0 {
		where = filter
	}

	results, err := c.QueryEmbedding(ctx, query, n, where, nil)
	if err != nil {
		return nil, &domain.VectorStoreError{Op: "search", Collection: collection, Err: err}
	}

	hits := make([]domain.Hit, len(results))
	for i, r := range results {
		hits[i] = domain.Hit{
			ID:       r.ID,
			Score:    r.Similarity,
			Content:  r.Content,
			Metadata: domain.ChunkMetadataFromMap(r.Metadata),
		}
	}

	return TopK(hits, topK), nil
}

func (s *ChromemStore) Count(_ context.Context, collection string) (int, error) {
	c := s.db.GetCollection(collection, noEmbedding)
	if c == nil {
		return 0, nil
	}

	return c.Count(), nil
}

func (s *ChromemStore) DeleteCollection(_ context.Context, collection string) error {
	s.mu.Lock()
	delete(s.dims, collection)
	s.mu.Unlock()

	if err := s.db.DeleteCollection(collection); err != nil {
		return &domain.VectorStoreError{Op: "delete_collection", Collection: collection, Err: err}
	}

	return nil
}

// checks stored vectors against dimension by fetching the nearest one
func probeDimension(ctx context.Context, c *chromem.Collection, dimension int) error {
	if c.Count() == 0 {
		return nil
	}

	probe := make([]float32, dimension)
	for i := range probe {
		probe[i] = 1
	}

	// chromem refuses to compare vectors of different lengths
	res, err := c.QueryEmbedding(ctx, probe, 1, nil, nil)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &domain.DimensionMismatchError{Collection: c.Name, Got: dimension}
	}

	if len(res) == 1 && len(res[0].Embedding) != dimension {
		return &domain.DimensionMismatchError{Collection: c.Name, Expected: len(res[0].Embedding), Got: dimension}
	}

	return nil
}
