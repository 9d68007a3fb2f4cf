package vectorstore

import (
	"context"
	"fmt"
	"math"
	"sync"

	"codeberg.org/docuchat/server/internal/domain"
)

type memCollection struct {
	dimension int
	entries   map[string]domain.VectorEntry
}

// brute-force in-process store for development and tests
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]*memCollection
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string]*memCollection)}
}

func (s *MemoryStore) EnsureCollection(_ context.Context, collection string, dimension int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.collections[collection]; ok {
		if c.dimension != dimension {
			return &domain.DimensionMismatchError{Collection: collection, Expected: c.dimension, Got: dimension}
		}
		return nil
	}

	s.collections[collection] = &memCollection{dimension: dimension, entries: make(map[string]domain.VectorEntry)}

	return nil
}

func (s *MemoryStore) collection(name, op string) (*memCollection, error) {
	c, ok := s.collections[name]
	if !ok {
		return nil, &domain.VectorStoreError{Op: op, Collection: name, Err: fmt.Errorf("collection %w", domain.ErrNotFound)}
	}

	return c, nil
}

func (s *MemoryStore) Upsert(_ context.Context, collection string, entries []domain.VectorEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.collection(collection, "upsert")
	if err != nil {
		return err
	}

	if err := CheckDimension(collection, c.dimension, entryVectors(entries)...); err != nil {
		return err
	}

	for _, e := range entries {
		e.Vector = append([]float32(nil), e.Vector...)
		c.entries[e.ID] = e
	}

	return nil
}

func (s *MemoryStore) DeleteDocument(_ context.Context, collection, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.collections[collection]
	if !ok {
		return nil
	}

	for id, e := range c.entries {
		if e.Metadata.DocumentID == documentID {
			delete(c.entries, id)
		}
	}

	return nil
}

func (s *MemoryStore) Search(_ context.Context, collection string, query []float32, topK int, filter map[string]string) ([]domain.Hit, error) {
	if err := CheckTopK(topK); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	c, err := s.collection(collection, "search")
	if err != nil {
		return nil, err
	}

	if err := CheckDimension(collection, c.dimension, query); err != nil {
		return nil, err
	}

	hits := make([]domain.Hit, 0, len(c.entries))
	for _, e := range c.entries {
		if !e.Metadata.Matches(filter) {
			continue
		}

		hits = append(hits, domain.Hit{
			ID:       e.ID,
			Score:    cosine(query, e.Vector),
			Content:  e.Content,
			Metadata: e.Metadata,
		})
	}

	return TopK(hits, topK), nil
}

func (s *MemoryStore) DeleteCollection(_ context.Context, collection string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.collections, collection)

	return nil
}

func (s *MemoryStore) Count(_ context.Context, collection string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if c, ok := s.collections[collection]; ok {
		return len(c.entries), nil
	}

	return 0, nil
}

// number of vectors stored for a document
func (s *MemoryStore) CountDocument(collection, documentID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.collections[collection]
	if !ok {
		return 0
	}

	n := 0
	for _, e := range c.entries {
		if e.Metadata.DocumentID == documentID {
			n++
		}
	}

	return n
}

// ids stored for a document
func (s *MemoryStore) DocumentIDs(collection, documentID string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []string
	if c, ok := s.collections[collection]; ok {
		for id, e := range c.entries {
			if e.Metadata.DocumentID == documentID {
				ids = append(ids, id)
			}
		}
	}

	return ids
}

func cosine(a, b []float32) float32 {
	var dot, na, nb float64

	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}

	if na == 0 || nb == 0 {
		return 0
	}

	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}
