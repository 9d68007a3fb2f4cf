package library

import (
	"context"
	"fmt"
	"strings"

	"codeberg.org/docuchat/server/docuchat/collections"
	"codeberg.org/docuchat/server/internal/domain"
	"codeberg.org/docuchat/server/internal/embedder"
	"codeberg.org/docuchat/server/internal/logger"
)

type CollectionStore interface {
	Create(ctx context.Context, userID string, req collections.CreateCollectionRequest, dimension int) (*domain.Collection, error)
	Get(ctx context.Context, collectionID, userID string) (*domain.Collection, error)
	GetByName(ctx context.Context, userID, name string) (*domain.Collection, error)
	List(ctx context.Context, userID string, limit, offset int) ([]domain.Collection, int, error)
	Update(ctx context.Context, collectionID, userID string, req collections.UpdateCollectionRequest) (*domain.Collection, error)
	Stats(ctx context.Context, collectionID string) (domain.CollectionStats, error)
	Delete(ctx context.Context, collectionID, userID string) error
}

type DocumentStore interface {
	Get(ctx context.Context, documentID string) (*domain.Document, error)
	ListByCollection(ctx context.Context, collectionID string, limit, offset int) ([]domain.Document, int, error)
}

type EmbedderSource interface {
	Get(model string) (*embedder.Embedder, error)
	Default() string
}

type VectorCounter interface {
	Count(ctx context.Context, collection string) (int, error)
}

// drops vectors, running jobs and stored files of a collection
type Purger interface {
	PurgeCollection(ctx context.Context, collectionID string) error
}

// owner-scoped access to collections and their documents
type Service struct {
	collections CollectionStore
	documents   DocumentStore
	embedders   EmbedderSource
	vectors     VectorCounter
	purger      Purger
}

func NewService(collections CollectionStore, documents DocumentStore, embedders EmbedderSource, vectors VectorCounter, purger Purger) *Service {
	return &Service{
		collections: collections,
		documents:   documents,
		embedders:   embedders,
		vectors:     vectors,
		purger:      purger,
	}
}

// fixes the embedding model and its probed dimension for the collection's lifetime
func (s *Service) Create(ctx context.Context, userID string, req collections.CreateCollectionRequest) (*domain.Collection, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return nil, &domain.ValidationError{Field: "name", Reason: "must not be empty"}
	}

	if req.EmbeddingModel == "" {
		req.EmbeddingModel = s.embedders.Default()
	}

	emb, err := s.embedders.Get(req.EmbeddingModel)
	if err != nil {
		return nil, err
	}

	dimension, err := emb.Dimension(ctx)
	if err != nil {
		return nil, err
	}

	c, err := s.collections.Create(ctx, userID, req, dimension)
	if err != nil {
		return nil, err
	}

	logger.Info("collection created",
		"collection_id", c.ID,
		"embedding_model", c.EmbeddingModel,
		"dimension", c.Dimension,
	)

	return c, nil
}

func (s *Service) Get(ctx context.Context, collectionID, userID string) (*domain.Collection, error) {
	return s.collections.Get(ctx, collectionID, userID)
}

func (s *Service) GetByName(ctx context.Context, userID, name string) (*domain.Collection, error) {
	return s.collections.GetByName(ctx, userID, name)
}

func (s *Service) List(ctx context.Context, userID string, limit, offset int) ([]domain.Collection, int, error) {
	return s.collections.List(ctx, userID, limit, offset)
}

// renames or redescribes a collection. the embedding model never changes.
func (s *Service) Update(ctx context.Context, collectionID, userID string, req collections.UpdateCollectionRequest) (*domain.Collection, error) {
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, &domain.ValidationError{Field: "name", Reason: "must not be empty"}
		}

		req.Name = &name
	}

	return s.collections.Update(ctx, collectionID, userID, req)
}

func (s *Service) Stats(ctx context.Context, collectionID, userID string) (domain.CollectionStats, error) {
	if _, err := s.collections.Get(ctx, collectionID, userID); err != nil {
		return domain.CollectionStats{}, err
	}

	stats, err := s.collections.Stats(ctx, collectionID)
	if err != nil {
		return domain.CollectionStats{}, err
	}

	stats.VectorCount, err = s.vectors.Count(ctx, collectionID)
	if err != nil {
		return domain.CollectionStats{}, err
	}

	return stats, nil
}

// purges derived state first so a failed purge leaves the collection
// in place to retry
func (s *Service) Delete(ctx context.Context, collectionID, userID string) error {
	if _, err := s.collections.Get(ctx, collectionID, userID); err != nil {
		return err
	}

	if err := s.purger.PurgeCollection(ctx, collectionID); err != nil {
		return fmt.Errorf("failed to purge collection: %w", err)
	}

	if err := s.collections.Delete(ctx, collectionID, userID); err != nil {
		return err
	}

	logger.Info("collection deleted", "collection_id", collectionID)
	return nil
}

func (s *Service) Documents(ctx context.Context, collectionID, userID string, limit, offset int) ([]domain.Document, int, error) {
	if _, err := s.collections.Get(ctx, collectionID, userID); err != nil {
		return nil, 0, err
	}

	return s.documents.ListByCollection(ctx, collectionID, limit, offset)
}

// loads a document only when its collection belongs to userID
func (s *Service) Document(ctx context.Context, documentID, userID string) (*domain.Document, error) {
	doc, err := s.documents.Get(ctx, documentID)
	if err != nil {
		return nil, err
	}

	if _, err := s.collections.Get(ctx, doc.CollectionID, userID); err != nil {
		return nil, fmt.Errorf("document %w", domain.ErrNotFound)
	}

	return doc, nil
}
