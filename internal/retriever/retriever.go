package retriever

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"codeberg.org/docuchat/server/internal/domain"
	"codeberg.org/docuchat/server/internal/logger"
	"codeberg.org/docuchat/server/internal/retry"
	"codeberg.org/docuchat/server/internal/vectorstore"
)

func NewEngine(collections CollectionStore, embedders EmbedderSource, store vectorstore.Store, opts Options) *Engine {
	if opts.VectorTimeout <= 0 {
		opts.VectorTimeout = 15 * time.Second
	}

	if opts.Retry.Attempts == 0 {
		opts.Retry = retry.Default
	}

	return &Engine{
		collections: collections,
		embedders:   embedders,
		store:       store,
		opts:        opts,
	}
}

// returns at most session.TopK sources from the session's collection,
// best first. a collection without completed documents is rejected with
// domain.ErrNoCompletedDocuments.
func (e *Engine) Retrieve(ctx context.Context, session *domain.ChatSession, query string) ([]domain.Source, error) {
	hits, err := e.Search(ctx, Query{
		CollectionID: session.CollectionID,
		Text:         query,
		TopK:         session.TopK,
	})
	if err != nil {
		return nil, err
	}

	return domain.SourcesFromHits(hits), nil
}

// embeds the query with the collection's model and searches its index
func (e *Engine) Search(ctx context.Context, q Query) ([]domain.Hit, error) {
	if err := vectorstore.CheckTopK(q.TopK); err != nil {
		return nil, err
	}

	if strings.TrimSpace(q.Text) == "" {
		return nil, &domain.ValidationError{Field: "query", Reason: "must not be empty"}
	}

	collection, err := e.collections.GetByID(ctx, q.CollectionID)
	if err != nil {
		return nil, err
	}

	completed, err := e.collections.CountCompleted(ctx, collection.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to count completed documents: %w", err)
	}

	if completed == 0 {
		return nil, fmt.Errorf("%w in collection %s", domain.ErrNoCompletedDocuments, collection.Name)
	}

	emb, err := e.embedders.Get(collection.EmbeddingModel)
	if err != nil {
		return nil, err
	}

	vector, err := emb.EmbedQuery(ctx, q.Text)
	if err != nil {
		return nil, err
	}

	if err := vectorstore.CheckDimension(collection.ID, collection.Dimension, vector); err != nil {
		return nil, err
	}

	var hits []domain.Hit

	_, err = retry.Do(ctx, e.opts.Retry, func(ctx context.Context) error {
		callCtx, cancel := context.WithTimeout(ctx, e.opts.VectorTimeout)
		defer cancel()

		// adapters learn the dimension of indexes created by an earlier process
		if err := e.store.EnsureCollection(callCtx, collection.ID, collection.Dimension); err != nil {
			return err
		}

		found, err := e.store.Search(callCtx, collection.ID, vector, q.TopK, q.Filter)
		if err != nil {
			return err
		}

		hits = found
		return nil
	})
	if err != nil {
		return nil, wrapStoreError(collection.ID, err)
	}

	vectorstore.SortHits(hits)
	hits = vectorstore.TopK(uniqueHits(hits), q.TopK)

	logger.Debug("retrieved chunks",
		"collection", collection.ID,
		"top_k", q.TopK,
		"hits", len(hits),
	)

	return hits, nil
}

// drops repeated (document_id, chunk_index) pairs, keeping the first
// and therefore best ranked one
func uniqueHits(hits []domain.Hit) []domain.Hit {
	type key struct {
		doc   string
		index int
	}

	seen := make(map[key]bool, len(hits))
	out := hits[:0]

	for _, h := range hits {
		k := key{h.Metadata.DocumentID, h.Metadata.ChunkIndex}
		if seen[k] {
			continue
		}

		seen[k] = true
		out = append(out, h)
	}

	return out
}

func wrapStoreError(collection string, err error) error {
	var vsErr *domain.VectorStoreError
	var dimErr *domain.DimensionMismatchError

	if errors.As(err, &vsErr) || errors.As(err, &dimErr) || errors.Is(err, context.Canceled) {
		return err
	}

	return &domain.VectorStoreError{Op: "search", Collection: collection, Err: err}
}
