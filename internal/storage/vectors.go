package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"

	"codeberg.org/docuchat/server/internal/domain"
	"codeberg.org/docuchat/server/internal/logger"
	"codeberg.org/docuchat/server/internal/vectorstore"
)

var _ vectorstore.Store = (*Client)(nil)

func (c *Client) EnsureCollection(ctx context.Context, collection string, dimension int) error {
	if _, err := c.pool.Exec(ctx, ensureVectorCollectionQuery, collection, dimension); err != nil {
		return &domain.VectorStoreError{Op: "ensure_collection", Collection: collection, Err: err}
	}

	stored, err := c.loadDimension(ctx, collection)
	if err != nil {
		return err
	}

	if stored != dimension {
		return &domain.DimensionMismatchError{Collection: collection, Expected: stored, Got: dimension}
	}

	return nil
}

func (c *Client) loadDimension(ctx context.Context, collection string) (int, error) {
	var dim int

	err := c.pool.QueryRow(ctx, getVectorCollectionDimensionQuery, collection).Scan(&dim)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, &domain.VectorStoreError{Op: "dimension", Collection: collection, Err: fmt.Errorf("collection %w", domain.ErrNotFound)}
	}

	if err != nil {
		return 0, &domain.VectorStoreError{Op: "dimension", Collection: collection, Err: err}
	}

	c.mu.Lock()
	c.dims[collection] = dim
	c.mu.Unlock()

	return dim, nil
}

func (c *Client) dimension(ctx context.Context, collection string) (int, error) {
	c.mu.RLock()
	dim, ok := c.dims[collection]
	c.mu.RUnlock()

	if ok {
		return dim, nil
	}

	return c.loadDimension(ctx, collection)
}

// upserts entries in one transaction so a batch lands completely or not at all
func (c *Client) Upsert(ctx context.Context, collection string, entries []domain.VectorEntry) error {
	if len(entries) == 0 {
		return nil
	}

	dim, err := c.dimension(ctx, collection)
	if err != nil {
		return err
	}

	for _, e := range entries {
		if err := vectorstore.CheckDimension(collection, dim, e.Vector); err != nil {
			return err
		}
	}

	if err := c.upsertBatch(ctx, collection, entries); err != nil {
		return &domain.VectorStoreError{Op: "upsert", Collection: collection, Err: err}
	}

	return nil
}

func (c *Client) upsertBatch(ctx context.Context, collection string, entries []domain.VectorEntry) error {
	tx, err := c.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	// defer rollback - will be no-op if commit succeeds
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			logger.Warn("failed to rollback transaction", "error", err)
		}
	}()

	batch := &pgx.Batch{}

	for _, e := range entries {
		metadata, err := json.Marshal(e.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal metadata for %s: %w", e.ID, err)
		}

		batch.Queue(upsertChunkQuery,
			collection,
			e.ID,
			e.Metadata.DocumentID,
			e.Metadata.ChunkIndex,
			e.Content,
			string(metadata),
			pgvector.NewVector(e.Vector),
		)
	}

	br := tx.SendBatch(ctx, batch)

	for i := range entries {
		if _, err := br.Exec(); err != nil {
			br.Close() //nolint:errcheck,gosec // G104: error path cleanup
			return fmt.Errorf("failed to upsert chunk %d: %w", i, err)
		}
	}

	// must close batch results before committing, otherwise connection is still "busy"
	if err := br.Close(); err != nil {
		return fmt.Errorf("failed to close batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// a single statement, so the document's vectors go all together
func (c *Client) DeleteDocument(ctx context.Context, collection, documentID string) error {
	if _, err := c.pool.Exec(ctx, deleteDocumentChunksQuery, collection, documentID); err != nil {
		return &domain.VectorStoreError{Op: "delete", Collection: collection, Err: err}
	}

	return nil
}

func (c *Client) CountDocument(ctx context.Context, collection, documentID string) (int, error) {
	var count int

	if err := c.pool.QueryRow(ctx, countDocumentChunksQuery, collection, documentID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count chunks: %w", err)
	}

	return count, nil
}

func (c *Client) Count(ctx context.Context, collection string) (int, error) {
	var count int

	if err := c.pool.QueryRow(ctx, countCollectionChunksQuery, collection).Scan(&count); err != nil {
		return 0, &domain.VectorStoreError{Op: "count", Collection: collection, Err: err}
	}

	return count, nil
}

func (c *Client) Search(ctx context.Context, collection string, query []float32, topK int, filter map[string]string) ([]domain.Hit, error) {
	if err := vectorstore.CheckTopK(topK); err != nil {
		return nil, err
	}

	dim, err := c.dimension(ctx, collection)
	if err != nil {
		return nil, err
	}

	if err := vectorstore.CheckDimension(collection, dim, query); err != nil {
		return nil, err
	}

	filterJSON, err := json.Marshal(domain.TypedFilter(filter))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal filter: %w", err)
	}

	rows, err := c.pool.Query(ctx, searchChunksQuery, collection, pgvector.NewVector(query), topK, string(filterJSON))
	if err != nil {
		return nil, &domain.VectorStoreError{Op: "search", Collection: collection, Err: fmt.Errorf("failed to execute search query: %w", err)}
	}
	defer rows.Close()

	var hits []domain.Hit

	for rows.Next() {
		var (
			hit      domain.Hit
			metadata []byte
			score    float64
		)

		if err := rows.Scan(&hit.ID, &hit.Content, &metadata, &score); err != nil {
			return nil, &domain.VectorStoreError{Op: "search", Collection: collection, Err: fmt.Errorf("failed to scan row: %w", err)}
		}

		if err := json.Unmarshal(metadata, &hit.Metadata); err != nil {
			return nil, &domain.VectorStoreError{Op: "search", Collection: collection, Err: fmt.Errorf("failed to decode metadata: %w", err)}
		}

		hit.Score = float32(score)
		hits = append(hits, hit)
	}

	if err := rows.Err(); err != nil {
		return nil, &domain.VectorStoreError{Op: "search", Collection: collection, Err: fmt.Errorf("error iterating rows: %w", err)}
	}

	// float32 rounding can merge scores postgres saw as distinct
	vectorstore.SortHits(hits)

	return hits, nil
}

func (c *Client) DeleteCollection(ctx context.Context, collection string) error {
	c.mu.Lock()
	delete(c.dims, collection)
	c.mu.Unlock()

	if _, err := c.pool.Exec(ctx, deleteVectorCollectionQuery, collection); err != nil {
		return &domain.VectorStoreError{Op: "delete_collection", Collection: collection, Err: err}
	}

	return nil
}
