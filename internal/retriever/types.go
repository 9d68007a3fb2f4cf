package retriever

import (
	"context"
	"time"

	"codeberg.org/docuchat/server/internal/domain"
	"codeberg.org/docuchat/server/internal/embedder"
	"codeberg.org/docuchat/server/internal/retry"
	"codeberg.org/docuchat/server/internal/vectorstore"
)

type CollectionStore interface {
	GetByID(ctx context.Context, collectionID string) (*domain.Collection, error)
	CountCompleted(ctx context.Context, collectionID string) (int, error)
}

type EmbedderSource interface {
	Get(model string) (*embedder.Embedder, error)
}

type Options struct {
	VectorTimeout time.Duration
	Retry         retry.Policy
}

// ranks collection chunks against a query
type Engine struct {
	collections CollectionStore
	embedders   EmbedderSource
	store       vectorstore.Store
	opts        Options
}

type Query struct {
	CollectionID string
	Text         string
	TopK         int
	Filter       map[string]string
}
