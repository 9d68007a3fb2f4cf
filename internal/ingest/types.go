package ingest

import (
	"context"
	"errors"
	"time"

	"codeberg.org/docuchat/server/internal/chunker"
	"codeberg.org/docuchat/server/internal/domain"
	"codeberg.org/docuchat/server/internal/embedder"
	"codeberg.org/docuchat/server/internal/retry"
)

var (
	// cancellation causes, reported in the failed document's error message
	ErrShutdown = errors.New("interrupted by shutdown")
	ErrDeleted  = errors.New("document deleted")
)

// persistence of document lifecycle state
type DocumentStore interface {
	Create(ctx context.Context, doc *domain.Document) (*domain.Document, error)
	Get(ctx context.Context, documentID string) (*domain.Document, error)
	ListIDsByCollection(ctx context.Context, collectionID string) ([]string, error)
	Claim(ctx context.Context, documentID, token string) (*domain.Document, error)
	Complete(ctx context.Context, documentID, token string, chunkCount int) error
	Fail(ctx context.Context, documentID, token, message string) error
	Reset(ctx context.Context, documentID string) error
	ResetStale(ctx context.Context) ([]string, error)
	ListPending(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, documentID string) error
}

type CollectionStore interface {
	GetByID(ctx context.Context, collectionID string) (*domain.Collection, error)
}

type Extractor interface {
	Supports(filename string) bool
	Extract(ctx context.Context, path string) (string, error)
}

type EmbedderSource interface {
	Get(model string) (*embedder.Embedder, error)
}

// hands a pending document to whatever runs Pipeline.Process
type Dispatcher interface {
	Dispatch(ctx context.Context, documentID string) error
}

type Options struct {
	Chunking       chunker.Options
	UpsertBatch    int
	ExtractTimeout time.Duration
	VectorTimeout  time.Duration
	Retry          retry.Policy
	// attempts for removing a document's vectors before giving up
	RollbackAttempts int
}

func DefaultOptions() Options {
	return Options{
		Chunking:         chunker.DefaultOptions(),
		UpsertBatch:      10,
		ExtractTimeout:   30 * time.Second,
		VectorTimeout:    15 * time.Second,
		Retry:            retry.Default,
		RollbackAttempts: 3,
	}
}

// a document being processed by this process
type job struct {
	cancel context.CancelCauseFunc
	done   chan struct{}
}
