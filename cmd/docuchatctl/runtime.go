package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"codeberg.org/docuchat/server/docuchat/collections"
	"codeberg.org/docuchat/server/docuchat/documents"
	"codeberg.org/docuchat/server/internal/chunker"
	"codeberg.org/docuchat/server/internal/config"
	"codeberg.org/docuchat/server/internal/domain"
	"codeberg.org/docuchat/server/internal/embedder"
	"codeberg.org/docuchat/server/internal/extractor"
	"codeberg.org/docuchat/server/internal/ingest"
	"codeberg.org/docuchat/server/internal/library"
	"codeberg.org/docuchat/server/internal/logger"
	"codeberg.org/docuchat/server/internal/retriever"
	"codeberg.org/docuchat/server/internal/retry"
	"codeberg.org/docuchat/server/internal/storage"
)

// the server's ingestion and retrieval stack without HTTP in front of it
type runtime struct {
	db        *pgxpool.Pool
	documents *documents.Repository
	library   *library.Service
	ingest    *ingest.Service
	retriever *retriever.Engine
	allowed   []string
}

func openRuntime(ctx context.Context) (*runtime, error) {
	cfg, err := config.LoadEnvironmentVariables()
	if err != nil {
		return nil, err
	}

	db, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create database pool: %w", err)
	}

	if err := storage.Migrate(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	p := cfg.Pipeline
	policy := retry.Policy{Attempts: retry.Default.Attempts, Backoff: p.RetryBackoff}

	store, err := storage.OpenVectorStore(cfg.VectorStore, db, p.VectorTimeout)
	if err != nil {
		db.Close()
		return nil, err
	}

	embedders := embedder.NewRegistryFromEnv(embedder.Options{
		BatchSize: p.EmbedBatchSize,
		Timeout:   p.EmbedTimeout,
		Retry:     policy,
	})

	collectionRepo := collections.NewRepository(db)
	documentRepo := documents.NewRepository(db)

	opts := ingest.DefaultOptions()
	opts.Chunking = chunker.Options{Size: p.ChunkSize, Overlap: p.ChunkOverlap}
	opts.UpsertBatch = p.EmbedBatchSize
	opts.ExtractTimeout = p.ExtractTimeout
	opts.VectorTimeout = p.VectorTimeout
	opts.Retry = policy

	pipeline := ingest.NewPipeline(documentRepo, collectionRepo, extractor.New(), embedders, store, opts)

	files, err := ingest.NewFileStore(cfg.UploadDir)
	if err != nil {
		db.Close()
		return nil, err
	}

	ingestService := ingest.NewService(pipeline, documentRepo, files, inlineDispatcher{process: pipeline.Process}, ingest.ServiceOptions{
		MaxUploadBytes:    p.MaxUploadBytes,
		AllowedExtensions: p.AllowedExtensions,
	})

	return &runtime{
		db:        db,
		documents: documentRepo,
		library:   library.NewService(collectionRepo, documentRepo, embedders, store, ingestService),
		ingest:    ingestService,
		retriever: retriever.NewEngine(collectionRepo, embedders, store, retriever.Options{VectorTimeout: p.VectorTimeout, Retry: policy}),
		allowed:   p.AllowedExtensions,
	}, nil
}

func (r *runtime) Close() {
	r.db.Close()
}

// resolves a collection by name, creating it when asked to
func (r *runtime) collection(ctx context.Context, userID, name string, create bool) (*domain.Collection, error) {
	col, err := r.library.GetByName(ctx, userID, name)
	if err == nil || !create || !errors.Is(err, domain.ErrNotFound) {
		return col, err
	}

	col, err = r.library.Create(ctx, userID, collections.CreateCollectionRequest{Name: name})
	if err != nil {
		return nil, err
	}

	logger.Info("collection created", "collection_id", col.ID, "name", col.Name)
	return col, nil
}

// runs the pipeline in the calling goroutine so an upload returns once
// its document reached a terminal status
type inlineDispatcher struct {
	process func(ctx context.Context, documentID string) error
}

func (d inlineDispatcher) Dispatch(ctx context.Context, documentID string) error {
	if err := d.process(ctx, documentID); err != nil {
		logger.Debug("document processing ended with error", "document_id", documentID, "error", err)
	}

	return nil
}
