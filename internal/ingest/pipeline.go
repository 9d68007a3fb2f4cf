package ingest

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"codeberg.org/docuchat/server/internal/chunker"
	"codeberg.org/docuchat/server/internal/domain"
	"codeberg.org/docuchat/server/internal/logger"
	"codeberg.org/docuchat/server/internal/retry"
	"codeberg.org/docuchat/server/internal/vectorstore"
)

const (
	maxTitleLength = 100
	finalizeWindow = 10 * time.Second
)

// runs extract, chunk, embed and upsert for one claimed document at a time
type Pipeline struct {
	docs        DocumentStore
	collections CollectionStore
	extractor   Extractor
	embedders   EmbedderSource
	store       vectorstore.Store
	opts        Options

	mu   sync.Mutex
	jobs map[string]*job
}

func NewPipeline(
	docs DocumentStore,
	collections CollectionStore,
	extractor Extractor,
	embedders EmbedderSource,
	store vectorstore.Store,
	opts Options,
) *Pipeline {
	defaults := DefaultOptions()

	if opts.UpsertBatch <= 0 {
		opts.UpsertBatch = defaults.UpsertBatch
	}

	if opts.ExtractTimeout <= 0 {
		opts.ExtractTimeout = defaults.ExtractTimeout
	}

	if opts.VectorTimeout <= 0 {
		opts.VectorTimeout = defaults.VectorTimeout
	}

	if opts.Retry.Attempts == 0 {
		opts.Retry = defaults.Retry
	}

	if opts.RollbackAttempts <= 0 {
		opts.RollbackAttempts = defaults.RollbackAttempts
	}

	return &Pipeline{
		docs:        docs,
		collections: collections,
		extractor:   extractor,
		embedders:   embedders,
		store:       store,
		opts:        opts,
		jobs:        make(map[string]*job),
	}
}

// claims a pending document and ingests it. a document already being
// processed is rejected with domain.ErrAlreadyProcessing. ingestion
// failures leave the document failed with no vectors and are returned.
func (p *Pipeline) Process(ctx context.Context, documentID string) error {
	jobCtx, j, ok := p.register(ctx, documentID)
	if !ok {
		return domain.ErrAlreadyProcessing
	}
	defer p.unregister(documentID, j)

	token := uuid.NewString()

	doc, err := p.docs.Claim(jobCtx, documentID, token)
	if err != nil {
		return err
	}

	start := time.Now()
	log := logger.With("document_id", doc.ID, "collection", doc.CollectionID)
	log.Info("document processing started", "filename", doc.Filename)

	count, collection, err := p.ingest(jobCtx, doc)
	if err == nil {
		err = p.complete(ctx, doc, collection, token, count)
	}

	if err != nil {
		p.fail(jobCtx, doc, token, err)
		log.Warn("document processing failed",
			"error", err,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return err
	}

	log.Info("document processing completed",
		"chunks", count,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return nil
}

// cancels the job running for documentID, if any, and waits until it has
// rolled back
func (p *Pipeline) Cancel(ctx context.Context, documentID string, cause error) error {
	p.mu.Lock()
	j, ok := p.jobs[documentID]
	p.mu.Unlock()

	if !ok {
		return nil
	}

	j.cancel(cause)

	select {
	case <-j.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// number of documents currently in flight in this process
func (p *Pipeline) Running() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return len(p.jobs)
}

func (p *Pipeline) register(ctx context.Context, documentID string) (context.Context, *job, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, busy := p.jobs[documentID]; busy {
		return nil, nil, false
	}

	jobCtx, cancel := context.WithCancelCause(ctx)
	j := &job{cancel: cancel, done: make(chan struct{})}
	p.jobs[documentID] = j

	return jobCtx, j, true
}

func (p *Pipeline) unregister(documentID string, j *job) {
	p.mu.Lock()
	delete(p.jobs, documentID)
	p.mu.Unlock()

	j.cancel(nil)
	close(j.done)
}

// returns the number of chunks stored for the document
func (p *Pipeline) ingest(ctx context.Context, doc *domain.Document) (int, *domain.Collection, error) {
	collection, err := p.collections.GetByID(ctx, doc.CollectionID)
	if err != nil {
		return 0, nil, err
	}

	emb, err := p.embedders.Get(collection.EmbeddingModel)
	if err != nil {
		return 0, collection, err
	}

	extractCtx, cancel := context.WithTimeout(ctx, p.opts.ExtractTimeout)
	text, err := p.extractor.Extract(extractCtx, doc.FilePath)
	cancel()
	if err != nil {
		return 0, collection, err
	}

	chunks := slices.Collect(chunker.Split(text, p.opts.Chunking))
	if len(chunks) == 0 {
		return 0, collection, &domain.EmptyDocumentError{DocumentID: doc.ID}
	}

	if err := p.vectorCall(ctx, "ensure", collection.ID, func(ctx context.Context) error {
		return p.store.EnsureCollection(ctx, collection.ID, collection.Dimension)
	}); err != nil {
		return 0, collection, err
	}

	// vectors of a previous run are superseded, not merged
	if err := p.removeVectors(ctx, collection.ID, doc.ID); err != nil {
		return 0, collection, err
	}

	title := documentTitle(doc.Filename)

	for start := 0; start < len(chunks); start += p.opts.UpsertBatch {
		batch := chunks[start:min(start+p.opts.UpsertBatch, len(chunks))]

		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Text
		}

		vectors, err := emb.Embed(ctx, texts)
		if err != nil {
			return 0, collection, err
		}

		if err := vectorstore.CheckDimension(collection.ID, collection.Dimension, vectors...); err != nil {
			return 0, collection, err
		}

		entries := make([]domain.VectorEntry, len(batch))
		for i, c := range batch {
			entries[i] = domain.VectorEntry{
				ID:      domain.VectorID(doc.ID, c.Index),
				Vector:  vectors[i],
				Content: c.Text,
				Metadata: domain.ChunkMetadata{
					DocumentID:    doc.ID,
					ChunkIndex:    c.Index,
					TotalChunks:   len(chunks),
					Filename:      doc.Filename,
					Title:         title,
					CollectionID:  collection.ID,
					ContentLength: c.Length,
				},
			}
		}

		if err := p.vectorCall(ctx, "upsert", collection.ID, func(ctx context.Context) error {
			return p.store.Upsert(ctx, collection.ID, entries)
		}); err != nil {
			return 0, collection, err
		}
	}

	return len(chunks), collection, nil
}

// marks the document completed. when the claim was lost meanwhile the
// vectors just written belong to nobody and are removed.
func (p *Pipeline) complete(ctx context.Context, doc *domain.Document, collection *domain.Collection, token string, count int) error {
	finalCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finalizeWindow)
	defer cancel()

	err := p.docs.Complete(finalCtx, doc.ID, token, count)
	if err == nil {
		return nil
	}

	if rbErr := p.removeVectors(finalCtx, collection.ID, doc.ID); rbErr != nil {
		logger.ErrorErr(rbErr, "failed to remove vectors of an unclaimed document", "document_id", doc.ID)
	}

	return err
}

// rolls back partial vectors and records the failure
func (p *Pipeline) fail(jobCtx context.Context, doc *domain.Document, token string, cause error) {
	finalCtx, cancel := context.WithTimeout(context.WithoutCancel(jobCtx), finalizeWindow)
	defer cancel()

	message := failureMessage(jobCtx, cause)

	if err := p.rollback(finalCtx, doc); err != nil {
		logger.ErrorErr(err, "rollback of partial vectors failed", "document_id", doc.ID)
		message += "; cleanup of partial vectors failed, reprocess to retry"
	}

	err := p.docs.Fail(finalCtx, doc.ID, token, message)
	if err != nil && !errors.Is(err, domain.ErrInvalidTransition) && !errors.Is(err, domain.ErrNotFound) {
		logger.ErrorErr(err, "failed to record document failure", "document_id", doc.ID)
	}
}

func (p *Pipeline) rollback(ctx context.Context, doc *domain.Document) error {
	policy := p.opts.Retry
	policy.Attempts = p.opts.RollbackAttempts
	policy.Retryable = func(err error) bool {
		return !errors.Is(err, domain.ErrNotFound)
	}

	_, err := retry.Do(ctx, policy, func(ctx context.Context) error {
		return p.removeVectors(ctx, doc.CollectionID, doc.ID)
	})

	// a collection that never got created holds nothing to roll back
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}

	return err
}

func (p *Pipeline) removeVectors(ctx context.Context, collection, documentID string) error {
	return p.vectorCall(ctx, "delete", collection, func(ctx context.Context) error {
		return p.store.DeleteDocument(ctx, collection, documentID)
	})
}

// bounds a vector store call by the vector timeout and retries it once
// on transient failures
func (p *Pipeline) vectorCall(ctx context.Context, op, collection string, fn func(context.Context) error) error {
	_, err := retry.Do(ctx, p.opts.Retry, func(ctx context.Context) error {
		callCtx, cancel := context.WithTimeout(ctx, p.opts.VectorTimeout)
		defer cancel()

		return fn(callCtx)
	})

	if err == nil {
		return nil
	}

	var vsErr *domain.VectorStoreError
	var dimErr *domain.DimensionMismatchError

	if errors.As(err, &vsErr) || errors.As(err, &dimErr) || errors.Is(err, context.Canceled) {
		return err
	}

	return &domain.VectorStoreError{Op: op, Collection: collection, Err: err}
}

func failureMessage(jobCtx context.Context, err error) string {
	if cause := context.Cause(jobCtx); errors.Is(cause, ErrShutdown) || errors.Is(cause, ErrDeleted) {
		return cause.Error()
	}

	var empty *domain.EmptyDocumentError
	if errors.As(err, &empty) {
		return empty.Error()
	}

	return fmt.Sprintf("processing failed: %v", err)
}

// filename without extension, capped for display
func documentTitle(filename string) string {
	title := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))

	if utf8.RuneCountInString(title) <= maxTitleLength {
		return title
	}

	runes := []rune(title)
	return string(runes[:maxTitleLength-3]) + "..."
}
