package ingest

import (
	"context"
	"errors"
	"sync"

	"codeberg.org/docuchat/server/internal/domain"
	"codeberg.org/docuchat/server/internal/logger"
)

var ErrPoolStopped = errors.New("ingestion pool stopped")

// processes dispatched documents on a fixed number of workers
type Pool struct {
	process func(ctx context.Context, documentID string) error
	workers int
	queue   chan string

	ctx    context.Context
	cancel context.CancelCauseFunc
	wg     sync.WaitGroup
	once   sync.Once
}

// creates a pool; queueSize bounds documents waiting for a worker
func NewPool(process func(ctx context.Context, documentID string) error, workers, queueSize int) *Pool {
	ctx, cancel := context.WithCancelCause(context.Background())

	return &Pool{
		process: process,
		workers: max(workers, 1),
		queue:   make(chan string, max(queueSize, 1)),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// begins the worker loops
func (p *Pool) Start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.run(i)
	}

	logger.Info("ingestion pool started", "workers", p.workers, "queue_size", cap(p.queue))
}

// cancels in-flight documents and waits for the workers to roll them back
func (p *Pool) Stop() {
	p.once.Do(func() {
		p.cancel(ErrShutdown)
		p.wg.Wait()
		logger.Info("ingestion pool stopped")
	})
}

// queues a document, blocking while the queue is full
func (p *Pool) Dispatch(ctx context.Context, documentID string) error {
	select {
	case <-p.ctx.Done():
		return ErrPoolStopped
	default:
	}

	select {
	case p.queue <- documentID:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-p.ctx.Done():
		return ErrPoolStopped
	}
}

func (p *Pool) run(worker int) {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case documentID := <-p.queue:
			p.handle(worker, documentID)
		}
	}
}

func (p *Pool) handle(worker int, documentID string) {
	err := p.process(p.ctx, documentID)

	switch {
	case err == nil:
	case errors.Is(err, domain.ErrAlreadyProcessing), errors.Is(err, domain.ErrInvalidTransition):
		// another worker or replica owns it
		logger.Debug("skipping dispatched document", "document_id", documentID, "reason", err)
	case errors.Is(err, domain.ErrNotFound):
		logger.Debug("dispatched document no longer exists", "document_id", documentID)
	default:
		logger.Debug("dispatched document failed", "document_id", documentID, "worker", worker, "error", err)
	}
}
