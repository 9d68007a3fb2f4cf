package embedder

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"codeberg.org/docuchat/server/internal/domain"
	"codeberg.org/docuchat/server/internal/retry"
)

// a concrete embedding service; one call embeds one batch
type Backend interface {
	Model() string
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

type Options struct {
	BatchSize int
	Timeout   time.Duration // per backend call
	Retry     retry.Policy
	Dimension int // known vector size, 0 to probe on first use
}

func DefaultOptions() Options {
	return Options{
		BatchSize: 10,
		Timeout:   30 * time.Second,
		Retry:     retry.Default,
	}
}

// wraps a Backend with batching, timeouts, one retry on transient errors
// and output validation
type Embedder struct {
	backend   Backend
	opts      Options
	dimension atomic.Int64
}

func New(backend Backend, opts Options) *Embedder {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultOptions().BatchSize
	}

	if opts.Timeout <= 0 {
		opts.Timeout = DefaultOptions().Timeout
	}

	if opts.Retry.Attempts == 0 {
		opts.Retry = retry.Default
	}

	e := &Embedder{backend: backend, opts: opts}
	e.dimension.Store(int64(opts.Dimension))

	return e
}

func (e *Embedder) Model() string {
	return e.backend.Model()
}

// vector size produced by the backend, probing it once when unknown
func (e *Embedder) Dimension(ctx context.Context) (int, error) {
	if d := e.dimension.Load(); d > 0 {
		return int(d), nil
	}

	if _, err := e.Embed(ctx, []string{"dimension probe"}); err != nil {
		return 0, err
	}

	return int(e.dimension.Load()), nil
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}

	return vectors[0], nil
}

// embeds texts in input order. the result has exactly len(texts) vectors
// of a single dimension, or the call fails with *domain.EmbeddingBackendError.
func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	out := make([][]float32, 0, len(texts))

	for start := 0; start < len(texts); start += e.opts.BatchSize {
		end := min(start+e.opts.BatchSize, len(texts))

		vectors, err := e.embedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, &domain.EmbeddingBackendError{Model: e.Model(), Err: err}
		}

		out = append(out, vectors...)
	}

	return out, nil
}

func (e *Embedder) embedBatch(ctx context.Context, batch []string) ([][]float32, error) {
	var vectors [][]float32

	_, err := retry.Do(ctx, e.opts.Retry, func(ctx context.Context) error {
		callCtx, cancel := context.WithTimeout(ctx, e.opts.Timeout)
		defer cancel()

		v, err := e.backend.Embed(callCtx, batch)
		if err != nil {
			return err
		}

		vectors = v
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(vectors) != len(batch) {
		return nil, fmt.Errorf("backend returned %d vectors for %d inputs", len(vectors), len(batch))
	}

	for i, v := range vectors {
		if len(v) == 0 {
			return nil, fmt.Errorf("backend returned an empty vector at position %d", i)
		}

		// the first successful call fixes the dimension
		want := e.dimension.Load()
		if want == 0 {
			e.dimension.CompareAndSwap(0, int64(len(v)))
			want = e.dimension.Load()
		}

		if int64(len(v)) != want {
			return nil, fmt.Errorf("backend returned a %d-dimensional vector, expected %d", len(v), want)
		}
	}

	return vectors, nil
}
