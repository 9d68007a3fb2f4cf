package agent

import (
	"context"
	"errors"
	"strings"
	"time"

	"codeberg.org/docuchat/server/internal/domain"
	"codeberg.org/docuchat/server/internal/llm"
	"codeberg.org/docuchat/server/internal/logger"
	"codeberg.org/docuchat/server/internal/retry"
)

// an answer that is blank after trimming; retried like a transient failure
var errEmptyAnswer = errors.New("backend returned an empty answer")

func New(backends Backends, opts Options) *Agent {
	defaults := DefaultOptions()

	if opts.Timeout <= 0 {
		opts.Timeout = defaults.Timeout
	}

	if opts.Retry.Attempts == 0 {
		opts.Retry = defaults.Retry
	}

	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = defaults.HistoryLimit
	}

	return &Agent{backends: backends, opts: opts}
}

// asks the session's backend for an answer grounded in req.Sources. a
// backend that keeps failing yields *domain.GenerationError, never an
// empty answer.
func (a *Agent) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	if req.Session == nil {
		return nil, &domain.ValidationError{Field: "session", Reason: "is required"}
	}

	if strings.TrimSpace(req.UserMessage) == "" {
		return nil, &domain.ValidationError{Field: "message", Reason: "must not be empty"}
	}

	backend, err := a.backends.Get(req.Session.LLMModel)
	if err != nil {
		return nil, err
	}

	prompt := buildPrompt(req, a.opts.HistoryLimit)
	params := llm.Params{
		Temperature: min(max(req.Session.Temperature, 0), 2),
		MaxTokens:   req.Session.MaxTokens,
	}

	content, attempts, err := a.complete(ctx, backend, prompt, params)
	if err == nil {
		return a.response(content, req.Sources, backend.Name(), attempts), nil
	}

	genErr := &domain.GenerationError{Backend: string(backend.Name()), Attempts: attempts, Err: err}

	if !a.opts.Fallback || ctx.Err() != nil {
		return nil, genErr
	}

	for _, fallback := range a.backends.Fallbacks(backend.Name()) {
		logger.Warn("llm backend failed, trying fallback",
			"backend", backend.Name(),
			"fallback", fallback.Name(),
			"error", err,
		)

		content, n, fbErr := a.complete(ctx, fallback, prompt, params)
		attempts += n

		if fbErr == nil {
			return a.response(content, req.Sources, fallback.Name(), attempts), nil
		}

		if ctx.Err() != nil {
			break
		}
	}

	return nil, genErr
}

func (a *Agent) response(content string, sources []domain.Source, used llm.Name, attempts int) *GenerateResponse {
	if sources == nil {
		sources = []domain.Source{}
	}

	return &GenerateResponse{
		Content:  content,
		Sources:  sources,
		LLMUsed:  used,
		Attempts: attempts,
	}
}

// one call with a bounded timeout, retried once on transient failures
func (a *Agent) complete(ctx context.Context, backend llm.Backend, prompt llm.Prompt, params llm.Params) (string, int, error) {
	policy := a.opts.Retry
	policy.Retryable = func(err error) bool {
		return errors.Is(err, errEmptyAnswer) || domain.IsTransient(err)
	}

	var answer string

	attempts, err := retry.Do(ctx, policy, func(ctx context.Context) error {
		callCtx, cancel := context.WithTimeout(ctx, a.opts.Timeout)
		defer cancel()

		start := time.Now()
		text, err := backend.Complete(callCtx, prompt, params)

		logger.Debug("llm call finished",
			"backend", backend.Name(),
			"duration_ms", time.Since(start).Milliseconds(),
			"error", err,
		)

		if err != nil {
			return err
		}

		text = strings.TrimSpace(text)
		if text == "" {
			return errEmptyAnswer
		}

		answer = text
		return nil
	})

	return answer, attempts, err
}
