package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/docuchat/server/internal/domain"
	"codeberg.org/docuchat/server/internal/llm"
	"codeberg.org/docuchat/server/internal/retry"
)

// implements llm.Backend for testing
type mockBackend struct {
	name         llm.Name
	completeFunc func(ctx context.Context, prompt llm.Prompt, params llm.Params) (string, error)

	mu      sync.Mutex
	calls   int
	prompts []llm.Prompt
	params  []llm.Params
}

func (m *mockBackend) Name() llm.Name { return m.name }

func (m *mockBackend) Complete(ctx context.Context, prompt llm.Prompt, params llm.Params) (string, error) {
	m.mu.Lock()
	m.calls++
	m.prompts = append(m.prompts, prompt)
	m.params = append(m.params, params)
	m.mu.Unlock()

	if m.completeFunc != nil {
		return m.completeFunc(ctx, prompt, params)
	}

	return "grounded answer", nil
}

func newAgent(fallback bool, backends ...llm.Backend) *Agent {
	return New(llm.NewRegistry(backends...), Options{
		Timeout:  50 * time.Millisecond,
		Retry:    retry.Policy{Attempts: 2, Backoff: time.Millisecond},
		Fallback: fallback,
	})
}

func session(model string) *domain.ChatSession {
	return &domain.ChatSession{
		ID:          "session-1",
		LLMModel:    model,
		Temperature: 0.7,
		MaxTokens:   500,
		TopK:        3,
	}
}

func sources() []domain.Source {
	return []domain.Source{
		{
			Content:  "The warranty lasts two years.",
			Score:    0.91,
			Metadata: domain.ChunkMetadata{DocumentID: "doc-1", ChunkIndex: 1, TotalChunks: 4, Filename: "warranty.pdf"},
		},
	}
}

func TestGenerate_ReturnsAnswerWithSources(t *testing.T) {
	backend := &mockBackend{name: llm.OpenAI}
	a := newAgent(false, backend)

	resp, err := a.Generate(t.Context(), GenerateRequest{
		Session:     session("openai"),
		Sources:     sources(),
		UserMessage: "How long is the warranty?",
	})
	require.NoError(t, err)

	assert.Equal(t, "grounded answer", resp.Content)
	assert.Equal(t, llm.OpenAI, resp.LLMUsed)
	assert.Equal(t, sources(), resp.Sources)
	assert.Equal(t, 1, resp.Attempts)

	require.Len(t, backend.params, 1)
	assert.Equal(t, llm.Params{Temperature: 0.7, MaxTokens: 500}, backend.params[0])

	prompt := backend.prompts[0]
	assert.Contains(t, prompt.System, "The warranty lasts two years.")
	assert.Contains(t, prompt.System, "warranty.pdf (chunk 2 of 4, relevance 0.91)")
	require.Len(t, prompt.Messages, 1)
	assert.Equal(t, "How long is the warranty?", prompt.Messages[0].Content)
}

func TestGenerate_EmptySourcesStillAnswers(t *testing.T) {
	backend := &mockBackend{name: llm.OllamaLocal}
	a := newAgent(false, backend)

	resp, err := a.Generate(t.Context(), GenerateRequest{Session: session(""), UserMessage: "hello"})
	require.NoError(t, err)

	assert.NotNil(t, resp.Sources)
	assert.Empty(t, resp.Sources)
	assert.Contains(t, backend.prompts[0].System, "No document excerpts matched")
}

func TestGenerate_TimesOutTwiceThenFails(t *testing.T) {
	backend := &mockBackend{
		name: llm.OllamaCloud,
		completeFunc: func(ctx context.Context, _ llm.Prompt, _ llm.Params) (string, error) {
			<-ctx.Done()
			return "", ctx.Err()
		},
	}
	a := newAgent(false, backend)

	resp, err := a.Generate(t.Context(), GenerateRequest{Session: session("ollama_cloud"), UserMessage: "q"})
	assert.Nil(t, resp)

	var genErr *domain.GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.Equal(t, "ollama_cloud", genErr.Backend)
	assert.Equal(t, 2, genErr.Attempts)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 2, backend.calls)
}

func TestGenerate_TransientErrorRetriedOnce(t *testing.T) {
	backend := &mockBackend{name: llm.OpenAI}
	a := newAgent(false, backend)

	backend.completeFunc = func(context.Context, llm.Prompt, llm.Params) (string, error) {
		if backend.calls == 1 {
			return "", &domain.HTTPStatusError{StatusCode: 503, Body: "busy"}
		}
		return "second time lucky", nil
	}

	resp, err := a.Generate(t.Context(), GenerateRequest{Session: session("openai"), UserMessage: "q"})
	require.NoError(t, err)
	assert.Equal(t, "second time lucky", resp.Content)
	assert.Equal(t, 2, resp.Attempts)
}

func TestGenerate_NonTransientErrorIsNotRetried(t *testing.T) {
	backend := &mockBackend{
		name: llm.Anthropic,
		completeFunc: func(context.Context, llm.Prompt, llm.Params) (string, error) {
			return "", &domain.HTTPStatusError{StatusCode: 401, Body: "bad key"}
		},
	}
	a := newAgent(false, backend)

	_, err := a.Generate(t.Context(), GenerateRequest{Session: session("anthropic"), UserMessage: "q"})

	var genErr *domain.GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.Equal(t, 1, genErr.Attempts)
	assert.Equal(t, 1, backend.calls)
}

func TestGenerate_BlankAnswerIsAFailure(t *testing.T) {
	backend := &mockBackend{
		name: llm.OpenAI,
		completeFunc: func(context.Context, llm.Prompt, llm.Params) (string, error) {
			return "  \n ", nil
		},
	}
	a := newAgent(false, backend)

	resp, err := a.Generate(t.Context(), GenerateRequest{Session: session("openai"), UserMessage: "q"})
	assert.Nil(t, resp)

	var genErr *domain.GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.ErrorIs(t, err, errEmptyAnswer)
	assert.Equal(t, 2, backend.calls)
}

func TestGenerate_FallbackChain(t *testing.T) {
	failing := &mockBackend{
		name: llm.OllamaCloud,
		completeFunc: func(context.Context, llm.Prompt, llm.Params) (string, error) {
			return "", &domain.HTTPStatusError{StatusCode: 500, Body: "down"}
		},
	}
	local := &mockBackend{name: llm.OllamaLocal}
	a := newAgent(true, failing, local)

	resp, err := a.Generate(t.Context(), GenerateRequest{Session: session("ollama_cloud"), UserMessage: "q"})
	require.NoError(t, err)

	assert.Equal(t, llm.OllamaLocal, resp.LLMUsed)
	assert.Equal(t, 3, resp.Attempts)
}

func TestGenerate_FallbackDisabled(t *testing.T) {
	failing := &mockBackend{
		name: llm.OllamaCloud,
		completeFunc: func(context.Context, llm.Prompt, llm.Params) (string, error) {
			return "", errors.New("boom")
		},
	}
	local := &mockBackend{name: llm.OllamaLocal}
	a := newAgent(false, failing, local)

	_, err := a.Generate(t.Context(), GenerateRequest{Session: session("ollama_cloud"), UserMessage: "q"})

	var genErr *domain.GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.Zero(t, local.calls)
}

func TestGenerate_UnknownBackend(t *testing.T) {
	a := newAgent(false, &mockBackend{name: llm.OpenAI})

	_, err := a.Generate(t.Context(), GenerateRequest{Session: session("gpt-9000"), UserMessage: "q"})
	assert.ErrorIs(t, err, domain.ErrUnknownBackend)
}

func TestGenerate_Validation(t *testing.T) {
	a := newAgent(false, &mockBackend{name: llm.OpenAI})

	var validation *domain.ValidationError

	_, err := a.Generate(t.Context(), GenerateRequest{UserMessage: "q"})
	require.ErrorAs(t, err, &validation)

	_, err = a.Generate(t.Context(), GenerateRequest{Session: session("openai"), UserMessage: "   "})
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, "message", validation.Field)
}

func TestGenerate_ClampsTemperature(t *testing.T) {
	backend := &mockBackend{name: llm.OpenAI}
	a := newAgent(false, backend)

	s := session("openai")
	s.Temperature = 3.5

	_, err := a.Generate(t.Context(), GenerateRequest{Session: s, UserMessage: "q"})
	require.NoError(t, err)
	assert.InDelta(t, 2.0, backend.params[0].Temperature, 1e-9)
}

func TestGenerate_HistoryIsTruncated(t *testing.T) {
	backend := &mockBackend{name: llm.OpenAI}
	a := newAgent(false, backend)

	var history []domain.Message
	for i := range 14 {
		role := domain.RoleUser
		if i%2 == 1 {
			role = domain.RoleAssistant
		}
		history = append(history, domain.Message{Role: role, Content: fmt.Sprintf("turn %d", i)})
	}

	_, err := a.Generate(t.Context(), GenerateRequest{Session: session("openai"), History: history, UserMessage: "latest"})
	require.NoError(t, err)

	msgs := backend.prompts[0].Messages
	require.Len(t, msgs, 11)
	assert.Equal(t, "turn 4", msgs[0].Content)
	assert.Equal(t, "turn 13", msgs[9].Content)
	assert.Equal(t, "latest", msgs[10].Content)
}

func TestBuildPrompt_SessionSettings(t *testing.T) {
	s := session("openai")
	s.SystemPrompt = "You are a contracts lawyer."
	s.CustomInstructions = "Cite clause numbers."
	s.Personality = "teacher"
	s.ResponseStyle = "bullet"

	prompt := buildPrompt(GenerateRequest{Session: s, Sources: sources(), UserMessage: "q"}, 10)

	if !strings.Contains(prompt.System, "You are a contracts lawyer.") {
		t.Errorf("system prompt override missing:\n%s", prompt.System)
	}

	if strings.Contains(prompt.System, defaultInstructions) {
		t.Error("default instructions should be replaced by the session system prompt")
	}

	for _, want := range []string{
		"Additional Instructions: Cite clause numbers.",
		"Tone: " + personalities["teacher"],
		"Format: " + responseStyles["bullet"],
		"CONTEXT",
	} {
		if !strings.Contains(prompt.System, want) {
			t.Errorf("expected %q in system prompt", want)
		}
	}
}

func TestBuildPrompt_Template(t *testing.T) {
	s := session("openai")
	s.PromptTemplate = "Excerpts:\n{context}\n\nQ: {question}"

	prompt := buildPrompt(GenerateRequest{Session: s, Sources: sources(), UserMessage: "what about {context}?"}, 10)

	if strings.Contains(prompt.System, "CONTEXT") {
		t.Error("templated context should not be repeated in the system prompt")
	}

	user := prompt.Messages[len(prompt.Messages)-1].Content

	if !strings.HasPrefix(user, "Excerpts:\n") || !strings.Contains(user, "The warranty lasts two years.") {
		t.Errorf("context not substituted: %q", user)
	}

	if !strings.HasSuffix(user, "Q: what about {context}?") {
		t.Errorf("question must be inserted verbatim: %q", user)
	}
}

func TestBuildPrompt_TemplateWithoutQuestionPlaceholder(t *testing.T) {
	s := session("openai")
	s.PromptTemplate = "Answer in French."

	prompt := buildPrompt(GenerateRequest{Session: s, UserMessage: "hello"}, 10)
	user := prompt.Messages[0].Content

	if user != "Answer in French.\n\nhello" {
		t.Errorf("unexpected user content %q", user)
	}
}

func TestValidators(t *testing.T) {
	assert.True(t, ValidPersonality(""))
	assert.True(t, ValidPersonality("friendly"))
	assert.False(t, ValidPersonality("pirate"))
	assert.True(t, ValidResponseStyle("detailed"))
	assert.False(t, ValidResponseStyle("haiku"))
	assert.Equal(t, []string{"concise", "creative", "friendly", "professional", "teacher"}, Personalities())
	assert.Equal(t, []string{"brief", "bullet", "detailed"}, ResponseStyles())
}
