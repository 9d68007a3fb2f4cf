package embedder

import (
	"os"
	"strconv"
	"time"
)

// builds a registry from environment variables. OpenAI is registered when
// OPENAI_API_KEY is set, Ollama when OLLAMA_EMBED_MODEL or OLLAMA_LOCAL_URL is.
func NewRegistryFromEnv(opts Options) *Registry {
	registry := NewRegistry(os.Getenv("EMBEDDER_MODEL"))

	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		model := os.Getenv("OPENAI_EMBEDDING_MODEL")

		o := opts
		o.Dimension = envInt("OPENAI_EMBEDDING_DIMENSION", 0)
		if o.Dimension == 0 && (model == "" || model == defaultOpenAIModel) {
			o.Dimension = 1536
		}

		registry.Register(New(NewOpenAIBackend(OpenAIConfig{
			APIKey:  key,
			Model:   model,
			BaseURL: os.Getenv("OPENAI_BASE_URL"),
		}), o))
	}

	ollamaURL := os.Getenv("OLLAMA_LOCAL_URL")
	ollamaModel := os.Getenv("OLLAMA_EMBED_MODEL")

	if ollamaURL != "" || ollamaModel != "" {
		o := opts
		o.Dimension = envInt("OLLAMA_EMBED_DIMENSION", 0)

		registry.Register(New(NewOllamaBackend(OllamaConfig{
			BaseURL: ollamaURL,
			Model:   ollamaModel,
			Timeout: opts.Timeout + 5*time.Second,
		}), o))
	}

	return registry
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}

	return fallback
}
