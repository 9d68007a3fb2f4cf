package llm

import (
	"os"
	"time"
)

// holds per-backend settings read from the environment
type Config struct {
	OllamaCloudURL    string
	OllamaCloudAPIKey string
	OllamaCloudModel  string
	OllamaLocalURL    string
	OllamaLocalModel  string
	OpenAIKey         string
	OpenAIModel       string
	OpenAIBaseURL     string
	AnthropicKey      string
	AnthropicModel    string
	Timeout           time.Duration
}

// loads LLM configuration from environment variables
func LoadConfig(timeout time.Duration) Config {
	return Config{
		OllamaCloudURL:    os.Getenv("OLLAMA_CLOUD_URL"),
		OllamaCloudAPIKey: os.Getenv("OLLAMA_CLOUD_API_KEY"),
		OllamaCloudModel:  os.Getenv("OLLAMA_CLOUD_MODEL"),
		OllamaLocalURL:    os.Getenv("OLLAMA_LOCAL_URL"),
		OllamaLocalModel:  os.Getenv("OLLAMA_MODEL"),
		OpenAIKey:         os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:       os.Getenv("OPENAI_MODEL"),
		OpenAIBaseURL:     os.Getenv("OPENAI_BASE_URL"),
		AnthropicKey:      os.Getenv("ANTHROPIC_API_KEY"),
		AnthropicModel:    os.Getenv("ANTHROPIC_MODEL"),
		Timeout:           timeout,
	}
}

// registers only the backends whose settings are present
func NewRegistryFromConfig(cfg Config) *Registry {
	var backends []Backend

	if cfg.OllamaCloudURL != "" && cfg.OllamaCloudAPIKey != "" {
		backends = append(backends, NewOllamaBackend(OllamaCloud, OllamaConfig{
			BaseURL: cfg.OllamaCloudURL,
			Model:   cfg.OllamaCloudModel,
			APIKey:  cfg.OllamaCloudAPIKey,
			Timeout: cfg.Timeout,
		}))
	}

	if cfg.OllamaLocalURL != "" {
		backends = append(backends, NewOllamaBackend(OllamaLocal, OllamaConfig{
			BaseURL: cfg.OllamaLocalURL,
			Model:   cfg.OllamaLocalModel,
			Timeout: cfg.Timeout,
		}))
	}

	if cfg.OpenAIKey != "" {
		backends = append(backends, NewOpenAIBackend(OpenAIConfig{
			APIKey:  cfg.OpenAIKey,
			Model:   cfg.OpenAIModel,
			BaseURL: cfg.OpenAIBaseURL,
		}))
	}

	if cfg.AnthropicKey != "" {
		backends = append(backends, NewAnthropicBackend(AnthropicConfig{
			APIKey: cfg.AnthropicKey,
			Model:  cfg.AnthropicModel,
		}))
	}

	return NewRegistry(backends...)
}
