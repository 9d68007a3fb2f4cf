package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadPipeline_Defaults(t *testing.T) {
	p, err := LoadPipeline("")
	require.NoError(t, err)

	assert.Equal(t, 1000, p.ChunkSize)
	assert.Equal(t, 200, p.ChunkOverlap)
	assert.Equal(t, 10, p.EmbedBatchSize)
	assert.Equal(t, 60*time.Second, p.LLMTimeout)
}

func TestLoadPipeline_YAMLThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docuchat.yaml")
	yml := "chunk_size: 500\nchunk_overlap: 100\nembed_timeout: 5s\nllm_fallback: true\n"
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o600))

	t.Setenv("CHUNK_OVERLAP", "50")

	p, err := LoadPipeline(path)
	require.NoError(t, err)

	assert.Equal(t, 500, p.ChunkSize)
	assert.Equal(t, 50, p.ChunkOverlap)
	assert.Equal(t, 5*time.Second, p.EmbedTimeout)
	assert.True(t, p.LLMFallback)
	assert.Equal(t, 15*time.Second, p.VectorTimeout)
}

func TestLoadPipeline_Invalid(t *testing.T) {
	t.Setenv("CHUNK_SIZE", "0")

	_, err := LoadPipeline("")
	assert.Error(t, err)
}

func TestLoadEnvironmentVariables(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/docuchat")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("VECTOR_STORE", "qdrant")
	t.Setenv("QDRANT_URL", "")
	t.Setenv("PORT", "")
	t.Setenv("CONFIG_FILE", "")

	_, err := LoadEnvironmentVariables()
	assert.ErrorContains(t, err, "QDRANT_URL")

	t.Setenv("QDRANT_URL", "http://localhost:6333")
	cfg, err := LoadEnvironmentVariables()
	require.NoError(t, err)
	assert.Equal(t, "qdrant", cfg.VectorStore.Kind)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "30-M", cfg.RateLimitChat)
	assert.Equal(t, "20-M", cfg.RateLimitUpload)
}

func TestLoadEnvironmentVariables_MissingDatabase(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("JWT_SECRET", "secret")

	_, err := LoadEnvironmentVariables()
	assert.EqualError(t, err, "DATABASE_URL environment variable is required")
}

func TestLoadEnvironmentVariables_AllowedOrigins(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/docuchat")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("VECTOR_STORE", "memory")
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://a.example , ,https://b.example")

	cfg, err := LoadEnvironmentVariables()
	require.NoError(t, err)

	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
}
