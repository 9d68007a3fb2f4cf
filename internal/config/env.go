package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// loads configuration from environment variables
func LoadEnvironmentVariables() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		_ = err // not an error - production environments may not have .env file
	}

	databaseURL := os.Getenv("DATABASE_URL")
	jwtSecret := os.Getenv("JWT_SECRET")

	if databaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}

	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable is required")
	}

	pipeline, err := LoadPipeline(os.Getenv("CONFIG_FILE"))
	if err != nil {
		return nil, err
	}

	vs := VectorStoreConfig{
		Kind:         getenv("VECTOR_STORE", "pgvector"),
		QdrantURL:    os.Getenv("QDRANT_URL"),
		QdrantAPIKey: os.Getenv("QDRANT_API_KEY"),
		ChromemPath:  os.Getenv("CHROMEM_PATH"),
	}

	switch vs.Kind {
	case "pgvector", "chromem", "memory":
	case "qdrant":
		if vs.QdrantURL == "" {
			return nil, fmt.Errorf("QDRANT_URL environment variable is required when VECTOR_STORE=qdrant")
		}
	default:
		return nil, fmt.Errorf("unsupported VECTOR_STORE %q", vs.Kind)
	}

	return &Config{
		DatabaseURL:      databaseURL,
		JWTSecret:        jwtSecret,
		Environment:      getenv("ENVIRONMENT", "development"),
		Port:             getenv("PORT", "8080"),
		RedisURL:         os.Getenv("REDIS_URL"),
		NATSURL:          os.Getenv("NATS_URL"),
		UploadDir:        getenv("UPLOAD_DIR", "./uploads"),
		SpeechServiceURL: os.Getenv("SPEECH_SERVICE_URL"),
		RateLimitChat:    getenv("RATE_LIMIT_CHAT", "30-M"),
		RateLimitUpload:  getenv("RATE_LIMIT_UPLOAD", "20-M"),
		AllowedOrigins:   splitList(getenv("CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:5173")),
		VectorStore:      vs,
		Pipeline:         pipeline,
	}, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

// comma-separated values with blanks dropped
func splitList(v string) []string {
	var out []string

	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}

	return out
}
