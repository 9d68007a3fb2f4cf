package storage

import (
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"codeberg.org/docuchat/server/internal/config"
	"codeberg.org/docuchat/server/internal/vectorstore"
)

// picks the vector index named by VECTOR_STORE. pgvector shares db.
func OpenVectorStore(cfg config.VectorStoreConfig, db *pgxpool.Pool, timeout time.Duration) (vectorstore.Store, error) {
	switch cfg.Kind {
	case "pgvector":
		return NewClientFromPool(db), nil
	case "qdrant":
		return vectorstore.NewQdrantStore(vectorstore.QdrantConfig{
			URL:     cfg.QdrantURL,
			APIKey:  cfg.QdrantAPIKey,
			Timeout: timeout,
		}), nil
	case "chromem":
		return vectorstore.NewChromemStore(vectorstore.ChromemConfig{
			Persistent: cfg.ChromemPath != "",
			Path:       cfg.ChromemPath,
			Compress:   true,
		})
	case "memory":
		return vectorstore.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported vector store %q", cfg.Kind)
	}
}
