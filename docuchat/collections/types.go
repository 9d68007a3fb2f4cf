package collections

import (
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository struct {
	db *pgxpool.Pool
}

// nil fields are left unchanged
type UpdateCollectionRequest struct {
	Name        *string `json:"name" binding:"omitempty,max=100"`
	Description *string `json:"description" binding:"omitempty,max=1000"`
}

type CreateCollectionRequest struct {
	Name           string `json:"name" binding:"required,max=100"`
	Description    string `json:"description" binding:"max=1000"`
	EmbeddingModel string `json:"embedding_model"`
}
