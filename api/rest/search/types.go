package search

import (
	"context"

	"codeberg.org/docuchat/server/internal/domain"
	"codeberg.org/docuchat/server/internal/retriever"
)

const (
	defaultTopK = 5
	maxTopK     = 20
)

type Collections interface {
	Get(ctx context.Context, collectionID, userID string) (*domain.Collection, error)
}

type Searcher interface {
	Search(ctx context.Context, q retriever.Query) ([]domain.Hit, error)
}

type SearchRequest struct {
	Query  string            `json:"query" binding:"required"`
	TopK   int               `json:"top_k"`
	Filter map[string]string `json:"filter"`
}

type SearchResponse struct {
	Query string       `json:"query"`
	Hits  []domain.Hit `json:"hits"`
}
