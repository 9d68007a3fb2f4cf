package collections

import (
	"context"

	"codeberg.org/docuchat/server/api/rest/pagination"
	"codeberg.org/docuchat/server/docuchat/collections"
	"codeberg.org/docuchat/server/internal/domain"
)

type Service interface {
	Create(ctx context.Context, userID string, req collections.CreateCollectionRequest) (*domain.Collection, error)
	Get(ctx context.Context, collectionID, userID string) (*domain.Collection, error)
	List(ctx context.Context, userID string, limit, offset int) ([]domain.Collection, int, error)
	Update(ctx context.Context, collectionID, userID string, req collections.UpdateCollectionRequest) (*domain.Collection, error)
	Stats(ctx context.Context, collectionID, userID string) (domain.CollectionStats, error)
	Delete(ctx context.Context, collectionID, userID string) error
}

type CollectionsListResponse struct {
	Collections []domain.Collection `json:"collections"`
	Pagination  pagination.Meta     `json:"pagination"`
}

type MessageResponse struct {
	Message string `json:"message"`
}
