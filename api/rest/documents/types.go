package documents

import (
	"context"

	"codeberg.org/docuchat/server/api/rest/pagination"
	"codeberg.org/docuchat/server/internal/domain"
	"codeberg.org/docuchat/server/internal/ingest"
)

// owner-scoped reads
type Library interface {
	Get(ctx context.Context, collectionID, userID string) (*domain.Collection, error)
	Documents(ctx context.Context, collectionID, userID string, limit, offset int) ([]domain.Document, int, error)
	Document(ctx context.Context, documentID, userID string) (*domain.Document, error)
}

type Ingester interface {
	ValidateFilename(filename string) error
	Upload(ctx context.Context, up ingest.Upload) (*domain.Document, error)
	Reprocess(ctx context.Context, documentID string) (*domain.Document, error)
	Delete(ctx context.Context, documentID string) error
}

type UploadResponse struct {
	DocumentID string                `json:"document_id"`
	Filename   string                `json:"filename"`
	Status     domain.DocumentStatus `json:"status"`
}

// answer to a multipart request using the "files" field
type UploadBatchResponse struct {
	Documents []UploadResponse `json:"documents"`
}

type DocumentsListResponse struct {
	Documents  []domain.Document `json:"documents"`
	Pagination pagination.Meta   `json:"pagination"`
}

type MessageResponse struct {
	Message string `json:"message"`
}
