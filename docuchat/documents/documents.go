package documents

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"codeberg.org/docuchat/server/internal/domain"
)

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

func scanDocument(row pgx.Row) (*domain.Document, error) {
	var d domain.Document

	err := row.Scan(
		&d.ID,
		&d.CollectionID,
		&d.Filename,
		&d.FilePath,
		&d.FileType,
		&d.FileSize,
		&d.Status,
		&d.ChunkCount,
		&d.ErrorMessage,
		&d.ClaimToken,
		&d.CreatedAt,
		&d.UpdatedAt,
		&d.ProcessedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("document %w", domain.ErrNotFound)
	}

	if err != nil {
		return nil, err
	}

	return &d, nil
}

func (r *Repository) Create(ctx context.Context, doc *domain.Document) (*domain.Document, error) {
	return scanDocument(r.db.QueryRow(
		ctx,
		queryCreate,
		doc.ID,
		doc.CollectionID,
		doc.Filename,
		doc.FilePath,
		doc.FileType,
		doc.FileSize,
	))
}

func (r *Repository) Get(ctx context.Context, documentID string) (*domain.Document, error) {
	return scanDocument(r.db.QueryRow(ctx, queryGet, documentID))
}

func (r *Repository) ListByCollection(ctx context.Context, collectionID string, limit, offset int) ([]domain.Document, int, error) {
	var total int
	if err := r.db.QueryRow(ctx, queryCountByCollection, collectionID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.Query(ctx, queryListByCollection, collectionID, limit, offset)
	if err != nil {
		return nil, 0, err
	}

	defer rows.Close()
	docs := []domain.Document{}

	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, 0, err
		}

		docs = append(docs, *d)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return docs, total, nil
}

func (r *Repository) ListIDsByCollection(ctx context.Context, collectionID string) ([]string, error) {
	return r.queryIDs(ctx, queryListIDsByCollection, collectionID)
}

// moves a pending document to processing under token. a document that is
// already processing yields domain.ErrAlreadyProcessing.
func (r *Repository) Claim(ctx context.Context, documentID, token string) (*domain.Document, error) {
	doc, err := scanDocument(r.db.QueryRow(ctx, queryClaim, documentID, token))
	if err == nil {
		return doc, nil
	}

	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	// the compare-and-set missed; report why
	current, err := r.Get(ctx, documentID)
	if err != nil {
		return nil, err
	}

	return nil, claimError(current.Status)
}

func claimError(status domain.DocumentStatus) error {
	if status == domain.StatusProcessing {
		return domain.ErrAlreadyProcessing
	}

	return fmt.Errorf("%w: cannot claim a %s document", domain.ErrInvalidTransition, status)
}

func (r *Repository) Complete(ctx context.Context, documentID, token string, chunkCount int) error {
	return r.finish(ctx, queryComplete, documentID, token, chunkCount)
}

func (r *Repository) Fail(ctx context.Context, documentID, token, message string) error {
	return r.finish(ctx, queryFail, documentID, token, message)
}

// applies a terminal transition guarded by the claim token
func (r *Repository) finish(ctx context.Context, query, documentID, token string, arg any) error {
	tag, err := r.db.Exec(ctx, query, documentID, token, arg)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: claim on document %s is no longer held", domain.ErrInvalidTransition, documentID)
	}

	return nil
}

// re-enters pending from failed or completed
func (r *Repository) Reset(ctx context.Context, documentID string) error {
	tag, err := r.db.Exec(ctx, queryReset, documentID)
	if err != nil {
		return err
	}

	if tag.RowsAffected() > 0 {
		return nil
	}

	current, err := r.Get(ctx, documentID)
	if err != nil {
		return err
	}

	if current.Status == domain.StatusProcessing {
		return domain.ErrAlreadyProcessing
	}

	// already pending
	return nil
}

// returns documents a crashed process left in processing to pending
func (r *Repository) ResetStale(ctx context.Context) ([]string, error) {
	return r.queryIDs(ctx, queryResetStale)
}

func (r *Repository) ListPending(ctx context.Context) ([]string, error) {
	return r.queryIDs(ctx, queryListPending)
}

func (r *Repository) Delete(ctx context.Context, documentID string) error {
	tag, err := r.db.Exec(ctx, queryDelete, documentID)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("document %w", domain.ErrNotFound)
	}

	return nil
}

func (r *Repository) queryIDs(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	defer rows.Close()
	var ids []string

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}
