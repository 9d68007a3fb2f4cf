package collections

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"codeberg.org/docuchat/server/internal/domain"
)

// names are unique per user
var ErrNameTaken = domain.ErrNameTaken

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

func scanCollection(row pgx.Row) (*domain.Collection, error) {
	var c domain.Collection

	err := row.Scan(
		&c.ID,
		&c.UserID,
		&c.Name,
		&c.Description,
		&c.EmbeddingModel,
		&c.Dimension,
		&c.DocumentCount,
		&c.CreatedAt,
		&c.UpdatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("collection %w", domain.ErrNotFound)
	}

	if err != nil {
		return nil, err
	}

	return &c, nil
}

func (r *Repository) Create(
	ctx context.Context,
	userID string,
	req CreateCollectionRequest,
	dimension int,
) (*domain.Collection, error) {
	c, err := scanCollection(r.db.QueryRow(
		ctx,
		queryCreate,
		uuid.NewString(),
		userID,
		req.Name,
		req.Description,
		req.EmbeddingModel,
		dimension,
	))

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return nil, ErrNameTaken
	}

	return c, err
}

func (r *Repository) Get(ctx context.Context, collectionID, userID string) (*domain.Collection, error) {
	return scanCollection(r.db.QueryRow(ctx, queryGet, collectionID, userID))
}

// loads a collection without an ownership check, for background workers
func (r *Repository) GetByID(ctx context.Context, collectionID string) (*domain.Collection, error) {
	return scanCollection(r.db.QueryRow(ctx, queryGetByID, collectionID))
}

func (r *Repository) GetByName(ctx context.Context, userID, name string) (*domain.Collection, error) {
	return scanCollection(r.db.QueryRow(ctx, queryGetByName, userID, name))
}

func (r *Repository) List(ctx context.Context, userID string, limit, offset int) ([]domain.Collection, int, error) {
	var total int
	if err := r.db.QueryRow(ctx, queryCountByUser, userID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.Query(ctx, queryList, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}

	defer rows.Close()
	collections := []domain.Collection{}

	for rows.Next() {
		c, err := scanCollection(rows)
		if err != nil {
			return nil, 0, err
		}

		collections = append(collections, *c)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return collections, total, nil
}

func (r *Repository) Update(ctx context.Context, collectionID, userID string, req UpdateCollectionRequest) (*domain.Collection, error) {
	c, err := scanCollection(r.db.QueryRow(ctx, queryUpdate, collectionID, userID, req.Name, req.Description))

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return nil, ErrNameTaken
	}

	return c, err
}

// document counts by status; VectorCount is left for the caller
func (r *Repository) Stats(ctx context.Context, collectionID string) (domain.CollectionStats, error) {
	s := domain.CollectionStats{CollectionID: collectionID}

	err := r.db.QueryRow(ctx, queryStats, collectionID).Scan(
		&s.Documents,
		&s.Pending,
		&s.Processing,
		&s.Completed,
		&s.Failed,
		&s.TotalChunks,
	)
	if err != nil {
		return domain.CollectionStats{}, fmt.Errorf("failed to count documents: %w", err)
	}

	return s, nil
}

func (r *Repository) Delete(ctx context.Context, collectionID, userID string) error {
	tag, err := r.db.Exec(ctx, queryDelete, collectionID, userID)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("collection %w", domain.ErrNotFound)
	}

	return nil
}

func (r *Repository) CountCompleted(ctx context.Context, collectionID string) (int, error) {
	var count int

	if err := r.db.QueryRow(ctx, queryCountCompleted, collectionID).Scan(&count); err != nil {
		return 0, err
	}

	return count, nil
}
