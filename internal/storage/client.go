package storage

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed migrations/*.sql
var migrations embed.FS

// postgres-backed vector store; dimensions are cached per collection
type Client struct {
	pool *pgxpool.Pool

	mu   sync.RWMutex
	dims map[string]int
}

func NewClient(ctx context.Context, connString string) (*Client, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return NewClientFromPool(pool), nil
}

// shares an existing pool, e.g. the server's
func NewClientFromPool(pool *pgxpool.Pool) *Client {
	return &Client{pool: pool, dims: make(map[string]int)}
}

func (c *Client) Close() {
	c.pool.Close()
}

// applies the embedded schema files in name order; every statement is idempotent
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	files, err := fs.Glob(migrations, "migrations/*.sql")
	if err != nil {
		return fmt.Errorf("failed to list migrations: %w", err)
	}

	sort.Strings(files)

	for _, name := range files {
		sql, err := migrations.ReadFile(name)
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", name, err)
		}

		if _, err := pool.Exec(ctx, string(sql)); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", name, err)
		}
	}

	return nil
}
