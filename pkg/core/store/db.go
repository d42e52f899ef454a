package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	pool *pgxpool.Pool
	once sync.Once
)

// InitDB initializes the shared connection pool. The URL is passed in
// rather than read from the environment here so callers stay in charge
// of configuration.
func InitDB(ctx context.Context, databaseURL string) error {
	var err error
	once.Do(func() {
		if databaseURL == "" {
			err = fmt.Errorf("database URL is empty")
			return
		}
		cfg, parseErr := pgxpool.ParseConfig(databaseURL)
		if parseErr != nil {
			err = fmt.Errorf("failed to parse database config: %w", parseErr)
			return
		}
		pool, err = pgxpool.NewWithConfig(ctx, cfg)
	})
	return err
}

// GetPool returns the shared pool, nil before InitDB.
func GetPool() *pgxpool.Pool {
	return pool
}

// Close closes the shared pool.
func Close() {
	if pool != nil {
		pool.Close()
	}
}
