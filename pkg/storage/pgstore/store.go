// Package pgstore persists linked databases in PostgreSQL.
package pgstore

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dd0wney/cluso-lci/pkg/logging"
	"github.com/dd0wney/cluso-lci/pkg/metrics"
)

// StoreName labels postgres operations in metrics
const StoreName = "postgres"

// Store handles database persistence using PostgreSQL
type Store struct {
	pool    *pgxpool.Pool
	logger  logging.Logger
	metrics *metrics.Registry
}

// Option configures a Store
type Option func(*Store)

// WithLogger sets the store logger
func WithLogger(logger logging.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// WithMetrics sets the metrics registry
func WithMetrics(r *metrics.Registry) Option {
	return func(s *Store) { s.metrics = r }
}

// New connects to databaseURL and creates the tables if they don't exist
func New(ctx context.Context, databaseURL string, opts ...Option) (*Store, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	// Connection pooling configuration
	config.MaxConns = 10
	config.MinConns = 1
	config.MaxConnLifetime = 5 * time.Minute
	config.MaxConnIdleTime = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database unreachable: %w", err)
	}

	s := &Store{pool: pool}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.OrDefault(s.logger).With(logging.Component("pgstore"))
	s.metrics = metrics.OrDefault(s.metrics)

	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return s, nil
}

// Ping checks database connectivity
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close closes the database connection pool
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}
