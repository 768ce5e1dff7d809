package state

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	domain "github.com/donaldgifford/stock-monitor/pkg/types"
)

const (
	defaultPoolSize = 4
	startupTimeout  = 10 * time.Second
)

// PostgresStore implements Store on a single availability_state table.
// The database may be down when the store is created; the schema is then
// applied by the first Load or Save that reaches it.
type PostgresStore struct {
	pool    *pgxpool.Pool
	log     *slog.Logger
	nowFunc func() time.Time

	mu       sync.Mutex
	migrated bool
}

// PostgresOption configures a PostgresStore.
type PostgresOption func(*PostgresStore)

// WithPostgresLogger sets a custom logger.
func WithPostgresLogger(l *slog.Logger) PostgresOption {
	return func(s *PostgresStore) {
		s.log = l
	}
}

// NewPostgresStore builds a connection pool for connString and tries to
// apply migrations. Only an invalid connection string is an error; an
// unreachable database is logged and retried on the next Load or Save.
func NewPostgresStore(ctx context.Context, connString string, opts ...PostgresOption) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}

	if cfg.MaxConns <= 0 {
		cfg.MaxConns = defaultPoolSize
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	s := &PostgresStore{pool: pool, log: slog.Default(), nowFunc: time.Now}
	for _, opt := range opts {
		opt(s)
	}

	sctx, cancel := context.WithTimeout(ctx, startupTimeout)
	defer cancel()
	if err := s.ensureSchema(sctx); err != nil {
		s.log.Warn("postgres unavailable, will retry on next state access", "error", err)
	}

	return s, nil
}

// Close shuts down the connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Ping verifies the database connection is alive.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Migrate applies pending schema migrations.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := RunMigrations(ctx, s.pool); err != nil {
		return err
	}
	s.migrated = true
	return nil
}

func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.migrated {
		return nil
	}
	if err := RunMigrations(ctx, s.pool); err != nil {
		return err
	}
	s.migrated = true
	s.log.Info("postgres state schema ready")
	return nil
}

// Load returns every stored item availability.
func (s *PostgresStore) Load(ctx context.Context) (domain.AvailabilityState, error) {
	if err := s.ensureSchema(ctx); err != nil {
		return nil, fmt.Errorf("preparing state schema: %w", err)
	}

	rows, err := s.pool.Query(ctx, `SELECT item_key, available FROM availability_state`)
	if err != nil {
		return nil, fmt.Errorf("querying availability state: %w", err)
	}
	defer rows.Close()

	st := domain.AvailabilityState{}
	for rows.Next() {
		var (
			key       string
			available bool
		)
		if err := rows.Scan(&key, &available); err != nil {
			return nil, fmt.Errorf("scanning availability row: %w", err)
		}
		st[key] = available
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating availability rows: %w", err)
	}
	return st, nil
}

// Save replaces the stored mapping with st in one transaction.
func (s *PostgresStore) Save(ctx context.Context, st domain.AvailabilityState) error {
	if err := s.ensureSchema(ctx); err != nil {
		return fmt.Errorf("preparing state schema: %w", err)
	}

	keys := make([]string, 0, len(st))
	for k := range st {
		keys = append(keys, k)
	}

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`DELETE FROM availability_state WHERE NOT (item_key = ANY($1))`,
			keys,
		); err != nil {
			return fmt.Errorf("pruning availability state: %w", err)
		}

		now := s.nowFunc().UTC()
		batch := &pgx.Batch{}
		for k, v := range st {
			batch.Queue(`
				INSERT INTO availability_state (item_key, available, updated_at)
				VALUES (@item_key, @available, @updated_at)
				ON CONFLICT (item_key) DO UPDATE
				SET available = EXCLUDED.available,
				    updated_at = CASE
				        WHEN availability_state.available = EXCLUDED.available
				        THEN availability_state.updated_at
				        ELSE EXCLUDED.updated_at
				    END`,
				pgx.NamedArgs{"item_key": k, "available": v, "updated_at": now},
			)
		}
		if batch.Len() == 0 {
			return nil
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("upserting availability state: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("saving availability state: %w", err)
	}
	return nil
}
