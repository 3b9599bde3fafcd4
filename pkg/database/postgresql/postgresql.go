package postgresql

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/S1riyS/happyphone/server/internal/config"
	"github.com/S1riyS/happyphone/server/pkg/logging"
	"github.com/S1riyS/happyphone/server/pkg/logging/slogext"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Client interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

var (
	instance *pgxpool.Pool
	once     sync.Once
)

// NewClient opens a pool and checks that the database answers.
func NewClient(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	const op = "postgresql.NewClient"

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("%s: parse dsn: %w", op, err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("%s: create pool: %w", op, err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%s: ping: %w", op, err)
	}
	return pool, nil
}

// MustNewClient returns the process-wide pool, creating it on first use.
func MustNewClient(ctx context.Context, cfg config.DatabaseConfig) *pgxpool.Pool {
	once.Do(func() {
		const op = "postgresql.MustNewClient"

		logger := logging.GetLoggerFromContextWithOp(ctx, op)

		pool, err := NewClient(ctx, cfg)
		if err != nil {
			logger.Error("Failed to connect to database", slogext.Err(err))
			panic(err)
		}

		logger.Info("Connected to database",
			slog.String("host", cfg.Host),
			slog.String("database", cfg.Name),
			slog.Int("max_conns", int(pool.Config().MaxConns)),
		)
		instance = pool
	})

	return instance
}
