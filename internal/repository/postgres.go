package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/S1riyS/happyphone/server/pkg/database/postgresql"
	"github.com/S1riyS/happyphone/server/pkg/logging"
	"github.com/S1riyS/happyphone/server/pkg/logging/slogext"
	"github.com/jackc/pgx/v5"
	"github.com/lib/pq"
)

type postgresBlobStore struct {
	db postgresql.Client
}

func NewPostgresBlobStore(db postgresql.Client) BlobStore {
	return &postgresBlobStore{db: db}
}

func (s *postgresBlobStore) Load(ctx context.Context, table, userID string) ([]byte, bool, error) {
	const op = "repository.postgresBlobStore.Load"

	query := fmt.Sprintf(`
		SELECT data
		FROM %s
		WHERE user_id = $1
	`, pq.QuoteIdentifier(table))

	var data []byte
	db := postgresql.GetDBClient(ctx, s.db)
	err := db.QueryRow(ctx, query, userID).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}

	return data, true, nil
}

func (s *postgresBlobStore) Save(ctx context.Context, table, userID string, data []byte) error {
	const op = "repository.postgresBlobStore.Save"

	logger := logging.GetLoggerFromContextWithOp(ctx, op)

	query := fmt.Sprintf(`
		INSERT INTO %s (user_id, data, updated_at)
		VALUES ($1, $2::jsonb, now())
		ON CONFLICT (user_id) DO UPDATE
		SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at
	`, pq.QuoteIdentifier(table))

	db := postgresql.GetDBClient(ctx, s.db)
	_, err := db.Exec(ctx, query, userID, string(data))
	if err != nil {
		logger.Error("Failed to save blob", slogext.Err(err), slog.String("table", table))
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

type postgresTransactor struct {
	db postgresql.Client
}

func NewPostgresTransactor(db postgresql.Client) Transactor {
	return &postgresTransactor{db: db}
}

func (t *postgresTransactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return postgresql.WithTransactionOptions(ctx, t.db, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, fn)
}

// EnsureSchema creates the blob tables if they do not exist.
func EnsureSchema(ctx context.Context, db postgresql.Client) error {
	const op = "repository.EnsureSchema"

	logger := logging.GetLoggerFromContextWithOp(ctx, op)

	return postgresql.WithTransaction(ctx, db, func(ctx context.Context) error {
		tx := postgresql.GetDBClient(ctx, db)
		for _, table := range Tables {
			query := fmt.Sprintf(`
				CREATE TABLE IF NOT EXISTS %s (
					user_id    TEXT PRIMARY KEY,
					data       JSONB NOT NULL,
					updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
				)
			`, pq.QuoteIdentifier(table))

			if _, err := tx.Exec(ctx, query); err != nil {
				logger.Error("Failed to create table", slogext.Err(err), slog.String("table", table))
				return fmt.Errorf("%s: %w", op, err)
			}
		}
		logger.Debug("Schema ready")
		return nil
	})
}
