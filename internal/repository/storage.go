package repository

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/S1riyS/happyphone/server/internal/config"
	"github.com/S1riyS/happyphone/server/pkg/database/postgresql"
	"github.com/S1riyS/happyphone/server/pkg/logging"
)

// Storage is the configured persistence backend.
type Storage struct {
	Blobs BlobStore
	Tx    Transactor
	Close func()
}

// Open connects the backend selected in cfg.Storage.
func Open(ctx context.Context, cfg *config.Config) (*Storage, error) {
	const op = "repository.Open"

	logger := logging.GetLoggerFromContextWithOp(ctx, op)
	logger.Info("Opening storage", slog.String("backend", cfg.Storage.Backend))

	switch cfg.Storage.Backend {
	case config.StorageBackendPostgres:
		pool := postgresql.MustNewClient(ctx, cfg.Database)
		if err := EnsureSchema(ctx, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return &Storage{
			Blobs: Instrument(config.StorageBackendPostgres, NewPostgresBlobStore(pool)),
			Tx:    NewPostgresTransactor(pool),
			Close: pool.Close,
		}, nil

	case config.StorageBackendS3:
		client, err := NewS3Client(ctx, cfg.Storage.S3)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if err := EnsureBucket(ctx, client, cfg.Storage.S3.Bucket); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return &Storage{
			Blobs: Instrument(config.StorageBackendS3, NewS3BlobStore(client, cfg.Storage.S3.Bucket, cfg.Storage.S3.Prefix)),
			Tx:    NewDirectTransactor(),
			Close: func() {},
		}, nil

	case config.StorageBackendMemory:
		return &Storage{
			Blobs: Instrument(config.StorageBackendMemory, NewMemoryBlobStore()),
			Tx:    NewDirectTransactor(),
			Close: func() {},
		}, nil
	}

	return nil, fmt.Errorf("%s: unknown storage backend %q", op, cfg.Storage.Backend)
}
