package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/S1riyS/happyphone/server/pkg/logging"
	"github.com/S1riyS/happyphone/server/pkg/logging/slogext"
)

type HistoryRepository interface {
	// GetHistory returns an empty history for unknown users.
	GetHistory(ctx context.Context, userID string) ([]string, error)
	SaveHistory(ctx context.Context, userID string, history []string) error
}

type historyRepository struct {
	blobs BlobStore
}

func NewHistoryRepository(blobs BlobStore) HistoryRepository {
	return &historyRepository{blobs: blobs}
}

func (r *historyRepository) GetHistory(ctx context.Context, userID string) ([]string, error) {
	const op = "repository.historyRepository.GetHistory"

	data, ok, err := r.blobs.Load(ctx, TableHistories, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !ok {
		return []string{}, nil
	}

	var history []string
	if err := json.Unmarshal(data, &history); err != nil {
		logger := logging.GetLoggerFromContextWithOp(ctx, op)
		logger.Error("Failed to decode history", slogext.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if history == nil {
		history = []string{}
	}

	return history, nil
}

func (r *historyRepository) SaveHistory(ctx context.Context, userID string, history []string) error {
	const op = "repository.historyRepository.SaveHistory"

	if history == nil {
		history = []string{}
	}
	data, err := json.Marshal(history)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := r.blobs.Save(ctx, TableHistories, userID, data); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
