package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/S1riyS/happyphone/server/internal/models"
	"github.com/S1riyS/happyphone/server/pkg/logging"
	"github.com/S1riyS/happyphone/server/pkg/logging/slogext"
)

type FilesystemRepository interface {
	// GetFilesystem returns nil for users without a saved tree.
	GetFilesystem(ctx context.Context, userID string) (*models.UserFilesystem, error)
	SaveFilesystem(ctx context.Context, userID string, fs *models.UserFilesystem) error
}

type filesystemRepository struct {
	blobs BlobStore
}

func NewFilesystemRepository(blobs BlobStore) FilesystemRepository {
	return &filesystemRepository{blobs: blobs}
}

func (r *filesystemRepository) GetFilesystem(ctx context.Context, userID string) (*models.UserFilesystem, error) {
	const op = "repository.filesystemRepository.GetFilesystem"

	data, ok, err := r.blobs.Load(ctx, TableFilesystems, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !ok {
		return nil, nil
	}

	var fs models.UserFilesystem
	if err := json.Unmarshal(data, &fs); err != nil {
		logger := logging.GetLoggerFromContextWithOp(ctx, op)
		logger.Error("Failed to decode filesystem", slogext.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &fs, nil
}

func (r *filesystemRepository) SaveFilesystem(ctx context.Context, userID string, fs *models.UserFilesystem) error {
	const op = "repository.filesystemRepository.SaveFilesystem"

	data, err := json.Marshal(fs)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := r.blobs.Save(ctx, TableFilesystems, userID, data); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
