package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/S1riyS/happyphone/server/internal/models"
)

type NetworkRepository interface {
	// GetNetworkConfig falls back to the default link for unknown users.
	GetNetworkConfig(ctx context.Context, userID string) (models.NetworkConfig, error)
	SaveNetworkConfig(ctx context.Context, userID string, cfg models.NetworkConfig) error
}

type networkRepository struct {
	blobs BlobStore
}

func NewNetworkRepository(blobs BlobStore) NetworkRepository {
	return &networkRepository{blobs: blobs}
}

func (r *networkRepository) GetNetworkConfig(ctx context.Context, userID string) (models.NetworkConfig, error) {
	const op = "repository.networkRepository.GetNetworkConfig"

	data, ok, err := r.blobs.Load(ctx, TableNetworkConfigs, userID)
	if err != nil {
		return models.NetworkConfig{}, fmt.Errorf("%s: %w", op, err)
	}
	if !ok {
		return models.DefaultNetworkConfig(), nil
	}

	// Fields missing from older documents keep their defaults.
	cfg := models.DefaultNetworkConfig()
	if err := json.Unmarshal(data, &cfg); err != nil {
		return models.NetworkConfig{}, fmt.Errorf("%s: %w", op, err)
	}

	return cfg, nil
}

func (r *networkRepository) SaveNetworkConfig(ctx context.Context, userID string, cfg models.NetworkConfig) error {
	const op = "repository.networkRepository.SaveNetworkConfig"

	data, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := r.blobs.Save(ctx, TableNetworkConfigs, userID, data); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
