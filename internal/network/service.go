// Package network keeps the simulated link settings of each user.
package network

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/S1riyS/happyphone/server/internal/models"
	"github.com/S1riyS/happyphone/server/pkg/logging"
	"github.com/S1riyS/happyphone/server/pkg/logging/slogext"
)

type Repository interface {
	GetNetworkConfig(ctx context.Context, userID string) (models.NetworkConfig, error)
	SaveNetworkConfig(ctx context.Context, userID string, cfg models.NetworkConfig) error
}

type ConfigService interface {
	Get(ctx context.Context, userID string) (models.NetworkConfig, error)
	Set(ctx context.Context, userID string, cfg models.NetworkConfig) error
	Update(ctx context.Context, userID string, fn func(cfg *models.NetworkConfig)) (models.NetworkConfig, error)
}

// configService caches configs in memory. The cache entry is dropped before
// every write and refilled only after the write succeeds.
type configService struct {
	repo Repository

	mu    sync.RWMutex
	cache map[string]models.NetworkConfig
}

func NewConfigService(repo Repository) ConfigService {
	return &configService{
		repo:  repo,
		cache: make(map[string]models.NetworkConfig),
	}
}

func (s *configService) Get(ctx context.Context, userID string) (models.NetworkConfig, error) {
	const op = "network.configService.Get"

	s.mu.RLock()
	cfg, ok := s.cache[userID]
	s.mu.RUnlock()
	if ok {
		return cfg, nil
	}

	cfg, err := s.repo.GetNetworkConfig(ctx, userID)
	if err != nil {
		logger := logging.GetLoggerFromContextWithOp(ctx, op)
		logger.Error("Failed to load network config", slogext.Err(err))
		return models.NetworkConfig{}, fmt.Errorf("%s: %w", op, err)
	}

	s.mu.Lock()
	s.cache[userID] = cfg
	s.mu.Unlock()
	return cfg, nil
}

func (s *configService) Set(ctx context.Context, userID string, cfg models.NetworkConfig) error {
	const op = "network.configService.Set"
	logger := logging.GetLoggerFromContextWithOp(ctx, op)

	s.mu.Lock()
	delete(s.cache, userID)
	s.mu.Unlock()

	if err := s.repo.SaveNetworkConfig(ctx, userID, cfg); err != nil {
		logger.Error("Failed to save network config", slogext.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	s.mu.Lock()
	s.cache[userID] = cfg
	s.mu.Unlock()

	logger.Debug("Network config saved",
		slog.Float64("speed", cfg.SpeedMbps),
		slog.Float64("latency", cfg.LatencyMs),
		slog.Bool("enabled", cfg.Enabled),
	)
	return nil
}

// Update applies fn to the current config and saves the result.
func (s *configService) Update(ctx context.Context, userID string, fn func(cfg *models.NetworkConfig)) (models.NetworkConfig, error) {
	const op = "network.configService.Update"

	cfg, err := s.Get(ctx, userID)
	if err != nil {
		return models.NetworkConfig{}, fmt.Errorf("%s: %w", op, err)
	}
	fn(&cfg)
	if err := s.Set(ctx, userID, cfg); err != nil {
		return models.NetworkConfig{}, fmt.Errorf("%s: %w", op, err)
	}
	return cfg, nil
}
