package network

import (
	"context"
	"errors"
	"testing"

	"github.com/S1riyS/happyphone/server/internal/models"
)

type countingRepo struct {
	stored  map[string]models.NetworkConfig
	loads   int
	failing bool
}

func (r *countingRepo) GetNetworkConfig(_ context.Context, userID string) (models.NetworkConfig, error) {
	r.loads++
	if cfg, ok := r.stored[userID]; ok {
		return cfg, nil
	}
	return models.DefaultNetworkConfig(), nil
}

func (r *countingRepo) SaveNetworkConfig(_ context.Context, userID string, cfg models.NetworkConfig) error {
	if r.failing {
		return errors.New("storage down")
	}
	r.stored[userID] = cfg
	return nil
}

func TestGetCaches(t *testing.T) {
	ctx := context.Background()
	repo := &countingRepo{stored: map[string]models.NetworkConfig{}}
	svc := NewConfigService(repo)

	for range 3 {
		cfg, err := svc.Get(ctx, "u1")
		if err != nil {
			t.Fatal(err)
		}
		if cfg != models.DefaultNetworkConfig() {
			t.Errorf("got %+v, want defaults", cfg)
		}
	}
	if repo.loads != 1 {
		t.Errorf("loads = %d, want 1", repo.loads)
	}
}

func TestUpdateWritesThrough(t *testing.T) {
	ctx := context.Background()
	repo := &countingRepo{stored: map[string]models.NetworkConfig{}}
	svc := NewConfigService(repo)

	cfg, err := svc.Update(ctx, "u1", func(c *models.NetworkConfig) { c.SpeedMbps = 10 })
	if err != nil {
		t.Fatal(err)
	}
	if cfg.SpeedMbps != 10 || repo.stored["u1"].SpeedMbps != 10 {
		t.Fatalf("update not persisted: %+v", repo.stored["u1"])
	}

	got, _ := svc.Get(ctx, "u1")
	if got.SpeedMbps != 10 {
		t.Errorf("cache stale: %+v", got)
	}
}

func TestFailedWriteInvalidatesCache(t *testing.T) {
	ctx := context.Background()
	repo := &countingRepo{stored: map[string]models.NetworkConfig{}}
	svc := NewConfigService(repo)

	if _, err := svc.Get(ctx, "u1"); err != nil {
		t.Fatal(err)
	}
	repo.failing = true

	cfg := models.DefaultNetworkConfig()
	cfg.Enabled = false
	if err := svc.Set(ctx, "u1", cfg); err == nil {
		t.Fatal("expected error")
	}

	got, _ := svc.Get(ctx, "u1")
	if !got.Enabled {
		t.Error("failed write leaked into the cache")
	}
	if repo.loads != 2 {
		t.Errorf("loads = %d, want a reload after the failed write", repo.loads)
	}
}
