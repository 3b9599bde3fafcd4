package repository

import (
	"context"
	"time"

	"github.com/S1riyS/happyphone/server/internal/metrics"
)

// Logical tables. Each one stores a single JSON document per user.
const (
	TableHistories      = "user_histories"
	TableFilesystems    = "user_filesystems"
	TableNetworkConfigs = "user_network_configs"
)

var Tables = []string{TableHistories, TableFilesystems, TableNetworkConfigs}

// BlobStore keeps whole values keyed by (table, user).
type BlobStore interface {
	// Load returns the stored value and whether it exists.
	Load(ctx context.Context, table, userID string) ([]byte, bool, error)
	Save(ctx context.Context, table, userID string, data []byte) error
}

// Transactor groups saves so they land together where the backend allows it.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// directTransactor runs fn as is, for backends without transactions.
type directTransactor struct{}

func (directTransactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func NewDirectTransactor() Transactor {
	return directTransactor{}
}

// instrumentedBlobStore records storage metrics around another store.
type instrumentedBlobStore struct {
	backend string
	next    BlobStore
}

func Instrument(backend string, next BlobStore) BlobStore {
	return &instrumentedBlobStore{backend: backend, next: next}
}

func (s *instrumentedBlobStore) Load(ctx context.Context, table, userID string) ([]byte, bool, error) {
	start := time.Now()
	data, ok, err := s.next.Load(ctx, table, userID)
	metrics.RecordStorageOperation(s.backend, "load", time.Since(start), err == nil)
	return data, ok, err
}

func (s *instrumentedBlobStore) Save(ctx context.Context, table, userID string, data []byte) error {
	start := time.Now()
	err := s.next.Save(ctx, table, userID, data)
	metrics.RecordStorageOperation(s.backend, "save", time.Since(start), err == nil)
	return err
}
