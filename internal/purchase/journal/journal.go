// Package journal buffers finished purchase attempts and writes them in batches.
// Writes are best effort and never feed back into a purchase.
package journal

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/goodnatureofminers/tierpay/internal/purchase/model"
	"github.com/goodnatureofminers/tierpay/pkg/batcher"
)

// Config controls batching of journal writes.
type Config struct {
	FlushSize     int
	FlushInterval time.Duration
	RPS           int
}

// DefaultConfig returns the batching used when none is configured.
func DefaultConfig() Config {
	return Config{FlushSize: 100, FlushInterval: 2 * time.Second, RPS: 10}
}

// Journal records attempt outcomes through a rate-limited batcher.
type Journal struct {
	repo    Repository
	batcher *batcher.Batcher[model.AttemptRecord]
	logger  *zap.Logger
}

// New builds a Journal writing to repo.
func New(repo Repository, cfg Config, logger *zap.Logger) *Journal {
	def := DefaultConfig()
	if cfg.FlushSize <= 0 {
		cfg.FlushSize = def.FlushSize
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = def.FlushInterval
	}
	if cfg.RPS <= 0 {
		cfg.RPS = def.RPS
	}
	logger = logger.Named("journal")
	return &Journal{
		repo:    repo,
		batcher: batcher.New(logger, repo.InsertAttempts, cfg.FlushSize, cfg.FlushInterval, cfg.RPS),
		logger:  logger,
	}
}

// Start begins background flushing.
func (j *Journal) Start(ctx context.Context) {
	j.batcher.Start(ctx)
}

// Stop flushes pending records and waits for the writer.
func (j *Journal) Stop() {
	j.batcher.Stop()
}

// Record queues rec for writing.
func (j *Journal) Record(ctx context.Context, rec model.AttemptRecord) error {
	return j.batcher.Add(ctx, rec)
}

// RecentAttempts reads the latest attempts of buyer straight from the store.
func (j *Journal) RecentAttempts(ctx context.Context, buyer model.Identity, limit int) ([]model.AttemptRecord, error) {
	return j.repo.RecentAttempts(ctx, buyer, limit)
}
