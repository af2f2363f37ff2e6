package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/goodnatureofminers/tierpay/internal/purchase/model"
)

// InsertAttempts stores finished attempt records.
func (r *Repository) InsertAttempts(ctx context.Context, records []model.AttemptRecord) error {
	start := time.Now()
	var err error
	defer func() {
		r.metrics.Observe("insert_attempts", err, start)
	}()

	if len(records) == 0 {
		return nil
	}

	const query = `
INSERT INTO purchase_attempts (
	attempt_id,
	tier,
	buyer,
	seed,
	status,
	stage,
	category,
	provision_signature,
	escrow_signature,
	escrow_address,
	started_at,
	finished_at
) VALUES`

	batch, err := r.conn.PrepareBatch(ctx, query)
	if err != nil {
		return fmt.Errorf("prepare attempts batch: %w", err)
	}

	for _, rec := range records {
		if err = batch.Append(
			rec.AttemptID,
			int32(rec.Tier),
			rec.Buyer.String(),
			rec.Seed,
			string(rec.Status),
			string(rec.Stage),
			string(rec.Category),
			rec.ProvisionSignature,
			rec.EscrowSignature,
			rec.EscrowAddress,
			rec.StartedAt.UTC(),
			rec.FinishedAt.UTC(),
		); err != nil {
			_ = batch.Abort()
			return fmt.Errorf("append attempt: %w", err)
		}
	}

	if err = batch.Send(); err != nil {
		return fmt.Errorf("insert attempts: %w", err)
	}
	return nil
}
