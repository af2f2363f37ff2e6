package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/goodnatureofminers/tierpay/internal/purchase/model"
)

// RecentAttempts returns the latest attempts of buyer, newest first.
func (r *Repository) RecentAttempts(ctx context.Context, buyer model.Identity, limit int) ([]model.AttemptRecord, error) {
	start := time.Now()
	var err error
	defer func() {
		r.metrics.Observe("recent_attempts", err, start)
	}()

	if limit <= 0 {
		return nil, nil
	}

	const query = `
SELECT
	attempt_id,
	tier,
	seed,
	status,
	stage,
	category,
	provision_signature,
	escrow_signature,
	escrow_address,
	started_at,
	finished_at
FROM purchase_attempts FINAL
WHERE buyer = ?
ORDER BY started_at DESC, attempt_id DESC
LIMIT ?`

	rows, err := r.conn.Query(ctx, query, buyer.String(), limit)
	if err != nil {
		return nil, fmt.Errorf("query recent attempts: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close rows: %w", cerr)
		}
	}()

	var records []model.AttemptRecord
	for rows.Next() {
		var (
			rec                     model.AttemptRecord
			tier                    int32
			status, stage, category string
		)
		if err = rows.Scan(
			&rec.AttemptID,
			&tier,
			&rec.Seed,
			&status,
			&stage,
			&category,
			&rec.ProvisionSignature,
			&rec.EscrowSignature,
			&rec.EscrowAddress,
			&rec.StartedAt,
			&rec.FinishedAt,
		); err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		rec.Buyer = buyer
		rec.Tier = model.TierID(tier)
		rec.Status = model.Status(status)
		rec.Stage = model.Stage(stage)
		rec.Category = model.ErrorCategory(category)
		records = append(records, rec)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attempts: %w", err)
	}

	return records, nil
}

