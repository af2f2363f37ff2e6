package journal

import (
	"context"

	"github.com/goodnatureofminers/tierpay/internal/purchase/model"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=$GOPACKAGE

type (
	Repository interface {
		InsertAttempts(ctx context.Context, records []model.AttemptRecord) error
		RecentAttempts(ctx context.Context, buyer model.Identity, limit int) ([]model.AttemptRecord, error)
	}
)
