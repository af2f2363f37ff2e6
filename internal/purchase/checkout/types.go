package checkout

import (
	"context"

	"github.com/goodnatureofminers/tierpay/internal/purchase/catalog"
	"github.com/goodnatureofminers/tierpay/internal/purchase/model"
	"github.com/goodnatureofminers/tierpay/internal/purchase/service"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=$GOPACKAGE

type (
	Purchaser interface {
		Purchase(ctx context.Context, req service.Request) model.PurchaseResult
	}
	Catalog interface {
		Lookup(id model.TierID) (catalog.Tier, error)
	}
)
