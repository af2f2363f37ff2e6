// Package transport exposes the checkout over HTTP and ledger health over gRPC.
package transport

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=$GOPACKAGE

import (
	"context"

	"github.com/gagliardetto/solana-go/rpc"

	"github.com/goodnatureofminers/tierpay/internal/purchase/catalog"
	"github.com/goodnatureofminers/tierpay/internal/purchase/model"
)

type (
	// Catalog lists and resolves purchasable tiers.
	Catalog interface {
		Tiers() []catalog.Tier
		Lookup(id model.TierID) (catalog.Tier, error)
	}
	// Checkout runs purchases for the connected buyer.
	Checkout interface {
		Purchase(ctx context.Context, tier model.TierID) (model.PurchaseResult, error)
		Buyer() (model.Identity, bool)
	}
	// History returns journaled attempts of a buyer.
	History interface {
		RecentAttempts(ctx context.Context, buyer model.Identity, limit int) ([]model.AttemptRecord, error)
	}
	// HeightSource reports the current block height of the ledger.
	HeightSource interface {
		GetBlockHeight(ctx context.Context, commitment rpc.CommitmentType) (uint64, error)
	}
)
