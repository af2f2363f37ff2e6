package svm

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go/rpc"
	"github.com/goodnatureofminers/tierpay/internal/purchase/model"
)

// Freshness fetches recent block references to build transactions against.
type Freshness struct {
	commitment rpc.CommitmentType
}

// NewFreshness constructs a Freshness source at the given commitment.
func NewFreshness(commitment rpc.CommitmentType) *Freshness {
	return &Freshness{commitment: commitment}
}

// Latest returns the latest blockhash with its last valid block height.
func (f *Freshness) Latest(ctx context.Context, ledger Ledger) (model.FreshnessToken, error) {
	res, err := ledger.GetLatestBlockhash(ctx, f.commitment)
	if err != nil {
		return model.FreshnessToken{}, fmt.Errorf("get latest blockhash: %w", err)
	}
	if res == nil || res.Value == nil {
		return model.FreshnessToken{}, errors.New("get latest blockhash: empty response")
	}
	return model.FreshnessToken{
		Blockhash:            res.Value.Blockhash,
		LastValidBlockHeight: res.Value.LastValidBlockHeight,
	}, nil
}
