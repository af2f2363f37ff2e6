package svm

import (
	"context"
	"errors"

	"github.com/gagliardetto/solana-go/rpc"
	"github.com/goodnatureofminers/tierpay/internal/purchase/model"
)

// Prober checks whether accounts exist on the ledger.
type Prober struct {
	commitment rpc.CommitmentType
}

// NewProber constructs a Prober reading at the given commitment.
func NewProber(commitment rpc.CommitmentType) *Prober {
	return &Prober{commitment: commitment}
}

// Probe reports whether account exists. A not-found answer is AccountMissing; any other
// failure is a LookupFailure and never AccountMissing.
func (p *Prober) Probe(ctx context.Context, ledger Ledger, account model.Identity) (model.AccountExistence, error) {
	res, err := ledger.GetAccountInfoWithOpts(ctx, account, &rpc.GetAccountInfoOpts{
		Commitment: p.commitment,
	})
	switch {
	case errors.Is(err, rpc.ErrNotFound):
		return model.AccountMissing, nil
	case err != nil:
		return model.AccountUnknown, &model.Error{Category: model.LookupFailure, Stage: model.StageProbing, Err: err}
	case res == nil || res.Value == nil:
		return model.AccountMissing, nil
	default:
		return model.AccountExists, nil
	}
}
