package svm

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/goodnatureofminers/tierpay/internal/purchase/model"
)

// Locator derives associated token accounts. It performs no I/O.
type Locator struct{}

// Locate returns the funding account of owner for the given mint.
func (Locator) Locate(owner, asset model.Identity) (model.FundingAccountRef, error) {
	account, _, err := solana.FindAssociatedTokenAddress(owner, asset)
	if err != nil {
		return model.FundingAccountRef{}, fmt.Errorf("derive token account of %s for mint %s: %w", owner, asset, err)
	}
	return model.FundingAccountRef{
		Owner:     owner,
		Asset:     asset,
		Account:   account,
		Existence: model.AccountUnknown,
	}, nil
}
