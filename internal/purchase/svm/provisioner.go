package svm

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	associatedtokenaccount "github.com/gagliardetto/solana-go/programs/associated-token-account"
	"github.com/goodnatureofminers/tierpay/internal/purchase/model"
)

// Provisioner builds the batch transaction that creates missing token accounts.
type Provisioner struct{}

// Build returns a transaction with one create instruction per missing account, in input
// order, paid by feePayer. It returns nil when nothing is missing.
func (Provisioner) Build(missing []model.FundingAccountRef, feePayer model.Identity, freshness model.FreshnessToken) (*model.BatchTransaction, error) {
	if len(missing) == 0 {
		return nil, nil
	}

	pending := make([]model.PendingInstruction, 0, len(missing))
	instructions := make([]solana.Instruction, 0, len(missing))
	for _, ref := range missing {
		if ref.Existence != model.AccountMissing {
			return nil, fmt.Errorf("account %s is %s, only missing accounts are provisioned", ref.Account, ref.Existence)
		}
		ix, err := associatedtokenaccount.NewCreateInstruction(feePayer, ref.Owner, ref.Asset).ValidateAndBuild()
		if err != nil {
			return nil, fmt.Errorf("build create instruction for %s: %w", ref.Account, err)
		}
		instructions = append(instructions, ix)
		pending = append(pending, model.PendingInstruction{
			Payer:          feePayer,
			Owner:          ref.Owner,
			Asset:          ref.Asset,
			Account:        ref.Account,
			AccountProgram: solana.SPLAssociatedTokenAccountProgramID,
		})
	}

	tx, err := solana.NewTransaction(instructions, freshness.Blockhash, solana.TransactionPayer(feePayer))
	if err != nil {
		return nil, fmt.Errorf("assemble account creation transaction: %w", err)
	}

	return &model.BatchTransaction{
		Instructions: pending,
		FeePayer:     feePayer,
		Freshness:    freshness,
		Tx:           tx,
	}, nil
}
