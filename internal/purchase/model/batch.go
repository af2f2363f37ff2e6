package model

import "github.com/gagliardetto/solana-go"

// FreshnessToken is a recent block reference a transaction is built against.
// The ledger stops accepting the transaction once the chain passes LastValidBlockHeight.
type FreshnessToken struct {
	Blockhash            solana.Hash
	LastValidBlockHeight uint64
}

// PendingInstruction is the intent to create one funding account.
type PendingInstruction struct {
	Payer          Identity
	Owner          Identity
	Asset          Identity
	Account        Identity
	AccountProgram Identity
}

// BatchTransaction is an ordered set of account creations paid by a single fee payer.
type BatchTransaction struct {
	Instructions []PendingInstruction
	FeePayer     Identity
	Freshness    FreshnessToken
	Tx           *solana.Transaction
}

// Submission is the accepted outcome of a submitted transaction.
type Submission struct {
	Signature solana.Signature
	Slot      uint64
}
