package model

import (
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
)

// PurchaseAttempt is one logical purchase of a tier. It lives until a terminal result.
type PurchaseAttempt struct {
	ID        uuid.UUID
	Tier      TierID
	Buyer     Identity
	Seed      int64
	StartedAt time.Time
}

// Status is the terminal status of an attempt.
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// PurchaseResult is the terminal value handed back to the caller.
type PurchaseResult struct {
	AttemptID uuid.UUID
	Tier      TierID
	Status    Status

	// set on success
	Signature     solana.Signature
	EscrowAddress Identity

	// set on failure
	Category ErrorCategory
	Message  string
	Cause    error
}

// Succeeded reports whether the purchase completed.
func (r PurchaseResult) Succeeded() bool {
	return r.Status == StatusSucceeded
}

// EscrowOutcome is the normalized response of the escrow program.
type EscrowOutcome struct {
	Accepted      bool
	Signature     solana.Signature
	EscrowAddress Identity
	Cause         error
}

// AttemptRecord is the journal row describing a finished attempt.
type AttemptRecord struct {
	AttemptID          uuid.UUID
	Tier               TierID
	Buyer              Identity
	Seed               int64
	Status             Status
	Stage              Stage
	Category           ErrorCategory
	ProvisionSignature string
	EscrowSignature    string
	EscrowAddress      string
	StartedAt          time.Time
	FinishedAt         time.Time
}

// EscrowRequest carries the accounts of one make_escrow call.
type EscrowRequest struct {
	Seed                  int64
	Tier                  TierID
	Mint                  Identity
	BuyerAccount          Identity
	CounterpartyAccount   Identity
	CounterpartyAuthority Identity
}
