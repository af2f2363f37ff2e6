package model

import "github.com/gagliardetto/solana-go"

// Identity is a fixed-length ledger address of an account, a program or an asset.
type Identity = solana.PublicKey

// AccountExistence is the probed state of a funding account.
type AccountExistence uint8

const (
	// AccountUnknown marks an account that has not been probed yet.
	AccountUnknown AccountExistence = iota
	// AccountExists marks an account found on the ledger.
	AccountExists
	// AccountMissing marks an account the ledger reported as not found.
	AccountMissing
)

func (e AccountExistence) String() string {
	switch e {
	case AccountExists:
		return "exists"
	case AccountMissing:
		return "missing"
	default:
		return "unknown"
	}
}

// FundingAccountRef pairs an owner and an asset with their derived funding account.
type FundingAccountRef struct {
	Owner     Identity
	Asset     Identity
	Account   Identity
	Existence AccountExistence
}
