package svm

import (
	"context"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=$GOPACKAGE

type (
	// Ledger is the subset of the Solana JSON-RPC API a purchase needs.
	// *rpc.Client satisfies it, as does ObservedLedger.
	Ledger interface {
		GetAccountInfoWithOpts(ctx context.Context, account solana.PublicKey, opts *rpc.GetAccountInfoOpts) (*rpc.GetAccountInfoResult, error)
		GetLatestBlockhash(ctx context.Context, commitment rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error)
		SendRawTransactionWithOpts(ctx context.Context, rawTx []byte, opts rpc.TransactionOpts) (solana.Signature, error)
		GetSignatureStatuses(ctx context.Context, searchTransactionHistory bool, transactionSignatures ...solana.Signature) (*rpc.GetSignatureStatusesResult, error)
		GetBlockHeight(ctx context.Context, commitment rpc.CommitmentType) (uint64, error)
	}

	// Signer is the buyer's signing capability. Implementations return an error wrapping
	// model.ErrUserRejected when the user declines.
	Signer interface {
		PublicKey() solana.PublicKey
		SignTransaction(ctx context.Context, tx *solana.Transaction) (*solana.Transaction, error)
	}

	// RPCMetrics records metrics for RPC calls.
	RPCMetrics interface {
		Observe(operation string, err error, started time.Time)
	}
)
