// Package svm implements purchase steps against a Solana ledger.
package svm

import (
	"context"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// ObservedLedger wraps a Ledger with metrics instrumentation.
type ObservedLedger struct {
	client     Ledger
	rpcMetrics RPCMetrics
}

// NewObservedLedger constructs an instrumented ledger handle.
func NewObservedLedger(client Ledger, rpcMetrics RPCMetrics) *ObservedLedger {
	return &ObservedLedger{
		client:     client,
		rpcMetrics: rpcMetrics,
	}
}

// Dial returns an instrumented ledger handle for the given JSON-RPC endpoint.
func Dial(endpoint string, rpcMetrics RPCMetrics) *ObservedLedger {
	return NewObservedLedger(rpc.New(endpoint), rpcMetrics)
}

// GetAccountInfoWithOpts returns account info or rpc.ErrNotFound.
func (l *ObservedLedger) GetAccountInfoWithOpts(ctx context.Context, account solana.PublicKey, opts *rpc.GetAccountInfoOpts) (res *rpc.GetAccountInfoResult, err error) {
	started := time.Now()
	defer func() {
		l.rpcMetrics.Observe("get_account_info", err, started)
	}()
	return l.client.GetAccountInfoWithOpts(ctx, account, opts)
}

// GetLatestBlockhash returns a recent blockhash and its last valid block height.
func (l *ObservedLedger) GetLatestBlockhash(ctx context.Context, commitment rpc.CommitmentType) (res *rpc.GetLatestBlockhashResult, err error) {
	started := time.Now()
	defer func() {
		l.rpcMetrics.Observe("get_latest_blockhash", err, started)
	}()
	return l.client.GetLatestBlockhash(ctx, commitment)
}

// SendRawTransactionWithOpts broadcasts a signed, serialized transaction.
func (l *ObservedLedger) SendRawTransactionWithOpts(ctx context.Context, rawTx []byte, opts rpc.TransactionOpts) (sig solana.Signature, err error) {
	started := time.Now()
	defer func() {
		l.rpcMetrics.Observe("send_raw_transaction", err, started)
	}()
	return l.client.SendRawTransactionWithOpts(ctx, rawTx, opts)
}

// GetSignatureStatuses returns the processing status of the given signatures.
func (l *ObservedLedger) GetSignatureStatuses(ctx context.Context, searchTransactionHistory bool, transactionSignatures ...solana.Signature) (res *rpc.GetSignatureStatusesResult, err error) {
	started := time.Now()
	defer func() {
		l.rpcMetrics.Observe("get_signature_statuses", err, started)
	}()
	return l.client.GetSignatureStatuses(ctx, searchTransactionHistory, transactionSignatures...)
}

// GetBlockHeight returns the current block height.
func (l *ObservedLedger) GetBlockHeight(ctx context.Context, commitment rpc.CommitmentType) (height uint64, err error) {
	started := time.Now()
	defer func() {
		l.rpcMetrics.Observe("get_block_height", err, started)
	}()
	return l.client.GetBlockHeight(ctx, commitment)
}
