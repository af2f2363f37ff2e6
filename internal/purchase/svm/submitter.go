package svm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/goodnatureofminers/tierpay/internal/clock"
	"github.com/goodnatureofminers/tierpay/internal/purchase/model"
	"go.uber.org/zap"
)

const (
	// DefaultMaxRetries bounds retransmission of a broadcast transaction by the node.
	DefaultMaxRetries uint = 5
	// broadcastAttempts bounds resends after transport errors, before the node accepted the transaction.
	broadcastAttempts = 3
	// DefaultPollInterval is the pause between confirmation status checks.
	DefaultPollInterval = 500 * time.Millisecond
)

// Submitter signs, broadcasts and confirms transactions.
type Submitter struct {
	logger       *zap.Logger
	commitment   rpc.CommitmentType
	maxRetries   uint
	pollInterval time.Duration
	sleep        func(context.Context, time.Duration) error
}

// NewSubmitter constructs a Submitter that waits for the given commitment.
func NewSubmitter(logger *zap.Logger, commitment rpc.CommitmentType, maxRetries uint, pollInterval time.Duration) *Submitter {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	return &Submitter{
		logger:       logger,
		commitment:   commitment,
		maxRetries:   maxRetries,
		pollInterval: pollInterval,
		sleep:        clock.SleepWithContext,
	}
}

// Submit signs tx with signer, broadcasts it without preflight and waits until it is
// confirmed or freshness expires. Returned errors are *model.Error.
func (s *Submitter) Submit(ctx context.Context, ledger Ledger, signer Signer, tx *solana.Transaction, freshness model.FreshnessToken) (model.Submission, error) {
	if tx == nil {
		return model.Submission{}, &model.Error{Category: model.UnknownFailure, Stage: model.StageSubmitting, Err: model.ErrEmptyBatch}
	}
	if tx.Message.RecentBlockhash != freshness.Blockhash {
		return model.Submission{}, &model.Error{
			Category: model.UnknownFailure,
			Stage:    model.StageSubmitting,
			Err:      fmt.Errorf("transaction blockhash %s does not match freshness token %s", tx.Message.RecentBlockhash, freshness.Blockhash),
		}
	}

	signed, err := signer.SignTransaction(ctx, tx)
	if err != nil {
		return model.Submission{}, classifySignErr(err)
	}
	if signed == nil || len(signed.Signatures) == 0 {
		return model.Submission{}, &model.Error{Category: model.UnknownFailure, Stage: model.StageSubmitting, Err: errors.New("signer returned an unsigned transaction")}
	}
	sig := signed.Signatures[0]

	raw, err := signed.MarshalBinary()
	if err != nil {
		return model.Submission{}, &model.Error{Category: model.UnknownFailure, Stage: model.StageSubmitting, Err: fmt.Errorf("serialize transaction: %w", err)}
	}

	logger := s.logger.With(zap.Stringer("signature", sig))
	if err := s.broadcast(ctx, ledger, raw, logger); err != nil {
		return model.Submission{}, err
	}

	return s.confirm(ctx, ledger, signed, freshness, logger)
}

func (s *Submitter) broadcast(ctx context.Context, ledger Ledger, raw []byte, logger *zap.Logger) error {
	maxRetries := s.maxRetries
	opts := rpc.TransactionOpts{
		SkipPreflight: true,
		MaxRetries:    &maxRetries,
	}

	var lastErr error
	for attempt := 1; attempt <= broadcastAttempts; attempt++ {
		_, err := ledger.SendRawTransactionWithOpts(ctx, raw, opts)
		if err == nil {
			logger.Debug("transaction broadcast", zap.Int("attempt", attempt))
			return nil
		}
		if classified, ok := classifySendErr(err); ok {
			return classified
		}
		lastErr = err
		if attempt == broadcastAttempts {
			break
		}
		logger.Warn("broadcast failed, resending", zap.Error(err), zap.Int("attempt", attempt))
		if sleepErr := s.sleep(ctx, s.pollInterval); sleepErr != nil {
			return &model.Error{Category: model.UnknownFailure, Stage: model.StageSubmitting, Err: sleepErr}
		}
	}
	return &model.Error{Category: model.UnknownFailure, Stage: model.StageSubmitting, Err: fmt.Errorf("broadcast transaction: %w", lastErr)}
}

func (s *Submitter) confirm(ctx context.Context, ledger Ledger, tx *solana.Transaction, freshness model.FreshnessToken, logger *zap.Logger) (model.Submission, error) {
	sig := tx.Signatures[0]
	for {
		if sub, done, err := s.status(ctx, ledger, tx, logger); done {
			return sub, err
		}

		height, err := ledger.GetBlockHeight(ctx, s.commitment)
		if err == nil && height > freshness.LastValidBlockHeight {
			// the transaction may have landed after the status read above
			if sub, done, err := s.status(ctx, ledger, tx, logger); done {
				return sub, err
			}
			return model.Submission{}, &model.Error{
				Category: model.ConfirmationTimeout,
				Stage:    model.StageSubmitting,
				Err:      fmt.Errorf("%w: height %d passed %d", model.ErrBlockhashExpired, height, freshness.LastValidBlockHeight),
			}
		}
		if err != nil {
			logger.Debug("block height lookup failed", zap.Error(err))
		}

		if sleepErr := s.sleep(ctx, s.pollInterval); sleepErr != nil {
			return model.Submission{}, &model.Error{Category: model.UnknownFailure, Stage: model.StageSubmitting, Err: fmt.Errorf("await confirmation of %s: %w", sig, sleepErr)}
		}
	}
}

// status reads the signature status once. done is false while the transaction is
// unknown or below the wanted commitment.
func (s *Submitter) status(ctx context.Context, ledger Ledger, tx *solana.Transaction, logger *zap.Logger) (sub model.Submission, done bool, err error) {
	sig := tx.Signatures[0]
	statuses, err := ledger.GetSignatureStatuses(ctx, false, sig)
	if err != nil {
		logger.Debug("signature status lookup failed", zap.Error(err))
		return model.Submission{}, false, nil
	}
	if statuses == nil || len(statuses.Value) == 0 || statuses.Value[0] == nil {
		return model.Submission{}, false, nil
	}

	st := statuses.Value[0]
	if st.Err != nil {
		return model.Submission{}, true, classifyStatusErr(st.Err, tx)
	}
	if !s.reached(st.ConfirmationStatus) {
		return model.Submission{}, false, nil
	}
	logger.Debug("transaction confirmed", zap.Uint64("slot", st.Slot), zap.String("status", string(st.ConfirmationStatus)))
	return model.Submission{Signature: sig, Slot: st.Slot}, true, nil
}

func (s *Submitter) reached(status rpc.ConfirmationStatusType) bool {
	switch status {
	case rpc.ConfirmationStatusFinalized:
		return true
	case rpc.ConfirmationStatusConfirmed:
		return s.commitment != rpc.CommitmentFinalized
	case rpc.ConfirmationStatusProcessed:
		return s.commitment == rpc.CommitmentProcessed
	default:
		return false
	}
}
