package service

import (
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"

	"github.com/goodnatureofminers/tierpay/internal/clock"
	"github.com/goodnatureofminers/tierpay/internal/purchase/svm"
)

// SolanaOptions configures the ledger-facing steps of NewSolanaOrchestrator.
type SolanaOptions struct {
	Config
	EscrowProgram solana.PublicKey
	Commitment    rpc.CommitmentType
	MaxRetries    uint
	PollInterval  time.Duration
}

// NewSolanaOrchestrator builds an orchestrator whose steps run against a Solana ledger.
// journal may be nil.
func NewSolanaOrchestrator(opts SolanaOptions, metrics Metrics, journal Journal, logger *zap.Logger) (*Orchestrator, error) {
	if opts.Commitment == "" {
		opts.Commitment = rpc.CommitmentConfirmed
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = svm.DefaultPollInterval
	}

	prober := svm.NewProber(opts.Commitment)
	freshness := svm.NewFreshness(opts.Commitment)
	submitter := svm.NewSubmitter(logger.Named("submitter"), opts.Commitment, opts.MaxRetries, opts.PollInterval)
	escrow, err := svm.NewEscrowClient(opts.EscrowProgram, prober, freshness, submitter, logger.Named("escrow"))
	if err != nil {
		return nil, fmt.Errorf("init escrow client: %w", err)
	}

	return NewOrchestrator(opts.Config, Dependencies{
		Locator:     svm.Locator{},
		Prober:      prober,
		Freshness:   freshness,
		Provisioner: svm.Provisioner{},
		Submitter:   submitter,
		Escrow:      escrow,
		Seeds:       clock.NewSeedSource(),
		Metrics:     metrics,
		Journal:     journal,
	}, logger)
}
