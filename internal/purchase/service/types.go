package service

import (
	"context"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/goodnatureofminers/tierpay/internal/purchase/model"
	"github.com/goodnatureofminers/tierpay/internal/purchase/svm"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=$GOPACKAGE

type (
	Locator interface {
		Locate(owner, asset model.Identity) (model.FundingAccountRef, error)
	}
	Prober interface {
		Probe(ctx context.Context, ledger svm.Ledger, account model.Identity) (model.AccountExistence, error)
	}
	FreshnessSource interface {
		Latest(ctx context.Context, ledger svm.Ledger) (model.FreshnessToken, error)
	}
	Provisioner interface {
		Build(missing []model.FundingAccountRef, feePayer model.Identity, freshness model.FreshnessToken) (*model.BatchTransaction, error)
	}
	Submitter interface {
		Submit(ctx context.Context, ledger svm.Ledger, signer svm.Signer, tx *solana.Transaction, freshness model.FreshnessToken) (model.Submission, error)
	}
	EscrowInitiator interface {
		CreateEscrow(ctx context.Context, ledger svm.Ledger, signer svm.Signer, req model.EscrowRequest) model.EscrowOutcome
	}
	SeedSource interface {
		Next() int64
	}
	Metrics interface {
		ObserveStage(stage model.Stage, err error, started time.Time)
		ObserveResult(tier model.TierID, category model.ErrorCategory, started time.Time)
	}
	// Journal receives terminal attempt records. It is write-only from the orchestrator's side.
	Journal interface {
		Record(ctx context.Context, rec model.AttemptRecord) error
	}
)
