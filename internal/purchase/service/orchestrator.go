// Package service runs a tier purchase from funding account checks to escrow creation.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/goodnatureofminers/tierpay/internal/purchase/model"
	"github.com/goodnatureofminers/tierpay/internal/purchase/svm"
	"github.com/goodnatureofminers/tierpay/pkg/workerpool"
)

// defaultJournalTimeout bounds the wait for a journal record.
const defaultJournalTimeout = time.Second

// Config holds the fixed accounts every purchase pays against.
type Config struct {
	Mint                  model.Identity
	CounterpartyAuthority model.Identity
}

// Dependencies are the purchase steps the orchestrator sequences.
type Dependencies struct {
	Locator     Locator
	Prober      Prober
	Freshness   FreshnessSource
	Provisioner Provisioner
	Submitter   Submitter
	Escrow      EscrowInitiator
	Seeds       SeedSource
	Metrics     Metrics
	// Journal is optional.
	Journal Journal
}

// Request is one purchase call. Signer and Ledger are passed explicitly on every call.
type Request struct {
	Tier   model.TierID
	Signer svm.Signer
	Ledger svm.Ledger
}

// Orchestrator runs purchase attempts. It holds no per-attempt state, so one instance
// serves concurrent attempts.
type Orchestrator struct {
	cfg    Config
	deps   Dependencies
	logger *zap.Logger
	now    func() time.Time

	journalTimeout time.Duration
}

// NewOrchestrator validates dependencies and builds an orchestrator.
func NewOrchestrator(cfg Config, deps Dependencies, logger *zap.Logger) (*Orchestrator, error) {
	if cfg.Mint.IsZero() || cfg.CounterpartyAuthority.IsZero() {
		return nil, errors.New("mint and counterparty authority are required")
	}
	if deps.Locator == nil || deps.Prober == nil || deps.Freshness == nil || deps.Provisioner == nil ||
		deps.Submitter == nil || deps.Escrow == nil || deps.Seeds == nil || deps.Metrics == nil {
		return nil, errors.New("purchase dependencies are incomplete")
	}
	return &Orchestrator{
		cfg:    cfg,
		deps:   deps,
		logger: logger,
		now:    time.Now,

		journalTimeout: defaultJournalTimeout,
	}, nil
}

// attempt is the mutable state of one Purchase call. It never escapes the call.
type attempt struct {
	model.PurchaseAttempt
	stage      model.Stage
	stageStart time.Time
	record     model.AttemptRecord
	logger     *zap.Logger
}

// Purchase runs one attempt to a terminal result. Failures never retry from the middle.
func (o *Orchestrator) Purchase(ctx context.Context, req Request) model.PurchaseResult {
	a := &attempt{
		PurchaseAttempt: model.PurchaseAttempt{
			ID:        uuid.New(),
			Tier:      req.Tier,
			StartedAt: o.now(),
		},
		stage: model.StageIdle,
	}
	a.stageStart = a.StartedAt
	a.logger = o.logger.With(zap.Stringer("attempt_id", a.ID), zap.Stringer("tier", req.Tier))

	if req.Signer == nil || req.Ledger == nil || req.Signer.PublicKey().IsZero() {
		return o.fail(ctx, a, &model.Error{Category: model.NotConnected, Stage: model.StageIdle})
	}
	a.Buyer = req.Signer.PublicKey()
	a.logger = a.logger.With(zap.Stringer("buyer", a.Buyer))

	o.advance(a, model.StageLocating, nil)
	buyerRef, err := o.deps.Locator.Locate(a.Buyer, o.cfg.Mint)
	if err != nil {
		return o.fail(ctx, a, err)
	}
	counterpartyRef, err := o.deps.Locator.Locate(o.cfg.CounterpartyAuthority, o.cfg.Mint)
	if err != nil {
		return o.fail(ctx, a, err)
	}
	refs := []model.FundingAccountRef{buyerRef, counterpartyRef}

	o.advance(a, model.StageProbing, nil)
	if err := o.probe(ctx, req.Ledger, refs); err != nil {
		return o.fail(ctx, a, err)
	}

	var missing []model.FundingAccountRef
	for _, ref := range refs {
		if ref.Existence == model.AccountMissing {
			missing = append(missing, ref)
		}
	}

	if len(missing) > 0 {
		if err := o.provision(ctx, a, req, refs, missing); err != nil {
			return o.fail(ctx, a, err)
		}
	} else {
		a.logger.Debug("funding accounts exist, skipping provisioning")
	}

	o.advance(a, model.StageEscrowing, nil)
	a.Seed = o.deps.Seeds.Next()
	a.record.Seed = a.Seed
	setup := []zap.Field{
		zap.Stringer("buyer_account", buyerRef.Account),
		zap.Stringer("counterparty_account", counterpartyRef.Account),
		zap.Stringer("counterparty_authority", o.cfg.CounterpartyAuthority),
		zap.Stringer("mint", o.cfg.Mint),
		zap.Int64("seed", a.Seed),
	}
	a.logger.Debug("transaction setup", setup...)

	outcome := o.deps.Escrow.CreateEscrow(ctx, req.Ledger, req.Signer, model.EscrowRequest{
		Seed:                  a.Seed,
		Tier:                  req.Tier,
		Mint:                  o.cfg.Mint,
		BuyerAccount:          buyerRef.Account,
		CounterpartyAccount:   counterpartyRef.Account,
		CounterpartyAuthority: o.cfg.CounterpartyAuthority,
	})
	if !outcome.Accepted {
		cause := outcome.Cause
		if cause == nil {
			cause = errors.New("escrow rejected without cause")
		}
		a.logger.Warn("escrow creation failed", append(setup, zap.Error(cause))...)
		return o.fail(ctx, a, cause)
	}

	return o.succeed(ctx, a, outcome)
}

func (o *Orchestrator) probe(ctx context.Context, ledger svm.Ledger, refs []model.FundingAccountRef) error {
	existence, err := workerpool.Map(ctx, len(refs), refs, func(ctx context.Context, ref model.FundingAccountRef) (model.AccountExistence, error) {
		return o.deps.Prober.Probe(ctx, ledger, ref.Account)
	})
	if err != nil {
		return err
	}
	for i := range refs {
		refs[i].Existence = existence[i]
	}
	return nil
}

func (o *Orchestrator) provision(ctx context.Context, a *attempt, req Request, refs, missing []model.FundingAccountRef) error {
	o.advance(a, model.StageProvisioning, nil)
	freshness, err := o.deps.Freshness.Latest(ctx, req.Ledger)
	if err != nil {
		return err
	}
	batch, err := o.deps.Provisioner.Build(missing, a.Buyer, freshness)
	if err != nil {
		return err
	}
	if batch == nil || batch.Tx == nil {
		return fmt.Errorf("provisioning %d accounts: %w", len(missing), model.ErrEmptyBatch)
	}
	a.logger.Debug("creating funding accounts", zap.Int("instructions", len(batch.Instructions)))

	o.advance(a, model.StageSubmitting, nil)
	sub, err := o.deps.Submitter.Submit(ctx, req.Ledger, req.Signer, batch.Tx, batch.Freshness)
	if err != nil {
		if !errors.Is(err, model.ErrAccountInUse) {
			return err
		}
		// another client created an account between probe and submit
		if recheckErr := o.probe(ctx, req.Ledger, refs); recheckErr != nil {
			return recheckErr
		}
		for _, ref := range refs {
			if ref.Existence != model.AccountExists {
				return err
			}
		}
		a.logger.Debug("funding accounts created concurrently, continuing", zap.Error(err))
		return nil
	}

	a.record.ProvisionSignature = sub.Signature.String()
	a.logger.Debug("funding accounts created",
		zap.Stringer("signature", sub.Signature),
		zap.Uint64("slot", sub.Slot),
	)
	return nil
}

// advance closes the current stage and enters next. A terminal stage is never left.
func (o *Orchestrator) advance(a *attempt, next model.Stage, err error) {
	if a.stage.Terminal() {
		return
	}
	if a.stage != model.StageIdle {
		o.deps.Metrics.ObserveStage(a.stage, err, a.stageStart)
	}
	a.logger.Debug("purchase stage", zap.String("from", string(a.stage)), zap.String("to", string(next)))
	a.stage = next
	a.stageStart = o.now()
}

func (o *Orchestrator) fail(ctx context.Context, a *attempt, err error) model.PurchaseResult {
	category := Classify(err)
	failedAt := a.stage
	o.advance(a, model.StageFailed, err)

	a.logger.Warn("purchase failed",
		zap.String("stage", string(failedAt)),
		zap.String("category", string(category)),
		zap.Error(err),
	)

	a.record.Status = model.StatusFailed
	a.record.Stage = failedAt
	a.record.Category = category
	o.finish(ctx, a, category)

	return model.PurchaseResult{
		AttemptID: a.ID,
		Tier:      a.Tier,
		Status:    model.StatusFailed,
		Category:  category,
		Message:   category.Message(),
		Cause:     err,
	}
}

func (o *Orchestrator) succeed(ctx context.Context, a *attempt, outcome model.EscrowOutcome) model.PurchaseResult {
	o.advance(a, model.StageSucceeded, nil)

	a.logger.Info("purchase succeeded",
		zap.Stringer("signature", outcome.Signature),
		zap.Stringer("escrow", outcome.EscrowAddress),
		zap.Duration("elapsed", o.now().Sub(a.StartedAt)),
	)

	a.record.Status = model.StatusSucceeded
	a.record.Stage = model.StageSucceeded
	a.record.EscrowSignature = outcome.Signature.String()
	a.record.EscrowAddress = outcome.EscrowAddress.String()
	o.finish(ctx, a, "")

	return model.PurchaseResult{
		AttemptID:     a.ID,
		Tier:          a.Tier,
		Status:        model.StatusSucceeded,
		Signature:     outcome.Signature,
		EscrowAddress: outcome.EscrowAddress,
	}
}

func (o *Orchestrator) finish(ctx context.Context, a *attempt, category model.ErrorCategory) {
	o.deps.Metrics.ObserveResult(a.Tier, category, a.StartedAt)
	if o.deps.Journal == nil {
		return
	}

	rec := a.record
	rec.AttemptID = a.ID
	rec.Tier = a.Tier
	rec.Buyer = a.Buyer
	rec.Seed = a.Seed
	rec.StartedAt = a.StartedAt
	rec.FinishedAt = o.now()
	// canceled attempts are journaled too, and a stalled journal must not hold the result
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.journalTimeout)
	defer cancel()
	if err := o.deps.Journal.Record(ctx, rec); err != nil {
		a.logger.Warn("attempt not journaled", zap.Error(err))
	}
}

