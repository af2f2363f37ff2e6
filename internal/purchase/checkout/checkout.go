// Package checkout is the caller-facing purchase boundary. It owns the wallet session and
// rejects a second purchase of a tier that is already in flight.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/goodnatureofminers/tierpay/internal/purchase/model"
	"github.com/goodnatureofminers/tierpay/internal/purchase/service"
	"github.com/goodnatureofminers/tierpay/internal/purchase/svm"
)

// ErrInFlight is returned when the tier already has a purchase running.
var ErrInFlight = errors.New("purchase already in progress for this tier")

// Checkout gates purchases per tier and threads the session into every attempt.
type Checkout struct {
	purchaser Purchaser
	catalog   Catalog
	logger    *zap.Logger

	mu       sync.Mutex
	inFlight map[model.TierID]struct{}
	signer   svm.Signer
	ledger   svm.Ledger
}

// New constructs a disconnected Checkout.
func New(purchaser Purchaser, catalog Catalog, logger *zap.Logger) *Checkout {
	return &Checkout{
		purchaser: purchaser,
		catalog:   catalog,
		logger:    logger,
		inFlight:  make(map[model.TierID]struct{}),
	}
}

// Connect sets the wallet session used by subsequent purchases.
func (c *Checkout) Connect(signer svm.Signer, ledger svm.Ledger) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.signer = signer
	c.ledger = ledger
	if signer != nil {
		c.logger.Info("wallet connected", zap.Stringer("buyer", signer.PublicKey()))
	}
}

// Disconnect clears the wallet session. Attempts already running keep their session.
func (c *Checkout) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.signer = nil
	c.ledger = nil
	c.logger.Info("wallet disconnected")
}

// Buyer returns the connected identity, if any.
func (c *Checkout) Buyer() (model.Identity, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.signer == nil {
		return model.Identity{}, false
	}
	return c.signer.PublicKey(), true
}

// Purchase runs one attempt for tier. It returns ErrInFlight without running anything when
// the tier is already being purchased, and catalog.ErrUnknownTier for tiers not on sale.
func (c *Checkout) Purchase(ctx context.Context, tier model.TierID) (model.PurchaseResult, error) {
	if _, err := c.catalog.Lookup(tier); err != nil {
		return model.PurchaseResult{}, fmt.Errorf("tier %s: %w", tier, err)
	}

	c.mu.Lock()
	if _, busy := c.inFlight[tier]; busy {
		c.mu.Unlock()
		return model.PurchaseResult{}, fmt.Errorf("tier %s: %w", tier, ErrInFlight)
	}
	c.inFlight[tier] = struct{}{}
	req := service.Request{Tier: tier, Signer: c.signer, Ledger: c.ledger}
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.inFlight, tier)
		c.mu.Unlock()
	}()

	return c.purchaser.Purchase(ctx, req), nil
}

// InProgress reports whether tier has a purchase running.
func (c *Checkout) InProgress(tier model.TierID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.inFlight[tier]
	return ok
}

// InFlight returns the tiers with a purchase running, in ascending order.
func (c *Checkout) InFlight() []model.TierID {
	c.mu.Lock()
	tiers := make([]model.TierID, 0, len(c.inFlight))
	for tier := range c.inFlight {
		tiers = append(tiers, tier)
	}
	c.mu.Unlock()

	sort.Slice(tiers, func(i, j int) bool { return tiers[i] < tiers[j] })
	return tiers
}
