// Package catalog loads the subscription tiers offered for purchase.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/goodnatureofminers/tierpay/internal/purchase/model"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

//go:embed tiers.yaml
var defaultTiers []byte

// ErrUnknownTier is returned for tier ids the catalog does not offer.
var ErrUnknownTier = errors.New("unknown tier")

// Tier is a purchasable subscription plan.
type Tier struct {
	ID              model.TierID
	Name            string
	Price           decimal.Decimal
	Currency        string
	Description     string
	Requests        int
	PrioritySupport bool
}

// Catalog is an immutable, id-ordered set of tiers.
type Catalog struct {
	tiers []Tier
	byID  map[model.TierID]Tier
}

type document struct {
	Currency string `yaml:"currency"`
	Tiers    []struct {
		ID              int    `yaml:"id"`
		Name            string `yaml:"name"`
		Price           string `yaml:"price"`
		Description     string `yaml:"description"`
		Requests        int    `yaml:"requests"`
		PrioritySupport bool   `yaml:"priority_support"`
	} `yaml:"tiers"`
}

// Default returns the built-in catalog.
func Default() *Catalog {
	c, err := Parse(defaultTiers)
	if err != nil {
		panic("embedded tier catalog is invalid: " + err.Error())
	}
	return c
}

// Load reads a catalog from a YAML file. An empty path yields the built-in catalog.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tier catalog: %w", err)
	}
	return Parse(raw)
}

// Parse decodes a YAML catalog document.
func Parse(raw []byte) (*Catalog, error) {
	var doc document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode tier catalog: %w", err)
	}
	if len(doc.Tiers) == 0 {
		return nil, errors.New("tier catalog is empty")
	}

	c := &Catalog{byID: make(map[model.TierID]Tier, len(doc.Tiers))}
	for _, raw := range doc.Tiers {
		if raw.ID <= 0 {
			return nil, fmt.Errorf("tier %q: id must be positive", raw.Name)
		}
		id := model.TierID(raw.ID)
		if _, dup := c.byID[id]; dup {
			return nil, fmt.Errorf("tier %d declared twice", raw.ID)
		}
		price, err := decimal.NewFromString(raw.Price)
		if err != nil {
			return nil, fmt.Errorf("tier %d price %q: %w", raw.ID, raw.Price, err)
		}
		if !price.IsPositive() {
			return nil, fmt.Errorf("tier %d price must be positive", raw.ID)
		}
		t := Tier{
			ID:              id,
			Name:            raw.Name,
			Price:           price,
			Currency:        doc.Currency,
			Description:     raw.Description,
			Requests:        raw.Requests,
			PrioritySupport: raw.PrioritySupport,
		}
		c.byID[id] = t
		c.tiers = append(c.tiers, t)
	}
	sort.Slice(c.tiers, func(i, j int) bool { return c.tiers[i].ID < c.tiers[j].ID })
	return c, nil
}

// Tiers returns all tiers ordered by id.
func (c *Catalog) Tiers() []Tier {
	out := make([]Tier, len(c.tiers))
	copy(out, c.tiers)
	return out
}

// Lookup returns the tier with the given id.
func (c *Catalog) Lookup(id model.TierID) (Tier, error) {
	t, ok := c.byID[id]
	if !ok {
		return Tier{}, fmt.Errorf("%w: %d", ErrUnknownTier, id)
	}
	return t, nil
}
