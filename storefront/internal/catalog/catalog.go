// Package catalog holds the credit packs and subscription plans offered on
// the storefront page.
package catalog

import (
	"fmt"
	"slices"

	"github.com/affiliateplus/storefront/storefront/internal/config"
)

// Plan keys sent to the backend as plan_name.
const (
	UnlimitedMonthly = "UNLIMITED_MONTHLY"
	UnlimitedYearly  = "UNLIMITED_YEARLY"
)

// DefaultCreditPacks are the one-time credit amounts offered in the pack modal.
var DefaultCreditPacks = []int{10, 20, 50, 100}

// Plan is the display metadata for one subscription plan.
type Plan struct {
	Key         string
	PlanName    string
	Description string
	Price       string
	Period      string
	Features    []string
}

var defaultPlans = map[string]Plan{
	UnlimitedMonthly: {
		Key:         UnlimitedMonthly,
		PlanName:    "Unlimited Monthly",
		Description: "Monthly subscription, unlimited link credits",
		Price:       "₹199",
		Period:      "month",
		Features: []string{
			"Unlimited affiliate links",
			"Click analytics",
			"Cancel anytime",
		},
	},
	UnlimitedYearly: {
		Key:         UnlimitedYearly,
		PlanName:    "Unlimited Yearly",
		Description: "Yearly subscription, unlimited link credits",
		Price:       "₹1990",
		Period:      "year",
		Features: []string{
			"Unlimited affiliate links",
			"Click analytics",
			"Two months free",
		},
	},
}

// Catalog is the set of credit packs and plans shown to the user.
type Catalog struct {
	packs []int
	plans map[string]Plan
	order []string
}

// Default returns the built-in catalog.
func Default() *Catalog {
	return New(config.CatalogConfig{})
}

// New builds a catalog from the built-in defaults with cfg merged over them.
// A non-empty pack list replaces the default packs; plans are merged by key.
func New(cfg config.CatalogConfig) *Catalog {
	c := &Catalog{
		packs: slices.Clone(DefaultCreditPacks),
		plans: make(map[string]Plan, len(defaultPlans)+len(cfg.Plans)),
	}
	if len(cfg.CreditPacks) > 0 {
		c.packs = slices.Clone(cfg.CreditPacks)
	}
	for k, p := range defaultPlans {
		c.plans[k] = p
	}
	for k, pc := range cfg.Plans {
		p := c.plans[k]
		p.Key = k
		p.PlanName = pc.PlanName
		if pc.Description != "" {
			p.Description = pc.Description
		}
		if pc.Price != "" {
			p.Price = pc.Price
		}
		if len(pc.Features) > 0 {
			p.Features = slices.Clone(pc.Features)
		}
		c.plans[k] = p
	}

	// Built-in plans first in their display order, then overrides sorted by key.
	c.order = []string{UnlimitedMonthly, UnlimitedYearly}
	var extra []string
	for k := range c.plans {
		if k != UnlimitedMonthly && k != UnlimitedYearly {
			extra = append(extra, k)
		}
	}
	slices.Sort(extra)
	c.order = append(c.order, extra...)
	return c
}

// CreditPacks returns the credit amounts on offer.
func (c *Catalog) CreditPacks() []int {
	return slices.Clone(c.packs)
}

// IsValidPack reports whether credits is one of the offered packs.
func (c *Catalog) IsValidPack(credits int) bool {
	return credits > 0 && slices.Contains(c.packs, credits)
}

// Lookup returns the plan registered under key.
func (c *Catalog) Lookup(key string) (Plan, bool) {
	p, ok := c.plans[key]
	return p, ok
}

// Keys returns plan keys in display order.
func (c *Catalog) Keys() []string {
	return slices.Clone(c.order)
}

// PackLabel is how a credit pack is listed on the page. One credit costs ₹1.
func PackLabel(credits int) string {
	return fmt.Sprintf("%d CREDITS FOR ₹%d", credits, credits)
}
