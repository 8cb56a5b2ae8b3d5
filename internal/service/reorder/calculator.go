package reorder

import (
	"fmt"
	"math"
	"strings"
)

// ShortagePolicy decides whether a product needs reordering.
type ShortagePolicy string

const (
	// DemandExceedsStock orders when outbound demand is not covered by the
	// remaining stock: finalStock < outbound and outbound > 0.
	DemandExceedsStock ShortagePolicy = "demand_exceeds_stock"
	// StockExceedsDemand orders when outbound is positive but below the
	// remaining stock. Kept for sites that relied on the older rule.
	StockExceedsDemand ShortagePolicy = "stock_exceeds_demand"
)

// ParseShortagePolicy maps a config value to a policy; "" is the default.
func ParseShortagePolicy(s string) (ShortagePolicy, error) {
	switch p := ShortagePolicy(strings.TrimSpace(strings.ToLower(s))); p {
	case "":
		return DemandExceedsStock, nil
	case DemandExceedsStock, StockExceedsDemand:
		return p, nil
	default:
		return "", fmt.Errorf("unknown shortage policy %q", s)
	}
}

// Calculator turns movement figures into a pack-rounded order quantity.
type Calculator struct {
	tiers  Tiers
	policy ShortagePolicy
}

// NewCalculator validates tiers and policy.
func NewCalculator(tiers Tiers, policy ShortagePolicy) (*Calculator, error) {
	if err := tiers.Validate(); err != nil {
		return nil, err
	}
	if _, err := ParseShortagePolicy(string(policy)); err != nil {
		return nil, err
	}
	if policy == "" {
		policy = DemandExceedsStock
	}
	return &Calculator{tiers: append(Tiers(nil), tiers...), policy: policy}, nil
}

// DefaultCalculator uses the standard tiers and the demand-exceeds-stock rule.
func DefaultCalculator() *Calculator {
	return &Calculator{tiers: StandardTiers(), policy: DemandExceedsStock}
}

// Tiers returns a copy of the configured tiers.
func (c *Calculator) Tiers() Tiers {
	return append(Tiers(nil), c.tiers...)
}

// Policy returns the configured shortage policy.
func (c *Calculator) Policy() ShortagePolicy {
	return c.policy
}

// Shortage reports whether the policy triggers an order.
func (c *Calculator) Shortage(outbound, finalStock float64) bool {
	if !finite(outbound) || !finite(finalStock) || outbound <= 0 {
		return false
	}
	switch c.policy {
	case StockExceedsDemand:
		return outbound < finalStock
	default:
		return finalStock < outbound
	}
}

// OrderQty is 0 without a shortage, otherwise outbound rounded up to a tier.
func (c *Calculator) OrderQty(outbound, finalStock float64) int {
	if !c.Shortage(outbound, finalStock) {
		return 0
	}
	return c.RoundUp(outbound)
}

// RoundUp returns the smallest tier >= v, or the next multiple of the
// largest tier when v exceeds it. Non-positive and non-finite values give 0.
// Results that do not fit in an int saturate at the largest multiple of the
// largest tier that does.
func (c *Calculator) RoundUp(v float64) int {
	if !finite(v) || v <= 0 {
		return 0
	}
	for _, tier := range c.tiers {
		if v <= float64(tier) {
			return tier
		}
	}
	largest := c.tiers.Max()
	rounded := math.Ceil(v/float64(largest)) * float64(largest)
	if rounded >= float64(math.MaxInt) {
		return math.MaxInt / largest * largest
	}
	return int(rounded)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
