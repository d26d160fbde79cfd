// Package pricing holds the quantity tier rules shared by price previews and order intake.
package pricing

import (
	"fmt"
	"io"
	"sort"

	"order-ledger/internal/model"

	"gopkg.in/yaml.v3"
)

// BasisPoints is the denominator of discount_bps.
const BasisPoints = 10000

// Step is one breakpoint of a tier schedule: from MinQuantity cartons upwards
// the base price is discounted by DiscountBPS basis points.
type Step struct {
	MinQuantity int   `yaml:"min_quantity" json:"minQuantity"`
	DiscountBPS int64 `yaml:"discount_bps" json:"discountBps"`
}

// Schedule is an ascending list of tier steps.
type Schedule struct {
	Steps []Step `yaml:"steps" json:"steps"`
}

// DefaultSchedule is used when no schedule file is configured.
func DefaultSchedule() Schedule {
	return Schedule{Steps: []Step{
		{MinQuantity: 5, DiscountBPS: 0},
		{MinQuantity: 10, DiscountBPS: 1000},
		{MinQuantity: 25, DiscountBPS: 1500},
		{MinQuantity: 50, DiscountBPS: 2000},
	}}
}

// Validate checks that steps are strictly ascending by quantity and that
// discounts never decrease, so the resulting price function is non-increasing.
func (s Schedule) Validate() error {
	if len(s.Steps) == 0 {
		return fmt.Errorf("schedule has no steps")
	}

	for i, step := range s.Steps {
		if step.MinQuantity < 1 {
			return fmt.Errorf("step %d: min_quantity must be at least 1", i)
		}
		if step.DiscountBPS < 0 || step.DiscountBPS >= BasisPoints {
			return fmt.Errorf("step %d: discount_bps must be in [0, %d)", i, BasisPoints)
		}
		if i == 0 {
			continue
		}
		prev := s.Steps[i-1]
		if step.MinQuantity <= prev.MinQuantity {
			return fmt.Errorf("step %d: min_quantity must be greater than %d", i, prev.MinQuantity)
		}
		if step.DiscountBPS < prev.DiscountBPS {
			return fmt.Errorf("step %d: discount_bps cannot decrease", i)
		}
	}

	return nil
}

// DiscountFor returns the discount of the highest step reached by quantity.
func (s Schedule) DiscountFor(quantity int) int64 {
	var bps int64
	for _, step := range s.Steps {
		if quantity < step.MinQuantity {
			break
		}
		bps = step.DiscountBPS
	}
	return bps
}

// UnitPrice returns the tier price of base for quantity, rounded half up to a minor unit.
func (s Schedule) UnitPrice(base int64, quantity int) int64 {
	return applyDiscount(base, s.DiscountFor(quantity))
}

// applyDiscount computes round_half_up(base * (10000 - bps) / 10000) without overflowing int64.
func applyDiscount(base, bps int64) int64 {
	keep := BasisPoints - bps
	whole, rest := base/BasisPoints, base%BasisPoints
	return whole*keep + (rest*keep+BasisPoints/2)/BasisPoints
}

// ProductUnitPrice prices one product. Explicit tiers, when present, replace the
// schedule: the price of the largest min_quantity not above quantity applies, and
// every price is capped by the lower breakpoints and the base price.
func ProductUnitPrice(base int64, quantity int, tiers []model.PriceTier, s Schedule) int64 {
	if len(tiers) == 0 {
		return s.UnitPrice(base, quantity)
	}

	sorted := make([]model.PriceTier, len(tiers))
	copy(sorted, tiers)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].MinQuantity < sorted[j].MinQuantity })

	price := base
	for _, tier := range sorted {
		if quantity < tier.MinQuantity {
			break
		}
		if tier.UnitPrice < price {
			price = tier.UnitPrice
		}
	}
	return price
}

// Parse decodes and validates a YAML schedule.
func Parse(r io.Reader) (Schedule, error) {
	var s Schedule
	if err := yaml.NewDecoder(r).Decode(&s); err != nil {
		return Schedule{}, fmt.Errorf("failed to decode tier schedule: %w", err)
	}

	if err := s.Validate(); err != nil {
		return Schedule{}, fmt.Errorf("invalid tier schedule: %w", err)
	}

	return s, nil
}
