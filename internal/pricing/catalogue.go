package pricing

import (
	"errors"

	"github.com/shopspring/decimal"
)

// ErrAmbiguousDiscountRule is returned when more than one catalogue rule is active for a variant in a channel.
var ErrAmbiguousDiscountRule = errors.New("pricing: ambiguous catalogue discount rule")

// DiscountKind distinguishes absolute discounts from percentage discounts.
type DiscountKind string

const (
	DiscountFixed      DiscountKind = "FIXED"
	DiscountPercentage DiscountKind = "PERCENTAGE"
)

// RuleSource names the catalogue feature a rule originates from.
type RuleSource string

const (
	SourceSale      RuleSource = "SALE"
	SourcePromotion RuleSource = "PROMOTION"
)

// CatalogueRule is an already-resolved catalogue discount active for a variant.
type CatalogueRule struct {
	ID      string          `json:"id"`
	Source  RuleSource      `json:"source"`
	Kind    DiscountKind    `json:"kind"`
	Value   Money           `json:"value"`
	Percent decimal.Decimal `json:"percent"`
	Name    string          `json:"name,omitempty"`
}

// Amount returns the per-unit discount the rule grants on price, never more than price itself.
func (r CatalogueRule) Amount(price Money) Money {
	if price <= 0 {
		return 0
	}
	var discount Money
	switch r.Kind {
	case DiscountPercentage:
		if !r.Percent.IsPositive() {
			return 0
		}
		discount = price.Percent(r.Percent)
	default:
		discount = r.Value.NonNegative()
	}
	return Min(discount, price)
}

// ResolveCatalogueDiscount returns the per-unit discount for price given the active rules.
// At most one rule may be supplied; callers pre-filter to the winning rule.
func ResolveCatalogueDiscount(price Money, rules []CatalogueRule) (Money, *CatalogueRule, error) {
	switch len(rules) {
	case 0:
		return 0, nil, nil
	case 1:
		rule := rules[0]
		return rule.Amount(price), &rule, nil
	default:
		return 0, nil, ErrAmbiguousDiscountRule
	}
}
