package voucher

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-pricing/internal/pricing"
)

var (
	// ErrInvalidPromoCode is returned for unknown, deleted, expired, exhausted or restricted codes.
	ErrInvalidPromoCode = errors.New("invalid promo code")
	// ErrVoucherNotApplicable is returned when a valid voucher cannot be applied to the cart contents.
	ErrVoucherNotApplicable = errors.New("voucher not applicable")
)

// Type scopes a voucher to the whole order, selected products or the shipping price.
type Type string

const (
	TypeEntireOrder     Type = "ENTIRE_ORDER"
	TypeSpecificProduct Type = "SPECIFIC_PRODUCT"
	TypeShipping        Type = "SHIPPING"
)

// Rule captures a resolved voucher together with the state of the code used to attach it.
type Rule struct {
	ID                       string               `json:"id"`
	Code                     string               `json:"code"`
	Name                     string               `json:"name,omitempty"`
	Type                     Type                 `json:"type"`
	DiscountType             pricing.DiscountKind `json:"discount_type"`
	Value                    pricing.Money        `json:"value"`
	Percent                  decimal.Decimal      `json:"percent"`
	ApplyOncePerOrder        bool                 `json:"apply_once_per_order"`
	MinCheckoutItemsQuantity int                  `json:"min_checkout_items_quantity"`
	MinSpend                 pricing.Money        `json:"min_spend"`
	ProductIDs               []string             `json:"product_ids,omitempty"`
	ChannelIDs               []string             `json:"channel_ids,omitempty"`
	SingleUse                bool                 `json:"single_use"`
	OnlyForStaff             bool                 `json:"only_for_staff"`
	UsageLimit               *int32               `json:"usage_limit,omitempty"`
	Used                     int32                `json:"used"`
	CodeUsed                 int32                `json:"code_used"`
	CodeInactive             bool                 `json:"code_inactive"`
	Deleted                  bool                 `json:"deleted"`
	ValidFrom                *time.Time           `json:"valid_from,omitempty"`
	ValidTo                  *time.Time           `json:"valid_to,omitempty"`
}

// Context carries the caller-side facts a voucher is validated against.
type Context struct {
	Now       time.Time
	ChannelID string
	Staff     bool
	Subtotal  pricing.Money
}

// Item is a priced cart line offered to the voucher.
type Item struct {
	LineID                string
	ProductID             string
	Quantity              int
	UndiscountedUnitPrice pricing.Money
	UnitPrice             pricing.Money
	Total                 pricing.Money
}

// Result holds the voucher discount split over the items and the shipping price.
type Result struct {
	Lines    []pricing.Money
	Discount pricing.Money
	Shipping pricing.Money
}

// Total returns the line-level plus shipping discount.
func (r Result) Total() pricing.Money {
	return r.Discount + r.Shipping
}

// CheckCode reports whether the code itself can still be redeemed at now.
func (r Rule) CheckCode(now time.Time) error {
	switch {
	case r.Deleted || strings.TrimSpace(r.Code) == "":
		return fmt.Errorf("voucher deleted: %w", ErrInvalidPromoCode)
	case r.CodeInactive:
		return fmt.Errorf("code inactive: %w", ErrInvalidPromoCode)
	case r.ValidFrom != nil && now.Before(*r.ValidFrom):
		return fmt.Errorf("voucher not active yet: %w", ErrInvalidPromoCode)
	case r.ValidTo != nil && now.After(*r.ValidTo):
		return fmt.Errorf("voucher expired: %w", ErrInvalidPromoCode)
	case r.SingleUse && r.CodeUsed > 0:
		return fmt.Errorf("code already used: %w", ErrInvalidPromoCode)
	case r.UsageLimit != nil && *r.UsageLimit >= 0 && r.Used >= *r.UsageLimit:
		return fmt.Errorf("usage limit reached: %w", ErrInvalidPromoCode)
	}
	return nil
}

// Validate evaluates every precondition that does not depend on line composition.
func (r Rule) Validate(c Context) error {
	if err := r.CheckCode(c.Now); err != nil {
		return err
	}
	if r.OnlyForStaff && !c.Staff {
		return fmt.Errorf("voucher restricted to staff: %w", ErrInvalidPromoCode)
	}
	if len(r.ChannelIDs) > 0 && !slices.Contains(r.ChannelIDs, c.ChannelID) {
		return fmt.Errorf("voucher not available in channel: %w", ErrInvalidPromoCode)
	}
	if c.Subtotal < r.MinSpend {
		return fmt.Errorf("minimum spend not met: %w", ErrVoucherNotApplicable)
	}
	return nil
}

// Amount computes the discount granted on base, never exceeding base.
func (r Rule) Amount(base pricing.Money) pricing.Money {
	if base <= 0 {
		return 0
	}
	var discount pricing.Money
	switch r.DiscountType {
	case pricing.DiscountPercentage:
		if !r.Percent.IsPositive() {
			return 0
		}
		discount = base.Percent(r.Percent)
	default:
		discount = r.Value.NonNegative()
	}
	return pricing.Min(discount, base)
}

// EligibleLines returns the indexes of items inside the voucher scope, in cart order.
func EligibleLines(items []Item, r Rule) []int {
	out := make([]int, 0, len(items))
	for i, it := range items {
		if r.Type == TypeSpecificProduct && !slices.Contains(r.ProductIDs, it.ProductID) {
			continue
		}
		out = append(out, i)
	}
	return out
}

// Apply computes the voucher discount and distributes it over the eligible items.
// The discount base is the eligible subtotal, except under ApplyOncePerOrder,
// where it is the unit price of a single unit of the cheapest eligible line.
func Apply(items []Item, shipping pricing.Money, r Rule) (Result, error) {
	res := Result{Lines: make([]pricing.Money, len(items))}
	if r.Type == TypeShipping {
		if r.MinCheckoutItemsQuantity > quantity(items, nil) {
			return Result{}, fmt.Errorf("minimum quantity not met: %w", ErrVoucherNotApplicable)
		}
		res.Shipping = r.Amount(shipping.NonNegative())
		return res, nil
	}

	eligible := EligibleLines(items, r)
	if len(eligible) == 0 {
		return Result{}, fmt.Errorf("no eligible lines: %w", ErrVoucherNotApplicable)
	}
	if r.MinCheckoutItemsQuantity > quantity(items, eligible) {
		return Result{}, fmt.Errorf("minimum quantity not met: %w", ErrVoucherNotApplicable)
	}

	weights := make([]pricing.Money, len(eligible))
	if r.ApplyOncePerOrder {
		// Only one unit of the cheapest line is discounted.
		idx := cheapest(items, eligible)
		eligible = []int{idx}
		weights = []pricing.Money{items[idx].UnitPrice.NonNegative()}
	} else {
		for i, idx := range eligible {
			weights[i] = items[idx].Total.NonNegative()
		}
	}

	discount := r.Amount(pricing.Sum(weights...))
	for i, share := range Prorate(discount, weights) {
		res.Lines[eligible[i]] = share
		res.Discount += share
	}
	return res, nil
}

func cheapest(items []Item, eligible []int) int {
	best := eligible[0]
	for _, idx := range eligible[1:] {
		if items[idx].UndiscountedUnitPrice < items[best].UndiscountedUnitPrice {
			best = idx
		}
	}
	return best
}

func quantity(items []Item, subset []int) int {
	var total int
	if subset == nil {
		for _, it := range items {
			total += it.Quantity
		}
		return total
	}
	for _, idx := range subset {
		total += items[idx].Quantity
	}
	return total
}
