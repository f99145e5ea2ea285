package cart

import (
	"fmt"
	"time"

	"github.com/noah-isme/toko-pricing/internal/pricing"
	"github.com/noah-isme/toko-pricing/internal/voucher"
)

// Snapshot is the external state a recomputation runs against.
type Snapshot struct {
	// Rules holds the active catalogue rules keyed by variant id.
	Rules         map[string][]pricing.CatalogueRule
	Voucher       *voucher.Rule
	// VoucherErr is set when the attached code could not be resolved.
	VoucherErr error
	ShippingPrice pricing.Money
	Now           time.Time
	// Applicable is an optional extra predicate evaluated before the voucher is applied.
	Applicable func(voucher.Rule, Cart) bool
}

// LineTotals is the computed state of a single cart line.
type LineTotals struct {
	LineID                 string                  `json:"line_id"`
	VariantID              string                  `json:"variant_id"`
	ProductID              string                  `json:"product_id"`
	Quantity               int                     `json:"quantity"`
	UndiscountedUnitPrice  pricing.Money          `json:"undiscounted_unit_price"`
	CatalogueUnitDiscount  pricing.Money          `json:"catalogue_unit_discount"`
	CatalogueUnitPrice     pricing.Money          `json:"catalogue_unit_price"`
	CatalogueTotal         pricing.Money          `json:"catalogue_total"`
	VoucherShare           pricing.Money          `json:"voucher_share"`
	UnitPrice              pricing.Money          `json:"unit_price"`
	UndiscountedTotalPrice pricing.Money          `json:"undiscounted_total_price"`
	TotalPrice             pricing.Money          `json:"total_price"`
	CatalogueRule          *pricing.CatalogueRule `json:"catalogue_rule,omitempty"`
}

// AppliedVoucher describes the voucher that contributed to the totals.
type AppliedVoucher struct {
	Code         string               `json:"code"`
	Type         voucher.Type         `json:"type"`
	DiscountType pricing.DiscountKind `json:"discount_type"`
	Amount       pricing.Money        `json:"amount"`
}

// Totals is the full priced view of a cart.
type Totals struct {
	Currency                  string          `json:"currency"`
	Lines                     []LineTotals    `json:"lines"`
	UndiscountedSubtotal      pricing.Money   `json:"undiscounted_subtotal"`
	Subtotal                  pricing.Money   `json:"subtotal"`
	UndiscountedShippingPrice pricing.Money   `json:"undiscounted_shipping_price"`
	ShippingPrice             pricing.Money   `json:"shipping_price"`
	DiscountAmount            pricing.Money   `json:"discount_amount"`
	Total                     pricing.Money   `json:"total"`
	Voucher                   *AppliedVoucher `json:"voucher,omitempty"`
	VoucherDropped            bool            `json:"voucher_dropped,omitempty"`
	// VoucherErr explains why an attached voucher was dropped.
	VoucherErr error `json:"-"`
}

// Recompute prices every line from scratch, applies the attached voucher and
// sums the cart. It never reads previously computed totals.
func Recompute(c Cart, snap Snapshot) (Totals, error) {
	totals := Totals{
		Currency: c.Currency,
		Lines:    make([]LineTotals, len(c.Lines)),
	}
	items := make([]voucher.Item, len(c.Lines))
	var catalogueSubtotal pricing.Money
	for i, line := range c.Lines {
		lp, err := pricing.PriceLine(pricing.LineInput{
			Quantity:    line.Quantity,
			BasePrice:   line.BasePrice,
			ManualPrice: line.ManualPrice,
		}, snap.Rules[line.VariantID])
		if err != nil {
			return Totals{}, fmt.Errorf("line %s: %w", line.ID, err)
		}
		totals.Lines[i] = LineTotals{
			LineID:                 line.ID,
			VariantID:              line.VariantID,
			ProductID:              line.ProductID,
			Quantity:               line.Quantity,
			UndiscountedUnitPrice:  lp.UndiscountedUnitPrice,
			CatalogueUnitDiscount:  lp.UnitDiscount,
			CatalogueUnitPrice:     lp.UnitPrice,
			CatalogueTotal:         lp.Total,
			UndiscountedTotalPrice: lp.UndiscountedTotal,
			CatalogueRule:          lp.Rule,
		}
		items[i] = voucher.Item{
			LineID:                line.ID,
			ProductID:             line.ProductID,
			Quantity:              line.Quantity,
			UndiscountedUnitPrice: lp.UndiscountedUnitPrice,
			UnitPrice:             lp.UnitPrice,
			Total:                 lp.Total,
		}
		totals.UndiscountedSubtotal += lp.UndiscountedTotal
		catalogueSubtotal += lp.Total
	}

	shipping := snap.ShippingPrice.NonNegative()
	totals.UndiscountedShippingPrice = shipping

	var applied voucher.Result
	if snap.VoucherErr != nil {
		totals.VoucherDropped = true
		totals.VoucherErr = snap.VoucherErr
	} else if snap.Voucher != nil {
		res, err := applyVoucher(c, snap, items, catalogueSubtotal, shipping)
		if err != nil {
			totals.VoucherDropped = true
			totals.VoucherErr = err
		} else {
			applied = res
			totals.Voucher = &AppliedVoucher{
				Code:         snap.Voucher.Code,
				Type:         snap.Voucher.Type,
				DiscountType: snap.Voucher.DiscountType,
				Amount:       res.Total(),
			}
		}
	}

	for i := range totals.Lines {
		lt := &totals.Lines[i]
		if applied.Lines != nil {
			lt.VoucherShare = applied.Lines[i]
		}
		lt.TotalPrice = (lt.CatalogueTotal - lt.VoucherShare).NonNegative()
		lt.UnitPrice = lt.TotalPrice.DivRound(lt.Quantity)
		totals.Subtotal += lt.TotalPrice
	}
	totals.ShippingPrice = (shipping - applied.Shipping).NonNegative()
	totals.DiscountAmount = applied.Total()
	totals.Total = totals.Subtotal + totals.ShippingPrice
	return totals, nil
}

func applyVoucher(c Cart, snap Snapshot, items []voucher.Item, subtotal, shipping pricing.Money) (voucher.Result, error) {
	rule := *snap.Voucher
	if err := rule.Validate(voucher.Context{
		Now:       snap.Now,
		ChannelID: c.ChannelID,
		Staff:     c.Staff,
		Subtotal:  subtotal,
	}); err != nil {
		return voucher.Result{}, err
	}
	if snap.Applicable != nil && !snap.Applicable(rule, c) {
		return voucher.Result{}, fmt.Errorf("voucher %s rejected for cart: %w", rule.Code, voucher.ErrVoucherNotApplicable)
	}
	return voucher.Apply(items, shipping, rule)
}
