package order

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/toko-pricing/internal/cart"
	"github.com/noah-isme/toko-pricing/internal/pricing"
)

// ErrStaleTotals is returned when totals do not describe the cart being finalized.
var ErrStaleTotals = errors.New("cart totals do not match cart lines")

// Line is an immutable order line.
type Line struct {
	VariantID              string               `json:"variant_id"`
	ProductID              string               `json:"product_id"`
	Quantity               int                  `json:"quantity"`
	UndiscountedUnitPrice  pricing.Money        `json:"undiscounted_unit_price"`
	UnitPrice              pricing.Money        `json:"unit_price"`
	UnitDiscountAmount     pricing.Money        `json:"unit_discount_amount"`
	UnitDiscountType       pricing.DiscountKind `json:"unit_discount_type,omitempty"`
	UnitDiscountReason     string               `json:"unit_discount_reason,omitempty"`
	Reason                 DiscountReason       `json:"-"`
	UndiscountedTotalPrice pricing.Money        `json:"undiscounted_total_price"`
	TotalPrice             pricing.Money        `json:"total_price"`
}

// Order is the frozen result of a completed checkout.
type Order struct {
	ID                        uuid.UUID            `json:"id"`
	CartID                    string               `json:"cart_id"`
	ChannelID                 string               `json:"channel_id"`
	Currency                  string               `json:"currency"`
	VoucherCode               string               `json:"voucher_code,omitempty"`
	Voucher                   *cart.AppliedVoucher `json:"voucher,omitempty"`
	Lines                     []Line               `json:"lines"`
	UndiscountedSubtotal      pricing.Money        `json:"undiscounted_subtotal"`
	Subtotal                  pricing.Money        `json:"subtotal"`
	UndiscountedShippingPrice pricing.Money        `json:"undiscounted_shipping_price"`
	ShippingPrice             pricing.Money        `json:"shipping_price"`
	DiscountAmount            pricing.Money        `json:"discount_amount"`
	Total                     pricing.Money        `json:"total"`
	PaymentReference          string               `json:"payment_reference,omitempty"`
	CreatedAt                 time.Time            `json:"created_at"`
}

// Options controls how cart totals are frozen into an order.
type Options struct {
	ID uuid.UUID
	// LegacyDiscountPropagation folds the voucher share of each line into its
	// unit discount amount and reason.
	LegacyDiscountPropagation bool
	PaymentReference          string
	Now                       time.Time
}

// Finalize freezes the computed totals of c into an order. It has no side effects.
func Finalize(c cart.Cart, totals cart.Totals, opts Options) (Order, error) {
	if len(c.Lines) == 0 {
		return Order{}, fmt.Errorf("cart has no lines: %w", cart.ErrInvalidInput)
	}
	if len(totals.Lines) != len(c.Lines) {
		return Order{}, ErrStaleTotals
	}
	id := opts.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	o := Order{
		ID:                        id,
		CartID:                    c.ID,
		ChannelID:                 c.ChannelID,
		Currency:                  totals.Currency,
		Voucher:                   totals.Voucher,
		Lines:                     make([]Line, len(totals.Lines)),
		UndiscountedSubtotal:      totals.UndiscountedSubtotal,
		Subtotal:                  totals.Subtotal,
		UndiscountedShippingPrice: totals.UndiscountedShippingPrice,
		ShippingPrice:             totals.ShippingPrice,
		DiscountAmount:            totals.DiscountAmount,
		Total:                     totals.Total,
		PaymentReference:          opts.PaymentReference,
		CreatedAt:                 now,
	}
	if totals.Voucher != nil {
		o.VoucherCode = totals.Voucher.Code
	}
	for i, lt := range totals.Lines {
		if lt.LineID != c.Lines[i].ID {
			return Order{}, ErrStaleTotals
		}
		o.Lines[i] = finalizeLine(lt, totals.Voucher, opts.LegacyDiscountPropagation)
	}
	return o, nil
}

func finalizeLine(lt cart.LineTotals, applied *cart.AppliedVoucher, legacy bool) Line {
	line := Line{
		VariantID:              lt.VariantID,
		ProductID:              lt.ProductID,
		Quantity:               lt.Quantity,
		UndiscountedUnitPrice:  lt.UndiscountedUnitPrice,
		UnitPrice:              lt.UnitPrice,
		UnitDiscountAmount:     lt.CatalogueUnitDiscount,
		UndiscountedTotalPrice: lt.UndiscountedTotalPrice,
		TotalPrice:             lt.TotalPrice,
	}
	if lt.CatalogueRule != nil && lt.CatalogueUnitDiscount > 0 {
		line.Reason.Catalogue = &CatalogueReason{Source: lt.CatalogueRule.Source, ID: lt.CatalogueRule.ID}
		line.UnitDiscountType = lt.CatalogueRule.Kind
	}
	if legacy && applied != nil && lt.VoucherShare > 0 {
		line.UnitDiscountAmount += lt.VoucherShare.DivRound(lt.Quantity)
		line.Reason.Voucher = &VoucherReason{Code: applied.Code, Type: applied.Type}
		if line.Reason.Catalogue != nil {
			line.UnitDiscountType = pricing.DiscountFixed
		} else {
			line.UnitDiscountType = applied.DiscountType
		}
	}
	if line.Reason.IsZero() {
		return line
	}
	line.UnitDiscountReason = line.Reason.String()
	return line
}
