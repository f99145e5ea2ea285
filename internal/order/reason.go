package order

import (
	"strings"

	"github.com/noah-isme/toko-pricing/internal/pricing"
	"github.com/noah-isme/toko-pricing/internal/voucher"
)

// CatalogueReason records the sale or promotion that discounted a line.
type CatalogueReason struct {
	Source pricing.RuleSource `json:"source"`
	ID     string             `json:"id"`
}

func (r CatalogueReason) String() string {
	switch r.Source {
	case pricing.SourcePromotion:
		return "Promotion: " + r.ID
	default:
		return "Sale: " + r.ID
	}
}

// VoucherReason records the voucher whose share was folded into a line.
type VoucherReason struct {
	Code string       `json:"code"`
	Type voucher.Type `json:"type"`
}

func (r VoucherReason) String() string {
	if r.Type == voucher.TypeSpecificProduct {
		return "Voucher code: " + r.Code
	}
	return "Entire order voucher code: " + r.Code
}

// DiscountReason is the structured origin of a line discount. It is rendered
// to text only when persisted or presented.
type DiscountReason struct {
	Catalogue *CatalogueReason `json:"catalogue,omitempty"`
	Voucher   *VoucherReason   `json:"voucher,omitempty"`
}

// IsZero reports whether no discount source is recorded.
func (r DiscountReason) IsZero() bool {
	return r.Catalogue == nil && r.Voucher == nil
}

func (r DiscountReason) String() string {
	parts := make([]string, 0, 2)
	if r.Catalogue != nil {
		parts = append(parts, r.Catalogue.String())
	}
	if r.Voucher != nil {
		parts = append(parts, r.Voucher.String())
	}
	return strings.Join(parts, " & ")
}
