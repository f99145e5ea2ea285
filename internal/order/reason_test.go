package order

import (
	"testing"

	"github.com/noah-isme/toko-pricing/internal/pricing"
	"github.com/noah-isme/toko-pricing/internal/voucher"
)

func TestDiscountReasonString(t *testing.T) {
	cases := []struct {
		name   string
		reason DiscountReason
		want   string
	}{
		{"empty", DiscountReason{}, ""},
		{"sale", DiscountReason{Catalogue: &CatalogueReason{Source: pricing.SourceSale, ID: "s1"}}, "Sale: s1"},
		{"promotion", DiscountReason{Catalogue: &CatalogueReason{Source: pricing.SourcePromotion, ID: "p1"}}, "Promotion: p1"},
		{"voucher", DiscountReason{Voucher: &VoucherReason{Code: "SAVE", Type: voucher.TypeEntireOrder}}, "Entire order voucher code: SAVE"},
		{"specific product voucher", DiscountReason{Voucher: &VoucherReason{Code: "SHOES", Type: voucher.TypeSpecificProduct}}, "Voucher code: SHOES"},
		{
			"both",
			DiscountReason{
				Catalogue: &CatalogueReason{Source: pricing.SourceSale, ID: "s1"},
				Voucher:   &VoucherReason{Code: "SAVE", Type: voucher.TypeEntireOrder},
			},
			"Sale: s1 & Entire order voucher code: SAVE",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.reason.String(); got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
			if tc.reason.IsZero() != (tc.want == "") {
				t.Fatalf("IsZero mismatch for %q", tc.want)
			}
		})
	}
}
