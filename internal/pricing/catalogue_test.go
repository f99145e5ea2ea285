package pricing

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestResolveCatalogueDiscount(t *testing.T) {
	cases := []struct {
		name  string
		price Money
		rules []CatalogueRule
		want  Money
	}{
		{"none", MustMoney("10"), nil, 0},
		{"fixed", MustMoney("10"), []CatalogueRule{{ID: "s", Kind: DiscountFixed, Value: MustMoney("2.50")}}, MustMoney("2.50")},
		{"fixed clamps", MustMoney("10"), []CatalogueRule{{ID: "s", Kind: DiscountFixed, Value: MustMoney("20")}}, MustMoney("10")},
		{"percentage", MustMoney("13.33"), []CatalogueRule{{ID: "p", Kind: DiscountPercentage, Percent: decimal.NewFromInt(3)}}, MustMoney("0.40")},
		{"zero percent", MustMoney("13.33"), []CatalogueRule{{ID: "p", Kind: DiscountPercentage}}, 0},
	}
	for _, tc := range cases {
		got, rule, err := ResolveCatalogueDiscount(tc.price, tc.rules)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.name, err)
		}
		if got != tc.want {
			t.Fatalf("%s: expected %s, got %s", tc.name, tc.want, got)
		}
		if len(tc.rules) == 1 && (rule == nil || rule.ID != tc.rules[0].ID) {
			t.Fatalf("%s: expected winning rule %q, got %+v", tc.name, tc.rules[0].ID, rule)
		}
		if len(tc.rules) == 0 && rule != nil {
			t.Fatalf("%s: expected no rule, got %+v", tc.name, rule)
		}
	}
}

func TestResolveCatalogueDiscountAmbiguous(t *testing.T) {
	rules := []CatalogueRule{
		{ID: "a", Kind: DiscountFixed, Value: MustMoney("1")},
		{ID: "b", Kind: DiscountFixed, Value: MustMoney("2")},
	}
	if _, _, err := ResolveCatalogueDiscount(MustMoney("10"), rules); !errors.Is(err, ErrAmbiguousDiscountRule) {
		t.Fatalf("expected ErrAmbiguousDiscountRule, got %v", err)
	}
}
