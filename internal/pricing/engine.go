package pricing

import "errors"

var (
	// ErrInvalidQuantity is returned for non-positive or out-of-range line quantities.
	ErrInvalidQuantity = errors.New("pricing: quantity must be positive")
	// ErrInvalidPrice is returned for negative or out-of-range unit prices.
	ErrInvalidPrice = errors.New("pricing: unit price must not be negative")
)

// MaxQuantity caps the quantity of a single line.
const MaxQuantity = 1_000_000

// LineInput describes a single cart line for pricing.
type LineInput struct {
	Quantity    int
	BasePrice   Money
	ManualPrice *Money
}

// LinePrice holds the computed per-unit and per-line amounts for a cart line.
type LinePrice struct {
	UndiscountedUnitPrice Money          `json:"undiscounted_unit_price"`
	UnitDiscount          Money          `json:"unit_discount"`
	UnitPrice             Money          `json:"unit_price"`
	UndiscountedTotal     Money          `json:"undiscounted_total"`
	Total                 Money          `json:"total"`
	Rule                  *CatalogueRule `json:"rule,omitempty"`
}

// PriceLine combines the base price, manual override and catalogue rule of one line.
func PriceLine(in LineInput, rules []CatalogueRule) (LinePrice, error) {
	if in.Quantity <= 0 || in.Quantity > MaxQuantity {
		return LinePrice{}, ErrInvalidQuantity
	}
	undiscounted := in.BasePrice
	if in.ManualPrice != nil {
		undiscounted = *in.ManualPrice
	}
	if undiscounted < 0 || undiscounted > MaxAmount {
		return LinePrice{}, ErrInvalidPrice
	}
	discount, rule, err := ResolveCatalogueDiscount(undiscounted, rules)
	if err != nil {
		return LinePrice{}, err
	}
	unit := (undiscounted - discount).NonNegative()
	undiscountedTotal, err := undiscounted.Times(in.Quantity)
	if err != nil {
		return LinePrice{}, err
	}
	total, err := unit.Times(in.Quantity)
	if err != nil {
		return LinePrice{}, err
	}
	return LinePrice{
		UndiscountedUnitPrice: undiscounted,
		UnitDiscount:          undiscounted - unit,
		UnitPrice:             unit,
		UndiscountedTotal:     undiscountedTotal,
		Total:                 total,
		Rule:                  rule,
	}, nil
}
