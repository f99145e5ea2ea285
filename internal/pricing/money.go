package pricing

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Money represents a monetary value stored in minor units (two fractional digits).
//
// Every operation that involves a ratio or a percentage is carried out on exact
// decimals and rounded once, half away from zero, back to a whole minor unit.
type Money int64

const minorDigits = 2

// MaxAmount bounds any single price or line total (in minor units) so that
// sums over a cart stay far from int64 overflow.
const MaxAmount Money = 1_000_000_000_000_000

var (
	hundred   = decimal.NewFromInt(100)
	maxAmount = decimal.NewFromInt(int64(MaxAmount))
)

// ParseMoney converts a decimal string such as "19.99" into Money, rounding
// sub-cent digits half up.
func ParseMoney(value string) (Money, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("parse money %q: %w", value, err)
	}
	return FromDecimal(d)
}

// ParseExactMoney is ParseMoney without rounding: more than two fractional
// digits is ErrInvalidPrice.
func ParseExactMoney(value string) (Money, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("parse money %q: %w", value, err)
	}
	if !d.Shift(minorDigits).IsInteger() {
		return 0, fmt.Errorf("amount %q has sub-cent precision: %w", value, ErrInvalidPrice)
	}
	return FromDecimal(d)
}

// MustMoney behaves like ParseMoney but panics on malformed input. Intended for tests and constants.
func MustMoney(value string) Money {
	m, err := ParseMoney(value)
	if err != nil {
		panic(err)
	}
	return m
}

// FromDecimal rounds a major-unit decimal to the nearest minor unit. Values
// beyond MaxAmount in either direction are ErrInvalidPrice.
func FromDecimal(d decimal.Decimal) (Money, error) {
	minor := d.Shift(minorDigits).Round(0)
	if minor.Abs().GreaterThan(maxAmount) {
		return 0, fmt.Errorf("amount %s out of range: %w", d.String(), ErrInvalidPrice)
	}
	return Money(minor.IntPart()), nil
}

// Decimal returns the amount in major units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(int64(m), -minorDigits)
}

// String formats the amount with exactly two fractional digits.
func (m Money) String() string {
	return m.Decimal().StringFixed(minorDigits)
}

// Times multiplies the amount by an integer quantity. A product beyond
// MaxAmount is ErrInvalidQuantity.
func (m Money) Times(qty int) (Money, error) {
	if qty < 0 {
		return 0, ErrInvalidQuantity
	}
	if m < 0 {
		return 0, ErrInvalidPrice
	}
	if qty > 0 && m > MaxAmount/Money(qty) {
		return 0, fmt.Errorf("%s x %d out of range: %w", m, qty, ErrInvalidQuantity)
	}
	return m * Money(qty), nil
}

// NonNegative clamps the amount at zero.
func (m Money) NonNegative() Money {
	if m < 0 {
		return 0
	}
	return m
}

// Percent returns round(m * pct / 100).
func (m Money) Percent(pct decimal.Decimal) Money {
	return Money(decimal.NewFromInt(int64(m)).Mul(pct).DivRound(hundred, 0).IntPart())
}

// Prorate returns round(m * part / whole). A non-positive whole yields zero.
func (m Money) Prorate(part, whole Money) Money {
	if whole <= 0 {
		return 0
	}
	num := decimal.NewFromInt(int64(m)).Mul(decimal.NewFromInt(int64(part)))
	return Money(num.DivRound(decimal.NewFromInt(int64(whole)), 0).IntPart())
}

// DivRound returns round(m / n). Division by a non-positive n yields zero.
func (m Money) DivRound(n int) Money {
	if n <= 0 {
		return 0
	}
	return Money(decimal.NewFromInt(int64(m)).DivRound(decimal.NewFromInt(int64(n)), 0).IntPart())
}

// Min returns the smaller of two amounts.
func Min(a, b Money) Money {
	if a < b {
		return a
	}
	return b
}

// Sum adds up the provided amounts.
func Sum(values ...Money) Money {
	var total Money
	for _, v := range values {
		total += v
	}
	return total
}
