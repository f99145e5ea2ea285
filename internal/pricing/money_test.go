package pricing

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseMoney(t *testing.T) {
	cases := map[string]Money{
		"19.99":  1999,
		"10":     1000,
		"0.005":  1,
		"13.334": 1333,
		" 7.5 ":  750,
	}
	for in, want := range cases {
		got, err := ParseMoney(in)
		if err != nil {
			t.Fatalf("parse %q: %v", in, err)
		}
		if got != want {
			t.Fatalf("parse %q: expected %d, got %d", in, want, got)
		}
	}
	if _, err := ParseMoney("abc"); err == nil {
		t.Fatal("expected error for malformed amount")
	}
}

func TestParseMoneyRejectsOutOfRange(t *testing.T) {
	for _, in := range []string{
		"184467440737095516.17",
		"92233720368547758.08",
		"-92233720368547758.08",
		"10000000000000.01",
	} {
		if got, err := ParseMoney(in); !errors.Is(err, ErrInvalidPrice) {
			t.Fatalf("parse %q: expected ErrInvalidPrice, got %s, %v", in, got, err)
		}
	}
	got, err := ParseMoney("10000000000000.00")
	if err != nil || got != MaxAmount {
		t.Fatalf("expected MaxAmount, got %s, %v", got, err)
	}
}

func TestParseExactMoney(t *testing.T) {
	got, err := ParseExactMoney("13.30")
	if err != nil || got != 1330 {
		t.Fatalf("expected 1330, got %d, %v", got, err)
	}
	for _, in := range []string{"13.335", "0.001"} {
		if _, err := ParseExactMoney(in); !errors.Is(err, ErrInvalidPrice) {
			t.Fatalf("parse %q: expected ErrInvalidPrice, got %v", in, err)
		}
	}
	if _, err := ParseExactMoney("abc"); err == nil || errors.Is(err, ErrInvalidPrice) {
		t.Fatalf("expected a parse error for malformed amount, got %v", err)
	}
}

func TestTimes(t *testing.T) {
	if got, err := Money(1999).Times(3); err != nil || got != 5997 {
		t.Fatalf("expected 5997, got %d, %v", got, err)
	}
	if _, err := MaxAmount.Times(2); !errors.Is(err, ErrInvalidQuantity) {
		t.Fatalf("expected ErrInvalidQuantity, got %v", err)
	}
	if _, err := Money(-1).Times(2); !errors.Is(err, ErrInvalidPrice) {
		t.Fatalf("expected ErrInvalidPrice, got %v", err)
	}
}

func TestMoneyString(t *testing.T) {
	if s := Money(1513).String(); s != "15.13" {
		t.Fatalf("expected 15.13, got %s", s)
	}
	if s := Money(5).String(); s != "0.05" {
		t.Fatalf("expected 0.05, got %s", s)
	}
}

func TestPercentRoundsHalfUp(t *testing.T) {
	cases := []struct {
		amount Money
		pct    string
		want   Money
	}{
		{MustMoney("13.33"), "3", MustMoney("0.40")},
		{MustMoney("19.99"), "13", MustMoney("2.60")},
		{MustMoney("17.39"), "13", MustMoney("2.26")},
		{MustMoney("34.78"), "13", MustMoney("4.52")},
		{MustMoney("0.50"), "1", MustMoney("0.01")},
		{MustMoney("100"), "12.5", MustMoney("12.50")},
	}
	for _, tc := range cases {
		got := tc.amount.Percent(decimal.RequireFromString(tc.pct))
		if got != tc.want {
			t.Fatalf("%s @ %s%%: expected %s, got %s", tc.amount, tc.pct, tc.want, got)
		}
	}
}

func TestProrateAndDivRound(t *testing.T) {
	if got := Money(1000).Prorate(1, 3); got != 333 {
		t.Fatalf("expected 333, got %d", got)
	}
	if got := Money(1000).Prorate(2, 3); got != 667 {
		t.Fatalf("expected 667, got %d", got)
	}
	if got := Money(1000).Prorate(5, 0); got != 0 {
		t.Fatalf("expected 0 for empty whole, got %d", got)
	}
	if got := MustMoney("30.26").DivRound(2); got != MustMoney("15.13") {
		t.Fatalf("expected 15.13, got %s", got)
	}
	if got := Money(5).DivRound(2); got != 3 {
		t.Fatalf("expected half to round up, got %d", got)
	}
}
