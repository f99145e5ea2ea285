package cart

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/toko-pricing/internal/pricing"
)

var (
	// ErrNotFound indicates the requested cart could not be located.
	ErrNotFound = errors.New("cart not found")
	// ErrLineNotFound indicates the requested cart line does not exist.
	ErrLineNotFound = errors.New("cart line not found")
	// ErrInvalidInput is returned when the provided payload is invalid.
	ErrInvalidInput = errors.New("invalid input")
)

// Line is a single variant in the cart. Prices are refreshed on every recalculation.
type Line struct {
	ID          string         `json:"id"`
	VariantID   string         `json:"variant_id"`
	ProductID   string         `json:"product_id"`
	Quantity    int            `json:"quantity"`
	BasePrice   pricing.Money  `json:"base_price"`
	ManualPrice *pricing.Money `json:"manual_price,omitempty"`
}

// Cart is the mutable checkout aggregate. Lines keep insertion order.
type Cart struct {
	ID               string    `json:"id"`
	ChannelID        string    `json:"channel_id"`
	Currency         string    `json:"currency"`
	Lines            []Line    `json:"lines"`
	VoucherCode      string    `json:"voucher_code,omitempty"`
	ShippingMethodID string    `json:"shipping_method_id,omitempty"`
	Staff            bool      `json:"staff,omitempty"`
	Totals           *Totals   `json:"totals,omitempty"`
	PricesExpireAt   time.Time `json:"prices_expire_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// AddLine merges quantity into an existing line with the same variant and
// manual price, or appends a new line.
func (c *Cart) AddLine(variantID string, qty int, manual *pricing.Money) (Line, error) {
	variantID = strings.TrimSpace(variantID)
	if variantID == "" {
		return Line{}, fmt.Errorf("variant id is required: %w", ErrInvalidInput)
	}
	if qty <= 0 || qty > pricing.MaxQuantity {
		return Line{}, fmt.Errorf("quantity must be between 1 and %d: %w", pricing.MaxQuantity, pricing.ErrInvalidQuantity)
	}
	if err := checkManualPrice(manual); err != nil {
		return Line{}, err
	}
	for i := range c.Lines {
		if c.Lines[i].VariantID == variantID && sameManualPrice(c.Lines[i].ManualPrice, manual) {
			if c.Lines[i].Quantity > pricing.MaxQuantity-qty {
				return Line{}, fmt.Errorf("merged quantity exceeds %d: %w", pricing.MaxQuantity, pricing.ErrInvalidQuantity)
			}
			c.Lines[i].Quantity += qty
			c.invalidate()
			return c.Lines[i], nil
		}
	}
	line := Line{ID: uuid.NewString(), VariantID: variantID, Quantity: qty, ManualPrice: copyMoney(manual)}
	c.Lines = append(c.Lines, line)
	c.invalidate()
	return line, nil
}

// UpdateLine sets the quantity and optionally overrides the unit price of a line.
// A zero quantity removes the line.
func (c *Cart) UpdateLine(lineID string, qty int, manual *pricing.Money) error {
	idx := c.lineIndex(lineID)
	if idx < 0 {
		return ErrLineNotFound
	}
	if qty < 0 || qty > pricing.MaxQuantity {
		return fmt.Errorf("quantity must be between 0 and %d: %w", pricing.MaxQuantity, pricing.ErrInvalidQuantity)
	}
	if err := checkManualPrice(manual); err != nil {
		return err
	}
	if qty == 0 {
		return c.DeleteLine(lineID)
	}
	c.Lines[idx].Quantity = qty
	if manual != nil {
		c.Lines[idx].ManualPrice = copyMoney(manual)
	}
	c.invalidate()
	return nil
}

func checkManualPrice(manual *pricing.Money) error {
	if manual == nil {
		return nil
	}
	if *manual < 0 || *manual > pricing.MaxAmount {
		return fmt.Errorf("manual price out of range: %w", pricing.ErrInvalidPrice)
	}
	return nil
}

// DeleteLine removes a line from the cart.
func (c *Cart) DeleteLine(lineID string) error {
	idx := c.lineIndex(lineID)
	if idx < 0 {
		return ErrLineNotFound
	}
	c.Lines = append(c.Lines[:idx], c.Lines[idx+1:]...)
	c.invalidate()
	return nil
}

// PricesStale reports whether cached totals must be recomputed before use.
func (c Cart) PricesStale(now time.Time) bool {
	return c.Totals == nil || c.PricesExpireAt.IsZero() || !now.Before(c.PricesExpireAt)
}

func (c *Cart) invalidate() {
	c.Totals = nil
	c.PricesExpireAt = time.Time{}
}

func (c Cart) lineIndex(lineID string) int {
	for i, l := range c.Lines {
		if l.ID == lineID {
			return i
		}
	}
	return -1
}

func sameManualPrice(a, b *pricing.Money) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func copyMoney(m *pricing.Money) *pricing.Money {
	if m == nil {
		return nil
	}
	v := *m
	return &v
}
