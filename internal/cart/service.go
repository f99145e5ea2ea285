package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/toko-pricing/internal/obs"
	"github.com/noah-isme/toko-pricing/internal/pricing"
	"github.com/noah-isme/toko-pricing/internal/voucher"
)

// Repository persists carts.
type Repository interface {
	Get(ctx context.Context, id string) (Cart, error)
	Save(ctx context.Context, c Cart) error
	Delete(ctx context.Context, id string) error
}

// Lister enumerates stored carts. Store implements it.
type Lister interface {
	IDs(ctx context.Context) ([]string, error)
}

// Locker serialises work on a key.
type Locker interface {
	WithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error
}

// CatalogueSource resolves the catalogue rules active for a variant.
type CatalogueSource interface {
	ActiveCatalogueRules(ctx context.Context, channelID, variantID, productID string, at time.Time) ([]pricing.CatalogueRule, error)
}

// PriceSource resolves channel prices.
type PriceSource interface {
	VariantPrice(ctx context.Context, channelID, variantID string) (VariantPrice, error)
	ShippingPrice(ctx context.Context, channelID, methodID string) (pricing.Money, error)
}

// VoucherSource resolves a promo code into a voucher rule.
type VoucherSource interface {
	ActiveVoucher(ctx context.Context, code string) (voucher.Rule, error)
}

// Service encapsulates cart domain operations.
type Service struct {
	Store      Repository
	Locker     Locker
	LockTTL    time.Duration
	Catalogue  CatalogueSource
	Prices     PriceSource
	Vouchers   VoucherSource
	Applicable func(voucher.Rule, Cart) bool
	PricesTTL  time.Duration
	Currency   string
	Now        func() time.Time
	Logger     zerolog.Logger
}

// CreateInput describes a new cart.
type CreateInput struct {
	ChannelID string `json:"channelId" validate:"required"`
	Currency  string `json:"currency" validate:"omitempty,len=3"`
	Staff     bool   `json:"staff"`
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) pricesTTL() time.Duration {
	if s == nil || s.PricesTTL <= 0 {
		return time.Hour
	}
	return s.PricesTTL
}

func (s *Service) configured() error {
	if s == nil || s.Store == nil || s.Prices == nil {
		return errors.New("cart service not configured")
	}
	return nil
}

// Create stores an empty cart for the channel.
func (s *Service) Create(ctx context.Context, in CreateInput) (Cart, error) {
	if err := s.configured(); err != nil {
		return Cart{}, err
	}
	channel := strings.TrimSpace(in.ChannelID)
	if channel == "" {
		return Cart{}, fmt.Errorf("channel id is required: %w", ErrInvalidInput)
	}
	currency := strings.ToUpper(strings.TrimSpace(in.Currency))
	if currency == "" {
		currency = s.Currency
	}
	c := Cart{
		ID:        uuid.NewString(),
		ChannelID: channel,
		Currency:  currency,
		Lines:     []Line{},
		Staff:     in.Staff,
		UpdatedAt: s.now(),
	}
	if _, err := s.Recalculate(ctx, &c); err != nil {
		return Cart{}, err
	}
	if err := s.Store.Save(ctx, c); err != nil {
		return Cart{}, err
	}
	return c, nil
}

// Get loads a cart without recalculating it.
func (s *Service) Get(ctx context.Context, id string) (Cart, error) {
	if err := s.configured(); err != nil {
		return Cart{}, err
	}
	return s.Store.Get(ctx, id)
}

// AddLine adds a variant to the cart and recalculates it.
func (s *Service) AddLine(ctx context.Context, id, variantID string, qty int, manual *pricing.Money) (Cart, error) {
	return s.mutate(ctx, id, func(c *Cart) error {
		_, err := c.AddLine(variantID, qty, manual)
		return err
	})
}

// UpdateLine changes a line quantity or manual price and recalculates the cart.
func (s *Service) UpdateLine(ctx context.Context, id, lineID string, qty int, manual *pricing.Money) (Cart, error) {
	return s.mutate(ctx, id, func(c *Cart) error {
		return c.UpdateLine(lineID, qty, manual)
	})
}

// DeleteLine removes a line and recalculates the cart.
func (s *Service) DeleteLine(ctx context.Context, id, lineID string) (Cart, error) {
	return s.mutate(ctx, id, func(c *Cart) error {
		return c.DeleteLine(lineID)
	})
}

// AddPromoCode attaches a voucher code. The code is rejected, and the cart left
// untouched, when the voucher cannot be applied to the current contents.
func (s *Service) AddPromoCode(ctx context.Context, id, code string) (Cart, error) {
	if err := s.configured(); err != nil {
		return Cart{}, err
	}
	if s.Vouchers == nil {
		return Cart{}, errors.New("voucher source not configured")
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return Cart{}, fmt.Errorf("code is required: %w", voucher.ErrInvalidPromoCode)
	}
	var out Cart
	err := s.withLock(ctx, id, func(ctx context.Context) error {
		c, err := s.Store.Get(ctx, id)
		if err != nil {
			return err
		}
		c.VoucherCode = code
		c.invalidate()
		totals, err := s.Recalculate(ctx, &c)
		if err != nil {
			return err
		}
		if totals.VoucherDropped {
			return totals.VoucherErr
		}
		c.UpdatedAt = s.now()
		if err := s.Store.Save(ctx, c); err != nil {
			return err
		}
		out = c
		return nil
	})
	return out, err
}

// RemovePromoCode detaches the voucher code and recalculates the cart.
func (s *Service) RemovePromoCode(ctx context.Context, id string) (Cart, error) {
	return s.mutate(ctx, id, func(c *Cart) error {
		c.VoucherCode = ""
		return nil
	})
}

// SetShippingMethod selects the shipping method priced into the cart total.
func (s *Service) SetShippingMethod(ctx context.Context, id, methodID string) (Cart, error) {
	return s.mutate(ctx, id, func(c *Cart) error {
		c.ShippingMethodID = strings.TrimSpace(methodID)
		return nil
	})
}

// Totals returns cached totals while they are fresh and recalculates otherwise.
func (s *Service) Totals(ctx context.Context, id string) (Totals, error) {
	if err := s.configured(); err != nil {
		return Totals{}, err
	}
	c, err := s.Store.Get(ctx, id)
	if err != nil {
		return Totals{}, err
	}
	if !c.PricesStale(s.now()) {
		return *c.Totals, nil
	}
	updated, err := s.mutate(ctx, id, nil)
	if err != nil {
		return Totals{}, err
	}
	return *updated.Totals, nil
}

// InvalidatePrices forces the next Totals call to recalculate each cart.
func (s *Service) InvalidatePrices(ctx context.Context, ids ...string) error {
	if err := s.configured(); err != nil {
		return err
	}
	var joined error
	for _, id := range ids {
		err := s.withLock(ctx, id, func(ctx context.Context) error {
			c, err := s.Store.Get(ctx, id)
			if err != nil {
				return err
			}
			c.invalidate()
			return s.Store.Save(ctx, c)
		})
		if err != nil && !errors.Is(err, ErrNotFound) {
			joined = errors.Join(joined, fmt.Errorf("invalidate cart %s: %w", id, err))
		}
	}
	return joined
}

// InvalidateAllPrices marks every stored cart stale, for price or rule changes
// whose affected carts are unknown. It returns the number of carts visited.
func (s *Service) InvalidateAllPrices(ctx context.Context) (int, error) {
	if err := s.configured(); err != nil {
		return 0, err
	}
	lister, ok := s.Store.(Lister)
	if !ok {
		return 0, errors.New("cart store cannot list carts")
	}
	ids, err := lister.IDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("list carts: %w", err)
	}
	if err := s.InvalidatePrices(ctx, ids...); err != nil {
		return len(ids), err
	}
	s.Logger.Info().Int("carts", len(ids)).Msg("cart prices invalidated")
	return len(ids), nil
}

// Recalculate refreshes prices, rules and the voucher for c and stores the new
// totals on it. It does not lock or persist the cart.
func (s *Service) Recalculate(ctx context.Context, c *Cart) (Totals, error) {
	if c == nil {
		return Totals{}, ErrNotFound
	}
	result := "error"
	defer func() {
		if obs.CartRecomputeTotal != nil {
			obs.CartRecomputeTotal.WithLabelValues(result).Inc()
		}
	}()

	now := s.now()
	snap, err := s.snapshot(ctx, c, now)
	if err != nil {
		return Totals{}, err
	}
	totals, err := Recompute(*c, snap)
	if err != nil {
		return Totals{}, err
	}
	result = "ok"
	if totals.VoucherDropped {
		result = "voucher_dropped"
		s.Logger.Info().
			Str("cart_id", c.ID).
			Str("voucher_code", c.VoucherCode).
			Err(totals.VoucherErr).
			Msg("voucher dropped from cart")
		c.VoucherCode = ""
	}
	c.Totals = &totals
	c.PricesExpireAt = now.Add(s.pricesTTL())
	return totals, nil
}

func (s *Service) snapshot(ctx context.Context, c *Cart, now time.Time) (Snapshot, error) {
	snap := Snapshot{
		Rules:      make(map[string][]pricing.CatalogueRule, len(c.Lines)),
		Now:        now,
		Applicable: s.Applicable,
	}
	for i := range c.Lines {
		line := &c.Lines[i]
		listing, err := s.Prices.VariantPrice(ctx, c.ChannelID, line.VariantID)
		if err != nil {
			return Snapshot{}, fmt.Errorf("price variant %s: %w", line.VariantID, err)
		}
		line.BasePrice = listing.Price
		line.ProductID = listing.ProductID
		if s.Catalogue == nil {
			continue
		}
		if _, ok := snap.Rules[line.VariantID]; ok {
			continue
		}
		rules, err := s.Catalogue.ActiveCatalogueRules(ctx, c.ChannelID, line.VariantID, line.ProductID, now)
		if err != nil {
			return Snapshot{}, fmt.Errorf("catalogue rules for %s: %w", line.VariantID, err)
		}
		snap.Rules[line.VariantID] = rules
	}
	if c.ShippingMethodID != "" {
		price, err := s.Prices.ShippingPrice(ctx, c.ChannelID, c.ShippingMethodID)
		if err != nil {
			return Snapshot{}, err
		}
		snap.ShippingPrice = price
	}
	if c.VoucherCode != "" && s.Vouchers != nil {
		rule, err := s.Vouchers.ActiveVoucher(ctx, c.VoucherCode)
		switch {
		case err == nil:
			snap.Voucher = &rule
		case errors.Is(err, voucher.ErrInvalidPromoCode):
			snap.VoucherErr = err
		default:
			return Snapshot{}, err
		}
	}
	return snap, nil
}

// mutate loads the cart under its lock, applies fn, recalculates and saves it.
func (s *Service) mutate(ctx context.Context, id string, fn func(*Cart) error) (Cart, error) {
	if err := s.configured(); err != nil {
		return Cart{}, err
	}
	var out Cart
	err := s.withLock(ctx, id, func(ctx context.Context) error {
		c, err := s.Store.Get(ctx, id)
		if err != nil {
			return err
		}
		if fn != nil {
			if err := fn(&c); err != nil {
				return err
			}
		}
		if _, err := s.Recalculate(ctx, &c); err != nil {
			return err
		}
		c.UpdatedAt = s.now()
		if err := s.Store.Save(ctx, c); err != nil {
			return err
		}
		out = c
		return nil
	})
	return out, err
}

func (s *Service) withLock(ctx context.Context, id string, fn func(context.Context) error) error {
	if s.Locker == nil {
		return fn(ctx)
	}
	ttl := s.LockTTL
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return s.Locker.WithLock(ctx, LockKey(id), ttl, fn)
}
