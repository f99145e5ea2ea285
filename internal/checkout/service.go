package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/noah-isme/toko-pricing/internal/cart"
	"github.com/noah-isme/toko-pricing/internal/events"
	"github.com/noah-isme/toko-pricing/internal/obs"
	"github.com/noah-isme/toko-pricing/internal/order"
	"github.com/noah-isme/toko-pricing/internal/pricing"
	"github.com/noah-isme/toko-pricing/internal/voucher"
)

var (
	// ErrPaymentInsufficient is returned when the authorised amount does not cover the order total.
	ErrPaymentInsufficient = errors.New("payment does not cover order total")
	// ErrEmptyCart is returned when completing a cart without lines.
	ErrEmptyCart = fmt.Errorf("cart is empty: %w", cart.ErrInvalidInput)
)

// Payment is the authorisation presented when completing a checkout.
type Payment struct {
	Authorized pricing.Money
	Reference  string
}

// Input describes a checkout completion request.
type Input struct {
	CartID  string
	Payment Payment
}

// Service turns carts into orders.
type Service struct {
	Carts    *cart.Service
	Tx       TxRunner
	Vouchers *voucher.Service
	Locker   cart.Locker
	LockTTL  time.Duration
	Events   *events.Bus
	// Legacy reports whether voucher shares are folded into line discounts for a channel.
	Legacy func(channelID string) bool
	Now    func() time.Time
	Logger zerolog.Logger
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) legacy(channelID string) bool {
	return s.Legacy != nil && s.Legacy(channelID)
}

// Complete recalculates the cart, consumes its voucher and persists the order
// in a single transaction, then deletes the cart.
func (s *Service) Complete(ctx context.Context, in Input) (order.Order, error) {
	if s == nil || s.Carts == nil || s.Carts.Store == nil || s.Tx == nil {
		return order.Order{}, errors.New("checkout service not configured")
	}
	ctx, span := otel.Tracer("checkout.Service").Start(ctx, "CheckoutService.Complete")
	defer span.End()

	start := time.Now()
	result := "error"
	defer func() {
		elapsed := time.Since(start)
		span.SetAttributes(
			attribute.String("cart.id", in.CartID),
			attribute.String("checkout.result", result),
			attribute.Float64("checkout.duration_ms", obs.DurationMillis(elapsed)),
		)
		if obs.CheckoutCompleteTotal != nil {
			obs.CheckoutCompleteTotal.WithLabelValues(result).Inc()
		}
		if obs.CheckoutCompleteLatency != nil {
			obs.CheckoutCompleteLatency.WithLabelValues(result).Observe(obs.DurationMillis(elapsed))
		}
	}()

	var placed order.Order
	err := s.withLock(ctx, in.CartID, func(ctx context.Context) error {
		o, err := s.complete(ctx, in)
		if err != nil {
			return err
		}
		placed = o
		return nil
	})
	if err != nil {
		result = resultLabel(err)
		span.RecordError(err)
		return order.Order{}, err
	}
	result = "ok"
	span.SetAttributes(attribute.String("order.id", placed.ID.String()))

	s.Logger.Info().
		Str("order_id", placed.ID.String()).
		Str("cart_id", placed.CartID).
		Str("voucher_code", placed.VoucherCode).
		Int64("total", int64(placed.Total)).
		Msg("checkout completed")

	if s.Events != nil {
		payload := map[string]any{
			"orderId":  placed.ID.String(),
			"cartId":   placed.CartID,
			"channel":  placed.ChannelID,
			"currency": placed.Currency,
			"total":    placed.Total,
			"discount": placed.DiscountAmount,
		}
		if placed.VoucherCode != "" {
			payload["voucherCode"] = placed.VoucherCode
		}
		if _, err := s.Events.Emit(ctx, events.TopicOrderCreated, placed.ID, payload); err != nil {
			s.Logger.Error().Err(err).Str("order_id", placed.ID.String()).Msg("emit order created")
		}
	}
	return placed, nil
}

func (s *Service) complete(ctx context.Context, in Input) (order.Order, error) {
	c, err := s.Carts.Store.Get(ctx, in.CartID)
	if err != nil {
		return order.Order{}, err
	}
	if len(c.Lines) == 0 {
		return order.Order{}, ErrEmptyCart
	}
	totals, err := s.Carts.Recalculate(ctx, &c)
	if err != nil {
		return order.Order{}, err
	}
	if totals.VoucherDropped {
		// persist the cart without the code so the client sees the new totals
		if saveErr := s.Carts.Store.Save(ctx, c); saveErr != nil {
			s.Logger.Error().Err(saveErr).Str("cart_id", c.ID).Msg("save cart after voucher drop")
		}
		return order.Order{}, totals.VoucherErr
	}

	o, err := order.Finalize(c, totals, order.Options{
		ID:                        uuid.New(),
		LegacyDiscountPropagation: s.legacy(c.ChannelID),
		PaymentReference:          in.Payment.Reference,
		Now:                       s.now(),
	})
	if err != nil {
		return order.Order{}, err
	}

	err = s.Tx.InTx(ctx, func(st Store) error {
		if o.Voucher != nil {
			if err := s.Vouchers.Consume(ctx, st, o.Voucher.Code, o.ID, o.Voucher.Amount); err != nil {
				return fmt.Errorf("consume voucher: %w", err)
			}
		}
		if err := order.Save(ctx, st, o); err != nil {
			return err
		}
		if in.Payment.Authorized < o.Total {
			return fmt.Errorf("authorized %s, total %s: %w", in.Payment.Authorized, o.Total, ErrPaymentInsufficient)
		}
		return nil
	})
	if err != nil {
		return order.Order{}, err
	}

	if err := s.Carts.Store.Delete(ctx, c.ID); err != nil {
		s.Logger.Error().Err(err).Str("cart_id", c.ID).Msg("delete completed cart")
	}
	return o, nil
}

func (s *Service) withLock(ctx context.Context, cartID string, fn func(context.Context) error) error {
	if s.Locker == nil {
		return fn(ctx)
	}
	ttl := s.LockTTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return s.Locker.WithLock(ctx, cart.LockKey(cartID), ttl, fn)
}

func resultLabel(err error) string {
	switch {
	case errors.Is(err, voucher.ErrInvalidPromoCode), errors.Is(err, voucher.ErrVoucherNotApplicable):
		return "voucher_rejected"
	case errors.Is(err, ErrPaymentInsufficient):
		return "payment_insufficient"
	case errors.Is(err, cart.ErrNotFound), errors.Is(err, cart.ErrInvalidInput):
		return "invalid"
	default:
		return "error"
	}
}
