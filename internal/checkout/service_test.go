package checkout_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-pricing/internal/cart"
	"github.com/noah-isme/toko-pricing/internal/checkout"
	"github.com/noah-isme/toko-pricing/internal/db"
	"github.com/noah-isme/toko-pricing/internal/events"
	"github.com/noah-isme/toko-pricing/internal/lock"
	"github.com/noah-isme/toko-pricing/internal/pricing"
	"github.com/noah-isme/toko-pricing/internal/voucher"
)

// memState is the committed content of the in-memory database.
type memState struct {
	vouchers map[string]db.VoucherCodeRow
	usages   []db.VoucherUsage
	orders   map[uuid.UUID]db.InsertOrderParams
	lines    map[uuid.UUID][]db.InsertOrderLineParams
}

func (s *memState) clone() *memState {
	out := &memState{
		vouchers: make(map[string]db.VoucherCodeRow, len(s.vouchers)),
		usages:   append([]db.VoucherUsage(nil), s.usages...),
		orders:   make(map[uuid.UUID]db.InsertOrderParams, len(s.orders)),
		lines:    make(map[uuid.UUID][]db.InsertOrderLineParams, len(s.lines)),
	}
	for k, v := range s.vouchers {
		out.vouchers[k] = v
	}
	for k, v := range s.orders {
		out.orders[k] = v
	}
	for k, v := range s.lines {
		out.lines[k] = append([]db.InsertOrderLineParams(nil), v...)
	}
	return out
}

func (s *memState) GetVoucherByCodeForUpdate(_ context.Context, code string) (db.VoucherCodeRow, error) {
	row, ok := s.vouchers[code]
	if !ok {
		return db.VoucherCodeRow{}, pgx.ErrNoRows
	}
	return row, nil
}

func (s *memState) GetVoucherUsageByOrder(_ context.Context, arg db.GetVoucherUsageByOrderParams) (db.VoucherUsage, error) {
	for _, u := range s.usages {
		if u.VoucherCodeID == arg.VoucherCodeID && u.OrderID == arg.OrderID {
			return u, nil
		}
	}
	return db.VoucherUsage{}, pgx.ErrNoRows
}

func (s *memState) InsertVoucherUsage(_ context.Context, arg db.InsertVoucherUsageParams) error {
	s.usages = append(s.usages, db.VoucherUsage{VoucherCodeID: arg.VoucherCodeID, OrderID: arg.OrderID, Amount: arg.Amount})
	return nil
}

func (s *memState) IncreaseVoucherCodeUsage(_ context.Context, arg db.IncreaseVoucherCodeUsageParams) error {
	for code, row := range s.vouchers {
		if row.VoucherCode.ID != arg.CodeID {
			continue
		}
		row.VoucherCode.Used++
		row.Voucher.Used++
		if arg.Deactivate {
			row.VoucherCode.IsActive = false
		}
		s.vouchers[code] = row
	}
	return nil
}

func (s *memState) InsertOrder(_ context.Context, arg db.InsertOrderParams) (pgtype.Timestamptz, error) {
	id := uuid.UUID(arg.ID.Bytes)
	if _, exists := s.orders[id]; exists {
		return pgtype.Timestamptz{}, errors.New("duplicate order")
	}
	s.orders[id] = arg
	return pgtype.Timestamptz{Time: time.Now(), Valid: true}, nil
}

func (s *memState) InsertOrderLine(_ context.Context, arg db.InsertOrderLineParams) error {
	id := uuid.UUID(arg.OrderID.Bytes)
	s.lines[id] = append(s.lines[id], arg)
	return nil
}

// memDB hands each transaction a copy of the state and keeps it only on commit.
type memDB struct {
	mu    sync.Mutex
	state *memState
}

func (m *memDB) InTx(_ context.Context, fn func(checkout.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx := m.state.clone()
	if err := fn(tx); err != nil {
		return err
	}
	m.state = tx
	return nil
}

func (m *memDB) GetVoucherByCode(ctx context.Context, code string) (db.VoucherCodeRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.GetVoucherByCodeForUpdate(ctx, code)
}

func (m *memDB) snapshot() *memState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.clone()
}

type fakePrices map[string]cart.VariantPrice

func (f fakePrices) VariantPrice(_ context.Context, _ string, variantID string) (cart.VariantPrice, error) {
	v, ok := f[variantID]
	if !ok {
		return cart.VariantPrice{}, cart.ErrUnknownVariant
	}
	return v, nil
}

func (fakePrices) ShippingPrice(context.Context, string, string) (pricing.Money, error) {
	return 0, nil
}

type fakeCatalogue map[string][]pricing.CatalogueRule

func (f fakeCatalogue) ActiveCatalogueRules(_ context.Context, _, variantID, _ string, _ time.Time) ([]pricing.CatalogueRule, error) {
	return f[variantID], nil
}

type recordedEvents struct {
	mu     sync.Mutex
	topics []string
}

func (r *recordedEvents) InsertDomainEvent(_ context.Context, arg db.InsertDomainEventParams) (db.DomainEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.topics = append(r.topics, arg.Topic)
	return db.DomainEvent{Topic: arg.Topic, AggregateID: arg.AggregateID, Payload: arg.Payload}, nil
}

type fixture struct {
	carts  *cart.Service
	svc    *checkout.Service
	db     *memDB
	events *recordedEvents
}

func singleUseVoucher(code string, value int64, now time.Time) db.VoucherCodeRow {
	voucherID := pgtype.UUID{Bytes: uuid.New(), Valid: true}
	return db.VoucherCodeRow{
		Voucher: db.Voucher{
			ID:           voucherID,
			Name:         code,
			Type:         string(voucher.TypeEntireOrder),
			DiscountType: string(pricing.DiscountFixed),
			Value:        value,
			SingleUse:    true,
			StartDate:    pgtype.Timestamptz{Time: now.Add(-time.Hour), Valid: true},
		},
		VoucherCode: db.VoucherCode{
			ID:        pgtype.UUID{Bytes: uuid.New(), Valid: true},
			VoucherID: voucherID,
			Code:      code,
			IsActive:  true,
		},
	}
}

func newFixture(t *testing.T, catalogue fakeCatalogue, legacyChannels ...string) *fixture {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	now := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	mem := &memDB{state: (&memState{
		vouchers: map[string]db.VoucherCodeRow{"SAVE10": singleUseVoucher("SAVE10", 1000, now)},
	}).clone()}
	vouchers := &voucher.Service{Q: mem, Now: clock}
	locker := lock.Locker{R: client, RetryBackoff: 5 * time.Millisecond}

	carts := &cart.Service{
		Store:     cart.NewStore(client, time.Hour),
		Locker:    locker,
		Catalogue: catalogue,
		Prices: fakePrices{
			"shirt": {ProductID: "p-shirt", Price: pricing.MustMoney("19.99"), Currency: "USD"},
			"socks": {ProductID: "p-socks", Price: pricing.MustMoney("4.50"), Currency: "USD"},
		},
		Vouchers: vouchers,
		Currency: "USD",
		Now:      clock,
	}
	recorded := &recordedEvents{}
	legacy := map[string]bool{}
	for _, ch := range legacyChannels {
		legacy[ch] = true
	}
	return &fixture{
		carts: carts,
		db:    mem,
		svc: &checkout.Service{
			Carts:    carts,
			Tx:       mem,
			Vouchers: vouchers,
			Locker:   locker,
			Events:   &events.Bus{Store: recorded},
			Legacy:   func(ch string) bool { return legacy[ch] },
			Now:      clock,
		},
		events: recorded,
	}
}

func (f *fixture) cartWithVoucher(t *testing.T, channel string) cart.Cart {
	t.Helper()
	ctx := context.Background()
	c, err := f.carts.Create(ctx, cart.CreateInput{ChannelID: channel})
	require.NoError(t, err)
	_, err = f.carts.AddLine(ctx, c.ID, "shirt", 2, nil)
	require.NoError(t, err)
	c, err = f.carts.AddPromoCode(ctx, c.ID, "SAVE10")
	require.NoError(t, err)
	return c
}

func TestCompletePlacesOrder(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	c := f.cartWithVoucher(t, "default")
	require.Equal(t, pricing.MustMoney("29.98"), c.Totals.Total)

	o, err := f.svc.Complete(ctx, checkout.Input{
		CartID:  c.ID,
		Payment: checkout.Payment{Authorized: pricing.MustMoney("29.98"), Reference: "pay-1"},
	})
	require.NoError(t, err)
	require.Equal(t, pricing.MustMoney("29.98"), o.Total)
	require.Equal(t, pricing.MustMoney("10.00"), o.DiscountAmount)
	require.Equal(t, "SAVE10", o.VoucherCode)
	require.Len(t, o.Lines, 1)
	require.Equal(t, pricing.MustMoney("14.99"), o.Lines[0].UnitPrice)
	require.Equal(t, pricing.Money(0), o.Lines[0].UnitDiscountAmount)
	require.Empty(t, o.Lines[0].UnitDiscountReason)

	state := f.db.snapshot()
	require.Contains(t, state.orders, o.ID)
	require.Len(t, state.lines[o.ID], 1)
	require.Len(t, state.usages, 1)
	require.False(t, state.vouchers["SAVE10"].VoucherCode.IsActive)
	require.Equal(t, int64(1000), state.usages[0].Amount)

	_, err = f.carts.Get(ctx, c.ID)
	require.ErrorIs(t, err, cart.ErrNotFound)
	require.Equal(t, []string{events.TopicOrderCreated}, f.events.topics)
}

func TestCompleteRejectsSpentSingleUseCode(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	first := f.cartWithVoucher(t, "default")
	second := f.cartWithVoucher(t, "default")

	placed, err := f.svc.Complete(ctx, checkout.Input{CartID: first.ID, Payment: checkout.Payment{Authorized: pricing.MustMoney("100")}})
	require.NoError(t, err)

	_, err = f.svc.Complete(ctx, checkout.Input{CartID: second.ID, Payment: checkout.Payment{Authorized: pricing.MustMoney("100")}})
	require.ErrorIs(t, err, voucher.ErrInvalidPromoCode)

	state := f.db.snapshot()
	require.Len(t, state.orders, 1)
	require.Contains(t, state.orders, placed.ID)
	require.Len(t, state.usages, 1)

	// the code is removed from the second cart so it can be completed without it
	reloaded, err := f.carts.Get(ctx, second.ID)
	require.NoError(t, err)
	require.Empty(t, reloaded.VoucherCode)
	require.Equal(t, pricing.MustMoney("39.98"), reloaded.Totals.Total)

	o, err := f.svc.Complete(ctx, checkout.Input{CartID: second.ID, Payment: checkout.Payment{Authorized: pricing.MustMoney("39.98")}})
	require.NoError(t, err)
	require.Empty(t, o.VoucherCode)
	require.Equal(t, pricing.Money(0), o.DiscountAmount)
}

func TestCompleteRollsBackOnInsufficientPayment(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	c := f.cartWithVoucher(t, "default")

	_, err := f.svc.Complete(ctx, checkout.Input{CartID: c.ID, Payment: checkout.Payment{Authorized: pricing.MustMoney("10.00")}})
	require.ErrorIs(t, err, checkout.ErrPaymentInsufficient)

	state := f.db.snapshot()
	require.Empty(t, state.orders)
	require.Empty(t, state.usages)
	require.True(t, state.vouchers["SAVE10"].VoucherCode.IsActive)
	require.Equal(t, int32(0), state.vouchers["SAVE10"].VoucherCode.Used)

	kept, err := f.carts.Get(ctx, c.ID)
	require.NoError(t, err)
	require.Equal(t, "SAVE10", kept.VoucherCode)
	require.Empty(t, f.events.topics)
}

func TestCompleteLegacyDiscountPropagation(t *testing.T) {
	catalogue := fakeCatalogue{
		"shirt": {{ID: "sale-1", Source: pricing.SourceSale, Kind: pricing.DiscountFixed, Value: pricing.MustMoney("1.00")}},
	}
	f := newFixture(t, catalogue, "legacy")
	ctx := context.Background()

	modern := f.cartWithVoucher(t, "default")
	o, err := f.svc.Complete(ctx, checkout.Input{CartID: modern.ID, Payment: checkout.Payment{Authorized: pricing.MustMoney("27.98")}})
	require.NoError(t, err)
	line := o.Lines[0]
	require.Equal(t, pricing.MustMoney("1.00"), line.UnitDiscountAmount)
	require.Equal(t, "Sale: sale-1", line.UnitDiscountReason)
	require.Equal(t, pricing.MustMoney("13.99"), line.UnitPrice)

	// the first order consumed SAVE10; give the legacy cart its own code
	f.db.mu.Lock()
	f.db.state.vouchers["LEGACY10"] = singleUseVoucher("LEGACY10", 1000, time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC))
	f.db.mu.Unlock()

	c, err := f.carts.Create(ctx, cart.CreateInput{ChannelID: "legacy"})
	require.NoError(t, err)
	_, err = f.carts.AddLine(ctx, c.ID, "shirt", 2, nil)
	require.NoError(t, err)
	_, err = f.carts.AddPromoCode(ctx, c.ID, "LEGACY10")
	require.NoError(t, err)

	o, err = f.svc.Complete(ctx, checkout.Input{CartID: c.ID, Payment: checkout.Payment{Authorized: pricing.MustMoney("27.98")}})
	require.NoError(t, err)
	line = o.Lines[0]
	require.Equal(t, pricing.MustMoney("6.00"), line.UnitDiscountAmount)
	require.Equal(t, pricing.DiscountFixed, line.UnitDiscountType)
	require.Equal(t, "Sale: sale-1 & Entire order voucher code: LEGACY10", line.UnitDiscountReason)
	require.Equal(t, pricing.MustMoney("27.98"), o.Total)
}

func TestCompleteEmptyCart(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	c, err := f.carts.Create(ctx, cart.CreateInput{ChannelID: "default"})
	require.NoError(t, err)

	_, err = f.svc.Complete(ctx, checkout.Input{CartID: c.ID, Payment: checkout.Payment{Authorized: pricing.MustMoney("1")}})
	require.ErrorIs(t, err, checkout.ErrEmptyCart)
	require.ErrorIs(t, err, cart.ErrInvalidInput)

	_, err = f.svc.Complete(ctx, checkout.Input{CartID: "missing", Payment: checkout.Payment{Authorized: pricing.MustMoney("1")}})
	require.ErrorIs(t, err, cart.ErrNotFound)
}
