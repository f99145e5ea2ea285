package order

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/noah-isme/toko-pricing/internal/db"
	"github.com/noah-isme/toko-pricing/internal/pricing"
)

// ErrNotFound indicates the requested order does not exist.
var ErrNotFound = errors.New("order not found")

// Writer persists orders.
type Writer interface {
	InsertOrder(ctx context.Context, arg db.InsertOrderParams) (pgtype.Timestamptz, error)
	InsertOrderLine(ctx context.Context, arg db.InsertOrderLineParams) error
}

// Reader loads persisted orders.
type Reader interface {
	GetOrder(ctx context.Context, id pgtype.UUID) (db.Order, error)
	ListOrderLines(ctx context.Context, orderID pgtype.UUID) ([]db.OrderLine, error)
}

// Save inserts the order and its lines.
func Save(ctx context.Context, q Writer, o Order) error {
	id := pgtype.UUID{Bytes: o.ID, Valid: true}
	_, err := q.InsertOrder(ctx, db.InsertOrderParams{
		ID:                        id,
		CartID:                    o.CartID,
		ChannelID:                 o.ChannelID,
		Currency:                  o.Currency,
		VoucherCode:               text(o.VoucherCode),
		UndiscountedSubtotal:      int64(o.UndiscountedSubtotal),
		Subtotal:                  int64(o.Subtotal),
		UndiscountedShippingPrice: int64(o.UndiscountedShippingPrice),
		ShippingPrice:             int64(o.ShippingPrice),
		DiscountAmount:            int64(o.DiscountAmount),
		Total:                     int64(o.Total),
		PaymentReference:          o.PaymentReference,
	})
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	for i, l := range o.Lines {
		if err := q.InsertOrderLine(ctx, db.InsertOrderLineParams{
			OrderID:                id,
			Position:               int32(i),
			VariantID:              l.VariantID,
			ProductID:              l.ProductID,
			Quantity:               int32(l.Quantity),
			UndiscountedUnitPrice:  int64(l.UndiscountedUnitPrice),
			UnitPrice:              int64(l.UnitPrice),
			UnitDiscountAmount:     int64(l.UnitDiscountAmount),
			UnitDiscountType:       text(string(l.UnitDiscountType)),
			UnitDiscountReason:     text(l.UnitDiscountReason),
			UndiscountedTotalPrice: int64(l.UndiscountedTotalPrice),
			TotalPrice:             int64(l.TotalPrice),
		}); err != nil {
			return fmt.Errorf("insert order line %d: %w", i, err)
		}
	}
	return nil
}

// Load reads an order and its lines.
func Load(ctx context.Context, q Reader, id uuid.UUID) (Order, error) {
	pgID := pgtype.UUID{Bytes: id, Valid: true}
	row, err := q.GetOrder(ctx, pgID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Order{}, ErrNotFound
		}
		return Order{}, err
	}
	lines, err := q.ListOrderLines(ctx, pgID)
	if err != nil {
		return Order{}, err
	}
	return FromModel(row, lines), nil
}

// FromModel converts stored rows into an Order. The structured reason is not
// stored, so only the rendered text is restored.
func FromModel(row db.Order, lines []db.OrderLine) Order {
	o := Order{
		ID:                        uuid.UUID(row.ID.Bytes),
		CartID:                    row.CartID,
		ChannelID:                 row.ChannelID,
		Currency:                  row.Currency,
		VoucherCode:               row.VoucherCode.String,
		Lines:                     make([]Line, 0, len(lines)),
		UndiscountedSubtotal:      pricing.Money(row.UndiscountedSubtotal),
		Subtotal:                  pricing.Money(row.Subtotal),
		UndiscountedShippingPrice: pricing.Money(row.UndiscountedShippingPrice),
		ShippingPrice:             pricing.Money(row.ShippingPrice),
		DiscountAmount:            pricing.Money(row.DiscountAmount),
		Total:                     pricing.Money(row.Total),
		PaymentReference:          row.PaymentReference,
	}
	if row.CreatedAt.Valid {
		o.CreatedAt = row.CreatedAt.Time
	}
	for _, l := range lines {
		o.Lines = append(o.Lines, Line{
			VariantID:              l.VariantID,
			ProductID:              l.ProductID,
			Quantity:               int(l.Quantity),
			UndiscountedUnitPrice:  pricing.Money(l.UndiscountedUnitPrice),
			UnitPrice:              pricing.Money(l.UnitPrice),
			UnitDiscountAmount:     pricing.Money(l.UnitDiscountAmount),
			UnitDiscountType:       pricing.DiscountKind(l.UnitDiscountType.String),
			UnitDiscountReason:     l.UnitDiscountReason.String,
			UndiscountedTotalPrice: pricing.Money(l.UndiscountedTotalPrice),
			TotalPrice:             pricing.Money(l.TotalPrice),
		})
	}
	return o
}

func text(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: s, Valid: true}
}
