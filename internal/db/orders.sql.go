package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const insertOrder = `-- name: InsertOrder :one
INSERT INTO orders (
    id, cart_id, channel_id, currency, voucher_code, undiscounted_subtotal, subtotal,
    undiscounted_shipping_price, shipping_price, discount_amount, total, payment_reference
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
RETURNING created_at
`

type InsertOrderParams struct {
	ID                        pgtype.UUID `json:"id"`
	CartID                    string      `json:"cart_id"`
	ChannelID                 string      `json:"channel_id"`
	Currency                  string      `json:"currency"`
	VoucherCode               pgtype.Text `json:"voucher_code"`
	UndiscountedSubtotal      int64       `json:"undiscounted_subtotal"`
	Subtotal                  int64       `json:"subtotal"`
	UndiscountedShippingPrice int64       `json:"undiscounted_shipping_price"`
	ShippingPrice             int64       `json:"shipping_price"`
	DiscountAmount            int64       `json:"discount_amount"`
	Total                     int64       `json:"total"`
	PaymentReference          string      `json:"payment_reference"`
}

func (q *Queries) InsertOrder(ctx context.Context, arg InsertOrderParams) (pgtype.Timestamptz, error) {
	row := q.db.QueryRow(ctx, insertOrder,
		arg.ID,
		arg.CartID,
		arg.ChannelID,
		arg.Currency,
		arg.VoucherCode,
		arg.UndiscountedSubtotal,
		arg.Subtotal,
		arg.UndiscountedShippingPrice,
		arg.ShippingPrice,
		arg.DiscountAmount,
		arg.Total,
		arg.PaymentReference,
	)
	var createdAt pgtype.Timestamptz
	err := row.Scan(&createdAt)
	return createdAt, err
}

const insertOrderLine = `-- name: InsertOrderLine :exec
INSERT INTO order_lines (
    order_id, position, variant_id, product_id, quantity, undiscounted_unit_price, unit_price,
    unit_discount_amount, unit_discount_type, unit_discount_reason, undiscounted_total_price, total_price
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
`

type InsertOrderLineParams struct {
	OrderID                pgtype.UUID `json:"order_id"`
	Position               int32       `json:"position"`
	VariantID              string      `json:"variant_id"`
	ProductID              string      `json:"product_id"`
	Quantity               int32       `json:"quantity"`
	UndiscountedUnitPrice  int64       `json:"undiscounted_unit_price"`
	UnitPrice              int64       `json:"unit_price"`
	UnitDiscountAmount     int64       `json:"unit_discount_amount"`
	UnitDiscountType       pgtype.Text `json:"unit_discount_type"`
	UnitDiscountReason     pgtype.Text `json:"unit_discount_reason"`
	UndiscountedTotalPrice int64       `json:"undiscounted_total_price"`
	TotalPrice             int64       `json:"total_price"`
}

func (q *Queries) InsertOrderLine(ctx context.Context, arg InsertOrderLineParams) error {
	_, err := q.db.Exec(ctx, insertOrderLine,
		arg.OrderID,
		arg.Position,
		arg.VariantID,
		arg.ProductID,
		arg.Quantity,
		arg.UndiscountedUnitPrice,
		arg.UnitPrice,
		arg.UnitDiscountAmount,
		arg.UnitDiscountType,
		arg.UnitDiscountReason,
		arg.UndiscountedTotalPrice,
		arg.TotalPrice,
	)
	return err
}

const getOrder = `-- name: GetOrder :one
SELECT id, cart_id, channel_id, currency, voucher_code, undiscounted_subtotal, subtotal,
       undiscounted_shipping_price, shipping_price, discount_amount, total, payment_reference, created_at
FROM orders
WHERE id = $1
`

func (q *Queries) GetOrder(ctx context.Context, id pgtype.UUID) (Order, error) {
	row := q.db.QueryRow(ctx, getOrder, id)
	var i Order
	err := row.Scan(
		&i.ID,
		&i.CartID,
		&i.ChannelID,
		&i.Currency,
		&i.VoucherCode,
		&i.UndiscountedSubtotal,
		&i.Subtotal,
		&i.UndiscountedShippingPrice,
		&i.ShippingPrice,
		&i.DiscountAmount,
		&i.Total,
		&i.PaymentReference,
		&i.CreatedAt,
	)
	return i, err
}

const listOrderLines = `-- name: ListOrderLines :many
SELECT id, order_id, position, variant_id, product_id, quantity, undiscounted_unit_price, unit_price,
       unit_discount_amount, unit_discount_type, unit_discount_reason, undiscounted_total_price, total_price
FROM order_lines
WHERE order_id = $1
ORDER BY position
`

func (q *Queries) ListOrderLines(ctx context.Context, orderID pgtype.UUID) ([]OrderLine, error) {
	rows, err := q.db.Query(ctx, listOrderLines, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []OrderLine
	for rows.Next() {
		var i OrderLine
		if err := rows.Scan(
			&i.ID,
			&i.OrderID,
			&i.Position,
			&i.VariantID,
			&i.ProductID,
			&i.Quantity,
			&i.UndiscountedUnitPrice,
			&i.UnitPrice,
			&i.UnitDiscountAmount,
			&i.UnitDiscountType,
			&i.UnitDiscountReason,
			&i.UndiscountedTotalPrice,
			&i.TotalPrice,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
