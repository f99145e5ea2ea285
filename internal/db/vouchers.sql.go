package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const voucherCodeColumns = `
    v.id, v.name, v.type, v.discount_type, v.value, v.percent_bps, v.apply_once_per_order,
    v.min_checkout_items_quantity, v.min_spend, v.product_ids, v.channel_ids, v.single_use,
    v.only_for_staff, v.usage_limit, v.used, v.start_date, v.end_date, v.deleted_at, v.created_at,
    vc.id, vc.voucher_id, vc.code, vc.used, vc.is_active, vc.created_at
FROM voucher_codes vc
JOIN vouchers v ON v.id = vc.voucher_id
WHERE vc.code = $1
`

const getVoucherByCode = `-- name: GetVoucherByCode :one
SELECT` + voucherCodeColumns

const getVoucherByCodeForUpdate = `-- name: GetVoucherByCodeForUpdate :one
SELECT` + voucherCodeColumns + `FOR UPDATE OF vc, v
`

type VoucherCodeRow struct {
	Voucher     Voucher     `json:"voucher"`
	VoucherCode VoucherCode `json:"voucher_code"`
}

func scanVoucherCodeRow(row pgx.Row) (VoucherCodeRow, error) {
	var i VoucherCodeRow
	err := row.Scan(
		&i.Voucher.ID,
		&i.Voucher.Name,
		&i.Voucher.Type,
		&i.Voucher.DiscountType,
		&i.Voucher.Value,
		&i.Voucher.PercentBps,
		&i.Voucher.ApplyOncePerOrder,
		&i.Voucher.MinCheckoutItemsQuantity,
		&i.Voucher.MinSpend,
		&i.Voucher.ProductIds,
		&i.Voucher.ChannelIds,
		&i.Voucher.SingleUse,
		&i.Voucher.OnlyForStaff,
		&i.Voucher.UsageLimit,
		&i.Voucher.Used,
		&i.Voucher.StartDate,
		&i.Voucher.EndDate,
		&i.Voucher.DeletedAt,
		&i.Voucher.CreatedAt,
		&i.VoucherCode.ID,
		&i.VoucherCode.VoucherID,
		&i.VoucherCode.Code,
		&i.VoucherCode.Used,
		&i.VoucherCode.IsActive,
		&i.VoucherCode.CreatedAt,
	)
	return i, err
}

func (q *Queries) GetVoucherByCode(ctx context.Context, code string) (VoucherCodeRow, error) {
	return scanVoucherCodeRow(q.db.QueryRow(ctx, getVoucherByCode, code))
}

func (q *Queries) GetVoucherByCodeForUpdate(ctx context.Context, code string) (VoucherCodeRow, error) {
	return scanVoucherCodeRow(q.db.QueryRow(ctx, getVoucherByCodeForUpdate, code))
}

const getVoucherUsageByOrder = `-- name: GetVoucherUsageByOrder :one
SELECT id, voucher_code_id, order_id, amount, created_at
FROM voucher_usages
WHERE voucher_code_id = $1 AND order_id = $2
`

type GetVoucherUsageByOrderParams struct {
	VoucherCodeID pgtype.UUID `json:"voucher_code_id"`
	OrderID       pgtype.UUID `json:"order_id"`
}

func (q *Queries) GetVoucherUsageByOrder(ctx context.Context, arg GetVoucherUsageByOrderParams) (VoucherUsage, error) {
	row := q.db.QueryRow(ctx, getVoucherUsageByOrder, arg.VoucherCodeID, arg.OrderID)
	var i VoucherUsage
	err := row.Scan(&i.ID, &i.VoucherCodeID, &i.OrderID, &i.Amount, &i.CreatedAt)
	return i, err
}

const insertVoucherUsage = `-- name: InsertVoucherUsage :exec
INSERT INTO voucher_usages (voucher_code_id, order_id, amount)
VALUES ($1, $2, $3)
`

type InsertVoucherUsageParams struct {
	VoucherCodeID pgtype.UUID `json:"voucher_code_id"`
	OrderID       pgtype.UUID `json:"order_id"`
	Amount        int64       `json:"amount"`
}

func (q *Queries) InsertVoucherUsage(ctx context.Context, arg InsertVoucherUsageParams) error {
	_, err := q.db.Exec(ctx, insertVoucherUsage, arg.VoucherCodeID, arg.OrderID, arg.Amount)
	return err
}

const increaseVoucherCodeUsage = `-- name: IncreaseVoucherCodeUsage :exec
WITH code AS (
    UPDATE voucher_codes
    SET used = used + 1,
        is_active = is_active AND NOT $2::boolean
    WHERE id = $1
    RETURNING voucher_id
)
UPDATE vouchers
SET used = used + 1
WHERE id = (SELECT voucher_id FROM code)
`

type IncreaseVoucherCodeUsageParams struct {
	CodeID     pgtype.UUID `json:"code_id"`
	Deactivate bool        `json:"deactivate"`
}

func (q *Queries) IncreaseVoucherCodeUsage(ctx context.Context, arg IncreaseVoucherCodeUsageParams) error {
	_, err := q.db.Exec(ctx, increaseVoucherCodeUsage, arg.CodeID, arg.Deactivate)
	return err
}
