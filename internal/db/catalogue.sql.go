package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const listActiveCatalogueRules = `-- name: ListActiveCatalogueRules :many
SELECT id, source, name, kind, value, percent_bps, variant_ids, product_ids, channel_ids,
       start_date, end_date, created_at
FROM catalogue_rules
WHERE ($1::text = ANY(variant_ids) OR $2::text = ANY(product_ids))
  AND (cardinality(channel_ids) = 0 OR $3::text = ANY(channel_ids))
  AND (start_date IS NULL OR start_date <= $4)
  AND (end_date IS NULL OR end_date > $4)
ORDER BY created_at DESC
LIMIT 1
`

type ListActiveCatalogueRulesParams struct {
	VariantID string             `json:"variant_id"`
	ProductID string             `json:"product_id"`
	ChannelID string             `json:"channel_id"`
	At        pgtype.Timestamptz `json:"at"`
}

func (q *Queries) ListActiveCatalogueRules(ctx context.Context, arg ListActiveCatalogueRulesParams) ([]CatalogueRule, error) {
	rows, err := q.db.Query(ctx, listActiveCatalogueRules, arg.VariantID, arg.ProductID, arg.ChannelID, arg.At)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []CatalogueRule
	for rows.Next() {
		var i CatalogueRule
		if err := rows.Scan(
			&i.ID,
			&i.Source,
			&i.Name,
			&i.Kind,
			&i.Value,
			&i.PercentBps,
			&i.VariantIds,
			&i.ProductIds,
			&i.ChannelIds,
			&i.StartDate,
			&i.EndDate,
			&i.CreatedAt,
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

const getVariantChannelPrice = `-- name: GetVariantChannelPrice :one
SELECT variant_id, channel_id, product_id, price, currency
FROM variant_channel_prices
WHERE variant_id = $1 AND channel_id = $2
`

type GetVariantChannelPriceParams struct {
	VariantID string `json:"variant_id"`
	ChannelID string `json:"channel_id"`
}

func (q *Queries) GetVariantChannelPrice(ctx context.Context, arg GetVariantChannelPriceParams) (VariantChannelPrice, error) {
	row := q.db.QueryRow(ctx, getVariantChannelPrice, arg.VariantID, arg.ChannelID)
	var i VariantChannelPrice
	err := row.Scan(&i.VariantID, &i.ChannelID, &i.ProductID, &i.Price, &i.Currency)
	return i, err
}

const getShippingMethodPrice = `-- name: GetShippingMethodPrice :one
SELECT method_id, channel_id, price
FROM shipping_method_prices
WHERE method_id = $1 AND channel_id = $2
`

type GetShippingMethodPriceParams struct {
	MethodID  string `json:"method_id"`
	ChannelID string `json:"channel_id"`
}

func (q *Queries) GetShippingMethodPrice(ctx context.Context, arg GetShippingMethodPriceParams) (ShippingMethodPrice, error) {
	row := q.db.QueryRow(ctx, getShippingMethodPrice, arg.MethodID, arg.ChannelID)
	var i ShippingMethodPrice
	err := row.Scan(&i.MethodID, &i.ChannelID, &i.Price)
	return i, err
}
