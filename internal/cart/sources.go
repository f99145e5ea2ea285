package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-pricing/internal/db"
	"github.com/noah-isme/toko-pricing/internal/pricing"
)

// ErrUnknownVariant is returned when a variant has no price in the cart's channel.
var ErrUnknownVariant = fmt.Errorf("variant not available in channel: %w", ErrInvalidInput)

// VariantPrice is the channel listing of a variant.
type VariantPrice struct {
	ProductID string
	Price     pricing.Money
	Currency  string
}

// CatalogueQuerier loads catalogue rules.
type CatalogueQuerier interface {
	ListActiveCatalogueRules(ctx context.Context, arg db.ListActiveCatalogueRulesParams) ([]db.CatalogueRule, error)
}

// PriceQuerier loads channel prices for variants and shipping methods.
type PriceQuerier interface {
	GetVariantChannelPrice(ctx context.Context, arg db.GetVariantChannelPriceParams) (db.VariantChannelPrice, error)
	GetShippingMethodPrice(ctx context.Context, arg db.GetShippingMethodPriceParams) (db.ShippingMethodPrice, error)
}

// DBCatalogue resolves active catalogue rules from Postgres.
type DBCatalogue struct {
	Q CatalogueQuerier
}

// ActiveCatalogueRules returns the rules active for the variant in the channel at the given time.
func (d DBCatalogue) ActiveCatalogueRules(ctx context.Context, channelID, variantID, productID string, at time.Time) ([]pricing.CatalogueRule, error) {
	if d.Q == nil {
		return nil, errors.New("catalogue queries not configured")
	}
	rows, err := d.Q.ListActiveCatalogueRules(ctx, db.ListActiveCatalogueRulesParams{
		VariantID: variantID,
		ProductID: productID,
		ChannelID: channelID,
		At:        pgtype.Timestamptz{Time: at, Valid: true},
	})
	if err != nil {
		return nil, err
	}
	out := make([]pricing.CatalogueRule, 0, len(rows))
	for _, row := range rows {
		out = append(out, CatalogueRuleFromModel(row))
	}
	return out, nil
}

// CatalogueRuleFromModel converts a stored catalogue rule.
func CatalogueRuleFromModel(r db.CatalogueRule) pricing.CatalogueRule {
	rule := pricing.CatalogueRule{
		Source: pricing.RuleSource(r.Source),
		Kind:   pricing.DiscountKind(r.Kind),
		Value:  pricing.Money(r.Value),
		Name:   r.Name,
	}
	if r.ID.Valid {
		rule.ID = uuid.UUID(r.ID.Bytes).String()
	}
	if r.PercentBps.Valid {
		rule.Percent = decimal.New(int64(r.PercentBps.Int32), -2)
	}
	return rule
}

// DBPrices resolves variant and shipping prices from Postgres.
type DBPrices struct {
	Q PriceQuerier
}

// VariantPrice returns the listing of the variant in the channel.
func (d DBPrices) VariantPrice(ctx context.Context, channelID, variantID string) (VariantPrice, error) {
	if d.Q == nil {
		return VariantPrice{}, errors.New("price queries not configured")
	}
	row, err := d.Q.GetVariantChannelPrice(ctx, db.GetVariantChannelPriceParams{VariantID: variantID, ChannelID: channelID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return VariantPrice{}, ErrUnknownVariant
		}
		return VariantPrice{}, err
	}
	return VariantPrice{ProductID: row.ProductID, Price: pricing.Money(row.Price), Currency: row.Currency}, nil
}

// ShippingPrice returns the price of the shipping method in the channel.
func (d DBPrices) ShippingPrice(ctx context.Context, channelID, methodID string) (pricing.Money, error) {
	if d.Q == nil {
		return 0, errors.New("price queries not configured")
	}
	row, err := d.Q.GetShippingMethodPrice(ctx, db.GetShippingMethodPriceParams{MethodID: methodID, ChannelID: channelID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("shipping method %q not available: %w", methodID, ErrInvalidInput)
		}
		return 0, err
	}
	return pricing.Money(row.Price), nil
}
