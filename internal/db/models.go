package db

import (
	"github.com/jackc/pgx/v5/pgtype"
)

type Voucher struct {
	ID                       pgtype.UUID        `json:"id"`
	Name                     string             `json:"name"`
	Type                     string             `json:"type"`
	DiscountType             string             `json:"discount_type"`
	Value                    int64              `json:"value"`
	PercentBps               pgtype.Int4        `json:"percent_bps"`
	ApplyOncePerOrder        bool               `json:"apply_once_per_order"`
	MinCheckoutItemsQuantity int32              `json:"min_checkout_items_quantity"`
	MinSpend                 int64              `json:"min_spend"`
	ProductIds               []string           `json:"product_ids"`
	ChannelIds               []string           `json:"channel_ids"`
	SingleUse                bool               `json:"single_use"`
	OnlyForStaff             bool               `json:"only_for_staff"`
	UsageLimit               pgtype.Int4        `json:"usage_limit"`
	Used                     int32              `json:"used"`
	StartDate                pgtype.Timestamptz `json:"start_date"`
	EndDate                  pgtype.Timestamptz `json:"end_date"`
	DeletedAt                pgtype.Timestamptz `json:"deleted_at"`
	CreatedAt                pgtype.Timestamptz `json:"created_at"`
}

type VoucherCode struct {
	ID        pgtype.UUID        `json:"id"`
	VoucherID pgtype.UUID        `json:"voucher_id"`
	Code      string             `json:"code"`
	Used      int32              `json:"used"`
	IsActive  bool               `json:"is_active"`
	CreatedAt pgtype.Timestamptz `json:"created_at"`
}

type VoucherUsage struct {
	ID            pgtype.UUID        `json:"id"`
	VoucherCodeID pgtype.UUID        `json:"voucher_code_id"`
	OrderID       pgtype.UUID        `json:"order_id"`
	Amount        int64              `json:"amount"`
	CreatedAt     pgtype.Timestamptz `json:"created_at"`
}

type CatalogueRule struct {
	ID         pgtype.UUID        `json:"id"`
	Source     string             `json:"source"`
	Name       string             `json:"name"`
	Kind       string             `json:"kind"`
	Value      int64              `json:"value"`
	PercentBps pgtype.Int4        `json:"percent_bps"`
	VariantIds []string           `json:"variant_ids"`
	ProductIds []string           `json:"product_ids"`
	ChannelIds []string           `json:"channel_ids"`
	StartDate  pgtype.Timestamptz `json:"start_date"`
	EndDate    pgtype.Timestamptz `json:"end_date"`
	CreatedAt  pgtype.Timestamptz `json:"created_at"`
}

type VariantChannelPrice struct {
	VariantID string `json:"variant_id"`
	ChannelID string `json:"channel_id"`
	ProductID string `json:"product_id"`
	Price     int64  `json:"price"`
	Currency  string `json:"currency"`
}

type ShippingMethodPrice struct {
	MethodID  string `json:"method_id"`
	ChannelID string `json:"channel_id"`
	Price     int64  `json:"price"`
}

type Order struct {
	ID                        pgtype.UUID        `json:"id"`
	CartID                    string             `json:"cart_id"`
	ChannelID                 string             `json:"channel_id"`
	Currency                  string             `json:"currency"`
	VoucherCode               pgtype.Text        `json:"voucher_code"`
	UndiscountedSubtotal      int64              `json:"undiscounted_subtotal"`
	Subtotal                  int64              `json:"subtotal"`
	UndiscountedShippingPrice int64              `json:"undiscounted_shipping_price"`
	ShippingPrice             int64              `json:"shipping_price"`
	DiscountAmount            int64              `json:"discount_amount"`
	Total                     int64              `json:"total"`
	PaymentReference          string             `json:"payment_reference"`
	CreatedAt                 pgtype.Timestamptz `json:"created_at"`
}

type OrderLine struct {
	ID                     pgtype.UUID `json:"id"`
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

type DomainEvent struct {
	ID          pgtype.UUID        `json:"id"`
	Topic       string             `json:"topic"`
	AggregateID pgtype.UUID        `json:"aggregate_id"`
	Payload     []byte             `json:"payload"`
	OccurredAt  pgtype.Timestamptz `json:"occurred_at"`
}
