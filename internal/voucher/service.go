package voucher

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-pricing/internal/db"
	"github.com/noah-isme/toko-pricing/internal/obs"
	"github.com/noah-isme/toko-pricing/internal/pricing"
)

// Reader loads vouchers by code without locking.
type Reader interface {
	GetVoucherByCode(ctx context.Context, code string) (db.VoucherCodeRow, error)
}

// Querier captures the transactional methods required to consume a code.
type Querier interface {
	GetVoucherByCodeForUpdate(ctx context.Context, code string) (db.VoucherCodeRow, error)
	GetVoucherUsageByOrder(ctx context.Context, arg db.GetVoucherUsageByOrderParams) (db.VoucherUsage, error)
	InsertVoucherUsage(ctx context.Context, arg db.InsertVoucherUsageParams) error
	IncreaseVoucherCodeUsage(ctx context.Context, arg db.IncreaseVoucherCodeUsageParams) error
}

// Service resolves vouchers for carts and consumes codes at order completion.
type Service struct {
	Q   Reader
	Now func() time.Time
}

// ActiveVoucher loads the voucher attached to code and validates the code-level gates.
func (s *Service) ActiveVoucher(ctx context.Context, code string) (Rule, error) {
	if s == nil || s.Q == nil {
		return Rule{}, errors.New("voucher service not configured")
	}
	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		return Rule{}, fmt.Errorf("code is required: %w", ErrInvalidPromoCode)
	}
	row, err := s.Q.GetVoucherByCode(ctx, trimmed)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Rule{}, fmt.Errorf("unknown code: %w", ErrInvalidPromoCode)
		}
		return Rule{}, err
	}
	rule := RuleFromModel(row)
	if err := rule.CheckCode(s.now()); err != nil {
		return Rule{}, err
	}
	return rule, nil
}

// Consume marks the code as used for orderID inside the caller's transaction.
// Re-consuming for the same order is a no-op.
func (s *Service) Consume(ctx context.Context, q Querier, code string, orderID uuid.UUID, amount pricing.Money) (err error) {
	if q == nil {
		return errors.New("voucher querier not configured")
	}
	result := "error"
	defer func() {
		if obs.VoucherConsumeTotal != nil {
			obs.VoucherConsumeTotal.WithLabelValues(result).Inc()
		}
	}()

	row, err := q.GetVoucherByCodeForUpdate(ctx, strings.TrimSpace(code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			result = "rejected"
			return fmt.Errorf("unknown code: %w", ErrInvalidPromoCode)
		}
		return err
	}
	order := pgtype.UUID{Bytes: orderID, Valid: true}
	_, err = q.GetVoucherUsageByOrder(ctx, db.GetVoucherUsageByOrderParams{VoucherCodeID: row.VoucherCode.ID, OrderID: order})
	if err == nil {
		result = "duplicate"
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return err
	}

	rule := RuleFromModel(row)
	if err := rule.CheckCode(s.now()); err != nil {
		result = "rejected"
		return err
	}
	if err := q.InsertVoucherUsage(ctx, db.InsertVoucherUsageParams{
		VoucherCodeID: row.VoucherCode.ID,
		OrderID:       order,
		Amount:        int64(amount.NonNegative()),
	}); err != nil {
		return err
	}
	if err := q.IncreaseVoucherCodeUsage(ctx, db.IncreaseVoucherCodeUsageParams{
		CodeID:     row.VoucherCode.ID,
		Deactivate: rule.SingleUse,
	}); err != nil {
		return err
	}
	result = "consumed"
	return nil
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// RuleFromModel converts a voucher and code row into a Rule used for evaluation.
func RuleFromModel(row db.VoucherCodeRow) Rule {
	v := row.Voucher
	rule := Rule{
		ID:                       uuidString(v.ID),
		Code:                     row.VoucherCode.Code,
		Name:                     v.Name,
		Type:                     Type(v.Type),
		DiscountType:             pricing.DiscountKind(v.DiscountType),
		Value:                    pricing.Money(v.Value),
		ApplyOncePerOrder:        v.ApplyOncePerOrder,
		MinCheckoutItemsQuantity: int(v.MinCheckoutItemsQuantity),
		MinSpend:                 pricing.Money(v.MinSpend),
		ProductIDs:               v.ProductIds,
		ChannelIDs:               v.ChannelIds,
		SingleUse:                v.SingleUse,
		OnlyForStaff:             v.OnlyForStaff,
		Used:                     v.Used,
		CodeUsed:                 row.VoucherCode.Used,
		CodeInactive:             !row.VoucherCode.IsActive,
		Deleted:                  v.DeletedAt.Valid,
	}
	if v.PercentBps.Valid {
		rule.Percent = decimal.New(int64(v.PercentBps.Int32), -2)
	}
	if v.UsageLimit.Valid {
		limit := v.UsageLimit.Int32
		rule.UsageLimit = &limit
	}
	if v.StartDate.Valid {
		rule.ValidFrom = &v.StartDate.Time
	}
	if v.EndDate.Valid {
		rule.ValidTo = &v.EndDate.Time
	}
	return rule
}

func uuidString(id pgtype.UUID) string {
	if !id.Valid {
		return ""
	}
	return uuid.UUID(id.Bytes).String()
}
