package checkout

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/noah-isme/toko-pricing/internal/db"
	"github.com/noah-isme/toko-pricing/internal/order"
	"github.com/noah-isme/toko-pricing/internal/voucher"
)

// Store is the query surface available inside a completion transaction.
type Store interface {
	voucher.Querier
	order.Writer
}

// TxRunner runs fn inside a transaction. A non-nil error from fn rolls back
// every write fn made.
type TxRunner interface {
	InTx(ctx context.Context, fn func(Store) error) error
}

// Beginner starts transactions; satisfied by *pgxpool.Pool.
type Beginner interface {
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
}

// PgxTx runs completion transactions on Postgres.
type PgxTx struct {
	Pool Beginner
	Q    *db.Queries
}

// InTx implements TxRunner.
func (p PgxTx) InTx(ctx context.Context, fn func(Store) error) error {
	tx, err := p.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()
	if err := fn(p.Q.WithTx(tx)); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
