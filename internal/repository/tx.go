package repository

import (
	"context"

	"gorm.io/gorm"
)

type txKey struct{}

// TxRunner executes a function inside one atomic storage transaction.
// Every repository call made with the context passed to fn joins that
// transaction; any error returned by fn rolls the whole scope back.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type gormTxRunner struct {
	db *gorm.DB
}

// NewTxRunner builds a TxRunner over the given database handle.
func NewTxRunner(db *gorm.DB) TxRunner {
	return &gormTxRunner{db: db}
}

func (r *gormTxRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

// dbFor resolves the transaction bound to ctx, falling back to the
// repository's own handle outside a TxRunner scope.
func dbFor(ctx context.Context, fallback *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx
	}
	return fallback.WithContext(ctx)
}
