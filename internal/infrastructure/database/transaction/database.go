package transaction

import (
	"context"

	"gorm.io/gorm"
)

type TransactionContextKey struct{}

func WithTx(ctx context.Context, tx *gorm.DB) context.Context {
	return context.WithValue(ctx, TransactionContextKey{}, tx)
}

type Database struct {
	db *gorm.DB
}

func NewDatabase(db *gorm.DB) *Database {
	return &Database{db}
}

// GetTx returns the transaction bound to ctx, or the root handle when there is none.
func (t *Database) GetTx(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(TransactionContextKey{}).(*gorm.DB); ok {
		return tx.WithContext(ctx)
	}
	return t.db.WithContext(ctx)
}

// Transaction runs fn in a transaction. Repositories called with the ctx passed to fn join it.
// Nested calls reuse the outer transaction.
func (t *Database) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(TransactionContextKey{}).(*gorm.DB); ok {
		return fn(ctx)
	}
	return t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(WithTx(ctx, tx))
	})
}

func (t *Database) DB() *gorm.DB {
	return t.db
}
