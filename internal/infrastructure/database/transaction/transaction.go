package transaction

import (
	"context"

	"gorm.io/gorm"
)

type txContextKey struct{}

// WithTx stores a transaction handle in the context so repositories joining
// the same unit of work share it.
func WithTx(ctx context.Context, tx *gorm.DB) context.Context {
	return context.WithValue(ctx, txContextKey{}, tx)
}

// Database hands repositories either the ambient transaction or the root handle.
type Database struct {
	db *gorm.DB
}

func NewDatabase(db *gorm.DB) *Database {
	return &Database{db}
}

// GetDB returns the transaction bound to ctx, or the root connection.
func (t *Database) GetDB(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(txContextKey{}).(*gorm.DB); ok {
		return tx
	}
	return t.db
}

// Transaction runs fn inside a single database transaction. Repository calls
// made with the ctx passed to fn join that transaction.
func (t *Database) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return t.GetDB(ctx).WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(WithTx(ctx, tx))
	})
}
