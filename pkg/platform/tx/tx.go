// Package tx carries the active unit of work through context.Context so stores
// can join a transaction opened by a service without it leaking into their
// method signatures.
package tx

import (
	"context"
	"database/sql"

	"gorm.io/gorm"
)

// Runner executes fn as one atomic unit. If fn returns an error every write
// made through ctx inside fn is rolled back. Calls nested inside an active
// unit join it.
type Runner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type (
	sqlKey    struct{}
	gormKey   struct{}
	memoryKey struct{}
)

// WithTx stores a SQL transaction in context for downstream store usage.
func WithTx(ctx context.Context, tx *sql.Tx) context.Context {
	if tx == nil {
		return ctx
	}
	return context.WithValue(ctx, sqlKey{}, tx)
}

// From extracts a SQL transaction from context if present.
func From(ctx context.Context) (*sql.Tx, bool) {
	tx, ok := ctx.Value(sqlKey{}).(*sql.Tx)
	return tx, ok
}

// WithGorm stores a GORM transaction handle in context.
func WithGorm(ctx context.Context, tx *gorm.DB) context.Context {
	if tx == nil {
		return ctx
	}
	return context.WithValue(ctx, gormKey{}, tx)
}

// GormFrom extracts a GORM transaction handle from context if present.
func GormFrom(ctx context.Context) (*gorm.DB, bool) {
	tx, ok := ctx.Value(gormKey{}).(*gorm.DB)
	return tx, ok
}

// Conn returns the transaction bound to ctx, or db scoped to ctx when none is.
func Conn(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx, ok := GormFrom(ctx); ok {
		return tx
	}
	return db.WithContext(ctx)
}

// InTx reports whether ctx is inside a unit opened by any Runner.
func InTx(ctx context.Context) bool {
	if _, ok := From(ctx); ok {
		return true
	}
	if _, ok := GormFrom(ctx); ok {
		return true
	}
	marked, _ := ctx.Value(memoryKey{}).(bool)
	return marked
}
