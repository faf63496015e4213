package tx

import (
	"context"
	"time"

	"gorm.io/gorm"

	dErrors "github.com/Elelei/Blockchain-Land-Registry-System/pkg/domain-errors"
)

const defaultTxTimeout = 5 * time.Second

// GormRunner opens a database transaction per unit and binds it to ctx.
type GormRunner struct {
	db      *gorm.DB
	timeout time.Duration
}

func NewGormRunner(db *gorm.DB) *GormRunner {
	return &GormRunner{db: db, timeout: defaultTxTimeout}
}

func (r *GormRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := GormFrom(ctx); ok {
		return fn(ctx)
	}
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline && r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(WithGorm(ctx, tx))
	})
}
