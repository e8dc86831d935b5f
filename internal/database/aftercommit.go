package database

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/FernandoVinha/TheManager/pkg/logger"
)

// AfterCommit accumulates work that may only run once the enclosing
// transaction has durably committed.
type AfterCommit struct {
	mu  sync.Mutex
	fns []func(context.Context)
}

// Defer schedules fn to run after commit. Registration order is execution order.
func (a *AfterCommit) Defer(fn func(ctx context.Context)) {
	if a == nil || fn == nil {
		return
	}
	a.mu.Lock()
	a.fns = append(a.fns, fn)
	a.mu.Unlock()
}

// Len reports how many callbacks are pending.
func (a *AfterCommit) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.fns)
}

// run drains the queue. A panicking callback is logged and does not stop the
// callbacks after it.
func (a *AfterCommit) run(ctx context.Context) {
	a.mu.Lock()
	fns := a.fns
	a.fns = nil
	a.mu.Unlock()

	for _, fn := range fns {
		runCallback(ctx, fn)
	}
}

func runCallback(ctx context.Context, fn func(context.Context)) {
	defer func() {
		if r := recover(); r != nil {
			logger.WithModule("database").Error("after-commit callback panicked", zap.Any("panic", r))
		}
	}()
	fn(ctx)
}

// WithTransaction runs fn inside a transaction on db. Callbacks registered on
// the AfterCommit are executed only when the transaction commits, and are
// discarded on rollback. They receive a context detached from ctx's
// cancellation so a finished request does not abort post-commit work.
func WithTransaction(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB, after *AfterCommit) error) error {
	if ctx == nil {
		ctx = context.Background()
	}

	after := &AfterCommit{}
	if err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(tx, after)
	}); err != nil {
		return err
	}

	after.run(context.WithoutCancel(ctx))
	return nil
}
