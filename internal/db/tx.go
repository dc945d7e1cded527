package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"fitnexo/internal/apperr"
	"fitnexo/internal/logger"
	"fitnexo/internal/metrics"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const (
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeUniqueViolation      = "23505"
)

type txKey struct{}

// Transactor runs fn inside a single database transaction. Repositories pick
// the transaction up from the context through Ext.
type Transactor interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Runner opens SERIALIZABLE transactions and retries the whole unit of work
// when Postgres reports a serialization failure, a deadlock or a unique
// violation raised by a concurrent writer.
type Runner struct {
	db          *sqlx.DB
	maxAttempts int
	backoff     time.Duration
}

func NewRunner(db *sqlx.DB, maxAttempts int) *Runner {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Runner{db: db, maxAttempts: maxAttempts, backoff: 15 * time.Millisecond}
}

func (r *Runner) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	// Join the caller's transaction; the outermost InTx owns commit and retry.
	if _, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return fn(ctx)
	}

	var lastErr error
	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		err := r.runOnce(ctx, fn)
		if err == nil {
			return nil
		}
		if !IsRetryable(err) {
			return err
		}

		lastErr = err
		metrics.RecordTxRetry()
		logger.Debug("transaction conflict, retrying", "attempt", attempt, "error", err)

		if attempt < r.maxAttempts {
			if err := r.sleep(ctx, attempt); err != nil {
				return err
			}
		}
	}

	return fmt.Errorf("%w after %d attempts: %v", apperr.ErrConflictRetryable, r.maxAttempts, lastErr)
}

func (r *Runner) runOnce(ctx context.Context, fn func(ctx context.Context) error) error {
	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *Runner) sleep(ctx context.Context, attempt int) error {
	d := time.Duration(attempt)*r.backoff + time.Duration(rand.Int63n(int64(r.backoff)+1))
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Ext returns the transaction bound to ctx, or fallback when there is none.
func Ext(ctx context.Context, fallback sqlx.ExtContext) sqlx.ExtContext {
	if tx, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return tx
	}
	return fallback
}

func InTransaction(ctx context.Context) bool {
	_, ok := ctx.Value(txKey{}).(*sqlx.Tx)
	return ok
}

func pqCode(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}

func IsSerializationFailure(err error) bool {
	code := pqCode(err)
	return code == codeSerializationFailure || code == codeDeadlockDetected
}

func IsUniqueViolation(err error) bool {
	return pqCode(err) == codeUniqueViolation
}

func IsRetryable(err error) bool {
	return IsSerializationFailure(err) || IsUniqueViolation(err)
}
