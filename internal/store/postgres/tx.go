package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/jackc/pgx/v5"

	"github.com/politbuero-kampagnen/onegov-cloud-sub000/internal/core"
	"github.com/politbuero-kampagnen/onegov-cloud-sub000/internal/logging"
)

// Beginner starts transactions. Implemented by *pgxpool.Pool and *pgx.Conn.
type Beginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// RetryOptions controls how often WithTx reruns a conflicting transaction.
type RetryOptions struct {
	Attempts uint
	Delay    time.Duration
}

// DefaultRetry retries serialization failures and deadlocks three times.
var DefaultRetry = RetryOptions{Attempts: 3, Delay: 50 * time.Millisecond}

// WithTx runs fn with a store bound to a new transaction and commits if fn
// returns nil. The whole transaction is rerun if it fails with a
// serialization failure or a deadlock.
func WithTx(ctx context.Context, db Beginner, opts RetryOptions, fn func(s *Store) error) error {
	if opts.Attempts == 0 {
		opts = DefaultRetry
	}
	logger := logging.FromContext(ctx)

	return retry.Do(
		func() error {
			tx, err := db.Begin(ctx)
			if err != nil {
				return fmt.Errorf("begin transaction: %w", err)
			}
			defer tx.Rollback(ctx)

			if err := fn(New(tx)); err != nil {
				return err
			}
			if err := tx.Commit(ctx); err != nil {
				return fmt.Errorf("commit: %w", err)
			}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(opts.Attempts),
		retry.Delay(opts.Delay),
		retry.LastErrorOnly(true),
		retry.RetryIf(core.IsRetryable),
		retry.OnRetry(func(n uint, err error) {
			logger.Warn("retrying transaction", "attempt", n+1, "error", err)
		}),
	)
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
