package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/VPRamon/TSI-sub000/pkg/database"
	appErrors "github.com/VPRamon/TSI-sub000/pkg/errors"
	"github.com/VPRamon/TSI-sub000/pkg/retry"
)

// txProvider begins database transactions; *sqlx.DB satisfies it.
type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

// storageRunner applies the retry policy, error classification and storage
// metrics uniformly to every storage call of a service.
type storageRunner struct {
	policy  retry.Policy
	metrics *MetricsService
	logger  *zap.Logger
}

func newStorageRunner(policy retry.Policy, metrics *MetricsService, logger *zap.Logger) storageRunner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return storageRunner{policy: policy, metrics: metrics, logger: logger}
}

// run executes fn, retrying transient connection failures with backoff.
// The returned error is always classified.
func (s storageRunner) run(ctx context.Context, operation string, fn func(ctx context.Context) error) error {
	start := time.Now()
	err := retry.Do(ctx, s.policy, func(ctx context.Context) error {
		return database.Classify(fn(ctx))
	}, retry.WithNotify(func(attempt int, err error, wait time.Duration) {
		s.metrics.ObserveStorageRetry(operation)
		s.logger.Warn("transient storage failure, retrying",
			zap.String("operation", operation),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", wait),
			zap.Error(err),
		)
	}))
	s.metrics.ObserveDBQuery(operation, time.Since(start))

	kind := ""
	if err != nil {
		kind = string(appErrors.KindOf(err))
	}
	s.metrics.ObserveStorage(operation, err, kind)
	return err
}

// inTx runs fn inside one transaction that is rolled back unless fn and the
// commit both succeed. The whole transaction is retried on transient failures.
func (s storageRunner) inTx(ctx context.Context, db txProvider, operation string, fn func(ctx context.Context, tx *sqlx.Tx) error) error {
	return s.run(ctx, operation, func(ctx context.Context) (err error) {
		tx, err := db.BeginTxx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() {
			if err != nil {
				_ = tx.Rollback()
			}
		}()

		if err = fn(ctx, tx); err != nil {
			return err
		}
		return tx.Commit()
	})
}
