package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"courier-dispatch/internal/core/ports"
	"courier-dispatch/internal/pkg/errs"
)

// ErrConflict is returned when an operation kept losing optimistic-concurrency races.
var ErrConflict = errors.New("concurrent modification")

// maxConflictRetries is the number of retries after the first attempt.
const maxConflictRetries = 3

// retryOnConflict runs attempt until it stops failing with errs.ErrVersionIsInvalid,
// at most maxConflictRetries+1 times. The context is checked before every attempt.
func retryOnConflict(
	ctx context.Context,
	operation string,
	metrics ports.Metrics,
	logger *slog.Logger,
	attempt func() error,
) error {
	var err error
	for i := 0; i <= maxConflictRetries; i++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		err = attempt()
		if !errors.Is(err, errs.ErrVersionIsInvalid) {
			return err
		}
		if i < maxConflictRetries {
			metrics.ConflictRetried(operation)
			logger.DebugContext(ctx, "version conflict, retrying",
				"operation", operation, "attempt", i+1, "error", err)
		}
	}
	return fmt.Errorf("%w: %s after %d attempts: %w", ErrConflict, operation, maxConflictRetries+1, err)
}

// rollback is deferred by every handler; after a successful commit it is a no-op error.
func rollback(ctx context.Context, tx TxManager) {
	_ = tx.Rollback(ctx)
}
