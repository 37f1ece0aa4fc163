package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// queryCanceled is the SQLSTATE Postgres reports when a statement is cancelled,
// either by a client cancel request or by statement_timeout.
const queryCanceled pq.ErrorCode = "57014"

// wrapStoreError wraps err as "failed to <op>". When the statement died because
// ctx ended (lib/pq surfaces that as a 57014 server error, not ctx.Err()), the
// context error is wrapped as well so callers can match it with errors.Is.
func wrapStoreError(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
		return fmt.Errorf("failed to %s: %w: %w", op, ctxErr, err)
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}

// IsTimeout reports whether err means a store call ran out of time.
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == queryCanceled
}
