package store

import (
	"context"
	"errors"
	"time"

	"github.com/sethvargo/go-retry"
)

// conflictRetries bounds how often a transaction is replayed after
// ErrConflict.
const conflictRetries = 3

// UpdateWithRetry runs s.Update and replays fn from scratch when it fails
// with ErrConflict. fn must be free of side effects outside the transaction.
func UpdateWithRetry(ctx context.Context, s Store, fn func(tx Tx) error) error {
	backoff := retry.WithMaxRetries(conflictRetries, retry.NewConstant(25*time.Millisecond))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := s.Update(ctx, fn)
		if errors.Is(err, ErrConflict) {
			return retry.RetryableError(err)
		}
		return err
	})
}
