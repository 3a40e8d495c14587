// Package optimistic applies a local change before the server confirms it
// and undoes it when the server refuses.
package optimistic

import (
	"context"

	"campusdash/internal/logger"

	"go.uber.org/zap"
)

// Mutate applies the local change and returns the function that reverts it.
// A nil rollback means there was nothing to change.
type Mutate func() (rollback func())

// Commit performs the remote half of the action.
type Commit func(ctx context.Context) error

// Do runs mutate, then commit. When commit fails the rollback runs exactly
// once and commit's error is returned unchanged.
func Do(ctx context.Context, mutate Mutate, commit Commit) error {
	rollback := mutate()

	if err := commit(ctx); err != nil {
		if rollback != nil {
			rollback()
		}
		logger.FromCtx(ctx).Debug("optimistic update rolled back", zap.Error(err))
		return err
	}
	return nil
}
