package health

import (
	"context"
	"errors"
	"fmt"

	"mercator-hq/custodian/pkg/audit"
)

// StoreCheck reports whether the audit store answers a count query.
func StoreCheck(store audit.EventStore) CheckFunc {
	return func(ctx context.Context) error {
		if _, err := store.CountEvents(ctx, &audit.EventQuery{Limit: 1}); err != nil {
			return fmt.Errorf("audit store: %w", err)
		}
		return nil
	}
}

// RunningCheck fails while running reports false.
func RunningCheck(component string, running func() bool) CheckFunc {
	return func(context.Context) error {
		if !running() {
			return errors.New(component + " is not running")
		}
		return nil
	}
}
