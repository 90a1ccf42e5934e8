package etl

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrDurability aborts a run: the local copy could not be written.
	ErrDurability = errors.New("local durability failure")
	// ErrPublish is logged and swallowed: only the remote copy is stale.
	ErrPublish = errors.New("remote publish failure")
	// ErrCheckpoint aborts a run: progress could not be recorded.
	ErrCheckpoint = errors.New("checkpoint failure")
	// ErrCheckpointRegression is returned when a store is asked to move its cursor backwards.
	ErrCheckpointRegression = errors.New("checkpoint cannot decrease")
	// ErrRetriesExhausted is only possible when a discovery retry cap is configured.
	ErrRetriesExhausted = errors.New("retries exhausted")
	ErrLocked           = errors.New("another pipeline instance holds the lock")
	ErrInvalidBatch     = errors.New("invalid batch")
	ErrNoIdentifiers    = errors.New("identifier store is empty")
)

// SleepFunc pauses for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep is the default SleepFunc.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
