package etl

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/BartekS5/steampulse/pkg/logger"
	"github.com/BartekS5/steampulse/pkg/models"
)

// FetchOptions holds the batching and pacing knobs of the detail stage.
type FetchOptions struct {
	BatchSize         int
	BatchSleep        time.Duration
	RateLimitCooldown time.Duration
}

// Fetcher walks the identifier list from the stored checkpoint, fetching one
// payload per identifier and committing full batches as it goes.
type Fetcher struct {
	Source      DetailSource
	Checkpoints CheckpointStore
	Committer   *Committer
	Transformer *Transformer
	Opts        FetchOptions
	Sleep       SleepFunc

	stats *RunStats
}

func NewFetcher(src DetailSource, checkpoints CheckpointStore, committer *Committer, opts FetchOptions) *Fetcher {
	return &Fetcher{
		Source:      src,
		Checkpoints: checkpoints,
		Committer:   committer,
		Transformer: NewTransformer(),
		Opts:        opts,
		Sleep:       Sleep,
		stats:       NewRunStats(),
	}
}

// Stats returns the counters of the current or last run.
func (f *Fetcher) Stats() StatsSnapshot {
	if f.stats == nil {
		f.stats = NewRunStats()
	}
	return f.stats.Snapshot()
}

// FinalLabel names the terminal partial batch of a list whose last index is lastIndex.
func FinalLabel(lastIndex int) string {
	return "final_" + strconv.Itoa(lastIndex)
}

// FetchAll processes ids[checkpoint:]. On cancellation the in-memory partial batch is
// dropped and the checkpoint keeps its last committed value.
func (f *Fetcher) FetchAll(ctx context.Context, ids []models.AppID) error {
	if f.Opts.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive, got %d", f.Opts.BatchSize)
	}
	if f.stats == nil {
		f.stats = NewRunStats()
	}

	start, err := f.Checkpoints.Load(ctx)
	if err != nil {
		return fmt.Errorf("%w: load: %w", ErrCheckpoint, err)
	}
	if start > len(ids) {
		logger.Warn("checkpoint is past the end of the identifier list, nothing to do", "checkpoint", start, "identifiers", len(ids))
		return nil
	}
	if start > 0 {
		logger.Infof("Resuming from identifier #%d of %d", start, len(ids))
	} else {
		logger.Infof("Starting detail fetch of %d identifiers", len(ids))
	}

	batch := make([]models.Record, 0, f.Opts.BatchSize)
	for i := start; i < len(ids); i++ {
		id := ids[i]
		logger.Debugf("Processing %d/%d (id %d)", i+1, len(ids), id)

		rec, keep, err := f.fetchOne(ctx, id)
		if err != nil {
			return err
		}
		if keep {
			batch = append(batch, rec)
		}

		if len(batch) >= f.Opts.BatchSize {
			if err := f.flush(ctx, strconv.Itoa(i), batch, i+1); err != nil {
				return err
			}
			batch = make([]models.Record, 0, f.Opts.BatchSize)

			if err := f.sleep(ctx, f.Opts.BatchSleep); err != nil {
				return err
			}
		}
	}

	if err := f.finish(ctx, ids, batch); err != nil {
		return err
	}

	logger.Info("detail fetch finished", f.stats.Snapshot().LogArgs()...)
	return nil
}

// fetchOne retries rate-limited identifiers until they resolve, so none is skipped for throttling.
func (f *Fetcher) fetchOne(ctx context.Context, id models.AppID) (models.Record, bool, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, false, err
		}

		res := f.Source.AppDetails(ctx, id)
		switch res.Outcome {
		case models.OutcomeSuccess:
			f.stats.fetched.Add(1)
			rec, ok := f.Transformer.Transform(id, res.Payload)
			if !ok {
				f.stats.filtered.Add(1)
				return nil, false, nil
			}
			f.stats.kept.Add(1)
			return rec, true, nil

		case models.OutcomeRateLimited:
			f.stats.rateLimited.Add(1)
			logger.Warn("rate limited, cooling down", "id", id, "cooldown", f.Opts.RateLimitCooldown)
			if err := f.sleep(ctx, f.Opts.RateLimitCooldown); err != nil {
				return nil, false, err
			}

		case models.OutcomeTransport, models.OutcomeFormat:
			if err := ctx.Err(); err != nil {
				return nil, false, err
			}
			f.stats.fetched.Add(1)
			f.stats.discarded.Add(1)
			logger.Debugf("Discarding id %d (%s): %v", id, res.Outcome, res.Err)
			return nil, false, nil

		default:
			return nil, false, fmt.Errorf("unknown detail outcome %d for id %d", res.Outcome, id)
		}
	}
}

func (f *Fetcher) flush(ctx context.Context, label string, batch []models.Record, next int) error {
	res, err := f.Committer.Commit(ctx, label, batch, next)
	if err != nil {
		return err
	}

	f.stats.batches.Add(1)
	if res.PublishErr != nil {
		f.stats.publishFailures.Add(1)
	}
	logger.Info("batch committed", "batch", label, "records", len(batch), "checkpoint", res.Checkpoint, "published", res.PublishErr == nil)

	return nil
}

// finish flushes the terminal batch, or just moves the checkpoint past trailing
// identifiers that produced no record.
func (f *Fetcher) finish(ctx context.Context, ids []models.AppID, batch []models.Record) error {
	if len(batch) > 0 {
		return f.flush(ctx, FinalLabel(len(ids)-1), batch, len(ids))
	}

	current, err := f.Checkpoints.Load(ctx)
	if err != nil {
		return fmt.Errorf("%w: load: %w", ErrCheckpoint, err)
	}
	if current < len(ids) {
		if err := f.Committer.advanceCheckpoint(ctx, len(ids)); err != nil {
			return err
		}
	}
	return nil
}

func (f *Fetcher) sleep(ctx context.Context, d time.Duration) error {
	if f.Sleep == nil {
		return Sleep(ctx, d)
	}
	return f.Sleep(ctx, d)
}
