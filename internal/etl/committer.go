package etl

import (
	"context"
	"fmt"

	"github.com/BartekS5/steampulse/pkg/logger"
	"github.com/BartekS5/steampulse/pkg/models"
)

// CommitResult describes one committed batch. PublishErr is set when only the
// remote copy failed.
type CommitResult struct {
	LocalPath  string
	PublishErr error
	Checkpoint int
}

// Committer writes a batch locally, publishes it remotely, then advances the
// checkpoint. Only the local write and the checkpoint can fail the commit.
type Committer struct {
	Local       LocalSink
	Remote      Publisher
	Checkpoints CheckpointStore
	Validator   *Validator
}

func NewCommitter(local LocalSink, remote Publisher, checkpoints CheckpointStore) *Committer {
	return &Committer{
		Local:       local,
		Remote:      remote,
		Checkpoints: checkpoints,
		Validator:   NewValidator(),
	}
}

func (c *Committer) Commit(ctx context.Context, label string, records []models.Record, next int) (CommitResult, error) {
	res := CommitResult{}

	if c.Validator != nil {
		if err := c.Validator.ValidateBatch(records); err != nil {
			return res, fmt.Errorf("batch %s: %w", label, err)
		}
	}

	path, err := c.commitLocal(ctx, label, records)
	if err != nil {
		return res, err
	}
	res.LocalPath = path

	res.PublishErr = c.publishRemote(ctx, label, records)

	if err := c.advanceCheckpoint(ctx, next); err != nil {
		return res, err
	}
	res.Checkpoint = next

	return res, nil
}

func (c *Committer) commitLocal(ctx context.Context, label string, records []models.Record) (string, error) {
	path, err := c.Local.Write(ctx, label, records)
	if err != nil {
		return "", fmt.Errorf("%w: batch %s: %w", ErrDurability, label, err)
	}
	logger.Debugf("Batch %s saved locally to %s", label, path)
	return path, nil
}

// publishRemote never fails the commit; the error is returned for accounting only.
func (c *Committer) publishRemote(ctx context.Context, label string, records []models.Record) error {
	if c.Remote == nil {
		return nil
	}
	if err := c.Remote.Publish(ctx, label, records); err != nil {
		wrapped := fmt.Errorf("%w: batch %s via %s: %w", ErrPublish, label, c.Remote.Name(), err)
		logger.Warn("remote publish failed, local copy kept", "batch", label, "error", wrapped)
		return wrapped
	}
	return nil
}

func (c *Committer) advanceCheckpoint(ctx context.Context, next int) error {
	if err := c.Checkpoints.Save(ctx, next); err != nil {
		return fmt.Errorf("%w: advance to %d: %w", ErrCheckpoint, next, err)
	}
	return nil
}
