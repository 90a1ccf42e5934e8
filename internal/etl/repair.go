package etl

import (
	"context"
	"fmt"
	"path"
	"time"

	"github.com/BartekS5/steampulse/pkg/logger"
)

// RepairedDir is the remote folder that holds re-encoded local batches.
const RepairedDir = "repaired"

// RepairReport summarises one repair scan.
type RepairReport struct {
	Scanned  int
	Repaired int
	Failed   []string
}

// Repairer re-encodes every local batch as NDJSON and uploads it under <Prefix>/repaired/.
// Uploads overwrite, so running it twice gives the same remote state.
type Repairer struct {
	Local   LocalSink
	Store   ObjectStore
	Prefix  string
	Timeout time.Duration
}

func NewRepairer(local LocalSink, store ObjectStore, prefix string) *Repairer {
	return &Repairer{Local: local, Store: store, Prefix: prefix, Timeout: DefaultRemoteTimeout}
}

// RepairedObjectKey returns the remote key of a repaired local file.
func RepairedObjectKey(prefix, name string) string {
	return path.Join(prefix, RepairedDir, path.Base(name))
}

// RepairAll never stops on a single bad file; only failing to list the sink is an error.
func (r *Repairer) RepairAll(ctx context.Context) (RepairReport, error) {
	report := RepairReport{}

	names, err := r.Local.List(ctx)
	if err != nil {
		return report, fmt.Errorf("list local batches: %w", err)
	}
	logger.Infof("Found %d local batch files to repair", len(names))

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Scanned++

		if err := r.repairOne(ctx, name); err != nil {
			logger.Error("repair failed", "file", name, "error", err)
			report.Failed = append(report.Failed, name)
			continue
		}
		report.Repaired++
	}

	logger.Info("repair finished", "scanned", report.Scanned, "repaired", report.Repaired, "failed", len(report.Failed))
	return report, nil
}

func (r *Repairer) repairOne(ctx context.Context, name string) error {
	data, err := r.Local.Read(ctx, name)
	if err != nil {
		return fmt.Errorf("read: %w", err)
	}

	records, format, err := DecodeAny(data)
	if err != nil {
		return err
	}

	body, err := EncodeNDJSON(records)
	if err != nil {
		return err
	}

	key := RepairedObjectKey(r.Prefix, name)
	if err := putObject(ctx, r.Store, r.Timeout, key, body, "application/json"); err != nil {
		return fmt.Errorf("%w: upload %s: %w", ErrPublish, key, err)
	}

	logger.Info("repaired batch", "file", name, "from", format.String(), "records", len(records), "key", key)
	return nil
}
