package etl

import (
	"context"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/BartekS5/steampulse/pkg/models"
)

// BatchObjectKey lays out <prefix>/<YYYY-MM-DD>/batch_<label>.json.
func BatchObjectKey(prefix string, t time.Time, label string) string {
	return path.Join(prefix, t.Format("2006-01-02"), BatchFileName(label))
}

// DefaultRemoteTimeout bounds a single object upload.
const DefaultRemoteTimeout = 30 * time.Second

// putObject uploads body under key, giving up after timeout. A non-positive timeout
// leaves ctx as is.
func putObject(ctx context.Context, store ObjectStore, timeout time.Duration, key string, body []byte, contentType string) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return store.PutObject(ctx, key, body, contentType)
}

// BucketPublisher uploads each batch as NDJSON to an object store, keyed by date and label.
type BucketPublisher struct {
	Store   ObjectStore
	Prefix  string
	Timeout time.Duration
	Now     func() time.Time
}

func NewBucketPublisher(store ObjectStore, prefix string) *BucketPublisher {
	return &BucketPublisher{Store: store, Prefix: prefix, Timeout: DefaultRemoteTimeout, Now: time.Now}
}

func (p *BucketPublisher) Name() string { return "bucket" }

func (p *BucketPublisher) Publish(ctx context.Context, label string, records []models.Record) error {
	body, err := EncodeNDJSON(records)
	if err != nil {
		return err
	}

	now := time.Now
	if p.Now != nil {
		now = p.Now
	}

	return putObject(ctx, p.Store, p.Timeout, BatchObjectKey(p.Prefix, now(), label), body, "application/json")
}

// MultiPublisher fans a batch out to every publisher, even after one fails.
type MultiPublisher []Publisher

func (m MultiPublisher) Name() string {
	name := ""
	for i, p := range m {
		if i > 0 {
			name += "+"
		}
		name += p.Name()
	}
	return name
}

func (m MultiPublisher) Publish(ctx context.Context, label string, records []models.Record) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, label, records); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
		}
	}
	return errors.Join(errs...)
}
