package etl

import (
	"context"

	"github.com/BartekS5/steampulse/pkg/models"
)

// SearchSource returns the raw identifier tokens found on one search page.
// Non-success statuses must wrap models.ErrUnexpectedStatus.
type SearchSource interface {
	SearchPage(ctx context.Context, page int) ([]string, error)
}

// DetailSource fetches and classifies the detail payload of one app.
type DetailSource interface {
	AppDetails(ctx context.Context, id models.AppID) models.DetailResult
}

// IdentifierStore persists the ordered discovery result as one snapshot.
// Load returns (nil, nil) when nothing has been persisted yet.
type IdentifierStore interface {
	Load(ctx context.Context) ([]models.AppID, error)
	Save(ctx context.Context, ids []models.AppID) error
}

// CheckpointStore persists the index of the next unprocessed identifier.
// Save must reject a value lower than the stored one with ErrCheckpointRegression.
type CheckpointStore interface {
	Load(ctx context.Context) (int, error)
	Save(ctx context.Context, next int) error
	Reset(ctx context.Context) error
}

// LocalSink is the durability backstop. Write must not return before the batch is on disk.
type LocalSink interface {
	Write(ctx context.Context, label string, records []models.Record) (string, error)
	List(ctx context.Context) ([]string, error)
	Read(ctx context.Context, name string) ([]byte, error)
}

// Publisher pushes a committed batch to a remote destination. Failures are never fatal.
type Publisher interface {
	Name() string
	Publish(ctx context.Context, label string, records []models.Record) error
}

// ObjectStore writes named blobs, overwriting any existing object with the same key.
type ObjectStore interface {
	PutObject(ctx context.Context, key string, body []byte, contentType string) error
}
