package etl

import (
	"context"
	"fmt"
	"time"

	"github.com/BartekS5/steampulse/pkg/logger"
	"github.com/BartekS5/steampulse/pkg/models"
	"github.com/BartekS5/steampulse/pkg/utils"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// bulkWriter is the part of *mongo.Collection the publisher needs.
type bulkWriter interface {
	BulkWrite(ctx context.Context, writes []mongo.WriteModel, opts ...*options.BulkWriteOptions) (*mongo.BulkWriteResult, error)
}

// MongoPublisher upserts every record keyed by steam_id, so a replayed batch overwrites
// the documents it wrote before.
type MongoPublisher struct {
	Coll    bulkWriter
	Timeout time.Duration
}

func NewMongoPublisher(client *mongo.Client, database, collection string) *MongoPublisher {
	return &MongoPublisher{
		Coll:    client.Database(database).Collection(collection),
		Timeout: DefaultRemoteTimeout,
	}
}

func (m *MongoPublisher) Name() string { return "mongo" }

func (m *MongoPublisher) Publish(ctx context.Context, label string, records []models.Record) error {
	writes, err := buildUpserts(records)
	if err != nil {
		return err
	}
	if len(writes) == 0 {
		return nil
	}

	if m.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.Timeout)
		defer cancel()
	}

	res, err := m.Coll.BulkWrite(ctx, writes, options.BulkWrite().SetOrdered(false))
	if err != nil {
		return fmt.Errorf("mongo bulk write: %w", err)
	}
	logger.Debugf("Mongo BulkWrite batch %s: Match %d, Mod %d, Upsert %d", label, res.MatchedCount, res.ModifiedCount, res.UpsertedCount)

	return nil
}

func buildUpserts(records []models.Record) ([]mongo.WriteModel, error) {
	writes := make([]mongo.WriteModel, 0, len(records))
	for i, rec := range records {
		id, err := utils.RecordAppID(rec)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}

		filter := bson.M{models.FieldSteamID: int(id)}
		update := bson.M{"$set": bson.M(rec)}
		writes = append(writes, mongo.NewUpdateOneModel().SetFilter(filter).SetUpdate(update).SetUpsert(true))
	}
	return writes, nil
}
