package etl

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/BartekS5/steampulse/pkg/models"
	"github.com/BartekS5/steampulse/pkg/utils"
	"github.com/segmentio/kafka-go"
)

// BatchHeader carries the batch label on every published message.
const BatchHeader = "batch"

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher emits one message per record, keyed by steam_id so all versions of
// an app land on the same partition.
type KafkaPublisher struct {
	Writer messageWriter
	Topic  string
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		Writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireAll,
			AllowAutoTopicCreation: true,
		},
		Topic: topic,
	}
}

func (k *KafkaPublisher) Name() string { return "kafka" }

func (k *KafkaPublisher) Publish(ctx context.Context, label string, records []models.Record) error {
	msgs, err := buildMessages(label, records)
	if err != nil {
		return err
	}
	if len(msgs) == 0 {
		return nil
	}

	if err := k.Writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("kafka write to %s: %w", k.Topic, err)
	}
	return nil
}

func (k *KafkaPublisher) Close() error {
	return k.Writer.Close()
}

func buildMessages(label string, records []models.Record) ([]kafka.Message, error) {
	msgs := make([]kafka.Message, 0, len(records))
	for i, rec := range records {
		id, err := utils.RecordAppID(rec)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}

		value, err := json.Marshal(rec)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}

		msgs = append(msgs, kafka.Message{
			Key:     []byte(strconv.Itoa(int(id))),
			Value:   value,
			Headers: []kafka.Header{{Key: BatchHeader, Value: []byte(label)}},
		})
	}
	return msgs, nil
}
