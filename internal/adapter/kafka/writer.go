// Package kafka publishes decoded observation records to the sink topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/isd-ingest/internal/config"
	"github.com/couchcryptid/isd-ingest/internal/isd"
)

// Writer produces observation records to a Kafka topic. It implements
// pipeline.RecordPublisher.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured sink topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSinkTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
		BatchSize:    cfg.BatchSize,
	}
	return &Writer{writer: w, logger: logger}
}

// PublishRecords serializes and publishes a batch of observation records
// in a single WriteMessages call. The message key is the station-time
// identity of the observation, so a re-sync of the same file compacts
// cleanly.
func (w *Writer) PublishRecords(ctx context.Context, records []isd.Record) error {
	if len(records) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(records))
	for i := range records {
		msg, err := serializeToMessage(records[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	return w.writer.WriteMessages(ctx, msgs...)
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals an observation record into a Kafka message.
func serializeToMessage(rec isd.Record) (kafkago.Message, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize record: %w", err)
	}
	c := rec.Control
	key := fmt.Sprintf("%s-%s-%s", c.USAFID, c.WBANID, c.Timestamp.Format("200601021504"))
	return kafkago.Message{
		Key:   []byte(key),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "station_id", Value: []byte(c.USAFID)},
			{Key: "observed_at", Value: []byte(c.Timestamp.Format(time.RFC3339))},
		},
	}, nil
}
