package kafka

import (
	"context"
	"log/slog"
	"time"

	"github.com/couchcryptid/geomag-etl/internal/config"
	"github.com/couchcryptid/geomag-etl/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Product message headers. The value is the encoded file itself.
const (
	HeaderFilename  = "filename"
	HeaderFormat    = "format"
	HeaderNetwork   = "network"
	HeaderStation   = "station"
	HeaderDate      = "date"
	HeaderRequestID = "request_id"
)

// Writer publishes encoded products to a Kafka topic.
// It implements pipeline.BatchLoader.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured sink topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSinkTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
		BatchBytes:   16 << 20,
	}
	return &Writer{writer: w, logger: logger}
}

// LoadBatch publishes products in a single WriteMessages call. Messages are
// keyed by product so every revision of a station-day lands on one partition.
func (w *Writer) LoadBatch(ctx context.Context, products []domain.Product) error {
	if len(products) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(products))
	for i := range products {
		msgs[i] = productMessage(products[i])
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return err
	}
	w.logger.Debug("products published", "topic", w.writer.Topic, "count", len(msgs))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// productMessage wraps a product into a Kafka message.
func productMessage(p domain.Product) kafkago.Message {
	return kafkago.Message{
		Key:   []byte(p.Key()),
		Value: p.Data,
		Headers: []kafkago.Header{
			{Key: HeaderFilename, Value: []byte(p.Filename)},
			{Key: HeaderFormat, Value: []byte(p.Format)},
			{Key: HeaderNetwork, Value: []byte(p.Network)},
			{Key: HeaderStation, Value: []byte(p.Station)},
			{Key: HeaderDate, Value: []byte(p.Date.UTC().Format(time.DateOnly))},
			{Key: HeaderRequestID, Value: []byte(p.RequestID)},
		},
	}
}
