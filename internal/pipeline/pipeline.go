package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/geomag-etl/internal/domain"
	"github.com/couchcryptid/geomag-etl/internal/observability"
	"github.com/couchcryptid/storm-data-shared/retry"
)

// BatchExtractor reads up to batchSize conversion requests from the source.
type BatchExtractor interface {
	ExtractBatch(ctx context.Context, batchSize int) ([]domain.Message, error)
}

// Transformer turns one request message into the products it asks for.
type Transformer interface {
	Transform(ctx context.Context, msg domain.Message) ([]domain.Product, error)
}

// BatchLoader delivers products to a destination.
type BatchLoader interface {
	LoadBatch(ctx context.Context, products []domain.Product) error
}

const (
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Second
)

// Pipeline orchestrates the extract-transform-load loop.
type Pipeline struct {
	extractor   BatchExtractor
	transformer Transformer
	loader      BatchLoader
	logger      *slog.Logger
	metrics     *observability.Metrics
	ready       atomic.Bool
	batchSize   int
}

// New creates a Pipeline with the given stages and observability.
func New(e BatchExtractor, t Transformer, l BatchLoader, logger *slog.Logger, metrics *observability.Metrics, batchSize int) *Pipeline {
	return &Pipeline{
		extractor:   e,
		transformer: t,
		loader:      l,
		logger:      logger,
		metrics:     metrics,
		batchSize:   batchSize,
	}
}

// CheckReadiness returns nil once the pipeline has loaded a batch.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not processed any requests yet")
	}
	return nil
}

// Run executes the batch loop until the context is cancelled.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started", "batch_size", p.batchSize)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	backoff := initialBackoff
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("pipeline stopping", "reason", ctx.Err())
			return nil
		default:
		}

		if !p.processBatch(ctx, &backoff) {
			return nil
		}
	}
}

// processBatch runs one extract-transform-load cycle. Returns false if the
// pipeline should stop.
func (p *Pipeline) processBatch(ctx context.Context, backoff *time.Duration) bool {
	start := time.Now()

	batch, err := p.extractor.ExtractBatch(ctx, p.batchSize)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		p.logger.Error("extract batch failed", "error", err)
		return p.backoffOrStop(ctx, backoff)
	}

	if len(batch) == 0 {
		return ctx.Err() == nil
	}

	p.metrics.RequestsConsumed.Add(float64(len(batch)))
	p.metrics.BatchSize.Observe(float64(len(batch)))
	*backoff = initialBackoff

	loaded, ok := p.transformAndLoad(ctx, batch, backoff)
	if !ok {
		return false
	}

	if loaded > 0 {
		p.metrics.BatchProcessingDuration.Observe(time.Since(start).Seconds())
		p.ready.Store(true)
	}
	return true
}

// transformAndLoad converts each request, loads every product of the batch at
// once, and commits offsets. A request that yields some products and an error
// is loaded for what succeeded. Returns the number of products loaded and
// false if the pipeline should stop.
func (p *Pipeline) transformAndLoad(ctx context.Context, batch []domain.Message, backoff *time.Duration) (int, bool) {
	var products []domain.Product
	converted := make([]domain.Message, 0, len(batch))

	for _, msg := range batch {
		out, err := p.transformer.Transform(ctx, msg)
		if err != nil {
			p.logger.Warn("conversion failed",
				"error", err,
				"topic", msg.Topic,
				"partition", msg.Partition,
				"offset", msg.Offset,
				"products", len(out),
			)
			p.metrics.ConversionErrors.WithLabelValues(reason(err)).Inc()
		}
		if len(out) == 0 {
			p.commitOffset(ctx, msg)
			continue
		}
		products = append(products, out...)
		converted = append(converted, msg)
	}

	if len(products) == 0 {
		return 0, true
	}

	for {
		err := p.loader.LoadBatch(ctx, products)
		if err == nil {
			break
		}
		p.logger.Error("load batch failed", "error", err, "products", len(products))
		if !p.backoffOrStop(ctx, backoff) {
			return 0, false
		}
	}

	p.metrics.ProductsProduced.Add(float64(len(products)))
	for _, msg := range converted {
		p.commitOffset(ctx, msg)
	}
	return len(products), true
}

// backoffOrStop sleeps with the current backoff and advances it. Returns
// false if the pipeline should stop.
func (p *Pipeline) backoffOrStop(ctx context.Context, backoff *time.Duration) bool {
	if ctx.Err() != nil {
		return false
	}
	if !retry.SleepWithContext(ctx, *backoff) {
		return false
	}
	*backoff = retry.NextBackoff(*backoff, maxBackoff)
	return true
}

// commitOffset commits the message offset if a commit function is available.
func (p *Pipeline) commitOffset(ctx context.Context, msg domain.Message) {
	if msg.Commit == nil {
		return
	}
	if err := msg.Commit(ctx); err != nil {
		p.logger.Warn("commit offset failed", "error", err,
			"topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset)
	}
}
