package monitor

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	api "go.opentelemetry.io/otel/metric"

	"github.com/hyperledger-labs/beefy-relayer/core"
	"github.com/hyperledger-labs/beefy-relayer/metrics"
)

// EventBus delivers decoded event batches to a single consumer. Publishing
// never blocks; a full buffer is a consumer problem and is surfaced to the
// publisher as ErrChannelSendFailed.
type EventBus struct {
	ch chan core.EventBatch
}

func NewEventBus(capacity int) *EventBus {
	return &EventBus{ch: make(chan core.EventBatch, capacity)}
}

// Subscribe returns the consumer side of the bus.
func (b *EventBus) Subscribe() <-chan core.EventBatch {
	return b.ch
}

// Publish enqueues a batch without blocking.
func (b *EventBus) Publish(ctx context.Context, batch core.EventBatch) error {
	select {
	case b.ch <- batch:
		attrs := []attribute.KeyValue{metrics.ChainIDAttribute(batch.ChainID)}
		if len(batch.Events) > 0 {
			attrs = append(attrs, metrics.EventKindAttribute(batch.Events[0].Kind().String()))
		}
		metrics.PublishedEventsCounter.Add(ctx, 1, api.WithAttributes(attrs...))
		return nil
	default:
		return ErrChannelSendFailed
	}
}

// Close closes the consumer channel. The caller must guarantee that no
// publisher is still running.
func (b *EventBus) Close() {
	close(b.ch)
}
