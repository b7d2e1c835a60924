package monitor

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	clienttypes "github.com/cosmos/ibc-go/v8/modules/core/02-client/types"
	api "go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"

	"github.com/hyperledger-labs/beefy-relayer/core"
	"github.com/hyperledger-labs/beefy-relayer/log"
	"github.com/hyperledger-labs/beefy-relayer/metrics"
)

const defaultConcurrency = 4

// EventMonitor consumes the runtime event stream of a source chain, decodes
// each raw event into canonical events and publishes the resulting batches to
// an event bus. The subscription is resilient: when the stream terminates the
// monitor resubscribes with Fibonacci-growing delays until the cumulative
// retry budget is spent.
type EventMonitor struct {
	chain       core.SourceChain
	bus         *EventBus
	concurrency int
	retry       *core.Backoff
	shutdown    chan struct{}
}

type MonitorOption func(*EventMonitor)

// WithConcurrency bounds the number of event batches decoded in parallel.
func WithConcurrency(n int) MonitorOption {
	return func(m *EventMonitor) {
		if n > 0 {
			m.concurrency = n
		}
	}
}

// WithRetryPolicy overrides the reconnect backoff parameters.
func WithRetryPolicy(initialDelay, maxDelay, budget time.Duration) MonitorOption {
	return func(m *EventMonitor) {
		m.retry = core.NewBackoff(initialDelay, maxDelay, budget)
	}
}

func NewEventMonitor(chain core.SourceChain, bus *EventBus, opts ...MonitorOption) *EventMonitor {
	m := &EventMonitor{
		chain:       chain,
		bus:         bus,
		concurrency: defaultConcurrency,
		retry:       core.NewDefaultBackoff(),
		shutdown:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Shutdown asks the monitor to stop after draining in-flight work. It is safe
// to call once.
func (m *EventMonitor) Shutdown() {
	close(m.shutdown)
}

// Run drives the monitor until Shutdown is called, the context is canceled or
// the reconnect budget is exhausted.
func (m *EventMonitor) Run(ctx context.Context) error {
	logger := m.logger()

	events, err := m.subscribe(ctx)
	if err != nil {
		return err
	}
	logger.InfoContext(ctx, "started the event monitor")

	for {
		done, err := m.consume(ctx, events)
		switch {
		case err == nil:
		case errors.Is(err, ErrChannelSendFailed):
			// a stalled consumer pauses the producer; back off and resubscribe
			logger.ErrorContext(ctx, "the event bus is stalled, backing off", err)
		default:
			logger.ErrorContext(ctx, "the event monitor failed", err)
			return err
		}
		if done {
			logger.InfoContext(ctx, "the event monitor shut down")
			return nil
		}

		if err == nil {
			logger.InfoContext(ctx, "the event stream terminated, resubscribing")
		}
		if events, err = m.resubscribe(ctx); err != nil {
			logger.ErrorContext(ctx, "failed to resubscribe to the event stream", err)
			return err
		}
	}
}

// subscribe opens the event stream, falling back to the reconnect loop when
// the first attempt fails.
func (m *EventMonitor) subscribe(ctx context.Context) (<-chan []core.RawEvent, error) {
	events, err := m.openStream(ctx)
	if err == nil {
		m.retry.Reset()
		return events, nil
	}
	m.logger().ErrorContext(ctx, "failed to subscribe to the event stream", err)
	return m.resubscribe(ctx)
}

// openStream re-establishes the transport before subscribing; after a
// connection teardown the subscription cannot succeed on a dead socket.
func (m *EventMonitor) openStream(ctx context.Context) (<-chan []core.RawEvent, error) {
	if err := m.chain.Connect(ctx); err != nil {
		return nil, err
	}
	return m.chain.SubscribeRuntimeEvents(ctx)
}

// resubscribe retries the subscription under the Fibonacci backoff schedule.
func (m *EventMonitor) resubscribe(ctx context.Context) (<-chan []core.RawEvent, error) {
	logger := m.logger()
	for {
		delay, ok := m.retry.Next()
		if !ok {
			return nil, errors.Wrapf(core.ErrRetryBudgetExhausted, "chain %s", m.chain.ChainID())
		}
		if err := core.Wait(ctx, delay); err != nil {
			return nil, err
		}

		metrics.MonitorReconnectsCounter.Add(ctx, 1, api.WithAttributes(
			metrics.ChainIDAttribute(m.chain.ChainID()),
		))
		events, err := m.openStream(ctx)
		if err != nil {
			logger.ErrorContext(ctx, "reconnect attempt failed", err, "delay", delay)
			continue
		}
		m.retry.Reset()
		return events, nil
	}
}

// consume processes the stream until it terminates, a worker fails or a
// shutdown is requested. Workers run on cloned chain handles under a bounded
// pool; consume always drains the pool before returning.
func (m *EventMonitor) consume(ctx context.Context, events <-chan []core.RawEvent) (bool, error) {
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(m.concurrency)

	done := false
loop:
	for {
		select {
		case <-egCtx.Done():
			break loop
		case <-m.shutdown:
			done = true
			break loop
		case rawEvents, ok := <-events:
			if !ok {
				break loop
			}
			handle := core.CloneSource(m.chain)
			eg.Go(func() error {
				return m.process(egCtx, handle, rawEvents)
			})
		}
	}

	if err := eg.Wait(); err != nil {
		return false, err
	}
	if !done && ctx.Err() != nil {
		return false, ctx.Err()
	}
	return done, nil
}

// process decodes raw events and publishes one batch per event. The latest
// finalized height is queried anew for every event so batches always carry a
// fresh inclusion height.
func (m *EventMonitor) process(ctx context.Context, handle core.SourceChain, rawEvents []core.RawEvent) error {
	logger := m.logger()

	for _, raw := range rawEvents {
		latest, err := handle.GetLatestFinalizedHeight(ctx)
		if err != nil {
			return err
		}

		decoded, err := DecodeEvents(raw)
		if err != nil {
			// a malformed payload drops only its own batch
			logger.ErrorContext(ctx, "dropping an undecodable event", err, "kind", raw.Kind.String())
			continue
		}
		if len(decoded) == 0 {
			continue
		}

		batch := core.EventBatch{
			ChainID:    m.chain.ChainID(),
			Height:     clienttypes.NewHeight(0, latest),
			TrackingID: core.NewTrackingID(),
			Events:     decoded,
		}
		if err := m.bus.Publish(ctx, batch); err != nil {
			return errors.Wrapf(err, "kind %s", raw.Kind)
		}
		logger.DebugContext(ctx, "published an event batch",
			"kind", raw.Kind.String(),
			"height", latest,
			"tracking_id", batch.TrackingID,
		)
	}
	return nil
}

func (m *EventMonitor) logger() *log.RelayLogger {
	return log.GetLogger().WithChain(m.chain.ChainID()).WithModule("monitor")
}
