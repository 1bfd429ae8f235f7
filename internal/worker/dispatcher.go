package worker

import (
	"context"
	"errors"
	"time"

	"heritageblade/internal/events"
	"heritageblade/internal/metrics"

	"github.com/rs/zerolog"
)

var ErrQueueFull = errors.New("event queue is full")

// Sink delivers events to one external system. Handle returns nil for event
// types the sink does not care about.
type Sink interface {
	Name() string
	Handle(ctx context.Context, event *events.Event) error
}

// Dispatcher buffers domain events and delivers them to every sink in a
// background goroutine, retrying each sink with exponential backoff.
type Dispatcher struct {
	sinks  []Sink
	queue  chan *events.Event
	retry  RetryPolicy
	logger *zerolog.Logger
	sleep  func(ctx context.Context, d time.Duration) error
	done   chan struct{}

	// deliveries cut short by shutdown, retried once by drain
	interrupted []delivery
}

type delivery struct {
	sink  Sink
	event *events.Event
}

// NewDispatcher builds a dispatcher with sane defaults.
func NewDispatcher(retry RetryPolicy, queueSize int, logger *zerolog.Logger, sinks ...Sink) *Dispatcher {
	if retry.MaxRetries == 0 {
		retry.MaxRetries = 5
	}
	if retry.InitialDelay == 0 {
		retry.InitialDelay = time.Second
	}
	if retry.MaxDelay == 0 {
		retry.MaxDelay = time.Minute
	}
	if retry.BackoffFactor == 0 {
		retry.BackoffFactor = 2
	}
	if queueSize <= 0 {
		queueSize = 100
	}

	return &Dispatcher{
		sinks:  sinks,
		queue:  make(chan *events.Event, queueSize),
		retry:  retry,
		logger: logger,
		sleep:  sleepContext,
		done:   make(chan struct{}),
	}
}

// Sinks returns the number of configured sinks.
func (d *Dispatcher) Sinks() int {
	return len(d.sinks)
}

// Subscribe routes the given event types from the bus into the queue.
func (d *Dispatcher) Subscribe(bus *events.EventBus, types ...string) {
	for _, t := range types {
		bus.Subscribe(t, d.Enqueue)
	}
}

// Enqueue never blocks; a full queue drops the event.
func (d *Dispatcher) Enqueue(event *events.Event) error {
	select {
	case d.queue <- event:
		return nil
	default:
		d.logger.Warn().Str("event", event.Type).Msg("event queue full, dropping event")
		return ErrQueueFull
	}
}

// Start delivers queued events until ctx is done, then drains what is left
// with a single attempt per sink. Done is closed once Start returns.
func (d *Dispatcher) Start(ctx context.Context) {
	d.logger.Info().Int("sinks", len(d.sinks)).Msg("event dispatcher started")
	defer close(d.done)
	defer d.logger.Info().Msg("event dispatcher stopped")

	for {
		select {
		case <-ctx.Done():
			d.drain()
			return
		case event := <-d.queue:
			d.process(ctx, event)
		}
	}
}

// Done is closed after Start has drained the queue and returned.
func (d *Dispatcher) Done() <-chan struct{} {
	return d.done
}

func (d *Dispatcher) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for _, pending := range d.interrupted {
		d.deliverOnce(ctx, pending.sink, pending.event)
	}
	d.interrupted = nil

	for {
		select {
		case event := <-d.queue:
			for _, sink := range d.sinks {
				d.deliverOnce(ctx, sink, event)
			}
		default:
			return
		}
	}
}

func (d *Dispatcher) process(ctx context.Context, event *events.Event) {
	for _, sink := range d.sinks {
		if ctx.Err() != nil || !d.deliver(ctx, sink, event) {
			d.interrupted = append(d.interrupted, delivery{sink: sink, event: event})
		}
	}
}

// deliver retries sink until it succeeds or gives up. It returns false when
// shutdown interrupted the retries before either happened.
func (d *Dispatcher) deliver(ctx context.Context, sink Sink, event *events.Event) bool {
	for attempt := 1; ; attempt++ {
		err := sink.Handle(ctx, event)
		if err == nil {
			metrics.IncDelivery(sink.Name(), "ok")
			return true
		}

		log := d.logger.With().Str("sink", sink.Name()).Str("event", event.Type).Int("attempt", attempt).Logger()
		if attempt >= d.retry.MaxRetries {
			metrics.IncDelivery(sink.Name(), "dropped")
			log.Error().Err(err).Msg("event delivery failed, giving up")
			return true
		}

		metrics.IncDelivery(sink.Name(), "retry")
		delay := d.retry.NextDelay(attempt)
		log.Warn().Err(err).Dur("retry_in", delay).Msg("event delivery failed")
		if err := d.sleep(ctx, delay); err != nil {
			return false
		}
	}
}

func (d *Dispatcher) deliverOnce(ctx context.Context, sink Sink, event *events.Event) {
	if err := sink.Handle(ctx, event); err != nil {
		metrics.IncDelivery(sink.Name(), "dropped")
		d.logger.Error().Err(err).Str("sink", sink.Name()).Str("event", event.Type).Msg("event delivery failed during shutdown")
		return
	}
	metrics.IncDelivery(sink.Name(), "ok")
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
