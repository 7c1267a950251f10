// Package trace records refinement decisions and quality metrics to an
// evaluation backend. Recording is observability, not control flow: the
// dispatcher is fire-and-forget and a slow or failing sink can never add
// latency to the refinement loop or fail a session.
package trace

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DecisionEvent records one agent decision with its reasoning.
type DecisionEvent struct {
	SessionID  string    `json:"session_id"`
	Section    string    `json:"section"`
	Iteration  int       `json:"iteration"`
	Context    string    `json:"context"`
	Outcome    string    `json:"outcome"`
	Reasoning  string    `json:"reasoning,omitempty"`
	Confidence float64   `json:"confidence"`
	Timestamp  time.Time `json:"timestamp"`
}

// MetricEvent records one named quality metric with tags.
type MetricEvent struct {
	Name      string            `json:"name"`
	Value     float64           `json:"value"`
	Tags      map[string]string `json:"tags,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// Recorder is the evaluation backend boundary. Implementations may block;
// callers that must not block wrap a Recorder in a Dispatcher.
type Recorder interface {
	RecordDecision(ctx context.Context, ev DecisionEvent) error
	RecordMetric(ctx context.Context, ev MetricEvent) error
}

// Noop discards all events.
type Noop struct{}

func (Noop) RecordDecision(context.Context, DecisionEvent) error { return nil }
func (Noop) RecordMetric(context.Context, MetricEvent) error     { return nil }

// fanout delivers each event to every sink, returning the first error.
type fanout []Recorder

// Multi combines several recorders into one.
func Multi(sinks ...Recorder) Recorder { return fanout(sinks) }

func (f fanout) RecordDecision(ctx context.Context, ev DecisionEvent) error {
	var first error
	for _, s := range f {
		if err := s.RecordDecision(ctx, ev); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (f fanout) RecordMetric(ctx context.Context, ev MetricEvent) error {
	var first error
	for _, s := range f {
		if err := s.RecordMetric(ctx, ev); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// event is the internal queue element.
type event struct {
	decision *DecisionEvent
	metric   *MetricEvent
}

// Dispatcher makes any Recorder fire-and-forget: events are queued on a
// bounded channel and delivered by a single worker goroutine. When the queue
// is full events are dropped and counted, never blocked on.
type Dispatcher struct {
	sink    Recorder
	queue   chan event
	done    chan struct{}
	once    sync.Once
	mu      sync.Mutex
	dropped int64
}

// NewDispatcher starts a dispatcher over sink with the given queue capacity.
func NewDispatcher(sink Recorder, capacity int) *Dispatcher {
	if capacity <= 0 {
		capacity = 256
	}
	d := &Dispatcher{
		sink:  sink,
		queue: make(chan event, capacity),
		done:  make(chan struct{}),
	}
	go d.run()
	return d
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for ev := range d.queue {
		// Sink failures are logged and forgotten; evaluation is best-effort.
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		var err error
		switch {
		case ev.decision != nil:
			err = d.sink.RecordDecision(ctx, *ev.decision)
		case ev.metric != nil:
			err = d.sink.RecordMetric(ctx, *ev.metric)
		}
		cancel()
		if err != nil {
			zap.L().Warn("trace: sink delivery failed", zap.Error(err))
		}
	}
}

// RecordDecision enqueues a decision event without blocking.
func (d *Dispatcher) RecordDecision(_ context.Context, ev DecisionEvent) error {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	d.enqueue(event{decision: &ev})
	return nil
}

// RecordMetric enqueues a metric event without blocking.
func (d *Dispatcher) RecordMetric(_ context.Context, ev MetricEvent) error {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	d.enqueue(event{metric: &ev})
	return nil
}

func (d *Dispatcher) enqueue(ev event) {
	select {
	case d.queue <- ev:
	default:
		d.mu.Lock()
		d.dropped++
		n := d.dropped
		d.mu.Unlock()
		zap.L().Warn("trace: queue full, event dropped", zap.Int64("total_dropped", n))
	}
}

// Dropped returns the number of events dropped due to a full queue.
func (d *Dispatcher) Dropped() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dropped
}

// Close stops accepting events and waits for the queue to drain.
func (d *Dispatcher) Close() {
	d.once.Do(func() {
		close(d.queue)
		<-d.done
	})
}
