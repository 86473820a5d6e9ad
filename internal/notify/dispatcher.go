package notify

import (
	"context"
	"sync"
	"time"

	"github.com/oshokin/proximity-alarm/internal/logger"
	"github.com/oshokin/proximity-alarm/internal/metrics"
)

// Dispatcher hands messages to a bounded pool of workers.
type Dispatcher struct {
	// sender performs the deliveries.
	sender Sender
	// queue holds pending messages.
	queue chan string
	// workers is the pool size.
	workers int
	// timeout bounds one delivery.
	timeout time.Duration
	// metrics counts outcomes, may be nil.
	metrics *metrics.Metrics
	// wg tracks running workers.
	wg sync.WaitGroup
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithMetrics records delivery outcomes.
func WithMetrics(m *metrics.Metrics) DispatcherOption {
	return func(d *Dispatcher) {
		d.metrics = m
	}
}

// NewDispatcher creates a dispatcher with the given pool size and queue capacity.
func NewDispatcher(sender Sender, workers, queueSize int, timeout time.Duration, opts ...DispatcherOption) *Dispatcher {
	if workers <= 0 {
		workers = 1
	}

	if queueSize < 0 {
		queueSize = 0
	}

	d := &Dispatcher{
		sender:  sender,
		queue:   make(chan string, queueSize),
		workers: workers,
		timeout: timeout,
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Start launches the workers. They stop when ctx is canceled;
// messages still queued at that point are dropped.
func (d *Dispatcher) Start(ctx context.Context) {
	ctx = logger.WithName(ctx, "notify")

	for range d.workers {
		d.wg.Add(1)

		go func() {
			defer d.wg.Done()

			d.work(ctx)
		}()
	}
}

// Wait blocks until every worker has stopped.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Notify queues message without blocking. A full queue drops it.
func (d *Dispatcher) Notify(ctx context.Context, message string) {
	select {
	case d.queue <- message:
	default:
		d.metrics.Notification(metrics.NotificationDropped)
		logger.WarnKV(ctx, "Notification queue full, dropping message", "message", message)
	}
}

func (d *Dispatcher) work(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case message := <-d.queue:
			d.deliver(ctx, message)
		}
	}
}

// deliver performs one attempt. Failures are logged, never retried.
func (d *Dispatcher) deliver(ctx context.Context, message string) {
	sendCtx := ctx

	if d.timeout > 0 {
		var cancel context.CancelFunc

		sendCtx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	if err := d.sender.Send(sendCtx, message); err != nil {
		d.metrics.Notification(metrics.NotificationFailed)
		logger.ErrorKV(ctx, "Notification lost", "message", message, "error", err)

		return
	}

	d.metrics.Notification(metrics.NotificationSent)
	logger.DebugKV(ctx, "Notification sent", "message", message)
}
