package broker

import (
	"context"

	"github.com/oshokin/proximity-alarm/internal/logger"
	"github.com/oshokin/proximity-alarm/internal/metrics"
)

// Handler processes the payload of one message.
type Handler func(ctx context.Context, payload string) error

// Router dispatches messages to handlers by exact topic.
type Router struct {
	// routes is the dispatch table.
	routes map[string]Handler
	// metrics counts received messages, may be nil.
	metrics *metrics.Metrics
}

// NewRouter creates an empty router.
func NewRouter(m *metrics.Metrics) *Router {
	return &Router{
		routes:  make(map[string]Handler),
		metrics: m,
	}
}

// Handle registers h for topic, replacing any previous handler.
func (r *Router) Handle(topic string, h Handler) {
	r.routes[topic] = h
}

// Run dispatches messages one at a time until ctx is done or messages is closed.
func (r *Router) Run(ctx context.Context, messages <-chan Message) {
	ctx = logger.WithName(ctx, "router")

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}

			r.Dispatch(ctx, msg)
		}
	}
}

// Dispatch runs the handler for msg. Handler errors are logged and swallowed.
func (r *Router) Dispatch(ctx context.Context, msg Message) {
	h, ok := r.routes[msg.Topic]
	if !ok {
		logger.DebugKV(ctx, "No handler for topic", "topic", msg.Topic)

		return
	}

	r.metrics.MessageReceived(msg.Topic)

	if err := h(ctx, msg.Payload); err != nil {
		logger.WarnKV(ctx, "Message rejected", "topic", msg.Topic, "payload", msg.Payload, "error", err)
	}
}
