package alarm

import (
	"context"

	domain "github.com/oshokin/proximity-alarm/internal/domain/alarm"
	"github.com/oshokin/proximity-alarm/internal/logger"
	"github.com/oshokin/proximity-alarm/internal/metrics"
)

// StateReader exposes the enabled bit.
type StateReader interface {
	CurrentState() State
}

// StatePublisher answers state requests by republishing the enabled bit.
type StatePublisher struct {
	reader    StateReader
	publisher Publisher
	topic     string
	metrics   *metrics.Metrics
}

// NewStatePublisher creates a publisher that answers on topic.
func NewStatePublisher(reader StateReader, publisher Publisher, topic string, m *metrics.Metrics) *StatePublisher {
	return &StatePublisher{
		reader:    reader,
		publisher: publisher,
		topic:     topic,
		metrics:   m,
	}
}

// HandleStateRequest publishes "on" or "off". It never changes state.
func (p *StatePublisher) HandleStateRequest(ctx context.Context) {
	payload := domain.OnOff(p.reader.CurrentState().Enabled, false)

	if err := p.publisher.Publish(ctx, p.topic, payload); err != nil {
		p.metrics.PublishError()
		logger.ErrorKV(ctx, "Failed to answer state request", "topic", p.topic, "error", err)

		return
	}

	logger.DebugKV(ctx, "Alarm state announced", "state", payload)
}
