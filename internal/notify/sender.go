package notify

import (
	"context"

	"github.com/oshokin/proximity-alarm/internal/logger"
)

// Sender performs a single synchronous delivery.
type Sender interface {
	Send(ctx context.Context, message string) error
}

// LogSender only logs messages. It stands in for a real service when no
// credentials are configured.
type LogSender struct{}

// Send logs the message.
func (LogSender) Send(ctx context.Context, message string) error {
	logger.InfoKV(ctx, "Notification (delivery disabled)", "message", message)

	return nil
}
