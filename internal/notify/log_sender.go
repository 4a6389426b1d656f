package notify

import (
	"context"

	"go.uber.org/zap"

	"github.com/jb-platform/maintenance-service/internal/domain"
)

// LogSender records the message in the log and reports success.
type LogSender struct {
	channel domain.Channel
	logger  *zap.Logger
}

// NewLogSender constructs a sender for environments without a provider.
func NewLogSender(channel domain.Channel, logger *zap.Logger) *LogSender {
	return &LogSender{channel: channel, logger: logger}
}

// Send implements Sender.
func (s *LogSender) Send(_ context.Context, msg Message) error {
	s.logger.Info("notification not sent; no provider configured",
		zap.String("channel", string(s.channel)),
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.String("reference", msg.Reference))
	return nil
}
