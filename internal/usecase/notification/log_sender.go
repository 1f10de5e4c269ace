package notification

import (
	"context"

	"go.uber.org/zap"

	"github.com/ahmedoothman/expanders360-api/internal/logger"
)

// LogSender writes notifications to the log instead of delivering them.
type LogSender struct{}

// Send logs the message at Info level.
func (LogSender) Send(ctx context.Context, msg Message) error {
	logger.FromContext(ctx).Info("Match notification",
		zap.Int64("project_id", msg.ProjectID),
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.String("html", msg.HTML),
	)
	return nil
}
