package notification

import (
	"context"

	"go.uber.org/zap"
)

type LogConsumer struct {
	log *zap.Logger
}

func NewLogConsumer(log *zap.Logger) *LogConsumer {
	return &LogConsumer{log: log}
}

func (c *LogConsumer) Name() string { return "log" }

func (c *LogConsumer) Notify(_ context.Context, recipientID int64, msg Message) error {
	c.log.Info("notification",
		zap.Int64("recipient_id", recipientID),
		zap.Stringp("title", msg.Title),
		zap.String("body", msg.Body),
		zap.Any("data", msg.Data()),
	)
	return nil
}

func (c *LogConsumer) NotifyMany(_ context.Context, recipientIDs []int64, msg Message) error {
	c.log.Info("notification",
		zap.Int64s("recipient_ids", recipientIDs),
		zap.Stringp("title", msg.Title),
		zap.String("body", msg.Body),
		zap.Any("data", msg.Data()),
	)
	return nil
}
