package notification

import (
	"context"
	"time"

	"porto/internal/domain/model"
)

type NotificationWriter interface {
	Create(ctx context.Context, n model.Notification) error
	CreateMany(ctx context.Context, ns []model.Notification) error
}

// DBConsumer stores one inbox row per recipient.
type DBConsumer struct {
	repo NotificationWriter
	now  func() time.Time
}

func NewDBConsumer(repo NotificationWriter) *DBConsumer {
	return &DBConsumer{repo: repo, now: time.Now}
}

func (c *DBConsumer) Name() string { return "db" }

func (c *DBConsumer) Notify(ctx context.Context, recipientID int64, msg Message) error {
	return c.repo.Create(ctx, c.row(recipientID, msg))
}

func (c *DBConsumer) NotifyMany(ctx context.Context, recipientIDs []int64, msg Message) error {
	rows := make([]model.Notification, 0, len(recipientIDs))
	for _, id := range recipientIDs {
		rows = append(rows, c.row(id, msg))
	}
	return c.repo.CreateMany(ctx, rows)
}

func (c *DBConsumer) row(recipientID int64, msg Message) model.Notification {
	return model.Notification{
		CreatedAt: c.now(),
		Title:     msg.Title,
		Body:      msg.Body,
		Icon:      msg.Icon,
		UserID:    recipientID,
		OrderID:   msg.OrderID,
		OfferID:   msg.OfferID,
		Stage:     msg.Stage,
	}
}
