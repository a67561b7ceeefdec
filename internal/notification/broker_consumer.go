package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SubjectPrefix + recipient id is the NATS subject.
const SubjectPrefix = "notifications.user."

type Publisher interface {
	Publish(ctx context.Context, subject string, v interface{}) error
}

// Event is the payload published for other services.
type Event struct {
	ID          string            `json:"id"`
	RecipientID int64             `json:"recipient_id"`
	Title       *string           `json:"title,omitempty"`
	Body        string            `json:"body"`
	Icon        *string           `json:"icon,omitempty"`
	Data        map[string]string `json:"data,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

type BrokerConsumer struct {
	pub Publisher
	now func() time.Time
}

func NewBrokerConsumer(pub Publisher) *BrokerConsumer {
	return &BrokerConsumer{pub: pub, now: time.Now}
}

func (c *BrokerConsumer) Name() string { return "broker" }

func (c *BrokerConsumer) Notify(ctx context.Context, recipientID int64, msg Message) error {
	return c.pub.Publish(ctx, Subject(recipientID), c.event(recipientID, msg))
}

func (c *BrokerConsumer) NotifyMany(ctx context.Context, recipientIDs []int64, msg Message) error {
	for _, id := range recipientIDs {
		if err := c.pub.Publish(ctx, Subject(id), c.event(id, msg)); err != nil {
			return err
		}
	}
	return nil
}

func (c *BrokerConsumer) event(recipientID int64, msg Message) Event {
	return Event{
		ID:          uuid.NewString(),
		RecipientID: recipientID,
		Title:       msg.Title,
		Body:        msg.Body,
		Icon:        msg.Icon,
		Data:        msg.Data(),
		CreatedAt:   c.now(),
	}
}

func Subject(recipientID int64) string {
	return fmt.Sprintf("%s%d", SubjectPrefix, recipientID)
}
