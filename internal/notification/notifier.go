// Package notification fans a message out to an ordered list of consumers
// (inbox rows, push, log, broker). Delivery is best effort: a failing consumer
// never affects the others or the caller.
package notification

import (
	"context"
	"fmt"
	"strconv"

	"porto/internal/domain/model"

	"go.uber.org/zap"
)

// DefaultTitle is used by push when a message has no title.
const DefaultTitle = "Новое уведомление"

// Message is one notification payload. The refs are optional deep links.
type Message struct {
	Title   *string
	Body    string
	Icon    *string
	OrderID *int64
	OfferID *int64
	Stage   *model.Stage
}

// Data returns the refs as string key/values for push and broker payloads.
func (m Message) Data() map[string]string {
	data := map[string]string{}
	if m.OrderID != nil {
		data["order_id"] = strconv.FormatInt(*m.OrderID, 10)
	}
	if m.OfferID != nil {
		data["offer_id"] = strconv.FormatInt(*m.OfferID, 10)
	}
	if m.Stage != nil {
		data["stage"] = strconv.Itoa(m.Stage.Code())
	}
	return data
}

type Consumer interface {
	Name() string
	Notify(ctx context.Context, recipientID int64, msg Message) error
	NotifyMany(ctx context.Context, recipientIDs []int64, msg Message) error
}

// DeliveryRecorder counts per-consumer outcomes. May be nil.
type DeliveryRecorder interface {
	NotificationDelivered(consumer string, ok bool)
}

type Notifier struct {
	consumers []Consumer
	log       *zap.Logger
	recorder  DeliveryRecorder
}

func NewNotifier(log *zap.Logger, recorder DeliveryRecorder, consumers ...Consumer) *Notifier {
	if log == nil {
		log = zap.NewNop()
	}
	return &Notifier{consumers: consumers, log: log, recorder: recorder}
}

// Consumers returns the configured consumer names in dispatch order.
func (n *Notifier) Consumers() []string {
	names := make([]string, 0, len(n.consumers))
	for _, c := range n.consumers {
		names = append(names, c.Name())
	}
	return names
}

func (n *Notifier) Notify(ctx context.Context, recipientID int64, msg Message) {
	for _, c := range n.consumers {
		c := c
		n.dispatch(c, func() error { return c.Notify(ctx, recipientID, msg) },
			zap.Int64("recipient_id", recipientID))
	}
}

func (n *Notifier) NotifyMany(ctx context.Context, recipientIDs []int64, msg Message) {
	if len(recipientIDs) == 0 {
		return
	}
	for _, c := range n.consumers {
		c := c
		n.dispatch(c, func() error { return c.NotifyMany(ctx, recipientIDs, msg) },
			zap.Int("recipients", len(recipientIDs)))
	}
}

// 1コンシューマの失敗（panic含む）はログに残して次へ
func (n *Notifier) dispatch(c Consumer, call func() error, field zap.Field) {
	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v", r)
			}
		}()
		return call()
	}()

	if n.recorder != nil {
		n.recorder.NotificationDelivered(c.Name(), err == nil)
	}
	if err != nil {
		n.log.Error("notification consumer failed",
			zap.String("consumer", c.Name()),
			field,
			zap.Error(err),
		)
	}
}
