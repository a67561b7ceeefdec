package notification

import (
	"context"
	"errors"

	"porto/internal/domain/model"
	"porto/internal/infra/push"
)

type BadgeCounter interface {
	UnreadCount(ctx context.Context, userID int64) (int64, error)
	UnreadCounts(ctx context.Context, userIDs []int64) (map[int64]int64, error)
}

type DeviceTokenLister interface {
	ListByUsers(ctx context.Context, userIDs []int64) ([]model.DeviceToken, error)
}

type PushSender interface {
	Send(ctx context.Context, msg push.Message) (bool, error)
}

// PushConsumer sends to the recipient's devices, newest token first,
// and stops at the first device that accepts. Nil sender disables it.
type PushConsumer struct {
	sender PushSender
	badges BadgeCounter
	tokens DeviceTokenLister
}

func NewPushConsumer(sender PushSender, badges BadgeCounter, tokens DeviceTokenLister) *PushConsumer {
	return &PushConsumer{sender: sender, badges: badges, tokens: tokens}
}

func (c *PushConsumer) Name() string { return "push" }

func (c *PushConsumer) Notify(ctx context.Context, recipientID int64, msg Message) error {
	if c.sender == nil {
		return nil
	}
	badge, err := c.badges.UnreadCount(ctx, recipientID)
	if err != nil {
		return err
	}
	return c.deliver(ctx, []int64{recipientID}, map[int64]int64{recipientID: badge}, msg)
}

func (c *PushConsumer) NotifyMany(ctx context.Context, recipientIDs []int64, msg Message) error {
	if c.sender == nil {
		return nil
	}
	//バッジは1クエリでまとめて
	badges, err := c.badges.UnreadCounts(ctx, recipientIDs)
	if err != nil {
		return err
	}
	return c.deliver(ctx, recipientIDs, badges, msg)
}

func (c *PushConsumer) deliver(ctx context.Context, recipientIDs []int64, badges map[int64]int64, msg Message) error {
	tokens, err := c.tokens.ListByUsers(ctx, recipientIDs)
	if err != nil {
		return err
	}

	title := DefaultTitle
	if msg.Title != nil && *msg.Title != "" {
		title = *msg.Title
	}
	data := make(map[string]string)
	for k, v := range msg.Data() {
		data["data."+k] = v
	}

	seen := make(map[string]struct{}, len(tokens))
	delivered := make(map[int64]bool, len(recipientIDs))
	var errs []error

	for _, t := range tokens {
		if t.Value == "" || delivered[t.UserID] {
			continue
		}
		if _, ok := seen[t.Value]; ok {
			continue
		}
		seen[t.Value] = struct{}{}

		ok, err := c.sender.Send(ctx, push.Message{
			Token: t.Value,
			Title: title,
			Body:  msg.Body,
			Icon:  msg.Icon,
			Badge: badges[t.UserID],
			Data:  data,
		})
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if ok {
			delivered[t.UserID] = true
		}
	}

	//どこにも届かなかった時だけエラーにする
	if len(delivered) == 0 && len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
