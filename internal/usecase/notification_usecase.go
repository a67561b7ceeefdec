package usecase

import (
	"context"
	"errors"

	"porto/internal/pagination"
	repo "porto/internal/repository"
)

// 受信箱（一覧・未読数・既読化）
type NotificationUsecase struct {
	notifications repo.NotificationRepository
}

func NewNotificationUsecase(notifications repo.NotificationRepository) *NotificationUsecase {
	return &NotificationUsecase{notifications: notifications}
}

func (u *NotificationUsecase) List(ctx context.Context, actor Actor, page *int) ([]NotificationOutput, pagination.Paginator, error) {
	items, pg, err := u.notifications.ListByUser(ctx, actor.UserID, page)
	if err != nil {
		return nil, pagination.Paginator{}, dbError(err)
	}
	outs := make([]NotificationOutput, 0, len(items))
	for _, n := range items {
		outs = append(outs, toNotificationOutput(n))
	}
	return outs, pg, nil
}

func (u *NotificationUsecase) UnreadCount(ctx context.Context, actor Actor) (int64, error) {
	n, err := u.notifications.UnreadCount(ctx, actor.UserID)
	if err != nil {
		return 0, dbError(err)
	}
	return n, nil
}

// 他人の通知は見つからない扱い
func (u *NotificationUsecase) MarkRead(ctx context.Context, actor Actor, id int64) (NotificationOutput, error) {
	n, err := u.notifications.FindByID(ctx, id)
	if errors.Is(err, repo.ErrNotFound) || (err == nil && n.UserID != actor.UserID) {
		return NotificationOutput{}, NotFound(1, "Уведомление не найдено")
	}
	if err != nil {
		return NotificationOutput{}, dbError(err)
	}

	if !n.IsRead {
		if err := u.notifications.MarkRead(ctx, id); err != nil {
			return NotificationOutput{}, dbError(err)
		}
		n.IsRead = true
	}
	return toNotificationOutput(n), nil
}
