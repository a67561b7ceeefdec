package repository

import (
	"context"

	"porto/internal/domain/model"
	"porto/internal/pagination"
)

type NotificationRepository interface {
	Create(ctx context.Context, n model.Notification) error
	CreateMany(ctx context.Context, ns []model.Notification) error

	ListByUser(ctx context.Context, userID int64, page *int) ([]model.Notification, pagination.Paginator, error)
	FindByID(ctx context.Context, id int64) (model.Notification, error)
	MarkRead(ctx context.Context, id int64) error

	//未読件数（バッジ）
	UnreadCount(ctx context.Context, userID int64) (int64, error)
	//複数ユーザー分を1クエリで集計
	UnreadCounts(ctx context.Context, userIDs []int64) (map[int64]int64, error)
}

type DeviceTokenRepository interface {
	//新しい順
	ListByUsers(ctx context.Context, userIDs []int64) ([]model.DeviceToken, error)
}
