package repository

import (
	"context"
	"errors"

	"porto/internal/domain/model"
	"porto/internal/pagination"
	repo "porto/internal/repository"

	"gorm.io/gorm"
)

type NotificationGormRepository struct {
	db       *gorm.DB
	pageSize int
}

func NewNotificationGormRepository(db *gorm.DB, pageSize int) *NotificationGormRepository {
	return &NotificationGormRepository{db: db, pageSize: pageSize}
}

func (r *NotificationGormRepository) Create(ctx context.Context, n model.Notification) error {
	return r.db.WithContext(ctx).Omit("Order", "Offer").Create(&n).Error
}

func (r *NotificationGormRepository) CreateMany(ctx context.Context, ns []model.Notification) error {
	if len(ns) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Omit("Order", "Offer").Create(&ns).Error
}

func (r *NotificationGormRepository) ListByUser(ctx context.Context, userID int64, page *int) ([]model.Notification, pagination.Paginator, error) {
	q := r.db.WithContext(ctx).Model(&model.Notification{}).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC")
	return pagination.GetPage[model.Notification](q, page, r.pageSize)
}

func (r *NotificationGormRepository) FindByID(ctx context.Context, id int64) (model.Notification, error) {
	var n model.Notification
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&n).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Notification{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Notification{}, err
	}
	return n, nil
}

func (r *NotificationGormRepository) MarkRead(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Model(&model.Notification{}).
		Where("id = ?", id).
		Update("is_read", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *NotificationGormRepository) UnreadCount(ctx context.Context, userID int64) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Notification{}).
		Where("user_id = ? AND is_read = FALSE", userID).
		Count(&n).Error
	return n, err
}

type unreadRow struct {
	UserID int64
	Cnt    int64
}

// 受信者ごとの未読件数。0件のユーザーはmapに入らない
func (r *NotificationGormRepository) UnreadCounts(ctx context.Context, userIDs []int64) (map[int64]int64, error) {
	out := make(map[int64]int64, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}

	var rows []unreadRow
	if err := r.db.WithContext(ctx).Model(&model.Notification{}).
		Select("user_id, COUNT(*) AS cnt").
		Where("user_id IN ? AND is_read = FALSE", userIDs).
		Group("user_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.UserID] = row.Cnt
	}
	return out, nil
}

type DeviceTokenGormRepository struct {
	db *gorm.DB
}

func NewDeviceTokenGormRepository(db *gorm.DB) *DeviceTokenGormRepository {
	return &DeviceTokenGormRepository{db: db}
}

func (r *DeviceTokenGormRepository) ListByUsers(ctx context.Context, userIDs []int64) ([]model.DeviceToken, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	var tokens []model.DeviceToken
	if err := r.db.WithContext(ctx).
		Where("user_id IN ?", userIDs).
		Order("created_at DESC, id DESC").
		Find(&tokens).Error; err != nil {
		return nil, err
	}
	return tokens, nil
}
