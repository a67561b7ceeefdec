package repository

import (
	"context"

	"porto/internal/domain/model"
	"porto/internal/pagination"
	repo "porto/internal/repository"

	"gorm.io/gorm"
)

type auditLogGormRepository struct {
	db       *gorm.DB
	pageSize int
}

func NewAuditLogGormRepository(db *gorm.DB, pageSize int) repo.AuditLogRepository {
	return &auditLogGormRepository{db: db, pageSize: pageSize}
}

func (r *auditLogGormRepository) Create(ctx context.Context, log model.AuditLog) error {
	return r.db.WithContext(ctx).Create(&log).Error
}

func (r *auditLogGormRepository) List(ctx context.Context, filter repo.AuditLogFilter) ([]model.AuditLog, pagination.Paginator, error) {
	q := r.db.WithContext(ctx).Model(&model.AuditLog{})

	if filter.ActorUserID != nil {
		q = q.Where("actor_user_id = ?", *filter.ActorUserID)
	}
	if filter.Action != nil {
		q = q.Where("action = ?", *filter.Action)
	}
	if filter.ResourceType != nil {
		q = q.Where("resource_type = ?", *filter.ResourceType)
	}
	if filter.ResourceID != nil {
		q = q.Where("resource_id = ?", *filter.ResourceID)
	}
	if filter.CreatedFrom != nil {
		q = q.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		q = q.Where("created_at <= ?", *filter.CreatedTo)
	}

	//新しい順
	q = q.Order("id DESC")

	return pagination.GetPage[model.AuditLog](q, filter.Page, r.pageSize)
}
