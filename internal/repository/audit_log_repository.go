package repository

import (
	"context"
	"time"

	"porto/internal/domain/model"
	"porto/internal/pagination"
)

// 管理画面の監査ログ絞り込み。nilは条件なし。
type AuditLogFilter struct {
	Page         *int
	ActorUserID  *int64
	Action       *model.AuditAction
	ResourceType *model.AuditResourceType
	ResourceID   *int64
	CreatedFrom  *time.Time
	CreatedTo    *time.Time
}

type AuditLogRepository interface {
	Create(ctx context.Context, log model.AuditLog) error
	List(ctx context.Context, filter AuditLogFilter) ([]model.AuditLog, pagination.Paginator, error)
}
