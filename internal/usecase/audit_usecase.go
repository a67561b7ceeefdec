package usecase

import (
	"context"

	"porto/internal/domain/model"
	"porto/internal/pagination"
	repo "porto/internal/repository"
)

// 管理画面の監査ログ閲覧
type AuditUsecase struct {
	auditRepo repo.AuditLogRepository
}

func NewAuditUsecase(auditRepo repo.AuditLogRepository) *AuditUsecase {
	return &AuditUsecase{auditRepo: auditRepo}
}

func (u *AuditUsecase) List(ctx context.Context, actor Actor, f repo.AuditLogFilter) ([]model.AuditLog, pagination.Paginator, error) {
	if !actor.IsAdmin() {
		return nil, pagination.Paginator{}, Inaccessible("Недостаточно прав")
	}
	logs, pg, err := u.auditRepo.List(ctx, f)
	if err != nil {
		return nil, pagination.Paginator{}, dbError(err)
	}
	return logs, pg, nil
}
