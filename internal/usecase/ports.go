package usecase

import (
	"context"

	"porto/internal/domain/model"
	"porto/internal/notification"
)

// 操作したユーザー（JWTのsub/role）
type Actor struct {
	UserID int64
	Role   model.Role
}

func (a Actor) IsAdmin() bool { return a.Role == model.RoleAdmin }

// usecaseが通知に求める約束。失敗は中で吸収される
type Notifier interface {
	Notify(ctx context.Context, recipientID int64, msg notification.Message)
	NotifyMany(ctx context.Context, recipientIDs []int64, msg notification.Message)
}

// ステージ遷移の記録（メトリクス）
type StageRecorder interface {
	StageChanged(from, to model.Stage)
}

type nopStageRecorder struct{}

func (nopStageRecorder) StageChanged(model.Stage, model.Stage) {}

// 入力検証の約束（実装は validator パッケージ）
type OrderValidator interface {
	ValidateCreate(ctx context.Context, in OrderInput) error
	ValidatePatch(ctx context.Context, in OrderPatch) error
}

type OfferValidator interface {
	ValidateCreate(ctx context.Context, in OfferInput) error
}

type EventValidator interface {
	ValidateCreate(ctx context.Context, in EventInput) error
}
