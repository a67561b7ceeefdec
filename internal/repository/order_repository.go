package repository

import (
	"context"
	"time"

	"porto/internal/domain/model"
	"porto/internal/geo"
	"porto/internal/pagination"
)

// 掲載検索。nil/空の項目は条件なし。
type OrderSearchFilter struct {
	Page *int

	Stages   []model.Stage
	Statuses []model.ModStatus

	//IsWinnerがnilの時だけ有効
	UserID *int64

	//お気に入り・落札の判定に使う閲覧者
	CurrentUserID *int64
	IsWinner      *bool
	IsFavorite    *bool

	IsBlock       *bool
	Address       *string
	Type          *string
	Text          *string
	CategoryID    *int64
	SubcategoryID *int64

	ProfitFrom   *int64
	ProfitTo     *int64
	DeadlineFrom *time.Time
	DeadlineTo   *time.Time

	Near geo.Point
}

type OrderRepository interface {
	FindByID(ctx context.Context, orderID int64) (model.Order, error)
	//行ロック付き取得（落札選択の直列化用）
	FindByIDForUpdate(ctx context.Context, orderID int64) (model.Order, error)
	Search(ctx context.Context, f OrderSearchFilter) ([]model.Order, pagination.Paginator, error)

	Create(ctx context.Context, order model.Order) (model.Order, error)
	//allow-list済みのカラムだけを更新
	UpdateFields(ctx context.Context, orderID int64, fields map[string]interface{}) error
	UpdateStage(ctx context.Context, orderID int64, stage model.Stage, confirmedAt *time.Time) error
	UpdateBlock(ctx context.Context, orderID int64, isBlock bool, comment *string) error
	UpdateModeration(ctx context.Context, orderID int64, status model.ModStatus, comment *string) error
	Delete(ctx context.Context, orderID int64) error

	SetFavorite(ctx context.Context, userID int64, orderID int64, isFavorite bool) error
	IsFavorite(ctx context.Context, userID int64, orderID int64) (bool, error)
	DeleteFavorites(ctx context.Context, orderID int64) error

	//期限切れをarchivedへ。更新件数を返す
	ArchiveExpired(ctx context.Context, now time.Time) (int64, error)
}
