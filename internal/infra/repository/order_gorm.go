package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"porto/internal/domain/model"
	"porto/internal/geo"
	"porto/internal/pagination"
	repo "porto/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type OrderGormRepository struct {
	db       *gorm.DB
	pageSize int
}

func NewOrderGormRepository(db *gorm.DB, pageSize int) *OrderGormRepository {
	return &OrderGormRepository{db: db, pageSize: pageSize}
}

func (r *OrderGormRepository) FindByID(ctx context.Context, orderID int64) (model.Order, error) {
	var o model.Order
	err := r.db.WithContext(ctx).Where("id = ?", orderID).First(&o).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Order{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Order{}, err
	}
	return o, nil
}

func (r *OrderGormRepository) FindByIDForUpdate(ctx context.Context, orderID int64) (model.Order, error) {
	var o model.Order
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", orderID).
		First(&o).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Order{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Order{}, err
	}
	return o, nil
}

// 指定された条件だけをANDで積む。未指定の条件は何もしない。
func (r *OrderGormRepository) Search(ctx context.Context, f repo.OrderSearchFilter) ([]model.Order, pagination.Paginator, error) {
	q := r.db.WithContext(ctx).Model(&model.Order{})

	if len(f.Stages) > 0 {
		q = q.Where("orders.stage IN ?", f.Stages)
	}
	if f.UserID != nil && f.IsWinner == nil {
		q = q.Where("orders.user_id = ?", *f.UserID)
	}

	if f.Address != nil {
		q = q.Where("orders.address ILIKE ?", "%"+escapeLike(*f.Address)+"%")
	}
	if f.Type != nil {
		q = q.Where("orders.type ILIKE ?", escapeLike(*f.Type))
	}
	if f.Text != nil {
		like := "%" + escapeLike(*f.Text) + "%"
		q = q.Where("(orders.title ILIKE ? OR orders.body ILIKE ?)", like, like)
	}

	if f.IsBlock != nil {
		q = q.Where("orders.is_block = ?", *f.IsBlock)
	}

	//お気に入りは閲覧者ごとの外部結合
	if f.IsFavorite != nil && f.CurrentUserID != nil {
		q = q.Joins("LEFT JOIN favorite_orders fo ON fo.order_id = orders.id AND fo.user_id = ?", *f.CurrentUserID)
		if *f.IsFavorite {
			q = q.Where("fo.id IS NOT NULL")
		} else {
			q = q.Where("fo.id IS NULL")
		}
	}

	//親カテゴリはサブカテゴリ経由
	if f.CategoryID != nil {
		q = q.Joins("JOIN subcategories sc ON sc.id = orders.subcategory_id").
			Where("sc.category_id = ?", *f.CategoryID)
	}
	if f.SubcategoryID != nil {
		q = q.Where("orders.subcategory_id = ?", *f.SubcategoryID)
	}

	//閲覧者のオファーが落札しているか
	if f.IsWinner != nil && f.CurrentUserID != nil {
		q = q.Joins("LEFT JOIN offers wo ON wo.order_id = orders.id AND wo.user_id = ? AND wo.winner_state = ?",
			*f.CurrentUserID, model.WinnerChosen)
		if *f.IsWinner {
			q = q.Where("wo.id IS NOT NULL")
		} else {
			q = q.Where("wo.id IS NULL")
		}
	}

	if len(f.Statuses) > 0 {
		q = q.Where("orders.status IN ?", f.Statuses)
	}

	//範囲（両端含む）
	if f.ProfitFrom != nil {
		q = q.Where("orders.profit >= ?", *f.ProfitFrom)
	}
	if f.ProfitTo != nil {
		q = q.Where("orders.profit <= ?", *f.ProfitTo)
	}
	if f.DeadlineFrom != nil {
		q = q.Where("orders.deadline >= ?", *f.DeadlineFrom)
	}
	if f.DeadlineTo != nil {
		q = q.Where("orders.deadline <= ?", *f.DeadlineTo)
	}

	q = applyNear(q, "orders", f.Near, "orders.created_at DESC, orders.id DESC")

	return pagination.GetPage[model.Order](q, f.Page, r.pageSize)
}

func (r *OrderGormRepository) Create(ctx context.Context, order model.Order) (model.Order, error) {
	if order.Stage == "" {
		order.Stage = model.StageCreated
	}
	if order.Status == "" {
		order.Status = model.ModStatusCreated
	}
	if err := r.db.WithContext(ctx).Create(&order).Error; err != nil {
		return model.Order{}, err
	}
	return order, nil
}

func (r *OrderGormRepository) UpdateFields(ctx context.Context, orderID int64, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	return r.updates(ctx, orderID, fields)
}

func (r *OrderGormRepository) UpdateStage(ctx context.Context, orderID int64, stage model.Stage, confirmedAt *time.Time) error {
	fields := map[string]interface{}{"stage": stage}
	if confirmedAt != nil {
		fields["confirmed_at"] = *confirmedAt
	}
	return r.updates(ctx, orderID, fields)
}

func (r *OrderGormRepository) UpdateBlock(ctx context.Context, orderID int64, isBlock bool, comment *string) error {
	return r.updates(ctx, orderID, map[string]interface{}{
		"is_block":      isBlock,
		"block_comment": comment,
	})
}

func (r *OrderGormRepository) UpdateModeration(ctx context.Context, orderID int64, status model.ModStatus, comment *string) error {
	return r.updates(ctx, orderID, map[string]interface{}{
		"status":             status,
		"moderation_comment": comment,
	})
}

func (r *OrderGormRepository) updates(ctx context.Context, orderID int64, fields map[string]interface{}) error {
	fields["updated_at"] = time.Now()
	res := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ?", orderID).
		Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *OrderGormRepository) Delete(ctx context.Context, orderID int64) error {
	res := r.db.WithContext(ctx).Delete(&model.Order{}, orderID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *OrderGormRepository) SetFavorite(ctx context.Context, userID int64, orderID int64, isFavorite bool) error {
	if isFavorite {
		fav := model.FavoriteOrder{UserID: userID, OrderID: orderID}
		return r.db.WithContext(ctx).
			Clauses(clause.OnConflict{DoNothing: true}).
			Create(&fav).Error
	}
	return r.db.WithContext(ctx).
		Where("user_id = ? AND order_id = ?", userID, orderID).
		Delete(&model.FavoriteOrder{}).Error
}

func (r *OrderGormRepository) IsFavorite(ctx context.Context, userID int64, orderID int64) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.FavoriteOrder{}).
		Where("user_id = ? AND order_id = ?", userID, orderID).
		Count(&n).Error
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *OrderGormRepository) DeleteFavorites(ctx context.Context, orderID int64) error {
	return r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Delete(&model.FavoriteOrder{}).Error
}

func (r *OrderGormRepository) ArchiveExpired(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("deadline IS NOT NULL AND deadline < ? AND status <> ?", now, model.ModStatusArchived).
		Updates(map[string]interface{}{
			"status":     model.ModStatusArchived,
			"updated_at": now,
		})
	if res.Error != nil {
		return 0, fmt.Errorf("archive orders: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// 距離フィルタは3つ揃った時だけ。半径ちょうどは含めない。距離順が作成日時順より優先。
func applyNear(q *gorm.DB, table string, p geo.Point, defaultOrder string) *gorm.DB {
	if !p.Complete() {
		return q.Order(defaultOrder)
	}
	expr := geo.SQLDistance(table)
	vars := []interface{}{*p.Lat, *p.Lat, *p.Lon}
	return q.
		Where(table+".lat IS NOT NULL AND "+table+".lon IS NOT NULL").
		Where(expr+" < ?", append(vars, *p.Distance)...).
		Order(clause.OrderBy{Expression: clause.Expr{SQL: expr + " ASC", Vars: vars, WithoutParentheses: true}})
}

// ILIKEのワイルドカードをエスケープ
func escapeLike(s string) string {
	s = strings.TrimSpace(s)
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
