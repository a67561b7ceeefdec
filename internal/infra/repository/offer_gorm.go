package repository

import (
	"context"
	"errors"

	"porto/internal/domain/model"
	"porto/internal/pagination"
	repo "porto/internal/repository"

	"gorm.io/gorm"
)

type OfferGormRepository struct {
	db       *gorm.DB
	pageSize int
}

func NewOfferGormRepository(db *gorm.DB, pageSize int) *OfferGormRepository {
	return &OfferGormRepository{db: db, pageSize: pageSize}
}

func (r *OfferGormRepository) FindByID(ctx context.Context, offerID int64) (model.Offer, error) {
	var o model.Offer
	err := r.db.WithContext(ctx).Where("id = ?", offerID).First(&o).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Offer{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Offer{}, err
	}
	return o, nil
}

func (r *OfferGormRepository) Search(ctx context.Context, f repo.OfferSearchFilter) ([]model.Offer, pagination.Paginator, error) {
	q := r.db.WithContext(ctx).Model(&model.Offer{})

	if f.OrderID != nil {
		q = q.Where("offers.order_id = ?", *f.OrderID)
	}
	if f.OfferCreatorID != nil {
		q = q.Where("offers.user_id = ?", *f.OfferCreatorID)
	}
	//掲載の持ち主で絞る時だけ結合
	if f.OrderCreatorID != nil {
		q = q.Joins("JOIN orders o ON o.id = offers.order_id").
			Where("o.user_id = ?", *f.OrderCreatorID)
	}

	q = q.Order("offers.created_at DESC, offers.id DESC")
	return pagination.GetPage[model.Offer](q, f.Page, r.pageSize)
}

func (r *OfferGormRepository) ListByOrderID(ctx context.Context, orderID int64) ([]model.Offer, error) {
	var offers []model.Offer
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("id ASC").
		Find(&offers).Error; err != nil {
		return nil, err
	}
	return offers, nil
}

func (r *OfferGormRepository) FindWinner(ctx context.Context, orderID int64) (model.Offer, bool, error) {
	var o model.Offer
	err := r.db.WithContext(ctx).
		Where("order_id = ? AND winner_state = ?", orderID, model.WinnerChosen).
		First(&o).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Offer{}, false, nil
	}
	if err != nil {
		return model.Offer{}, false, err
	}
	return o, true, nil
}

func (r *OfferGormRepository) Create(ctx context.Context, offer model.Offer) (model.Offer, error) {
	if offer.WinnerState == "" {
		offer.WinnerState = model.WinnerUndecided
	}
	if err := r.db.WithContext(ctx).Create(&offer).Error; err != nil {
		return model.Offer{}, err
	}
	return offer, nil
}

func (r *OfferGormRepository) Delete(ctx context.Context, offerID int64) error {
	res := r.db.WithContext(ctx).Delete(&model.Offer{}, offerID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *OfferGormRepository) ResetWinners(ctx context.Context, orderID int64) error {
	return r.db.WithContext(ctx).Model(&model.Offer{}).
		Where("order_id = ?", orderID).
		Update("winner_state", model.WinnerUndecided).Error
}

// 1文で更新するので、途中で落札者が2人になる瞬間はない
func (r *OfferGormRepository) MarkWinner(ctx context.Context, orderID int64, offerID int64) error {
	res := r.db.WithContext(ctx).Model(&model.Offer{}).
		Where("order_id = ?", orderID).
		Update("winner_state", gorm.Expr("CASE WHEN id = ? THEN ? ELSE ? END",
			offerID, model.WinnerChosen, model.WinnerNotChosen))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}
