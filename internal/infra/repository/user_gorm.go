package repository

import (
	"context"
	"errors"

	"porto/internal/domain/model"
	domainrepo "porto/internal/repository"

	"gorm.io/gorm"
)

type userGormRepository struct {
	db *gorm.DB
}

// DI
// main.goでこれをnewしてusecaseに注入します。
func NewUserGormRepository(db *gorm.DB) domainrepo.UserRepository {
	return &userGormRepository{db: db}
}

func NewUserDirectoryGorm(db *gorm.DB) domainrepo.UserDirectory {
	return &userGormRepository{db: db}
}

// IDでユーザーを1件取得
func (r *userGormRepository) FindByID(ctx context.Context, id int64) (*model.User, error) {
	var u model.User

	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&u).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &u, nil
}

// 通知文面・アイコン用にまとめて取得
func (r *userGormRepository) FindByIDs(ctx context.Context, ids []int64) (map[int64]model.User, error) {
	out := make(map[int64]model.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var users []model.User
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, err
	}
	for _, u := range users {
		out[u.ID] = u
	}
	return out, nil
}

// カウンタを原子的に加減する。マイナスにはしない。
func (r *userGormRepository) AdjustCounter(ctx context.Context, id int64, counter domainrepo.UserCounter, delta int) error {
	switch counter {
	case domainrepo.CounterCreatedOrders, domainrepo.CounterMyOffers, domainrepo.CounterCompletedOrders:
	default:
		return errors.New("unknown user counter: " + string(counter))
	}

	col := string(counter)
	res := r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ?", id).
		UpdateColumn(col, gorm.Expr("GREATEST("+col+" + ?, 0)", delta))

	if res.Error != nil {
		return res.Error
	}

	// 0件更新は「対象がない」
	if res.RowsAffected == 0 {
		return domainrepo.ErrNotFound
	}
	return nil
}

func (r *userGormRepository) ListActiveIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	if err := r.db.WithContext(ctx).Model(&model.User{}).
		Where("is_active = ?", true).
		Order("id ASC").
		Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}
