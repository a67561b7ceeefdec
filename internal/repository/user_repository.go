package repository

import (
	"context"

	"porto/internal/domain/model"
)

// 集計カウンタのカラム
type UserCounter string

const (
	CounterCreatedOrders   UserCounter = "created_orders_count"
	CounterMyOffers        UserCounter = "my_offers_count"
	CounterCompletedOrders UserCounter = "completed_orders_count"
)

type UserRepository interface {
	//見つからなければ (nil, nil)
	FindByID(ctx context.Context, userID int64) (*model.User, error)
	FindByIDs(ctx context.Context, userIDs []int64) (map[int64]model.User, error)
	AdjustCounter(ctx context.Context, userID int64, counter UserCounter, delta int) error
}

// 一斉配信の宛先
type UserDirectory interface {
	ListActiveIDs(ctx context.Context) ([]int64, error)
}
