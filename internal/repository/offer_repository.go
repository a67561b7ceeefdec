package repository

import (
	"context"

	"porto/internal/domain/model"
	"porto/internal/pagination"
)

type OfferSearchFilter struct {
	Page           *int
	OrderID        *int64
	OfferCreatorID *int64
	OrderCreatorID *int64
}

type OfferRepository interface {
	FindByID(ctx context.Context, offerID int64) (model.Offer, error)
	Search(ctx context.Context, f OfferSearchFilter) ([]model.Offer, pagination.Paginator, error)
	ListByOrderID(ctx context.Context, orderID int64) ([]model.Offer, error)
	//落札オファー（なければ found=false）
	FindWinner(ctx context.Context, orderID int64) (model.Offer, bool, error)

	Create(ctx context.Context, offer model.Offer) (model.Offer, error)
	Delete(ctx context.Context, offerID int64) error

	//同じ掲載の全オファーを undecided に戻す
	ResetWinners(ctx context.Context, orderID int64) error
	//対象を winner、兄弟を not_chosen にする
	MarkWinner(ctx context.Context, orderID int64, offerID int64) error
}
