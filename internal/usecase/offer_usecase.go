package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"porto/internal/domain/model"
	"porto/internal/notification"
	"porto/internal/pagination"
	repo "porto/internal/repository"
)

const msgOfferNotFound = "Предложение не найдено"

type OfferUsecase struct {
	tx        repo.TransactionManager
	orders    repo.OrderRepository
	offers    repo.OfferRepository
	users     repo.UserRepository
	notifier  Notifier
	validator OfferValidator
	stages    StageRecorder
	now       func() time.Time
}

// DI
func NewOfferUsecase(
	tx repo.TransactionManager,
	orders repo.OrderRepository,
	offers repo.OfferRepository,
	users repo.UserRepository,
	notifier Notifier,
	validator OfferValidator,
	stages StageRecorder,
) *OfferUsecase {
	if stages == nil {
		stages = nopStageRecorder{}
	}
	return &OfferUsecase{
		tx:        tx,
		orders:    orders,
		offers:    offers,
		users:     users,
		notifier:  notifier,
		validator: validator,
		stages:    stages,
		now:       time.Now,
	}
}

type OfferInput struct {
	Text string
}

// 受付中（created）の掲載にだけ出せる。自分の掲載には出せない
func (u *OfferUsecase) Create(ctx context.Context, actor Actor, orderID int64, in OfferInput) (OfferOutput, error) {
	if err := u.validator.ValidateCreate(ctx, in); err != nil {
		return OfferOutput{}, err
	}

	var (
		created model.Offer
		order   model.Order
	)
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByIDForUpdate(ctx, orderID)
		if errors.Is(err, repo.ErrNotFound) {
			return NotFound(1, msgOrderNotFound)
		}
		if err != nil {
			return dbError(err)
		}
		if o.UserID == actor.UserID {
			return Unprocessable(2, "Нельзя откликнуться на собственное объявление")
		}
		if o.Stage != model.StageCreated || o.IsBlock {
			return Conflict("Объявление не принимает предложения")
		}

		of, err := r.Offers().Create(ctx, model.Offer{
			CreatedAt:   u.now(),
			Text:        in.Text,
			WinnerState: model.WinnerUndecided,
			OrderID:     orderID,
			UserID:      actor.UserID,
		})
		if err != nil {
			return dbError(err)
		}
		if err := applyCounter(ctx, r.Users(), actor.UserID, offerCreated); err != nil {
			return dbError(err)
		}
		created, order = of, o
		return nil
	})
	if err != nil {
		return OfferOutput{}, err
	}

	u.notifier.Notify(ctx, order.UserID, notification.Message{
		Title:   strPtr("Новое предложение"),
		Body:    fmt.Sprintf("Пользователь %s откликнулся на объявление %s", u.fullName(ctx, actor.UserID), deref(order.Title)),
		OrderID: &order.ID,
		OfferID: &created.ID,
		Stage:   &order.Stage,
	})

	return u.presentOne(ctx, created)
}

// 掲載へのオファー一覧
func (u *OfferUsecase) ListForOrder(ctx context.Context, orderID int64, page *int) ([]OfferOutput, pagination.Paginator, error) {
	if _, err := u.orders.FindByID(ctx, orderID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, pagination.Paginator{}, NotFound(1, msgOrderNotFound)
		}
		return nil, pagination.Paginator{}, dbError(err)
	}
	return u.List(ctx, repo.OfferSearchFilter{Page: page, OrderID: &orderID})
}

// 自分が出したオファー
func (u *OfferUsecase) ListMine(ctx context.Context, actor Actor, page *int) ([]OfferOutput, pagination.Paginator, error) {
	return u.List(ctx, repo.OfferSearchFilter{Page: page, OfferCreatorID: &actor.UserID})
}

func (u *OfferUsecase) List(ctx context.Context, f repo.OfferSearchFilter) ([]OfferOutput, pagination.Paginator, error) {
	offers, pg, err := u.offers.Search(ctx, f)
	if err != nil {
		return nil, pagination.Paginator{}, dbError(err)
	}
	outs, err := u.present(ctx, offers)
	if err != nil {
		return nil, pagination.Paginator{}, err
	}
	return outs, pg, nil
}

// 落札の選択/取り消し。掲載の行ロック内で兄弟オファーとステージを一緒に書く。
//
// isWinner=false: 全オファーを undecided に戻し、掲載は created。
// isWinner=true: 対象だけ winner、他は not_chosen、掲載は selected。
// 自動再掲載なら、初めて選んだ時に同じ内容の掲載を created で作る。
func (u *OfferUsecase) ChooseWinner(ctx context.Context, actor Actor, offerID int64, isWinner bool) (OfferOutput, error) {
	offer, err := u.offers.FindByID(ctx, offerID)
	if errors.Is(err, repo.ErrNotFound) {
		return OfferOutput{}, NotFound(1, msgOfferNotFound)
	}
	if err != nil {
		return OfferOutput{}, dbError(err)
	}

	var (
		order model.Order
		from  model.Stage
		to    model.Stage
	)
	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByIDForUpdate(ctx, offer.OrderID)
		if errors.Is(err, repo.ErrNotFound) {
			return NotFound(1, msgOrderNotFound)
		}
		if err != nil {
			return dbError(err)
		}
		if o.UserID != actor.UserID {
			return Inaccessible(msgNotOwner)
		}
		if !o.Stage.AcceptsWinnerChoice() {
			return Conflict(msgBadStage)
		}
		from = o.Stage

		if !isWinner {
			if err := r.Offers().ResetWinners(ctx, o.ID); err != nil {
				return dbError(err)
			}
			to = model.StageCreated
		} else {
			if err := r.Offers().MarkWinner(ctx, o.ID, offer.ID); err != nil {
				return dbError(err)
			}
			to = model.StageSelected

			if o.IsAutoRecreate && from == model.StageCreated {
				if _, err := r.Orders().Create(ctx, o.Relist(u.now())); err != nil {
					return dbError(err)
				}
				if err := applyCounter(ctx, r.Users(), o.UserID, orderCreated); err != nil {
					return dbError(err)
				}
			}
		}

		if err := r.Orders().UpdateStage(ctx, o.ID, to, nil); err != nil {
			return dbError(err)
		}
		o.Stage = to
		order = o
		return nil
	})
	if err != nil {
		return OfferOutput{}, err
	}

	if from != to {
		u.stages.StageChanged(from, to)
	}

	if isWinner {
		var icon *string
		if owner, _ := u.users.FindByID(ctx, order.UserID); owner != nil {
			icon = owner.Avatar
		}
		u.notifier.Notify(ctx, offer.UserID, notification.Message{
			Title:   strPtr("Ваше предложение выбрано"),
			Body:    fmt.Sprintf("Ваше предложение к объявлению %s выбрано победителем", deref(order.Title)),
			Icon:    icon,
			OrderID: &order.ID,
			OfferID: &offer.ID,
			Stage:   &order.Stage,
		})
	}

	updated, err := u.offers.FindByID(ctx, offerID)
	if err != nil {
		return OfferOutput{}, dbError(err)
	}
	return u.presentOne(ctx, updated)
}

// オファー作成者か管理者。落札オファーを消したら掲載は created に戻す
func (u *OfferUsecase) Remove(ctx context.Context, actor Actor, offerID int64) error {
	offer, err := u.offers.FindByID(ctx, offerID)
	if errors.Is(err, repo.ErrNotFound) {
		return NotFound(2, msgOfferNotFound)
	}
	if err != nil {
		return dbError(err)
	}
	if offer.UserID != actor.UserID && !actor.IsAdmin() {
		return Inaccessible("Предложение не принадлежит пользователю")
	}

	reset := false
	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByIDForUpdate(ctx, offer.OrderID)
		orderFound := err == nil
		if err != nil && !errors.Is(err, repo.ErrNotFound) {
			return dbError(err)
		}

		if err := r.Offers().Delete(ctx, offerID); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return NotFound(2, msgOfferNotFound)
			}
			return dbError(err)
		}
		if err := applyCounter(ctx, r.Users(), offer.UserID, offerRemoved); err != nil {
			return dbError(err)
		}

		if orderFound && offer.WinnerState == model.WinnerChosen && o.Stage == model.StageSelected {
			if err := r.Offers().ResetWinners(ctx, o.ID); err != nil {
				return dbError(err)
			}
			if err := r.Orders().UpdateStage(ctx, o.ID, model.StageCreated, nil); err != nil {
				return dbError(err)
			}
			reset = true
		}
		return nil
	})
	if err != nil {
		return err
	}

	if reset {
		u.stages.StageChanged(model.StageSelected, model.StageCreated)
	}
	return nil
}

func (u *OfferUsecase) fullName(ctx context.Context, userID int64) string {
	usr, err := u.users.FindByID(ctx, userID)
	if err != nil || usr == nil {
		return model.User{}.FullName()
	}
	return usr.FullName()
}

func (u *OfferUsecase) presentOne(ctx context.Context, o model.Offer) (OfferOutput, error) {
	outs, err := u.present(ctx, []model.Offer{o})
	if err != nil {
		return OfferOutput{}, err
	}
	return outs[0], nil
}

func (u *OfferUsecase) present(ctx context.Context, offers []model.Offer) ([]OfferOutput, error) {
	ids := make([]int64, 0, len(offers))
	for _, o := range offers {
		ids = append(ids, o.UserID)
	}
	users, err := u.users.FindByIDs(ctx, ids)
	if err != nil {
		return nil, dbError(err)
	}

	outs := make([]OfferOutput, 0, len(offers))
	for _, o := range offers {
		outs = append(outs, toOfferOutput(o, users))
	}
	return outs, nil
}
