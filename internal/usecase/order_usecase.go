package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"porto/internal/domain/model"
	"porto/internal/geo"
	"porto/internal/notification"
	"porto/internal/pagination"
	repo "porto/internal/repository"
)

const (
	msgOrderNotFound = "Объявление не найдено"
	msgUserNotFound  = "Пользователь не найден"
	msgNotOwner      = "Объявление не принадлежит пользователю"
	msgBadStage      = "Недопустимая смена стадии объявления"
)

type OrderUsecase struct {
	tx        repo.TransactionManager
	orders    repo.OrderRepository
	offers    repo.OfferRepository
	users     repo.UserRepository
	notifier  Notifier
	validator OrderValidator
	stages    StageRecorder
	now       func() time.Time
}

// DI
func NewOrderUsecase(
	tx repo.TransactionManager,
	orders repo.OrderRepository,
	offers repo.OfferRepository,
	users repo.UserRepository,
	notifier Notifier,
	validator OrderValidator,
	stages StageRecorder,
) *OrderUsecase {
	if stages == nil {
		stages = nopStageRecorder{}
	}
	return &OrderUsecase{
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

type OrderInput struct {
	Title          *string
	Body           *string
	Deadline       *time.Time
	Profit         *int64
	Address        *string
	Type           *string
	Lat            *float64
	Lon            *float64
	IsAutoRecreate bool
	SubcategoryID  *int64
}

// 部分更新。nilは「変更しない」
type OrderPatch struct {
	Title          *string
	Body           *string
	Deadline       *time.Time
	Profit         *int64
	Address        *string
	Type           *string
	Lat            *float64
	Lon            *float64
	IsAutoRecreate *bool
	SubcategoryID  *int64
}

// 利用者が書き換えてよいカラム。stage/status/is_block/user_id は含めない
var orderUpdatableFields = []string{
	"title", "body", "deadline", "profit", "address", "type", "lat", "lon",
	"is_auto_recreate", "subcategory_id",
}

func (p OrderPatch) fields() map[string]interface{} {
	values := map[string]interface{}{}
	set := func(col string, isSet bool, v interface{}) {
		if isSet {
			values[col] = v
		}
	}
	set("title", p.Title != nil, p.Title)
	set("body", p.Body != nil, p.Body)
	set("deadline", p.Deadline != nil, p.Deadline)
	set("profit", p.Profit != nil, p.Profit)
	set("address", p.Address != nil, p.Address)
	set("type", p.Type != nil, p.Type)
	set("lat", p.Lat != nil, p.Lat)
	set("lon", p.Lon != nil, p.Lon)
	set("is_auto_recreate", p.IsAutoRecreate != nil, p.IsAutoRecreate)
	set("subcategory_id", p.SubcategoryID != nil, p.SubcategoryID)

	out := make(map[string]interface{}, len(values))
	for _, col := range orderUpdatableFields {
		if v, ok := values[col]; ok {
			out[col] = v
		}
	}
	return out
}

type BlockInput struct {
	IsBlock bool
	Comment *string
}

type ModerationInput struct {
	Status  string
	Comment *string
}

func (u *OrderUsecase) Create(ctx context.Context, actor Actor, in OrderInput) (OrderOutput, error) {
	if err := u.validator.ValidateCreate(ctx, in); err != nil {
		return OrderOutput{}, err
	}

	var created model.Order
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().Create(ctx, model.Order{
			CreatedAt:      u.now(),
			UpdatedAt:      u.now(),
			Title:          in.Title,
			Body:           in.Body,
			Deadline:       in.Deadline,
			Profit:         in.Profit,
			Address:        in.Address,
			Type:           in.Type,
			Lat:            in.Lat,
			Lon:            in.Lon,
			IsAutoRecreate: in.IsAutoRecreate,
			SubcategoryID:  in.SubcategoryID,
			Stage:          model.StageCreated,
			Status:         model.ModStatusCreated,
			UserID:         actor.UserID,
		})
		if err != nil {
			return dbError(err)
		}
		if err := applyCounter(ctx, r.Users(), actor.UserID, orderCreated); err != nil {
			return dbError(err)
		}
		created = o
		return nil
	})
	if err != nil {
		return OrderOutput{}, err
	}
	return u.presentOne(ctx, actor, created)
}

func (u *OrderUsecase) Update(ctx context.Context, actor Actor, orderID int64, patch OrderPatch) (OrderOutput, error) {
	o, err := u.loadOrder(ctx, orderID)
	if err != nil {
		return OrderOutput{}, err
	}
	if o.UserID != actor.UserID {
		return OrderOutput{}, Inaccessible(msgNotOwner)
	}
	if err := u.validator.ValidatePatch(ctx, patch); err != nil {
		return OrderOutput{}, err
	}

	if err := u.orders.UpdateFields(ctx, orderID, patch.fields()); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return OrderOutput{}, NotFound(1, msgOrderNotFound)
		}
		return OrderOutput{}, dbError(err)
	}
	return u.Get(ctx, actor, orderID)
}

func (u *OrderUsecase) Get(ctx context.Context, actor Actor, orderID int64) (OrderOutput, error) {
	o, err := u.loadOrder(ctx, orderID)
	if err != nil {
		return OrderOutput{}, err
	}
	return u.presentOne(ctx, actor, o)
}

// 一般向けの検索。公開中（created・未ブロック）のみ
func (u *OrderUsecase) Search(ctx context.Context, actor Actor, f repo.OrderSearchFilter) ([]OrderOutput, pagination.Paginator, error) {
	f.Stages = []model.Stage{model.StageCreated}
	f.IsBlock = boolPtr(false)
	f.UserID = nil
	f.IsWinner = nil
	f.CurrentUserID = &actor.UserID
	return u.search(ctx, actor, f)
}

// 自分の掲載。is_winner=true なら自分が落札した掲載
func (u *OrderUsecase) ListMine(ctx context.Context, actor Actor, f repo.OrderSearchFilter) ([]OrderOutput, pagination.Paginator, error) {
	if f.IsWinner != nil && *f.IsWinner {
		f.Stages = []model.Stage{model.StageCreated, model.StageSelected}
	} else {
		f.Stages = []model.Stage{model.StageCreated, model.StageFinished, model.StageSelected}
	}
	f.UserID = &actor.UserID
	f.CurrentUserID = &actor.UserID
	return u.search(ctx, actor, f)
}

func (u *OrderUsecase) ListByUser(ctx context.Context, actor Actor, userID int64, f repo.OrderSearchFilter) ([]OrderOutput, pagination.Paginator, error) {
	if err := u.ensureUser(ctx, userID); err != nil {
		return nil, pagination.Paginator{}, err
	}
	f.Stages = []model.Stage{model.StageCreated}
	f.IsBlock = boolPtr(false)
	f.UserID = &userID
	f.IsWinner = nil
	f.CurrentUserID = &actor.UserID
	return u.search(ctx, actor, f)
}

// 管理画面。フィルタはそのまま使う
func (u *OrderUsecase) AdminSearch(ctx context.Context, actor Actor, f repo.OrderSearchFilter) ([]OrderOutput, pagination.Paginator, error) {
	if f.UserID != nil {
		if err := u.ensureUser(ctx, *f.UserID); err != nil {
			return nil, pagination.Paginator{}, err
		}
	}
	f.IsFavorite = nil
	f.IsWinner = nil
	f.CurrentUserID = &actor.UserID
	return u.search(ctx, actor, f)
}

func (u *OrderUsecase) search(ctx context.Context, actor Actor, f repo.OrderSearchFilter) ([]OrderOutput, pagination.Paginator, error) {
	orders, pg, err := u.orders.Search(ctx, f)
	if err != nil {
		return nil, pagination.Paginator{}, dbError(err)
	}
	outs, err := u.present(ctx, actor, f.Near, orders)
	if err != nil {
		return nil, pagination.Paginator{}, err
	}
	return outs, pg, nil
}

// 作成者だけ。created → rejected
func (u *OrderUsecase) Reject(ctx context.Context, actor Actor, orderID int64) (OrderOutput, error) {
	o, _, err := u.changeStage(ctx, orderID, model.StageRejected, func(o model.Order, _ *model.Offer) error {
		if o.UserID != actor.UserID {
			return Inaccessible(msgNotOwner)
		}
		return nil
	})
	if err != nil {
		return OrderOutput{}, err
	}
	return u.presentOne(ctx, actor, o)
}

// 作成者か落札者。selected → finished。作成者へ通知
func (u *OrderUsecase) Finish(ctx context.Context, actor Actor, orderID int64) (OrderOutput, error) {
	o, winner, err := u.changeStage(ctx, orderID, model.StageFinished, func(o model.Order, winner *model.Offer) error {
		if o.UserID == actor.UserID {
			return nil
		}
		if winner != nil && winner.UserID == actor.UserID {
			return nil
		}
		return Inaccessible("Нет доступа к объявлению")
	})
	if err != nil {
		return OrderOutput{}, err
	}

	if winner != nil {
		name := u.fullName(ctx, winner.UserID)
		u.notifier.Notify(ctx, o.UserID, notification.Message{
			Title:   strPtr("Пользователь завершил работу над заказом"),
			Body:    fmt.Sprintf("Пользователь %s завершил работу над заказом %s", name, deref(o.Title)),
			OrderID: &o.ID,
			OfferID: &winner.ID,
			Stage:   &o.Stage,
		})
	}
	return u.presentOne(ctx, actor, o)
}

// 作成者だけ。finished → confirmed。落札者へ通知
func (u *OrderUsecase) Confirm(ctx context.Context, actor Actor, orderID int64) (OrderOutput, error) {
	o, winner, err := u.changeStage(ctx, orderID, model.StageConfirmed, func(o model.Order, _ *model.Offer) error {
		if o.UserID != actor.UserID {
			return Inaccessible(msgNotOwner)
		}
		return nil
	})
	if err != nil {
		return OrderOutput{}, err
	}

	if winner != nil {
		owner, _ := u.users.FindByID(ctx, o.UserID)
		name := "Пользователь"
		var icon *string
		if owner != nil {
			name = owner.FullName()
			icon = owner.Avatar
		}
		u.notifier.Notify(ctx, winner.UserID, notification.Message{
			Title:   strPtr("Пользователь подтвердил выполнение заказа"),
			Body:    fmt.Sprintf("Пользователь %s подтвердил выполнение заказа %s", name, deref(o.Title)),
			Icon:    icon,
			OrderID: &o.ID,
			OfferID: &winner.ID,
			Stage:   &o.Stage,
		})
	}
	return u.presentOne(ctx, actor, o)
}

// ステージ変更の唯一の経路。
// 行ロックを取った最新状態で guard と遷移表を確認してから書く。
func (u *OrderUsecase) changeStage(
	ctx context.Context,
	orderID int64,
	to model.Stage,
	guard func(o model.Order, winner *model.Offer) error,
) (model.Order, *model.Offer, error) {
	var (
		updated model.Order
		winner  *model.Offer
		from    model.Stage
	)

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByIDForUpdate(ctx, orderID)
		if errors.Is(err, repo.ErrNotFound) {
			return NotFound(1, msgOrderNotFound)
		}
		if err != nil {
			return dbError(err)
		}

		w, found, err := r.Offers().FindWinner(ctx, orderID)
		if err != nil {
			return dbError(err)
		}
		if found {
			winner = &w
		}

		if err := guard(o, winner); err != nil {
			return err
		}
		if !o.Stage.CanTransitionTo(to) {
			return Conflict(msgBadStage)
		}

		var confirmedAt *time.Time
		if to == model.StageConfirmed {
			now := u.now()
			confirmedAt = &now
			o.ConfirmedAt = &now
		}
		if err := r.Orders().UpdateStage(ctx, orderID, to, confirmedAt); err != nil {
			return dbError(err)
		}

		//完了した落札者の実績
		if to == model.StageFinished && winner != nil {
			if err := applyCounter(ctx, r.Users(), winner.UserID, orderCompleted); err != nil {
				return dbError(err)
			}
		}

		from = o.Stage
		o.Stage = to
		updated = o
		return nil
	})
	if err != nil {
		return model.Order{}, nil, err
	}

	u.stages.StageChanged(from, to)
	return updated, winner, nil
}

// 管理者によるブロック/解除。作成者へ通知
func (u *OrderUsecase) Block(ctx context.Context, actor Actor, orderID int64, in BlockInput) (OrderOutput, error) {
	if !actor.IsAdmin() {
		return OrderOutput{}, Inaccessible("Недостаточно прав")
	}

	var o model.Order
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		before, err := r.Orders().FindByID(ctx, orderID)
		if errors.Is(err, repo.ErrNotFound) {
			return NotFound(1, msgOrderNotFound)
		}
		if err != nil {
			return dbError(err)
		}
		if err := r.Orders().UpdateBlock(ctx, orderID, in.IsBlock, in.Comment); err != nil {
			return dbError(err)
		}

		o = before
		o.IsBlock = in.IsBlock
		o.BlockComment = in.Comment

		return writeAudit(ctx, r, actor, model.AuditActionBlockOrder, model.AuditResourceOrder, orderID,
			map[string]interface{}{"is_block": before.IsBlock, "block_comment": before.BlockComment},
			map[string]interface{}{"is_block": in.IsBlock, "block_comment": in.Comment},
			u.now())
	})
	if err != nil {
		return OrderOutput{}, err
	}

	msg := notification.Message{OrderID: &o.ID}
	if in.IsBlock {
		msg.Title = strPtr("Ваше объявление заблокировано")
		msg.Body = fmt.Sprintf("Ваше объявление %s заблокировано администрацией", deref(o.Title))
	} else {
		msg.Title = strPtr("Ваше объявление разблокировано")
		msg.Body = fmt.Sprintf("Ваше объявление %s разблокировано администрацией", deref(o.Title))
	}
	u.notifier.Notify(ctx, o.UserID, msg)

	return u.presentOne(ctx, actor, o)
}

// モデレーション。status/commentだけを書き、stageには触れない
func (u *OrderUsecase) Moderate(ctx context.Context, actor Actor, orderID int64, in ModerationInput) (OrderOutput, error) {
	if !actor.IsAdmin() {
		return OrderOutput{}, Inaccessible("Недостаточно прав")
	}
	status, perr := model.ParseModStatus(in.Status)
	if perr != nil {
		return OrderOutput{}, Unprocessable(1, "Недопустимый статус модерации")
	}

	var o model.Order
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		before, err := r.Orders().FindByID(ctx, orderID)
		if errors.Is(err, repo.ErrNotFound) {
			return NotFound(1, msgOrderNotFound)
		}
		if err != nil {
			return dbError(err)
		}
		if err := r.Orders().UpdateModeration(ctx, orderID, status, in.Comment); err != nil {
			return dbError(err)
		}

		o = before
		o.Status = status
		o.ModerationComment = in.Comment

		return writeAudit(ctx, r, actor, model.AuditActionModerateOrder, model.AuditResourceOrder, orderID,
			map[string]interface{}{"status": before.Status, "moderation_comment": before.ModerationComment},
			map[string]interface{}{"status": status, "moderation_comment": in.Comment},
			u.now())
	})
	if err != nil {
		return OrderOutput{}, err
	}
	return u.presentOne(ctx, actor, o)
}

// 作成者か管理者。オファー（とカウンタ）→お気に入り→本体の順に消す
func (u *OrderUsecase) Remove(ctx context.Context, actor Actor, orderID int64) error {
	return u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByIDForUpdate(ctx, orderID)
		if errors.Is(err, repo.ErrNotFound) {
			return NotFound(1, msgOrderNotFound)
		}
		if err != nil {
			return dbError(err)
		}
		if o.UserID != actor.UserID && !actor.IsAdmin() {
			return Inaccessible(msgNotOwner)
		}

		offers, err := r.Offers().ListByOrderID(ctx, orderID)
		if err != nil {
			return dbError(err)
		}
		for _, of := range offers {
			if err := r.Offers().Delete(ctx, of.ID); err != nil {
				return dbError(err)
			}
			if err := applyCounter(ctx, r.Users(), of.UserID, offerRemoved); err != nil {
				return dbError(err)
			}
		}

		if err := r.Orders().DeleteFavorites(ctx, orderID); err != nil {
			return dbError(err)
		}
		if err := r.Orders().Delete(ctx, orderID); err != nil {
			return dbError(err)
		}

		if o.UserID != actor.UserID {
			return writeAudit(ctx, r, actor, model.AuditActionDeleteOrder, model.AuditResourceOrder, orderID,
				map[string]interface{}{"stage": o.Stage, "status": o.Status, "offers": len(offers)},
				nil, u.now())
		}
		return nil
	})
}

func (u *OrderUsecase) SetFavorite(ctx context.Context, actor Actor, orderID int64, isFavorite bool) (OrderOutput, error) {
	o, err := u.loadOrder(ctx, orderID)
	if err != nil {
		return OrderOutput{}, err
	}
	if err := u.orders.SetFavorite(ctx, actor.UserID, orderID, isFavorite); err != nil {
		return OrderOutput{}, dbError(err)
	}
	return u.presentOne(ctx, actor, o)
}

func (u *OrderUsecase) loadOrder(ctx context.Context, orderID int64) (model.Order, error) {
	o, err := u.orders.FindByID(ctx, orderID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Order{}, NotFound(1, msgOrderNotFound)
	}
	if err != nil {
		return model.Order{}, dbError(err)
	}
	return o, nil
}

func (u *OrderUsecase) ensureUser(ctx context.Context, userID int64) error {
	usr, err := u.users.FindByID(ctx, userID)
	if err != nil {
		return dbError(err)
	}
	if usr == nil {
		return NotFound(2, msgUserNotFound)
	}
	return nil
}

func (u *OrderUsecase) fullName(ctx context.Context, userID int64) string {
	usr, err := u.users.FindByID(ctx, userID)
	if err != nil || usr == nil {
		return model.User{}.FullName()
	}
	return usr.FullName()
}

func (u *OrderUsecase) presentOne(ctx context.Context, actor Actor, o model.Order) (OrderOutput, error) {
	outs, err := u.present(ctx, actor, geo.Point{}, []model.Order{o})
	if err != nil {
		return OrderOutput{}, err
	}
	return outs[0], nil
}

// 落札オファー・ユーザー・お気に入りを付けてレスポンスにする
func (u *OrderUsecase) present(ctx context.Context, actor Actor, near geo.Point, orders []model.Order) ([]OrderOutput, error) {
	winners := make(map[int64]model.Offer, len(orders))
	ids := make([]int64, 0, len(orders)*2)
	for _, o := range orders {
		ids = append(ids, o.UserID)
		w, found, err := u.offers.FindWinner(ctx, o.ID)
		if err != nil {
			return nil, dbError(err)
		}
		if found {
			winners[o.ID] = w
			ids = append(ids, w.UserID)
		}
	}

	users, err := u.users.FindByIDs(ctx, ids)
	if err != nil {
		return nil, dbError(err)
	}

	outs := make([]OrderOutput, 0, len(orders))
	for _, o := range orders {
		out := toOrderOutput(o, users)
		out.Distance = distanceFrom(near, o.Lat, o.Lon)
		if w, ok := winners[o.ID]; ok {
			wo := toOfferOutput(w, users)
			out.WinOffer = &wo
		}
		if actor.UserID > 0 {
			fav, err := u.orders.IsFavorite(ctx, actor.UserID, o.ID)
			if err != nil {
				return nil, dbError(err)
			}
			out.IsFavorite = &fav
		}
		outs = append(outs, out)
	}
	return outs, nil
}

// 監査ログは before/after をJSONで残す
func writeAudit(
	ctx context.Context,
	r repo.TxRepos,
	actor Actor,
	action model.AuditAction,
	resource model.AuditResourceType,
	resourceID int64,
	before, after map[string]interface{},
	now time.Time,
) error {
	log := model.AuditLog{
		ActorUserID:  actor.UserID,
		Action:       action,
		ResourceType: resource,
		ResourceID:   resourceID,
		BeforeJSON:   toJSON(before),
		AfterJSON:    toJSON(after),
		CreatedAt:    now,
	}
	if err := r.AuditLogs().Create(ctx, log); err != nil {
		return dbError(err)
	}
	return nil
}

func toJSON(v map[string]interface{}) string {
	if v == nil {
		return ""
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

func boolPtr(v bool) *bool { return &v }

func strPtr(v string) *string { return &v }

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
