package usecase

import (
	"context"
	"errors"
	"time"

	"porto/internal/domain/model"
	"porto/internal/geo"
	"porto/internal/pagination"
	repo "porto/internal/repository"
)

const (
	msgEventNotFound  = "Мероприятие не найдено"
	msgMemberNotFound = "Участник не найден"
)

type EventUsecase struct {
	tx        repo.TransactionManager
	events    repo.EventRepository
	validator EventValidator
	now       func() time.Time
}

// DI
func NewEventUsecase(tx repo.TransactionManager, events repo.EventRepository, validator EventValidator) *EventUsecase {
	return &EventUsecase{tx: tx, events: events, validator: validator, now: time.Now}
}

type EventInput struct {
	Name            *string
	Description     *string
	Started         *time.Time
	Ended           *time.Time
	Place           *string
	Lat             *float64
	Lon             *float64
	IsPrivate       bool
	CategoryID      *int64
	MaxEventMembers *int
	Age             int
	Link            *string
	Members         []int64
}

func (u *EventUsecase) Create(ctx context.Context, actor Actor, in EventInput) (EventOutput, error) {
	if err := u.validator.ValidateCreate(ctx, in); err != nil {
		return EventOutput{}, err
	}

	members := uniqueIDs(in.Members)
	var created model.Event
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		e, err := r.Events().Create(ctx, model.Event{
			CreatedAt:       u.now(),
			UpdatedAt:       u.now(),
			Name:            in.Name,
			Description:     in.Description,
			Started:         in.Started,
			Ended:           in.Ended,
			Place:           in.Place,
			Lat:             in.Lat,
			Lon:             in.Lon,
			IsPrivate:       in.IsPrivate,
			UserID:          actor.UserID,
			CategoryID:      in.CategoryID,
			MaxEventMembers: in.MaxEventMembers,
			Age:             in.Age,
			Link:            in.Link,
			Status:          model.ModStatusCreated,
		}, members)
		if err != nil {
			return dbError(err)
		}
		created = e
		return nil
	})
	if err != nil {
		return EventOutput{}, err
	}
	return toEventOutput(created, members, geo.Point{}), nil
}

// 非公開は作成者・参加者・管理者だけが見られる
func (u *EventUsecase) Get(ctx context.Context, actor Actor, eventID int64) (EventOutput, error) {
	e, err := u.events.FindByID(ctx, eventID)
	if errors.Is(err, repo.ErrNotFound) {
		return EventOutput{}, NotFound(1, msgEventNotFound)
	}
	if err != nil {
		return EventOutput{}, dbError(err)
	}

	if e.IsPrivate && e.UserID != actor.UserID && !actor.IsAdmin() {
		member, err := u.events.IsMember(ctx, eventID, actor.UserID)
		if err != nil {
			return EventOutput{}, dbError(err)
		}
		if !member {
			//存在自体を見せない
			return EventOutput{}, NotFound(1, msgEventNotFound)
		}
	}

	members, err := u.events.ListMemberIDs(ctx, eventID)
	if err != nil {
		return EventOutput{}, dbError(err)
	}
	return toEventOutput(e, members, geo.Point{}), nil
}

func (u *EventUsecase) Search(ctx context.Context, actor Actor, f repo.EventSearchFilter) ([]EventOutput, pagination.Paginator, error) {
	f.CurrentUserID = &actor.UserID
	f.ForAdmin = false
	return u.search(ctx, f)
}

func (u *EventUsecase) AdminSearch(ctx context.Context, actor Actor, f repo.EventSearchFilter) ([]EventOutput, pagination.Paginator, error) {
	if !actor.IsAdmin() {
		return nil, pagination.Paginator{}, Inaccessible("Недостаточно прав")
	}
	f.CurrentUserID = &actor.UserID
	f.ForAdmin = true
	return u.search(ctx, f)
}

func (u *EventUsecase) search(ctx context.Context, f repo.EventSearchFilter) ([]EventOutput, pagination.Paginator, error) {
	events, pg, err := u.events.Search(ctx, f)
	if err != nil {
		return nil, pagination.Paginator{}, dbError(err)
	}

	outs := make([]EventOutput, 0, len(events))
	for _, e := range events {
		members, err := u.events.ListMemberIDs(ctx, e.ID)
		if err != nil {
			return nil, pagination.Paginator{}, dbError(err)
		}
		outs = append(outs, toEventOutput(e, members, f.Near))
	}
	return outs, pg, nil
}

func (u *EventUsecase) Moderate(ctx context.Context, actor Actor, eventID int64, in ModerationInput) (EventOutput, error) {
	if !actor.IsAdmin() {
		return EventOutput{}, Inaccessible("Недостаточно прав")
	}
	status, perr := model.ParseModStatus(in.Status)
	if perr != nil {
		return EventOutput{}, Unprocessable(1, "Недопустимый статус модерации")
	}

	var e model.Event
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		before, err := r.Events().FindByID(ctx, eventID)
		if errors.Is(err, repo.ErrNotFound) {
			return NotFound(1, msgEventNotFound)
		}
		if err != nil {
			return dbError(err)
		}
		if err := r.Events().UpdateModeration(ctx, eventID, status, in.Comment); err != nil {
			return dbError(err)
		}

		e = before
		e.Status = status
		e.ModerationComment = in.Comment

		return writeAudit(ctx, r, actor, model.AuditActionModerateEvent, model.AuditResourceEvent, eventID,
			map[string]interface{}{"status": before.Status, "moderation_comment": before.ModerationComment},
			map[string]interface{}{"status": status, "moderation_comment": in.Comment},
			u.now())
	})
	if err != nil {
		return EventOutput{}, err
	}

	members, err := u.events.ListMemberIDs(ctx, eventID)
	if err != nil {
		return EventOutput{}, dbError(err)
	}
	return toEventOutput(e, members, geo.Point{}), nil
}

type MemberInput struct {
	UserID int64
	Status string
}

// 作成者は誰でも好きな状態で招待できる。それ以外は自分の参加申請（wait）だけ
func (u *EventUsecase) AddMember(ctx context.Context, actor Actor, eventID int64, in MemberInput) (EventMemberOutput, error) {
	status := model.AcceptingWait
	if in.Status != "" {
		s, perr := model.ParseAcceptingStatus(in.Status)
		if perr != nil {
			return EventMemberOutput{}, Unprocessable(1, "Недопустимый статус участия")
		}
		status = s
	}

	var added model.EventMember
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		e, err := r.Events().FindByID(ctx, eventID)
		if errors.Is(err, repo.ErrNotFound) {
			return NotFound(1, msgEventNotFound)
		}
		if err != nil {
			return dbError(err)
		}

		if e.UserID != actor.UserID {
			if in.UserID != actor.UserID {
				return Inaccessible("У вас нет доступа")
			}
			if e.IsPrivate {
				return NotFound(1, msgEventNotFound)
			}
			status = model.AcceptingWait
		}

		user, err := r.Users().FindByID(ctx, in.UserID)
		if err != nil {
			return dbError(err)
		}
		if user == nil {
			return NotFound(2, "Пользователь не найден")
		}

		if e.MaxEventMembers != nil {
			n, err := r.Events().CountMembers(ctx, eventID)
			if err != nil {
				return dbError(err)
			}
			if n >= int64(*e.MaxEventMembers) {
				return Unprocessable(2, "Достигнуто максимальное число участников")
			}
		}

		m, err := r.Events().AddMember(ctx, model.EventMember{EventID: eventID, UserID: in.UserID, Status: status})
		if errors.Is(err, repo.ErrDuplicate) {
			return Unprocessable(1, "Участник уже добавлен")
		}
		if err != nil {
			return dbError(err)
		}
		added = m
		return nil
	})
	if err != nil {
		return EventMemberOutput{}, err
	}
	return toEventMemberOutput(added), nil
}

// 返答できるのは本人だけ
func (u *EventUsecase) SetMemberStatus(ctx context.Context, actor Actor, memberID int64, raw string) (EventMemberOutput, error) {
	status, perr := model.ParseAcceptingStatus(raw)
	if perr != nil {
		return EventMemberOutput{}, Unprocessable(1, "Недопустимый статус участия")
	}

	m, err := u.events.FindMember(ctx, memberID)
	if errors.Is(err, repo.ErrNotFound) {
		return EventMemberOutput{}, NotFound(1, "Заявка не найдена")
	}
	if err != nil {
		return EventMemberOutput{}, dbError(err)
	}
	if m.UserID != actor.UserID {
		return EventMemberOutput{}, Inaccessible("Заявка не принадлежит пользователю")
	}

	if err := u.events.UpdateMemberStatus(ctx, memberID, status); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return EventMemberOutput{}, NotFound(1, "Заявка не найдена")
		}
		return EventMemberOutput{}, dbError(err)
	}
	m.Status = status
	return toEventMemberOutput(m), nil
}

// 本人が抜けるか、作成者が外す
func (u *EventUsecase) RemoveMember(ctx context.Context, actor Actor, memberID int64) error {
	m, err := u.events.FindMember(ctx, memberID)
	if errors.Is(err, repo.ErrNotFound) {
		return NotFound(1, msgMemberNotFound)
	}
	if err != nil {
		return dbError(err)
	}

	if m.UserID != actor.UserID {
		e, err := u.events.FindByID(ctx, m.EventID)
		if errors.Is(err, repo.ErrNotFound) {
			return NotFound(1, msgMemberNotFound)
		}
		if err != nil {
			return dbError(err)
		}
		if e.UserID != actor.UserID {
			return Inaccessible("У вас нет доступа")
		}
	}

	if err := u.events.DeleteMember(ctx, memberID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return NotFound(1, msgMemberNotFound)
		}
		return dbError(err)
	}
	return nil
}

func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
