package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"porto/internal/domain/model"
	"porto/internal/pagination"
	repo "porto/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type EventGormRepository struct {
	db       *gorm.DB
	pageSize int
}

func NewEventGormRepository(db *gorm.DB, pageSize int) *EventGormRepository {
	return &EventGormRepository{db: db, pageSize: pageSize}
}

func (r *EventGormRepository) FindByID(ctx context.Context, eventID int64) (model.Event, error) {
	var e model.Event
	err := r.db.WithContext(ctx).Where("id = ?", eventID).First(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Event{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Event{}, err
	}
	return e, nil
}

func (r *EventGormRepository) Search(ctx context.Context, f repo.EventSearchFilter) ([]model.Event, pagination.Paginator, error) {
	q := r.db.WithContext(ctx).Model(&model.Event{})

	//名前は前方一致
	if f.Name != nil {
		q = q.Where("events.name ILIKE ?", escapeLike(*f.Name)+"%")
	}
	if f.Place != nil {
		q = q.Where("events.place ILIKE ?", "%"+escapeLike(*f.Place)+"%")
	}

	if f.StartedFrom != nil {
		q = q.Where("events.started >= ?", *f.StartedFrom)
	}
	if f.StartedTo != nil {
		q = q.Where("events.started <= ?", *f.StartedTo)
	}
	if f.EndedFrom != nil {
		q = q.Where("events.ended >= ?", *f.EndedFrom)
	}
	if f.EndedTo != nil {
		q = q.Where("events.ended <= ?", *f.EndedTo)
	}

	if f.IsPrivate != nil {
		q = q.Where("events.is_private = ?", *f.IsPrivate)
	}
	if f.CreatorID != nil {
		q = q.Where("events.user_id = ?", *f.CreatorID)
	}
	if f.CategoryID != nil {
		q = q.Where("events.category_id = ?", *f.CategoryID)
	}
	if len(f.Statuses) > 0 {
		q = q.Where("events.status IN ?", f.Statuses)
	}

	if f.MemberUserID != nil {
		q = q.Where("EXISTS (SELECT 1 FROM event_members em WHERE em.event_id = events.id AND em.user_id = ?)", *f.MemberUserID)
	}
	//非公開は作成者か参加者だけに見せる。自分の参加一覧なら条件は自明
	if !f.ForAdmin && f.CurrentUserID != nil && !sameID(f.MemberUserID, f.CurrentUserID) {
		q = q.Where("(events.is_private = FALSE OR events.user_id = ? OR EXISTS (SELECT 1 FROM event_members vm WHERE vm.event_id = events.id AND vm.user_id = ?))",
			*f.CurrentUserID, *f.CurrentUserID)
	}

	q = applyNear(q, "events", f.Near, "events.created_at DESC, events.id DESC")

	return pagination.GetPage[model.Event](q, f.Page, r.pageSize)
}

func (r *EventGormRepository) IsMember(ctx context.Context, eventID int64, userID int64) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.EventMember{}).
		Where("event_id = ? AND user_id = ?", eventID, userID).
		Count(&n).Error
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *EventGormRepository) ListMemberIDs(ctx context.Context, eventID int64) ([]int64, error) {
	var ids []int64
	if err := r.db.WithContext(ctx).Model(&model.EventMember{}).
		Where("event_id = ?", eventID).
		Order("id ASC").
		Pluck("user_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *EventGormRepository) FindMember(ctx context.Context, memberID int64) (model.EventMember, error) {
	var m model.EventMember
	err := r.db.WithContext(ctx).Where("id = ?", memberID).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.EventMember{}, repo.ErrNotFound
	}
	if err != nil {
		return model.EventMember{}, err
	}
	return m, nil
}

// 断った参加者は定員に数えない
func (r *EventGormRepository) CountMembers(ctx context.Context, eventID int64) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.EventMember{}).
		Where("event_id = ? AND status <> ?", eventID, model.AcceptingRejected).
		Count(&n).Error
	return n, err
}

func (r *EventGormRepository) AddMember(ctx context.Context, member model.EventMember) (model.EventMember, error) {
	if member.Status == "" {
		member.Status = model.AcceptingWait
	}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&member)
	if res.Error != nil {
		return model.EventMember{}, res.Error
	}
	if res.RowsAffected == 0 {
		return model.EventMember{}, repo.ErrDuplicate
	}
	return member, nil
}

func (r *EventGormRepository) UpdateMemberStatus(ctx context.Context, memberID int64, status model.AcceptingStatus) error {
	res := r.db.WithContext(ctx).Model(&model.EventMember{}).
		Where("id = ?", memberID).
		Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *EventGormRepository) DeleteMember(ctx context.Context, memberID int64) error {
	res := r.db.WithContext(ctx).Where("id = ?", memberID).Delete(&model.EventMember{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// イベント本体と参加者をまとめて作る（呼び出し側でTx）
func (r *EventGormRepository) Create(ctx context.Context, event model.Event, memberIDs []int64) (model.Event, error) {
	if event.Status == "" {
		event.Status = model.ModStatusCreated
	}
	event.Members = nil
	if err := r.db.WithContext(ctx).Create(&event).Error; err != nil {
		return model.Event{}, err
	}
	if len(memberIDs) == 0 {
		return event, nil
	}

	members := make([]model.EventMember, 0, len(memberIDs))
	for _, uid := range memberIDs {
		members = append(members, model.EventMember{EventID: event.ID, UserID: uid, Status: model.AcceptingWait})
	}
	if err := r.db.WithContext(ctx).Create(&members).Error; err != nil {
		return model.Event{}, fmt.Errorf("create event members: %w", err)
	}
	event.Members = members
	return event, nil
}

func (r *EventGormRepository) UpdateModeration(ctx context.Context, eventID int64, status model.ModStatus, comment *string) error {
	res := r.db.WithContext(ctx).Model(&model.Event{}).
		Where("id = ?", eventID).
		Updates(map[string]interface{}{
			"status":             status,
			"moderation_comment": comment,
			"updated_at":         time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *EventGormRepository) ArchiveExpired(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&model.Event{}).
		Where("ended IS NOT NULL AND ended < ? AND status <> ?", now, model.ModStatusArchived).
		Updates(map[string]interface{}{
			"status":     model.ModStatusArchived,
			"updated_at": now,
		})
	if res.Error != nil {
		return 0, fmt.Errorf("archive events: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func sameID(a, b *int64) bool {
	return a != nil && b != nil && *a == *b
}
