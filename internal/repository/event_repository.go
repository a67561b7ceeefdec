package repository

import (
	"context"
	"time"

	"porto/internal/domain/model"
	"porto/internal/geo"
	"porto/internal/pagination"
)

type EventSearchFilter struct {
	Page *int

	Name  *string
	Place *string

	StartedFrom *time.Time
	StartedTo   *time.Time
	EndedFrom   *time.Time
	EndedTo     *time.Time

	IsPrivate    *bool
	MemberUserID *int64
	CreatorID    *int64
	CategoryID   *int64
	Statuses     []model.ModStatus

	Near geo.Point

	//閲覧者。ForAdminなら公開範囲の制限をしない
	CurrentUserID *int64
	ForAdmin      bool
}

type EventRepository interface {
	FindByID(ctx context.Context, eventID int64) (model.Event, error)
	Search(ctx context.Context, f EventSearchFilter) ([]model.Event, pagination.Paginator, error)
	IsMember(ctx context.Context, eventID int64, userID int64) (bool, error)
	ListMemberIDs(ctx context.Context, eventID int64) ([]int64, error)
	FindMember(ctx context.Context, memberID int64) (model.EventMember, error)
	CountMembers(ctx context.Context, eventID int64) (int64, error)

	Create(ctx context.Context, event model.Event, memberIDs []int64) (model.Event, error)
	UpdateModeration(ctx context.Context, eventID int64, status model.ModStatus, comment *string) error

	//同じイベントに同じユーザーは一度だけ。重複は ErrDuplicate
	AddMember(ctx context.Context, member model.EventMember) (model.EventMember, error)
	UpdateMemberStatus(ctx context.Context, memberID int64, status model.AcceptingStatus) error
	DeleteMember(ctx context.Context, memberID int64) error

	ArchiveExpired(ctx context.Context, now time.Time) (int64, error)
}
