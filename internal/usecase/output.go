package usecase

import (
	"time"

	"porto/internal/domain/model"
	"porto/internal/geo"
)

type UserShortOutput struct {
	ID        int64   `json:"id"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Avatar    *string `json:"avatar"`
}

type OfferOutput struct {
	ID          int64             `json:"id"`
	Created     int64             `json:"created"`
	Text        string            `json:"text"`
	IsWinner    *bool             `json:"is_winner"`
	WinnerState model.WinnerState `json:"winner_state"`
	OrderID     int64             `json:"order_id"`
	UserID      int64             `json:"user_id"`
	User        *UserShortOutput  `json:"user"`
}

type OrderOutput struct {
	ID                int64            `json:"id"`
	Title             *string          `json:"title"`
	Body              *string          `json:"body"`
	Deadline          *int64           `json:"deadline"`
	Created           int64            `json:"created"`
	ConfirmedAt       *int64           `json:"confirmed_at"`
	Profit            *int64           `json:"profit"`
	Stage             model.Stage      `json:"stage"`
	UserID            int64            `json:"user_id"`
	User              *UserShortOutput `json:"user"`
	SubcategoryID     *int64           `json:"subcategory_id"`
	IsBlock           bool             `json:"is_block"`
	BlockComment      *string          `json:"block_comment"`
	Type              *string          `json:"type"`
	Address           *string          `json:"address"`
	Lat               *float64         `json:"lat"`
	Lon               *float64         `json:"lon"`
	Distance          *float64         `json:"distance,omitempty"`
	IsAutoRecreate    bool             `json:"is_auto_recreate"`
	IsFavorite        *bool            `json:"is_favorite"`
	Status            model.ModStatus  `json:"status"`
	ModerationComment *string          `json:"moderation_comment"`
	WinOffer          *OfferOutput     `json:"win_offer"`
}

type EventOutput struct {
	ID                int64           `json:"id"`
	Created           int64           `json:"created"`
	Name              *string         `json:"name"`
	Description       *string         `json:"description"`
	Started           *int64          `json:"started"`
	Ended             *int64          `json:"ended"`
	Place             *string         `json:"place"`
	Lat               *float64        `json:"lat"`
	Lon               *float64        `json:"lon"`
	Distance          *float64        `json:"distance,omitempty"`
	IsPrivate         bool            `json:"is_private"`
	UserID            int64           `json:"user_id"`
	CategoryID        *int64          `json:"category_id"`
	MaxEventMembers   *int            `json:"max_event_members"`
	Age               int             `json:"age"`
	Link              *string         `json:"link"`
	Status            model.ModStatus `json:"status"`
	ModerationComment *string         `json:"moderation_comment"`
	Members           []int64         `json:"members"`
}

type EventMemberOutput struct {
	ID      int64                 `json:"id"`
	EventID int64                 `json:"event_id"`
	UserID  int64                 `json:"user_id"`
	Status  model.AcceptingStatus `json:"status"`
}

type NotificationOutput struct {
	ID      int64        `json:"id"`
	Created int64        `json:"created"`
	Title   *string      `json:"title"`
	Body    string       `json:"body"`
	Icon    *string      `json:"icon"`
	OrderID *int64       `json:"order_id"`
	OfferID *int64       `json:"offer_id"`
	Stage   *model.Stage `json:"stage"`
	IsRead  bool         `json:"is_read"`
}

// APIの時刻はunix秒
func unix(t *time.Time) *int64 {
	if t == nil {
		return nil
	}
	v := t.Unix()
	return &v
}

func distanceFrom(p geo.Point, lat, lon *float64) *float64 {
	if !p.Complete() || lat == nil || lon == nil {
		return nil
	}
	d := geo.DistanceMeters(*p.Lat, *p.Lon, *lat, *lon)
	return &d
}

func toUserShort(u model.User) *UserShortOutput {
	return &UserShortOutput{ID: u.ID, FirstName: u.FirstName, LastName: u.LastName, Avatar: u.Avatar}
}

func toOfferOutput(o model.Offer, users map[int64]model.User) OfferOutput {
	out := OfferOutput{
		ID:          o.ID,
		Created:     o.CreatedAt.Unix(),
		Text:        o.Text,
		IsWinner:    o.WinnerState.IsWinner(),
		WinnerState: o.WinnerState,
		OrderID:     o.OrderID,
		UserID:      o.UserID,
	}
	if u, ok := users[o.UserID]; ok {
		out.User = toUserShort(u)
	}
	return out
}

func toOrderOutput(o model.Order, users map[int64]model.User) OrderOutput {
	out := OrderOutput{
		ID:                o.ID,
		Title:             o.Title,
		Body:              o.Body,
		Deadline:          unix(o.Deadline),
		Created:           o.CreatedAt.Unix(),
		ConfirmedAt:       unix(o.ConfirmedAt),
		Profit:            o.Profit,
		Stage:             o.Stage,
		UserID:            o.UserID,
		SubcategoryID:     o.SubcategoryID,
		IsBlock:           o.IsBlock,
		BlockComment:      o.BlockComment,
		Type:              o.Type,
		Address:           o.Address,
		Lat:               o.Lat,
		Lon:               o.Lon,
		IsAutoRecreate:    o.IsAutoRecreate,
		Status:            o.Status,
		ModerationComment: o.ModerationComment,
	}
	if u, ok := users[o.UserID]; ok {
		out.User = toUserShort(u)
	}
	return out
}

func toEventOutput(e model.Event, members []int64, near geo.Point) EventOutput {
	if members == nil {
		members = []int64{}
	}
	return EventOutput{
		ID:                e.ID,
		Created:           e.CreatedAt.Unix(),
		Name:              e.Name,
		Description:       e.Description,
		Started:           unix(e.Started),
		Ended:             unix(e.Ended),
		Place:             e.Place,
		Lat:               e.Lat,
		Lon:               e.Lon,
		Distance:          distanceFrom(near, e.Lat, e.Lon),
		IsPrivate:         e.IsPrivate,
		UserID:            e.UserID,
		CategoryID:        e.CategoryID,
		MaxEventMembers:   e.MaxEventMembers,
		Age:               e.Age,
		Link:              e.Link,
		Status:            e.Status,
		ModerationComment: e.ModerationComment,
		Members:           members,
	}
}

func toEventMemberOutput(m model.EventMember) EventMemberOutput {
	return EventMemberOutput{ID: m.ID, EventID: m.EventID, UserID: m.UserID, Status: m.Status}
}

func toNotificationOutput(n model.Notification) NotificationOutput {
	return NotificationOutput{
		ID:      n.ID,
		Created: n.CreatedAt.Unix(),
		Title:   n.Title,
		Body:    n.Body,
		Icon:    n.Icon,
		OrderID: n.OrderID,
		OfferID: n.OfferID,
		Stage:   n.Stage,
		IsRead:  n.IsRead,
	}
}
