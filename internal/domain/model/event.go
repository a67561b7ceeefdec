package model

import (
	"fmt"
	"strings"
	"time"
)

type Event struct {
	ID              int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	CreatedAt       time.Time  `gorm:"not null;index" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"not null" json:"updated_at"`
	Name            *string    `gorm:"type:varchar(255)" json:"name"`
	Description     *string    `gorm:"type:text" json:"description"`
	Started         *time.Time `gorm:"index" json:"started"`
	Ended           *time.Time `gorm:"index" json:"ended"`
	Place           *string    `gorm:"type:varchar(255)" json:"place"`
	Lat             *float64   `json:"lat"`
	Lon             *float64   `json:"lon"`
	IsPrivate       bool       `gorm:"not null;default:false" json:"is_private"`
	UserID          int64      `gorm:"not null;index" json:"user_id"`
	CategoryID      *int64     `gorm:"index" json:"category_id"`
	MaxEventMembers *int       `json:"max_event_members"`
	Age             int        `gorm:"not null;default:0" json:"age"`
	Link            *string    `gorm:"type:varchar(512)" json:"link"`

	Status            ModStatus `gorm:"type:varchar(20);not null;default:'created';index" json:"status"`
	ModerationComment *string   `gorm:"type:text" json:"moderation_comment"`

	Members []EventMember `gorm:"foreignKey:EventID;constraint:OnDelete:CASCADE" json:"-"`
}

type EventMember struct {
	ID      int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	EventID int64           `gorm:"not null;uniqueIndex:ux_event_member" json:"event_id"`
	UserID  int64           `gorm:"not null;uniqueIndex:ux_event_member;index" json:"user_id"`
	Status  AcceptingStatus `gorm:"type:varchar(20);not null;default:'wait'" json:"status"`
}

// 参加申請・招待への返答
type AcceptingStatus string

const (
	AcceptingWait     AcceptingStatus = "wait"
	AcceptingAccepted AcceptingStatus = "accepted"
	AcceptingRejected AcceptingStatus = "rejected"
)

func (s AcceptingStatus) Valid() bool {
	switch s {
	case AcceptingWait, AcceptingAccepted, AcceptingRejected:
		return true
	}
	return false
}

func ParseAcceptingStatus(raw string) (AcceptingStatus, error) {
	s := AcceptingStatus(strings.ToLower(strings.TrimSpace(raw)))
	if !s.Valid() {
		return "", fmt.Errorf("unknown accepting status %q", raw)
	}
	return s, nil
}
