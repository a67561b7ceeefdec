package model

import "time"

type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// ユーザー本体は外部の認証基盤が管理する。ここでは参照と集計カウンタのみ。
type User struct {
	ID           int64   `gorm:"primaryKey;autoIncrement"`
	FirstName    *string `gorm:"type:varchar(100)"`
	LastName     *string `gorm:"type:varchar(100)"`
	Avatar       *string `gorm:"type:varchar(512)"`
	Role         Role    `gorm:"type:varchar(20);not null;default:'USER'"`
	TokenVersion int     `gorm:"not null;default:0"`
	IsActive     bool    `gorm:"not null;default:true"`

	CreatedOrdersCount   int `gorm:"not null;default:0"`
	MyOffersCount        int `gorm:"not null;default:0"`
	CompletedOrdersCount int `gorm:"not null;default:0"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// 表示名（通知文面用）
func (u User) FullName() string {
	name := ""
	if u.FirstName != nil {
		name = *u.FirstName
	}
	if u.LastName != nil && *u.LastName != "" {
		if name != "" {
			name += " "
		}
		name += *u.LastName
	}
	if name == "" {
		return "Пользователь"
	}
	return name
}
