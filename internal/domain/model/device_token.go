package model

import "time"

// プッシュ通知の登録トークン（端末ごと）
type DeviceToken struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"`
	UserID    int64     `gorm:"not null;index"`
	Value     string    `gorm:"type:varchar(512);not null"`
	CreatedAt time.Time `gorm:"not null;index"`
}
