package model

import "time"

// 通知の受信箱レコード。order/offerへの参照はディープリンク用。
type Notification struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
	Title     *string   `gorm:"type:varchar(255)" json:"title"`
	Body      string    `gorm:"type:text;not null" json:"body"`
	Icon      *string   `gorm:"type:varchar(512)" json:"icon"`
	UserID    int64     `gorm:"not null;index" json:"user_id"`
	OrderID   *int64    `gorm:"index" json:"order_id"`
	OfferID   *int64    `gorm:"index" json:"offer_id"`
	Stage     *Stage    `gorm:"type:varchar(20)" json:"stage"`
	IsRead    bool      `gorm:"not null;default:false;index" json:"is_read"`

	Order *Order `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Offer *Offer `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}
