package model

import "time"

// 落札状態（未決定 / 落札 / 非選択）
type WinnerState string

const (
	WinnerUndecided WinnerState = "undecided"
	WinnerChosen    WinnerState = "winner"
	WinnerNotChosen WinnerState = "not_chosen"
)

// 旧クライアント向けの is_winner（null/true/false）表現
func (w WinnerState) IsWinner() *bool {
	var v bool
	switch w {
	case WinnerChosen:
		v = true
	case WinnerNotChosen:
		v = false
	default:
		return nil
	}
	return &v
}

// 掲載へのオファー（入札）
type Offer struct {
	ID          int64       `gorm:"primaryKey;autoIncrement" json:"id"`
	CreatedAt   time.Time   `gorm:"not null;index" json:"created_at"`
	Text        string      `gorm:"type:text;not null" json:"text"`
	WinnerState WinnerState `gorm:"type:varchar(20);not null;default:'undecided';index" json:"winner_state"`
	OrderID     int64       `gorm:"not null;index" json:"order_id"`
	UserID      int64       `gorm:"not null;index" json:"user_id"`
}
