package model

import "time"

// 入札ワークフローの段階
type Stage string

const (
	StageCreated   Stage = "created"   //出品中。オファー受付
	StageSelected  Stage = "selected"  //落札オファー決定済み
	StageFinished  Stage = "finished"  //作業完了。確認待ち
	StageConfirmed Stage = "confirmed" //完了確認済み
	StageRejected  Stage = "rejected"  //出品者が取り下げ
)

// 旧APIの数値コード
var stageCodes = map[Stage]int{
	StageCreated:   0,
	StageSelected:  1,
	StageFinished:  2,
	StageConfirmed: 3,
	StageRejected:  4,
}

func (s Stage) Valid() bool {
	_, ok := stageCodes[s]
	return ok
}

func (s Stage) Code() int {
	return stageCodes[s]
}

// 遷移表。selected→createdは落札取り消し。
var stageTransitions = map[Stage][]Stage{
	StageCreated:  {StageSelected, StageRejected},
	StageSelected: {StageCreated, StageFinished},
	StageFinished: {StageConfirmed},
}

// CanTransitionTo reports whether the lifecycle allows moving from s to next.
func (s Stage) CanTransitionTo(next Stage) bool {
	for _, st := range stageTransitions[s] {
		if st == next {
			return true
		}
	}
	return false
}

// 落札の再選択が可能な段階か
func (s Stage) AcceptsWinnerChoice() bool {
	return s == StageCreated || s == StageSelected
}

// 求人・依頼の掲載（クラシファイド広告）
type Order struct {
	ID          int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	CreatedAt   time.Time  `gorm:"not null;index" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"not null" json:"updated_at"`
	ConfirmedAt *time.Time `json:"confirmed_at"`

	Title    *string    `gorm:"type:varchar(255)" json:"title"`
	Body     *string    `gorm:"type:text" json:"body"`
	Deadline *time.Time `gorm:"index" json:"deadline"`
	Profit   *int64     `json:"profit"`
	Address  *string    `gorm:"type:varchar(255)" json:"address"`
	Type     *string    `gorm:"type:varchar(100)" json:"type"`
	Lat      *float64   `json:"lat"`
	Lon      *float64   `json:"lon"`

	Stage          Stage `gorm:"type:varchar(20);not null;default:'created';index" json:"stage"`
	IsAutoRecreate bool  `gorm:"not null;default:false" json:"is_auto_recreate"`

	IsBlock      bool    `gorm:"not null;default:false" json:"is_block"`
	BlockComment *string `gorm:"type:text" json:"block_comment"`

	Status            ModStatus `gorm:"type:varchar(20);not null;default:'created';index" json:"status"`
	ModerationComment *string   `gorm:"type:text" json:"moderation_comment"`

	SubcategoryID *int64 `gorm:"index" json:"subcategory_id"`
	UserID        int64  `gorm:"not null;index" json:"user_id"`

	Offers []Offer `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"-"`
}

// 自動再掲載用に記述系フィールドだけを複製する。
func (o Order) Relist(now time.Time) Order {
	return Order{
		CreatedAt:      now,
		UpdatedAt:      now,
		Title:          o.Title,
		Body:           o.Body,
		Deadline:       o.Deadline,
		Profit:         o.Profit,
		Address:        o.Address,
		Type:           o.Type,
		Lat:            o.Lat,
		Lon:            o.Lon,
		Stage:          StageCreated,
		IsAutoRecreate: o.IsAutoRecreate,
		IsBlock:        o.IsBlock,
		BlockComment:   o.BlockComment,
		Status:         ModStatusCreated,
		SubcategoryID:  o.SubcategoryID,
		UserID:         o.UserID,
	}
}
