package model

// 掲載のカテゴリ（親）
type Category struct {
	ID   int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Name string `gorm:"type:varchar(255);not null" json:"name"`
}

// サブカテゴリ。掲載はこちらを参照する。
type Subcategory struct {
	ID         int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Name       string `gorm:"type:varchar(255);not null" json:"name"`
	CategoryID int64  `gorm:"not null;index" json:"category_id"`
}

// お気に入り
type FavoriteOrder struct {
	ID      int64 `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID  int64 `gorm:"not null;uniqueIndex:ux_favorite_order" json:"user_id"`
	OrderID int64 `gorm:"not null;uniqueIndex:ux_favorite_order;index" json:"order_id"`
}
