// Package pagination slices list queries into fixed-size pages.
package pagination

import (
	"gorm.io/gorm"
)

const DefaultPageSize = 10

// ページ情報（レスポンスの meta.paginator）
type Paginator struct {
	Page    int   `json:"page"`
	Total   int64 `json:"total"`
	HasPrev bool  `json:"has_prev"`
	HasNext bool  `json:"has_next"`
}

// NewPaginator builds page metadata for total matching rows.
// A nil page means "no pagination": every row is returned and both flags are false.
func NewPaginator(total int64, page *int, size int) Paginator {
	if page == nil {
		return Paginator{Page: 1, Total: total}
	}
	if size <= 0 {
		size = DefaultPageSize
	}
	p := *page
	return Paginator{
		Page:    p,
		Total:   total,
		HasPrev: p > 1,
		HasNext: int64(p)*int64(size) < total,
	}
}

// Offset returns the row offset of page (1-based).
func Offset(page int, size int) int {
	if page < 1 {
		return 0
	}
	return (page - 1) * size
}

// GetPage counts q, then fetches the requested page of it into []T.
// The count runs on a separate session so it ignores the slicing and ordering.
func GetPage[T any](q *gorm.DB, page *int, size int) ([]T, Paginator, error) {
	if size <= 0 {
		size = DefaultPageSize
	}

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return []T{}, Paginator{}, err
	}

	items := make([]T, 0)
	find := q.Session(&gorm.Session{})
	if page != nil {
		find = find.Offset(Offset(*page, size)).Limit(size)
	}
	if err := find.Find(&items).Error; err != nil {
		return []T{}, Paginator{}, err
	}

	return items, NewPaginator(total, page, size), nil
}
