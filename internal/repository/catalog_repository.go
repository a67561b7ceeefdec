package repository

import (
	"context"

	"porto/internal/domain/model"
	"porto/internal/pagination"
)

// カテゴリ・サブカテゴリの存在確認（入力検証用）
type CatalogRepository interface {
	CategoryExists(ctx context.Context, categoryID int64) (bool, error)
	SubcategoryExists(ctx context.Context, subcategoryID int64) (bool, error)
}

// 参照データの一覧と管理画面からの編集。一覧はページ分けしない
type CatalogStore interface {
	CatalogRepository

	ListCategories(ctx context.Context) ([]model.Category, pagination.Paginator, error)
	ListSubcategories(ctx context.Context, categoryID int64) ([]model.Subcategory, pagination.Paginator, error)

	FindCategory(ctx context.Context, categoryID int64) (model.Category, error)
	CreateCategory(ctx context.Context, c model.Category) (model.Category, error)
	UpdateCategory(ctx context.Context, c model.Category) error
	DeleteCategory(ctx context.Context, categoryID int64) error
	//サブカテゴリかイベントから参照されている
	CategoryInUse(ctx context.Context, categoryID int64) (bool, error)

	FindSubcategory(ctx context.Context, subcategoryID int64) (model.Subcategory, error)
	CreateSubcategory(ctx context.Context, s model.Subcategory) (model.Subcategory, error)
	UpdateSubcategory(ctx context.Context, s model.Subcategory) error
	DeleteSubcategory(ctx context.Context, subcategoryID int64) error
	//掲載から参照されている
	SubcategoryInUse(ctx context.Context, subcategoryID int64) (bool, error)
}
