package repository

import (
	"context"
	"errors"

	"porto/internal/domain/model"
	"porto/internal/pagination"
	domainrepo "porto/internal/repository"

	"gorm.io/gorm"
)

type catalogGormRepository struct {
	db *gorm.DB
}

func NewCatalogGormRepository(db *gorm.DB) domainrepo.CatalogStore {
	return &catalogGormRepository{db: db}
}

func (r *catalogGormRepository) CategoryExists(ctx context.Context, categoryID int64) (bool, error) {
	return r.exists(ctx, &model.Category{}, "id = ?", categoryID)
}

func (r *catalogGormRepository) SubcategoryExists(ctx context.Context, subcategoryID int64) (bool, error) {
	return r.exists(ctx, &model.Subcategory{}, "id = ?", subcategoryID)
}

func (r *catalogGormRepository) exists(ctx context.Context, m interface{}, cond string, args ...interface{}) (bool, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(m).Where(cond, args...).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

// 件数が少ないので全件（page=nil）
func (r *catalogGormRepository) ListCategories(ctx context.Context) ([]model.Category, pagination.Paginator, error) {
	q := r.db.WithContext(ctx).Model(&model.Category{}).Order("name ASC, id ASC")
	return pagination.GetPage[model.Category](q, nil, pagination.DefaultPageSize)
}

func (r *catalogGormRepository) ListSubcategories(ctx context.Context, categoryID int64) ([]model.Subcategory, pagination.Paginator, error) {
	q := r.db.WithContext(ctx).Model(&model.Subcategory{}).
		Where("category_id = ?", categoryID).
		Order("name ASC, id ASC")
	return pagination.GetPage[model.Subcategory](q, nil, pagination.DefaultPageSize)
}

func (r *catalogGormRepository) FindCategory(ctx context.Context, categoryID int64) (model.Category, error) {
	var c model.Category
	err := r.db.WithContext(ctx).Where("id = ?", categoryID).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Category{}, domainrepo.ErrNotFound
	}
	if err != nil {
		return model.Category{}, err
	}
	return c, nil
}

func (r *catalogGormRepository) CreateCategory(ctx context.Context, c model.Category) (model.Category, error) {
	if err := r.db.WithContext(ctx).Create(&c).Error; err != nil {
		return model.Category{}, err
	}
	return c, nil
}

func (r *catalogGormRepository) UpdateCategory(ctx context.Context, c model.Category) error {
	res := r.db.WithContext(ctx).Model(&model.Category{}).
		Where("id = ?", c.ID).
		Update("name", c.Name)
	return affected(res)
}

func (r *catalogGormRepository) DeleteCategory(ctx context.Context, categoryID int64) error {
	return affected(r.db.WithContext(ctx).Where("id = ?", categoryID).Delete(&model.Category{}))
}

func (r *catalogGormRepository) CategoryInUse(ctx context.Context, categoryID int64) (bool, error) {
	used, err := r.exists(ctx, &model.Subcategory{}, "category_id = ?", categoryID)
	if err != nil || used {
		return used, err
	}
	return r.exists(ctx, &model.Event{}, "category_id = ?", categoryID)
}

func (r *catalogGormRepository) FindSubcategory(ctx context.Context, subcategoryID int64) (model.Subcategory, error) {
	var s model.Subcategory
	err := r.db.WithContext(ctx).Where("id = ?", subcategoryID).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Subcategory{}, domainrepo.ErrNotFound
	}
	if err != nil {
		return model.Subcategory{}, err
	}
	return s, nil
}

func (r *catalogGormRepository) CreateSubcategory(ctx context.Context, s model.Subcategory) (model.Subcategory, error) {
	if err := r.db.WithContext(ctx).Create(&s).Error; err != nil {
		return model.Subcategory{}, err
	}
	return s, nil
}

func (r *catalogGormRepository) UpdateSubcategory(ctx context.Context, s model.Subcategory) error {
	res := r.db.WithContext(ctx).Model(&model.Subcategory{}).
		Where("id = ?", s.ID).
		Updates(map[string]interface{}{
			"name":        s.Name,
			"category_id": s.CategoryID,
		})
	return affected(res)
}

func (r *catalogGormRepository) DeleteSubcategory(ctx context.Context, subcategoryID int64) error {
	return affected(r.db.WithContext(ctx).Where("id = ?", subcategoryID).Delete(&model.Subcategory{}))
}

func (r *catalogGormRepository) SubcategoryInUse(ctx context.Context, subcategoryID int64) (bool, error) {
	return r.exists(ctx, &model.Order{}, "subcategory_id = ?", subcategoryID)
}

// 0件更新は見つからない扱い
func affected(res *gorm.DB) error {
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domainrepo.ErrNotFound
	}
	return nil
}
