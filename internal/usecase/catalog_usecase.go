package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"porto/internal/domain/model"
	"porto/internal/pagination"
	repo "porto/internal/repository"
)

const (
	msgCategoryNotFound    = "Категория не найдена"
	msgSubcategoryNotFound = "Подкатегория не найдена"
)

// カテゴリ・サブカテゴリ。一覧は誰でも、編集は管理者だけ
type CatalogUsecase struct {
	tx      repo.TransactionManager
	catalog repo.CatalogStore
	now     func() time.Time
}

func NewCatalogUsecase(tx repo.TransactionManager, catalog repo.CatalogStore) *CatalogUsecase {
	return &CatalogUsecase{tx: tx, catalog: catalog, now: time.Now}
}

type CategoryInput struct {
	Name string
}

type SubcategoryInput struct {
	Name       string
	CategoryID int64
}

func (u *CatalogUsecase) ListCategories(ctx context.Context) ([]model.Category, pagination.Paginator, error) {
	items, pg, err := u.catalog.ListCategories(ctx)
	if err != nil {
		return nil, pagination.Paginator{}, dbError(err)
	}
	return items, pg, nil
}

func (u *CatalogUsecase) ListSubcategories(ctx context.Context, categoryID int64) ([]model.Subcategory, pagination.Paginator, error) {
	ok, err := u.catalog.CategoryExists(ctx, categoryID)
	if err != nil {
		return nil, pagination.Paginator{}, dbError(err)
	}
	if !ok {
		return nil, pagination.Paginator{}, NotFound(1, msgCategoryNotFound)
	}

	items, pg, err := u.catalog.ListSubcategories(ctx, categoryID)
	if err != nil {
		return nil, pagination.Paginator{}, dbError(err)
	}
	return items, pg, nil
}

func catalogName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "", Unprocessable(1, "Название не может быть пустым")
	}
	if len([]rune(name)) > 255 {
		return "", Unprocessable(1, "Название слишком длинное")
	}
	return name, nil
}

func (u *CatalogUsecase) CreateCategory(ctx context.Context, actor Actor, in CategoryInput) (model.Category, error) {
	if !actor.IsAdmin() {
		return model.Category{}, Inaccessible("Недостаточно прав")
	}
	name, err := catalogName(in.Name)
	if err != nil {
		return model.Category{}, err
	}

	var created model.Category
	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		c, err := r.Catalog().CreateCategory(ctx, model.Category{Name: name})
		if err != nil {
			return dbError(err)
		}
		created = c
		return writeAudit(ctx, r, actor, model.AuditActionCreateCategory, model.AuditResourceCategory, c.ID,
			nil, map[string]interface{}{"name": c.Name}, u.now())
	})
	if err != nil {
		return model.Category{}, err
	}
	return created, nil
}

func (u *CatalogUsecase) UpdateCategory(ctx context.Context, actor Actor, categoryID int64, in CategoryInput) (model.Category, error) {
	if !actor.IsAdmin() {
		return model.Category{}, Inaccessible("Недостаточно прав")
	}
	name, err := catalogName(in.Name)
	if err != nil {
		return model.Category{}, err
	}

	var updated model.Category
	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		before, err := r.Catalog().FindCategory(ctx, categoryID)
		if errors.Is(err, repo.ErrNotFound) {
			return NotFound(1, msgCategoryNotFound)
		}
		if err != nil {
			return dbError(err)
		}

		updated = before
		updated.Name = name
		if err := r.Catalog().UpdateCategory(ctx, updated); err != nil {
			return dbError(err)
		}
		return writeAudit(ctx, r, actor, model.AuditActionUpdateCategory, model.AuditResourceCategory, categoryID,
			map[string]interface{}{"name": before.Name},
			map[string]interface{}{"name": name},
			u.now())
	})
	if err != nil {
		return model.Category{}, err
	}
	return updated, nil
}

// 使われているカテゴリは消せない
func (u *CatalogUsecase) DeleteCategory(ctx context.Context, actor Actor, categoryID int64) error {
	if !actor.IsAdmin() {
		return Inaccessible("Недостаточно прав")
	}

	return u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		before, err := r.Catalog().FindCategory(ctx, categoryID)
		if errors.Is(err, repo.ErrNotFound) {
			return NotFound(1, msgCategoryNotFound)
		}
		if err != nil {
			return dbError(err)
		}

		used, err := r.Catalog().CategoryInUse(ctx, categoryID)
		if err != nil {
			return dbError(err)
		}
		if used {
			return Conflict("Категория используется")
		}

		if err := r.Catalog().DeleteCategory(ctx, categoryID); err != nil {
			return dbError(err)
		}
		return writeAudit(ctx, r, actor, model.AuditActionDeleteCategory, model.AuditResourceCategory, categoryID,
			map[string]interface{}{"name": before.Name}, nil, u.now())
	})
}

func (u *CatalogUsecase) CreateSubcategory(ctx context.Context, actor Actor, in SubcategoryInput) (model.Subcategory, error) {
	if !actor.IsAdmin() {
		return model.Subcategory{}, Inaccessible("Недостаточно прав")
	}
	name, err := catalogName(in.Name)
	if err != nil {
		return model.Subcategory{}, err
	}

	var created model.Subcategory
	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		if err := requireCategory(ctx, r, in.CategoryID); err != nil {
			return err
		}

		s, err := r.Catalog().CreateSubcategory(ctx, model.Subcategory{Name: name, CategoryID: in.CategoryID})
		if err != nil {
			return dbError(err)
		}
		created = s
		return writeAudit(ctx, r, actor, model.AuditActionCreateSubcategory, model.AuditResourceSubcategory, s.ID,
			nil, map[string]interface{}{"name": s.Name, "category_id": s.CategoryID}, u.now())
	})
	if err != nil {
		return model.Subcategory{}, err
	}
	return created, nil
}

func (u *CatalogUsecase) UpdateSubcategory(ctx context.Context, actor Actor, subcategoryID int64, in SubcategoryInput) (model.Subcategory, error) {
	if !actor.IsAdmin() {
		return model.Subcategory{}, Inaccessible("Недостаточно прав")
	}
	name, err := catalogName(in.Name)
	if err != nil {
		return model.Subcategory{}, err
	}

	var updated model.Subcategory
	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		before, err := r.Catalog().FindSubcategory(ctx, subcategoryID)
		if errors.Is(err, repo.ErrNotFound) {
			return NotFound(1, msgSubcategoryNotFound)
		}
		if err != nil {
			return dbError(err)
		}

		updated = before
		updated.Name = name
		//category_id省略なら親はそのまま
		if in.CategoryID != 0 && in.CategoryID != before.CategoryID {
			if err := requireCategory(ctx, r, in.CategoryID); err != nil {
				return err
			}
			updated.CategoryID = in.CategoryID
		}

		if err := r.Catalog().UpdateSubcategory(ctx, updated); err != nil {
			return dbError(err)
		}
		return writeAudit(ctx, r, actor, model.AuditActionUpdateSubcategory, model.AuditResourceSubcategory, subcategoryID,
			map[string]interface{}{"name": before.Name, "category_id": before.CategoryID},
			map[string]interface{}{"name": updated.Name, "category_id": updated.CategoryID},
			u.now())
	})
	if err != nil {
		return model.Subcategory{}, err
	}
	return updated, nil
}

// 掲載が参照していれば消せない
func (u *CatalogUsecase) DeleteSubcategory(ctx context.Context, actor Actor, subcategoryID int64) error {
	if !actor.IsAdmin() {
		return Inaccessible("Недостаточно прав")
	}

	return u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		before, err := r.Catalog().FindSubcategory(ctx, subcategoryID)
		if errors.Is(err, repo.ErrNotFound) {
			return NotFound(1, msgSubcategoryNotFound)
		}
		if err != nil {
			return dbError(err)
		}

		used, err := r.Catalog().SubcategoryInUse(ctx, subcategoryID)
		if err != nil {
			return dbError(err)
		}
		if used {
			return Conflict("Подкатегория используется")
		}

		if err := r.Catalog().DeleteSubcategory(ctx, subcategoryID); err != nil {
			return dbError(err)
		}
		return writeAudit(ctx, r, actor, model.AuditActionDeleteSubcategory, model.AuditResourceSubcategory, subcategoryID,
			map[string]interface{}{"name": before.Name, "category_id": before.CategoryID}, nil, u.now())
	})
}

func requireCategory(ctx context.Context, r repo.TxRepos, categoryID int64) error {
	ok, err := r.Catalog().CategoryExists(ctx, categoryID)
	if err != nil {
		return dbError(err)
	}
	if !ok {
		return NotFound(2, msgCategoryNotFound)
	}
	return nil
}
