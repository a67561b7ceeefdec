package validator

import (
	"context"
	"strings"
	"unicode/utf8"

	"porto/internal/repository"
	"porto/internal/usecase"
)

const (
	maxTitleLen   = 255
	maxAddressLen = 255
	maxTypeLen    = 100
)

type orderValidator struct {
	catalog repository.CatalogRepository
}

// Usecaseは interface を依存注入
func NewOrderValidator(catalog repository.CatalogRepository) usecase.OrderValidator {
	return &orderValidator{catalog: catalog}
}

// 掲載作成の入力を検証
func (v *orderValidator) ValidateCreate(ctx context.Context, in usecase.OrderInput) error {
	return v.validate(ctx, in.Title, in.Address, in.Type, in.Profit, in.Lat, in.Lon, in.SubcategoryID)
}

// 部分更新。渡された項目だけ見る
func (v *orderValidator) ValidatePatch(ctx context.Context, in usecase.OrderPatch) error {
	return v.validate(ctx, in.Title, in.Address, in.Type, in.Profit, in.Lat, in.Lon, in.SubcategoryID)
}

func (v *orderValidator) validate(
	ctx context.Context,
	title, address, typ *string,
	profit *int64,
	lat, lon *float64,
	subcategoryID *int64,
) error {
	if title != nil && (strings.TrimSpace(*title) == "" || utf8.RuneCountInString(*title) > maxTitleLen) {
		return usecase.Unprocessable(1, "Недопустимый заголовок")
	}
	if address != nil && utf8.RuneCountInString(*address) > maxAddressLen {
		return usecase.Unprocessable(1, "Слишком длинный адрес")
	}
	if typ != nil && utf8.RuneCountInString(*typ) > maxTypeLen {
		return usecase.Unprocessable(1, "Слишком длинный тип")
	}
	if profit != nil && *profit < 0 {
		return usecase.Unprocessable(1, "Оплата не может быть отрицательной")
	}
	if err := validateCoords(lat, lon); err != nil {
		return err
	}

	//サブカテゴリはDBで存在確認
	if subcategoryID != nil {
		ok, err := v.catalog.SubcategoryExists(ctx, *subcategoryID)
		if err != nil {
			return err
		}
		if !ok {
			return usecase.NotFound(1, "Подкатегория не найдена")
		}
	}
	return nil
}

// 座標は両方そろっていて範囲内
func validateCoords(lat, lon *float64) error {
	if (lat == nil) != (lon == nil) {
		return usecase.Unprocessable(1, "Нужно указать обе координаты")
	}
	if lat == nil {
		return nil
	}
	if *lat < -90 || *lat > 90 || *lon < -180 || *lon > 180 {
		return usecase.Unprocessable(1, "Недопустимые координаты")
	}
	return nil
}
