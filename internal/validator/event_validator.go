package validator

import (
	"context"
	"fmt"
	"net/http"

	"porto/internal/repository"
	"porto/internal/usecase"
)

type eventValidator struct {
	catalog repository.CatalogRepository
	users   repository.UserRepository
}

func NewEventValidator(catalog repository.CatalogRepository, users repository.UserRepository) usecase.EventValidator {
	return &eventValidator{catalog: catalog, users: users}
}

// 期間・座標・カテゴリ・参加者を検証する。
// 見つからない参加者は index ごとに errors[] へ積む
func (v *eventValidator) ValidateCreate(ctx context.Context, in usecase.EventInput) error {
	if in.Started == nil {
		return usecase.Unprocessable(1, "Не указано время начала")
	}
	if in.Ended != nil && in.Ended.Before(*in.Started) {
		return usecase.Unprocessable(1, "Окончание раньше начала")
	}
	if in.Age < 0 {
		return usecase.Unprocessable(1, "Недопустимый возраст")
	}
	if in.MaxEventMembers != nil && *in.MaxEventMembers < len(in.Members) {
		return usecase.Unprocessable(1, "Участников больше допустимого")
	}
	if err := validateCoords(in.Lat, in.Lon); err != nil {
		return err
	}

	if in.CategoryID != nil {
		ok, err := v.catalog.CategoryExists(ctx, *in.CategoryID)
		if err != nil {
			return err
		}
		if !ok {
			return usecase.NotFound(1, "Категория не найдена")
		}
	}

	if len(in.Members) == 0 {
		return nil
	}
	found, err := v.users.FindByIDs(ctx, in.Members)
	if err != nil {
		return err
	}
	var missing []usecase.FieldError
	for i, id := range in.Members {
		if _, ok := found[id]; !ok {
			missing = append(missing, usecase.FieldError{
				Code:    2,
				Message: "Пользователь не найден",
				Path:    fmt.Sprintf("$body.members[%d]", i),
			})
		}
	}
	if len(missing) > 0 {
		return usecase.ListOfEntityError(http.StatusUnprocessableEntity, "Пользователи не найдены", missing)
	}
	return nil
}
