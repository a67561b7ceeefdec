package validator

import (
	"context"
	"strings"

	"porto/internal/usecase"
)

type offerValidator struct{}

func NewOfferValidator() usecase.OfferValidator {
	return &offerValidator{}
}

func (v *offerValidator) ValidateCreate(ctx context.Context, in usecase.OfferInput) error {
	if strings.TrimSpace(in.Text) == "" {
		return usecase.Unprocessable(1, "Текст предложения обязателен")
	}
	return nil
}
