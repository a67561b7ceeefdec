package handler

import (
	"net/http"

	"porto/internal/domain/model"
	"porto/internal/middleware"
	"porto/internal/pagination"
	"porto/internal/usecase"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const (
	msgOk   = "Ok"
	descOk  = "Выполнено"
	msgAuth = "unauthorized"
)

// 全エンドポイント共通の封筒
type Response struct {
	Message     string               `json:"message"`
	Description string               `json:"description"`
	Data        interface{}          `json:"data"`
	Meta        *Meta                `json:"meta,omitempty"`
	Errors      []usecase.FieldError `json:"errors"`
}

type Meta struct {
	Paginator *pagination.Paginator `json:"paginator,omitempty"`
}

func writeData(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusOK, Response{
		Message:     msgOk,
		Description: descOk,
		Data:        data,
		Errors:      []usecase.FieldError{},
	})
}

func writePage(c echo.Context, data interface{}, pg pagination.Paginator) error {
	return c.JSON(http.StatusOK, Response{
		Message:     msgOk,
		Description: descOk,
		Data:        data,
		Meta:        &Meta{Paginator: &pg},
		Errors:      []usecase.FieldError{},
	})
}

func fail(c echo.Context, status int, message string) error {
	return c.JSON(status, Response{
		Message:     message,
		Description: message,
		Errors:      []usecase.FieldError{},
	})
}

// usecaseのエラーをそのまま返す。想定外はログに残して500
func writeError(c echo.Context, log *zap.Logger, err error) error {
	if err == nil {
		return nil
	}

	if he, ok := usecase.AsHTTPError(err); ok {
		if he.Status >= http.StatusInternalServerError {
			log.Error("request failed", requestFields(c, err)...)
			return fail(c, he.Status, "internal error")
		}
		items := he.Errors
		if items == nil {
			items = []usecase.FieldError{{Code: he.Code, Message: he.Message}}
		}
		return c.JSON(he.Status, Response{
			Message:     he.Message,
			Description: he.Description,
			Errors:      items,
		})
	}

	//500
	log.Error("unexpected error", requestFields(c, err)...)
	return fail(c, http.StatusInternalServerError, "internal error")
}

func requestFields(c echo.Context, err error) []zap.Field {
	fields := []zap.Field{
		zap.Error(err),
		zap.String("method", c.Request().Method),
		zap.String("route", c.Path()),
	}
	if rid, ok := c.Get(middleware.CtxRequestIDKey).(string); ok {
		fields = append(fields, zap.String("request_id", rid))
	}
	return fields
}

func getUserIDFromContext(c echo.Context) (int64, bool) {
	id, ok := c.Get(middleware.CtxUserIDKey).(int64)
	if !ok || id <= 0 {
		return 0, false
	}
	return id, true
}

// AuthJWT/TokenVersionGuard が入れた値から操作者を作る
func actorFromContext(c echo.Context) (usecase.Actor, bool) {
	id, ok := getUserIDFromContext(c)
	if !ok {
		return usecase.Actor{}, false
	}
	role, _ := c.Get(middleware.CtxUserRoleKey).(string)
	return usecase.Actor{UserID: id, Role: model.Role(role)}, true
}
