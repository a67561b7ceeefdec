package handler

import (
	"net/http"

	"porto/internal/config"
	"porto/internal/repository"
	"porto/internal/usecase"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// 受信箱
type NotificationHandler struct {
	uc  *usecase.NotificationUsecase
	log *zap.Logger
}

func NewNotificationHandler(uc *usecase.NotificationUsecase, log *zap.Logger) *NotificationHandler {
	return &NotificationHandler{uc: uc, log: log}
}

type UnreadCountResponse struct {
	Count int64 `json:"count"`
}

func (h *NotificationHandler) RegisterRoutes(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository) {
	mw := authChain(cfg, userRepo)
	e.GET("/users/me/notifications", h.list, mw...)
	e.GET("/users/me/notifications/unread", h.unread, mw...)
	e.PUT("/notifications/:id/is_read", h.markRead, mw...)
}

func (h *NotificationHandler) list(c echo.Context) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, msgAuth)
	}
	p := newQueryParser(c)
	page := p.Page()
	if err := p.Err(); err != nil {
		return writeError(c, h.log, err)
	}

	out, pg, err := h.uc.List(c.Request().Context(), actor, page)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return writePage(c, out, pg)
}

func (h *NotificationHandler) unread(c echo.Context) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, msgAuth)
	}

	n, err := h.uc.UnreadCount(c.Request().Context(), actor)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return writeData(c, UnreadCountResponse{Count: n})
}

func (h *NotificationHandler) markRead(c echo.Context) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, msgAuth)
	}
	id, err := parseID(c, "id")
	if err != nil {
		return writeError(c, h.log, err)
	}

	out, err := h.uc.MarkRead(c.Request().Context(), actor, id)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return writeData(c, out)
}
