package handler

import (
	"fmt"
	"net/http"

	"porto/internal/config"
	"porto/internal/domain/model"
	"porto/internal/middleware"
	"porto/internal/repository"
	"porto/internal/usecase"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// 管理画面（/cp）
type AdminHandler struct {
	orders    *usecase.OrderUsecase
	events    *usecase.EventUsecase
	audit     *usecase.AuditUsecase
	broadcast *usecase.BroadcastUsecase
	log       *zap.Logger
}

func NewAdminHandler(
	orders *usecase.OrderUsecase,
	events *usecase.EventUsecase,
	audit *usecase.AuditUsecase,
	broadcast *usecase.BroadcastUsecase,
	log *zap.Logger,
) *AdminHandler {
	return &AdminHandler{orders: orders, events: events, audit: audit, broadcast: broadcast, log: log}
}

type BroadcastRequest struct {
	Title *string `json:"title"`
	Body  string  `json:"body"`
}

// 管理者だけ通すチェーン
func adminChain(cfg config.Config, userRepo repository.UserRepository) []echo.MiddlewareFunc {
	return append(authChain(cfg, userRepo), middleware.AdminRoleGuard())
}

type BlockRequest struct {
	IsBlock bool    `json:"is_block"`
	Comment *string `json:"comment"`
}

// statusは名前でも旧コード（1..4）でもよい
type ModerationRequest struct {
	Status  interface{} `json:"status"`
	Comment *string     `json:"comment"`
}

func (r ModerationRequest) input() usecase.ModerationInput {
	status := ""
	switch v := r.Status.(type) {
	case string:
		status = v
	case float64:
		status = fmt.Sprintf("%d", int(v))
	}
	return usecase.ModerationInput{Status: status, Comment: r.Comment}
}

func (h *AdminHandler) RegisterRoutes(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository) {
	admin := e.Group("/cp", adminChain(cfg, userRepo)...)

	admin.GET("/ads", h.listOrders)
	admin.PUT("/ads/:id/is_block", h.blockOrder)
	admin.PUT("/ads/:id/moderation", h.moderateOrder)
	admin.DELETE("/ads/:id", h.removeOrder)

	admin.GET("/events", h.listEvents)
	admin.PUT("/events/:id/moderation", h.moderateEvent)

	admin.GET("/audit-logs", h.listAuditLogs)

	admin.POST("/notifications", h.broadcastNotification)
}

func (h *AdminHandler) listOrders(c echo.Context) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, msgAuth)
	}
	p := newQueryParser(c)
	f := orderFilter(p)
	f.Stages = p.Stages("stages")
	f.Statuses = p.Statuses("statuses")
	f.UserID = p.Int64("user_id")
	f.IsBlock = p.Bool("is_block")
	if err := p.Err(); err != nil {
		return writeError(c, h.log, err)
	}

	out, pg, err := h.orders.AdminSearch(c.Request().Context(), actor, f)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return writePage(c, out, pg)
}

func (h *AdminHandler) blockOrder(c echo.Context) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, msgAuth)
	}
	id, err := parseID(c, "id")
	if err != nil {
		return writeError(c, h.log, err)
	}
	var req BlockRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}

	out, err := h.orders.Block(c.Request().Context(), actor, id, usecase.BlockInput{IsBlock: req.IsBlock, Comment: req.Comment})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return writeData(c, out)
}

func (h *AdminHandler) moderateOrder(c echo.Context) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, msgAuth)
	}
	id, err := parseID(c, "id")
	if err != nil {
		return writeError(c, h.log, err)
	}
	var req ModerationRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}

	out, err := h.orders.Moderate(c.Request().Context(), actor, id, req.input())
	if err != nil {
		return writeError(c, h.log, err)
	}
	return writeData(c, out)
}

func (h *AdminHandler) removeOrder(c echo.Context) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, msgAuth)
	}
	id, err := parseID(c, "id")
	if err != nil {
		return writeError(c, h.log, err)
	}

	if err := h.orders.Remove(c.Request().Context(), actor, id); err != nil {
		return writeError(c, h.log, err)
	}
	return writeData(c, nil)
}

func (h *AdminHandler) listEvents(c echo.Context) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, msgAuth)
	}
	p := newQueryParser(c)
	f := eventFilter(p)
	if err := p.Err(); err != nil {
		return writeError(c, h.log, err)
	}

	out, pg, err := h.events.AdminSearch(c.Request().Context(), actor, f)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return writePage(c, out, pg)
}

func (h *AdminHandler) moderateEvent(c echo.Context) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, msgAuth)
	}
	id, err := parseID(c, "id")
	if err != nil {
		return writeError(c, h.log, err)
	}
	var req ModerationRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}

	out, err := h.events.Moderate(c.Request().Context(), actor, id, req.input())
	if err != nil {
		return writeError(c, h.log, err)
	}
	return writeData(c, out)
}

func (h *AdminHandler) listAuditLogs(c echo.Context) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, msgAuth)
	}
	p := newQueryParser(c)
	f := repository.AuditLogFilter{
		Page:        p.Page(),
		ActorUserID: p.Int64("actor_user_id"),
		ResourceID:  p.Int64("resource_id"),
		CreatedFrom: p.Time("from"),
		CreatedTo:   p.Time("to"),
	}
	if v := p.String("action"); v != nil {
		a := model.AuditAction(*v)
		f.Action = &a
	}
	if v := p.String("resource_type"); v != nil {
		rt := model.AuditResourceType(*v)
		f.ResourceType = &rt
	}
	if err := p.Err(); err != nil {
		return writeError(c, h.log, err)
	}

	out, pg, err := h.audit.List(c.Request().Context(), actor, f)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return writePage(c, out, pg)
}

func (h *AdminHandler) broadcastNotification(c echo.Context) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, msgAuth)
	}
	var req BroadcastRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}

	out, err := h.broadcast.Broadcast(c.Request().Context(), actor, usecase.BroadcastInput{Title: req.Title, Body: req.Body})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return writeData(c, out)
}
