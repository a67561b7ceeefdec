package handler

import (
	"context"
	"net/http"

	"porto/internal/config"
	"porto/internal/middleware"
	"porto/internal/repository"
	"porto/internal/usecase"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// 掲載（/ads）の利用者向けAPI
type OrderHandler struct {
	uc  *usecase.OrderUsecase
	log *zap.Logger
}

func NewOrderHandler(uc *usecase.OrderUsecase, log *zap.Logger) *OrderHandler {
	return &OrderHandler{uc: uc, log: log}
}

// 時刻はunix秒
type OrderRequest struct {
	Title          *string  `json:"title"`
	Body           *string  `json:"body"`
	Deadline       *int64   `json:"deadline"`
	Profit         *int64   `json:"profit"`
	Address        *string  `json:"address"`
	Type           *string  `json:"type"`
	SubcategoryID  *int64   `json:"subcategory_id"`
	IsAutoRecreate *bool    `json:"is_auto_recreate"`
	Lat            *float64 `json:"lat"`
	Lon            *float64 `json:"lon"`
}

type FavoriteRequest struct {
	IsFavorite bool `json:"is_favorite"`
}

// 認証済みユーザー用のミドルウェア一式
func authChain(cfg config.Config, userRepo repository.UserRepository) []echo.MiddlewareFunc {
	return []echo.MiddlewareFunc{
		middleware.AuthJWT(cfg.JWT),
		middleware.TokenVersionGuard(userRepo),
	}
}

func (h *OrderHandler) RegisterRoutes(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository) {
	mw := authChain(cfg, userRepo)
	g := e.Group("/ads", mw...)
	g.GET("", h.search)
	g.POST("", h.create)
	g.GET("/:id", h.detail)
	g.PUT("/:id", h.update)
	g.DELETE("/:id", h.remove)
	g.PUT("/:id/is_rejected", h.reject)
	g.PUT("/:id/is_finished", h.finish)
	g.PUT("/:id/is_confirmed", h.confirm)
	g.PUT("/:id/is_favorite", h.favorite)

	e.GET("/users/me/ads", h.listMine, mw...)
	e.GET("/users/:user_id/ads", h.listByUser, mw...)
}

// 一覧系で共通の絞り込み
func orderFilter(p *queryParser) repository.OrderSearchFilter {
	return repository.OrderSearchFilter{
		Page:          p.Page(),
		IsFavorite:    p.Bool("is_favorite"),
		Address:       p.String("address"),
		Type:          p.String("type"),
		Text:          p.String("text"),
		CategoryID:    p.Int64("category_id"),
		SubcategoryID: p.Int64("subcategory_id"),
		ProfitFrom:    p.Int64("profit_from"),
		ProfitTo:      p.Int64("profit_to"),
		DeadlineFrom:  p.Time("deadline_from"),
		DeadlineTo:    p.Time("deadline_to"),
		Near:          p.Near(),
	}
}

func (h *OrderHandler) search(c echo.Context) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, msgAuth)
	}
	p := newQueryParser(c)
	f := orderFilter(p)
	if err := p.Err(); err != nil {
		return writeError(c, h.log, err)
	}

	out, pg, err := h.uc.Search(c.Request().Context(), actor, f)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return writePage(c, out, pg)
}

func (h *OrderHandler) listMine(c echo.Context) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, msgAuth)
	}
	p := newQueryParser(c)
	f := orderFilter(p)
	f.IsWinner = p.Bool("is_winner")
	if err := p.Err(); err != nil {
		return writeError(c, h.log, err)
	}

	out, pg, err := h.uc.ListMine(c.Request().Context(), actor, f)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return writePage(c, out, pg)
}

func (h *OrderHandler) listByUser(c echo.Context) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, msgAuth)
	}
	userID, err := parseID(c, "user_id")
	if err != nil {
		return writeError(c, h.log, err)
	}
	p := newQueryParser(c)
	f := orderFilter(p)
	if err := p.Err(); err != nil {
		return writeError(c, h.log, err)
	}

	out, pg, err := h.uc.ListByUser(c.Request().Context(), actor, userID, f)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return writePage(c, out, pg)
}

func (h *OrderHandler) detail(c echo.Context) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, msgAuth)
	}
	id, err := parseID(c, "id")
	if err != nil {
		return writeError(c, h.log, err)
	}

	out, err := h.uc.Get(c.Request().Context(), actor, id)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return writeData(c, out)
}

func (h *OrderHandler) create(c echo.Context) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, msgAuth)
	}
	var req OrderRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}

	in := usecase.OrderInput{
		Title:         req.Title,
		Body:          req.Body,
		Deadline:      fromUnix(req.Deadline),
		Profit:        req.Profit,
		Address:       req.Address,
		Type:          req.Type,
		Lat:           req.Lat,
		Lon:           req.Lon,
		SubcategoryID: req.SubcategoryID,
	}
	if req.IsAutoRecreate != nil {
		in.IsAutoRecreate = *req.IsAutoRecreate
	}

	out, err := h.uc.Create(c.Request().Context(), actor, in)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return writeData(c, out)
}

func (h *OrderHandler) update(c echo.Context) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, msgAuth)
	}
	id, err := parseID(c, "id")
	if err != nil {
		return writeError(c, h.log, err)
	}
	var req OrderRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}

	out, err := h.uc.Update(c.Request().Context(), actor, id, usecase.OrderPatch{
		Title:          req.Title,
		Body:           req.Body,
		Deadline:       fromUnix(req.Deadline),
		Profit:         req.Profit,
		Address:        req.Address,
		Type:           req.Type,
		Lat:            req.Lat,
		Lon:            req.Lon,
		IsAutoRecreate: req.IsAutoRecreate,
		SubcategoryID:  req.SubcategoryID,
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return writeData(c, out)
}

func (h *OrderHandler) reject(c echo.Context) error {
	return h.stage(c, h.uc.Reject)
}

func (h *OrderHandler) finish(c echo.Context) error {
	return h.stage(c, h.uc.Finish)
}

func (h *OrderHandler) confirm(c echo.Context) error {
	return h.stage(c, h.uc.Confirm)
}

type stageFunc func(ctx context.Context, actor usecase.Actor, orderID int64) (usecase.OrderOutput, error)

func (h *OrderHandler) stage(c echo.Context, fn stageFunc) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, msgAuth)
	}
	id, err := parseID(c, "id")
	if err != nil {
		return writeError(c, h.log, err)
	}

	out, err := fn(c.Request().Context(), actor, id)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return writeData(c, out)
}

func (h *OrderHandler) favorite(c echo.Context) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, msgAuth)
	}
	id, err := parseID(c, "id")
	if err != nil {
		return writeError(c, h.log, err)
	}
	var req FavoriteRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}

	out, err := h.uc.SetFavorite(c.Request().Context(), actor, id, req.IsFavorite)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return writeData(c, out)
}

func (h *OrderHandler) remove(c echo.Context) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, msgAuth)
	}
	id, err := parseID(c, "id")
	if err != nil {
		return writeError(c, h.log, err)
	}

	if err := h.uc.Remove(c.Request().Context(), actor, id); err != nil {
		return writeError(c, h.log, err)
	}
	return writeData(c, nil)
}
