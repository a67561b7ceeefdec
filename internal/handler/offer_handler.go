package handler

import (
	"net/http"

	"porto/internal/config"
	"porto/internal/repository"
	"porto/internal/usecase"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type OfferHandler struct {
	uc  *usecase.OfferUsecase
	log *zap.Logger
}

func NewOfferHandler(uc *usecase.OfferUsecase, log *zap.Logger) *OfferHandler {
	return &OfferHandler{uc: uc, log: log}
}

type OfferRequest struct {
	Text string `json:"text"`
}

type WinnerRequest struct {
	IsWinner bool `json:"is_winner"`
}

func (h *OfferHandler) RegisterRoutes(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository) {
	mw := authChain(cfg, userRepo)
	e.POST("/ads/:id/offers", h.create, mw...)
	e.GET("/ads/:id/offers", h.listForOrder, mw...)
	e.GET("/users/me/offers", h.listMine, mw...)

	g := e.Group("/offers", mw...)
	g.PUT("/:id/is_winner", h.chooseWinner)
	g.DELETE("/:id", h.remove)
}

func (h *OfferHandler) create(c echo.Context) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, msgAuth)
	}
	orderID, err := parseID(c, "id")
	if err != nil {
		return writeError(c, h.log, err)
	}
	var req OfferRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}

	out, err := h.uc.Create(c.Request().Context(), actor, orderID, usecase.OfferInput{Text: req.Text})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return writeData(c, out)
}

func (h *OfferHandler) listForOrder(c echo.Context) error {
	orderID, err := parseID(c, "id")
	if err != nil {
		return writeError(c, h.log, err)
	}
	p := newQueryParser(c)
	page := p.Page()
	if err := p.Err(); err != nil {
		return writeError(c, h.log, err)
	}

	out, pg, err := h.uc.ListForOrder(c.Request().Context(), orderID, page)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return writePage(c, out, pg)
}

func (h *OfferHandler) listMine(c echo.Context) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, msgAuth)
	}
	p := newQueryParser(c)
	page := p.Page()
	if err := p.Err(); err != nil {
		return writeError(c, h.log, err)
	}

	out, pg, err := h.uc.ListMine(c.Request().Context(), actor, page)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return writePage(c, out, pg)
}

func (h *OfferHandler) chooseWinner(c echo.Context) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, msgAuth)
	}
	offerID, err := parseID(c, "id")
	if err != nil {
		return writeError(c, h.log, err)
	}
	var req WinnerRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}

	out, err := h.uc.ChooseWinner(c.Request().Context(), actor, offerID, req.IsWinner)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return writeData(c, out)
}

func (h *OfferHandler) remove(c echo.Context) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, msgAuth)
	}
	offerID, err := parseID(c, "id")
	if err != nil {
		return writeError(c, h.log, err)
	}

	if err := h.uc.Remove(c.Request().Context(), actor, offerID); err != nil {
		return writeError(c, h.log, err)
	}
	return writeData(c, nil)
}
