package handler

import (
	"net/http"

	"porto/internal/config"
	"porto/internal/repository"
	"porto/internal/usecase"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type EventHandler struct {
	uc  *usecase.EventUsecase
	log *zap.Logger
}

func NewEventHandler(uc *usecase.EventUsecase, log *zap.Logger) *EventHandler {
	return &EventHandler{uc: uc, log: log}
}

type EventRequest struct {
	Name            *string  `json:"name"`
	Description     *string  `json:"description"`
	Started         *int64   `json:"started"`
	Ended           *int64   `json:"ended"`
	Place           *string  `json:"place"`
	Lat             *float64 `json:"lat"`
	Lon             *float64 `json:"lon"`
	IsPrivate       bool     `json:"is_private"`
	CategoryID      *int64   `json:"category_id"`
	MaxEventMembers *int     `json:"max_event_members"`
	Age             int      `json:"age"`
	Link            *string  `json:"link"`
	Members         []int64  `json:"members"`
}

type MemberRequest struct {
	UserID int64  `json:"user_id"`
	Status string `json:"status"`
}

type StatusRequest struct {
	Status string `json:"status"`
}

func (h *EventHandler) RegisterRoutes(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository) {
	g := e.Group("/events", authChain(cfg, userRepo)...)
	g.GET("", h.search)
	g.POST("", h.create)
	g.GET("/:id", h.detail)

	g.POST("/:id/members", h.addMember)
	g.PUT("/members/:id/status", h.setMemberStatus)
	g.DELETE("/members/:id", h.removeMember)
}

func eventFilter(p *queryParser) repository.EventSearchFilter {
	return repository.EventSearchFilter{
		Page:         p.Page(),
		Name:         p.String("name"),
		Place:        p.String("place"),
		StartedFrom:  p.Time("started_from"),
		StartedTo:    p.Time("started_to"),
		EndedFrom:    p.Time("ended_from"),
		EndedTo:      p.Time("ended_to"),
		IsPrivate:    p.Bool("is_private"),
		MemberUserID: p.Int64("member_id"),
		CreatorID:    p.Int64("user_id"),
		CategoryID:   p.Int64("category_id"),
		Statuses:     p.Statuses("statuses"),
		Near:         p.Near(),
	}
}

func (h *EventHandler) search(c echo.Context) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, msgAuth)
	}
	p := newQueryParser(c)
	f := eventFilter(p)
	if err := p.Err(); err != nil {
		return writeError(c, h.log, err)
	}

	out, pg, err := h.uc.Search(c.Request().Context(), actor, f)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return writePage(c, out, pg)
}

func (h *EventHandler) detail(c echo.Context) error {
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

func (h *EventHandler) create(c echo.Context) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, msgAuth)
	}
	var req EventRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}

	out, err := h.uc.Create(c.Request().Context(), actor, usecase.EventInput{
		Name:            req.Name,
		Description:     req.Description,
		Started:         fromUnix(req.Started),
		Ended:           fromUnix(req.Ended),
		Place:           req.Place,
		Lat:             req.Lat,
		Lon:             req.Lon,
		IsPrivate:       req.IsPrivate,
		CategoryID:      req.CategoryID,
		MaxEventMembers: req.MaxEventMembers,
		Age:             req.Age,
		Link:            req.Link,
		Members:         req.Members,
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return writeData(c, out)
}

func (h *EventHandler) addMember(c echo.Context) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, msgAuth)
	}
	id, err := parseID(c, "id")
	if err != nil {
		return writeError(c, h.log, err)
	}
	var req MemberRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	//user_id省略は自分の参加申請
	if req.UserID == 0 {
		req.UserID = actor.UserID
	}

	out, err := h.uc.AddMember(c.Request().Context(), actor, id, usecase.MemberInput{UserID: req.UserID, Status: req.Status})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return writeData(c, out)
}

func (h *EventHandler) setMemberStatus(c echo.Context) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, msgAuth)
	}
	id, err := parseID(c, "id")
	if err != nil {
		return writeError(c, h.log, err)
	}
	var req StatusRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}

	out, err := h.uc.SetMemberStatus(c.Request().Context(), actor, id, req.Status)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return writeData(c, out)
}

func (h *EventHandler) removeMember(c echo.Context) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, msgAuth)
	}
	id, err := parseID(c, "id")
	if err != nil {
		return writeError(c, h.log, err)
	}

	if err := h.uc.RemoveMember(c.Request().Context(), actor, id); err != nil {
		return writeError(c, h.log, err)
	}
	return writeData(c, nil)
}
