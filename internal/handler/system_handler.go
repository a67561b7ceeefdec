package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// DB疎通の確認に使う
type Pinger interface {
	PingContext(ctx context.Context) error
}

// 認証なしのエンドポイント（/healthz, /metrics）
type SystemHandler struct {
	db      Pinger
	metrics http.Handler
}

func NewSystemHandler(db Pinger, metrics http.Handler) *SystemHandler {
	return &SystemHandler{db: db, metrics: metrics}
}

func (h *SystemHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.health)
	if h.metrics != nil {
		e.GET("/metrics", echo.WrapHandler(h.metrics))
	}
}

func (h *SystemHandler) health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	if err := h.db.PingContext(ctx); err != nil {
		return fail(c, http.StatusServiceUnavailable, "database unavailable")
	}
	return writeData(c, map[string]string{"status": "ok"})
}
