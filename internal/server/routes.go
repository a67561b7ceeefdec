package server

import (
	"porto/internal/config"
	"porto/internal/handler"
	"porto/internal/middleware"
	"porto/internal/platform/metrics"
	"porto/internal/repository"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

// Handlers はルートを持つハンドラ一式
type Handlers struct {
	Orders        *handler.OrderHandler
	Offers        *handler.OfferHandler
	Events        *handler.EventHandler
	Notifications *handler.NotificationHandler
	Catalog       *handler.CatalogHandler
	Admin         *handler.AdminHandler
	System        *handler.SystemHandler
}

func NewRouter(
	cfg config.Config,
	log *zap.Logger,
	m *metrics.Metrics,
	userRepo repository.UserRepository,
	h Handlers,
) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger(log))
	if m != nil {
		e.Use(m.Middleware())
	}

	h.System.RegisterRoutes(e)
	h.Orders.RegisterRoutes(e, cfg, userRepo)
	h.Offers.RegisterRoutes(e, cfg, userRepo)
	h.Events.RegisterRoutes(e, cfg, userRepo)
	h.Notifications.RegisterRoutes(e, cfg, userRepo)
	h.Catalog.RegisterRoutes(e, cfg, userRepo)
	h.Admin.RegisterRoutes(e, cfg, userRepo)

	return e
}
