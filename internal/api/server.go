// Package api is the portal's presentation boundary: command routes in,
// pushed state out over websockets. It renders nothing.
package api

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/90brandingllc/poveda-portal-sub001/internal/auth"
	"github.com/90brandingllc/poveda-portal-sub001/internal/config"
	"github.com/90brandingllc/poveda-portal-sub001/internal/domain"
	"github.com/90brandingllc/poveda-portal-sub001/internal/hub"
	"github.com/90brandingllc/poveda-portal-sub001/internal/middleware"
	"github.com/90brandingllc/poveda-portal-sub001/internal/presence"
	"github.com/90brandingllc/poveda-portal-sub001/internal/repository"
	"github.com/90brandingllc/poveda-portal-sub001/internal/service"
)

type Server struct {
	app   *fiber.App
	cfg   *config.Config
	svc   *service.CaseService
	store *repository.Store
	hub   *hub.Hub
	pres  *presence.Store
	log   *zap.SugaredLogger
}

func NewServer(cfg *config.Config, svc *service.CaseService, store *repository.Store, h *hub.Hub, pres *presence.Store, limiter *middleware.RateLimiter, log *zap.SugaredLogger) *Server {
	app := fiber.New()
	app.Use(fiberlogger.New())

	s := &Server{app: app, cfg: cfg, svc: svc, store: store, hub: h, pres: pres, log: log}

	app.Get("/healthz", func(c *fiber.Ctx) error { return c.SendString("ok") })

	limit := limiter.ByKey(userKey)

	api := app.Group("/v1", auth.Middleware(cfg.JWT.Secret))

	cases := api.Group("/cases")
	cases.Post("/:kind", limit, s.createCase)
	cases.Get("/:kind/ws", auth.RequireAdmin(), websocket.New(s.caseListWS))
	cases.Get("/:kind", auth.RequireAdmin(), s.listCases)
	cases.Get("/:kind/:id", s.getCase)
	cases.Post("/:kind/:id/messages", limit, s.appendMessage)
	cases.Patch("/:kind/:id/status", auth.RequireAdmin(), limit, s.changeStatus)
	cases.Delete("/:kind/:id", auth.RequireAdmin(), limit, s.deleteCase)

	api.Get("/notifications/ws", auth.RequireAdmin(), websocket.New(s.notificationsWS))
	api.Get("/admins/online", auth.RequireAdmin(), s.onlineAdmins)

	return s
}

func (s *Server) App() *fiber.App { return s.app }

func (s *Server) Listen() error {
	return s.app.Listen(fmt.Sprintf(":%d", s.cfg.App.Port))
}

func (s *Server) Shutdown() error { return s.app.Shutdown() }

func userKey(c *fiber.Ctx) string {
	if claims := auth.FromCtx(c); claims != nil {
		return claims.UserID
	}
	return c.IP()
}

// parseKind maps the plural path segment to the case kind.
func parseKind(segment string) (domain.Kind, error) {
	switch segment {
	case "tickets":
		return domain.KindTicket, nil
	case "estimates":
		return domain.KindEstimate, nil
	case "appointments":
		return domain.KindAppointment, nil
	}
	return "", fmt.Errorf("unknown case collection %q", segment)
}
