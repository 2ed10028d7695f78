package http

import (
	"context"
	stdhttp "net/http"

	"portal-service/internal/auth"
	"portal-service/internal/config"
	"portal-service/internal/http/handler"
	"portal-service/internal/http/middleware"
	"portal-service/pkg/metrics"
	"portal-service/pkg/profiling"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
)

const (
	jsonKeyStatus    = "status"
	statusOK         = "ok"
	requestBodyLimit = "1M"

	perUserRequestsPerSecond = 20
	perUserBurst             = 40
)

type ServerDependencies struct {
	Config         *config.Config
	Logger         zerolog.Logger
	AuthMiddleware *auth.Middleware
	Payments       handler.PaymentService
	PaymentLookup  handler.PaymentLookup
	Resolver       handler.StatusResolver
	Events         handler.EventProducer
	Projects       handler.ProjectGetter
	Notifications  handler.NotificationLister
	Audit          handler.AuditRecorder
	PaymentMetrics *metrics.Payments
	RequestMetrics *metrics.Requests
}

type Server struct {
	echo *echo.Echo
	deps *ServerDependencies
}

func NewServer(deps *ServerDependencies) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.HTTPErrorHandler = CustomHTTPErrorHandler

	e.Server.ReadTimeout = deps.Config.Server.ReadTimeout
	e.Server.WriteTimeout = deps.Config.Server.WriteTimeout

	// Request ID first, so every log line carries it.
	e.Use(middleware.RequestID(deps.Logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(echomiddleware.Logger())
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.BodyLimit(requestBodyLimit))
	if deps.RequestMetrics != nil {
		e.Use(deps.RequestMetrics.Middleware())
	}

	e.Use(middleware.NewGlobalRateLimiter().Middleware())
	strictRateLimiter := middleware.NewStrictRateLimiter()

	paymentHandler := handler.NewPaymentHandler(deps.Payments, deps.PaymentLookup, deps.Resolver, deps.Audit)
	eventHandler := handler.NewEventHandler(deps.Events, deps.Projects)
	adminHandler := handler.NewAdminHandler(deps.Notifications, deps.Audit)

	e.GET("/health", healthCheck)
	metrics.RegisterPaymentsRoute(e, deps.PaymentMetrics)
	if deps.RequestMetrics != nil {
		metrics.RegisterRequestsRoute(e, deps.RequestMetrics)
	}
	profiling.RegisterMemoryRoute(e)

	api := e.Group("/api")
	api.Use(deps.AuthMiddleware.RequireJWT())
	api.Use(middleware.NewRateLimiter(perUserRequestsPerSecond, perUserBurst).Middleware())

	api.GET("/pricing", paymentHandler.Quote)
	api.POST("/projects/:project_id/payments", paymentHandler.StartPayment)
	api.POST("/payments/:intent_id/reconcile", paymentHandler.Reconcile)

	api.POST("/projects/:project_id/events/created", eventHandler.ProjectCreated)
	api.POST("/projects/:project_id/events/assets-uploaded", eventHandler.AssetsUploaded)
	api.POST("/tickets/events/created", eventHandler.TicketCreated)

	requireAdmin := deps.AuthMiddleware.RequireAdmin()
	api.POST("/projects/:project_id/status/resolve", paymentHandler.ResolveStatus, requireAdmin)
	api.POST("/admin/payments/reconcile-pending", paymentHandler.ReconcileAllPending, requireAdmin, strictRateLimiter.Middleware())
	api.GET("/admin/notifications", adminHandler.ListNotifications, requireAdmin)
	api.GET("/admin/audit-events", adminHandler.ListAuditEvents, requireAdmin)

	if deps.Config.App.EnableProfiling {
		profiling.RegisterPprofRoutes(api.Group("/debug/pprof", requireAdmin))
	}

	return &Server{
		echo: e,
		deps: deps,
	}
}

func (s *Server) Start(address string) error {
	return s.echo.Start(address)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Handler exposes the router for tests.
func (s *Server) Handler() stdhttp.Handler {
	return s.echo
}

func healthCheck(c echo.Context) error {
	return c.JSON(stdhttp.StatusOK, map[string]string{
		jsonKeyStatus: statusOK,
	})
}
