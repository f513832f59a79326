package api

import (
	"context"
	"fmt"

	"github.com/example/civic-platform/config"
	"github.com/example/civic-platform/logging"
	"github.com/example/civic-platform/modules/auth"
	"github.com/go-monolith/mono"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"go.uber.org/zap"
)

// APIModule is the HTTP API module.
type APIModule struct {
	cfg         config.Config
	logger      *zap.Logger
	app         *fiber.App
	authAdapter auth.AuthPort
}

// Compile-time interface checks.
var _ mono.Module = (*APIModule)(nil)
var _ mono.DependentModule = (*APIModule)(nil)
var _ mono.HealthCheckableModule = (*APIModule)(nil)

// NewModule creates a new APIModule.
func NewModule(cfg config.Config, logger *zap.Logger) *APIModule {
	return &APIModule{
		cfg:    cfg,
		logger: logging.OrNop(logger).Named("api"),
	}
}

// Name returns the module name.
func (m *APIModule) Name() string {
	return "api"
}

// Dependencies returns the list of module dependencies.
func (m *APIModule) Dependencies() []string {
	return []string{"auth"}
}

// SetDependencyServiceContainer receives service containers from dependencies.
func (m *APIModule) SetDependencyServiceContainer(dependency string, container mono.ServiceContainer) {
	switch dependency {
	case "auth":
		m.authAdapter = auth.NewAuthAdapter(container)
	}
}

// Start builds the Fiber app and serves it in the background.
func (m *APIModule) Start(_ context.Context) error {
	if m.authAdapter == nil {
		return fmt.Errorf("auth dependency not set")
	}

	m.app = NewApp(m.authAdapter, m.logger, m.cfg.IsProduction())

	go func() {
		if err := m.app.Listen(m.cfg.HTTPAddr); err != nil {
			m.logger.Error("HTTP server error", zap.Error(err))
		}
	}()

	m.logger.Info("HTTP server started", zap.String("addr", m.cfg.HTTPAddr))
	return nil
}

// Stop shuts down the Fiber HTTP server.
func (m *APIModule) Stop(ctx context.Context) error {
	if m.app == nil {
		return nil
	}
	m.logger.Info("shutting down HTTP server")
	return m.app.ShutdownWithContext(ctx)
}

// Health returns the health status of the module.
func (m *APIModule) Health(_ context.Context) mono.HealthStatus {
	if m.app == nil {
		return mono.HealthStatus{Healthy: false, Message: "server not started"}
	}
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"addr": m.cfg.HTTPAddr,
		},
	}
}

// NewApp builds the Fiber application serving the auth endpoints on top of
// port.
func NewApp(port auth.AuthPort, log *zap.Logger, production bool) *fiber.App {
	log = logging.OrNop(log)

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler(log),
	})

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${locals:requestid} ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(cors.New())

	h := NewHandlers(port, log, production)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"module": "api",
		})
	})

	authRoutes := app.Group("/api/auth")
	authRoutes.Post("/register", h.Register)
	authRoutes.Post("/login", h.Login)
	authRoutes.Post("/logout", h.Logout)

	requireAuth := RequireAuth(port, log)
	requireAdmin := RequireAdmin(log)

	authRoutes.Get("/user", requireAuth, h.CurrentUser)
	authRoutes.Get("/admin", requireAuth, requireAdmin, h.CheckAdmin)
	authRoutes.Post("/users/:id/promote", requireAuth, requireAdmin, h.PromoteUser)

	return app
}
