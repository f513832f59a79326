package api

import (
	"github.com/example/civic-platform/logging"
	"github.com/example/civic-platform/modules/auth"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handlers contains HTTP handlers for the auth endpoints.
type Handlers struct {
	auth         auth.AuthPort
	logger       *zap.Logger
	secureCookie bool
}

// NewHandlers creates a new Handlers instance. secureCookie marks the
// session cookie Secure and should be set in production.
func NewHandlers(port auth.AuthPort, logger *zap.Logger, secureCookie bool) *Handlers {
	return &Handlers{
		auth:         port,
		logger:       logging.OrNop(logger),
		secureCookie: secureCookie,
	}
}

func invalidBody() error {
	return auth.NewValidationError(map[string]string{"body": "Invalid request body"})
}

// Register handles POST /api/auth/register.
func (h *Handlers) Register(c *fiber.Ctx) error {
	var in auth.RegisterInput
	if err := c.BodyParser(&in); err != nil {
		return writeError(c, h.logger, invalidBody())
	}

	session, err := h.auth.Register(c.UserContext(), in)
	if err != nil {
		return writeError(c, h.logger, err)
	}

	setTokenCookie(c, session.Token, session.ExpiresAt, h.secureCookie)
	return c.Status(fiber.StatusCreated).JSON(UserResponse{User: session.User})
}

// Login handles POST /api/auth/login.
func (h *Handlers) Login(c *fiber.Ctx) error {
	var in auth.LoginInput
	if err := c.BodyParser(&in); err != nil {
		return writeError(c, h.logger, invalidBody())
	}

	session, err := h.auth.Login(c.UserContext(), in)
	if err != nil {
		return writeError(c, h.logger, err)
	}

	setTokenCookie(c, session.Token, session.ExpiresAt, h.secureCookie)
	return c.Status(fiber.StatusOK).JSON(UserResponse{User: session.User})
}

// Logout handles POST /api/auth/logout. It always succeeds.
func (h *Handlers) Logout(c *fiber.Ctx) error {
	clearTokenCookie(c, h.secureCookie)
	return c.Status(fiber.StatusOK).JSON(MessageResponse{Message: "Logged out successfully"})
}

// CurrentUser handles GET /api/auth/user.
func (h *Handlers) CurrentUser(c *fiber.Ctx) error {
	user, ok := CurrentUser(c)
	if !ok {
		return writeError(c, h.logger, auth.NewAuthenticationError(auth.MsgNotAuthenticated))
	}
	return c.Status(fiber.StatusOK).JSON(UserResponse{User: user})
}

// CheckAdmin handles GET /api/auth/admin.
func (h *Handlers) CheckAdmin(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(AdminResponse{IsAdmin: true})
}

// PromoteUser handles POST /api/auth/users/:id/promote.
func (h *Handlers) PromoteUser(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return writeError(c, h.logger, auth.NewValidationError(map[string]string{"id": "Invalid user id"}))
	}

	user, err := h.auth.PromoteUser(c.UserContext(), uint(id))
	if err != nil {
		return writeError(c, h.logger, err)
	}

	fields := []zap.Field{zap.Uint("user_id", user.ID)}
	if admin, ok := CurrentUser(c); ok {
		fields = append(fields, zap.Uint("by", admin.ID))
	}
	h.logger.Info("user promoted", fields...)
	return c.Status(fiber.StatusOK).JSON(UserResponse{User: user})
}
