package api

import (
	domain "github.com/example/civic-platform/domain/user"
	"github.com/example/civic-platform/logging"
	"github.com/example/civic-platform/modules/auth"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type currentUserKey struct{}

// SetCurrentUser attaches the authenticated user to the request.
func SetCurrentUser(c *fiber.Ctx, user *domain.User) {
	c.Locals(currentUserKey{}, user)
}

// CurrentUser returns the user attached by RequireAuth.
func CurrentUser(c *fiber.Ctx) (*domain.User, bool) {
	user, ok := c.Locals(currentUserKey{}).(*domain.User)
	return user, ok && user != nil
}

// RequireAuth rejects requests without a valid session cookie and attaches
// the resolved user for downstream handlers.
func RequireAuth(port auth.AuthPort, logger *zap.Logger) fiber.Handler {
	logger = logging.OrNop(logger)
	return func(c *fiber.Ctx) error {
		token := c.Cookies(TokenCookie)
		if token == "" {
			return writeError(c, logger, auth.NewAuthenticationError(auth.MsgNotAuthenticated))
		}

		claims, err := port.ValidateToken(c.UserContext(), token)
		if err != nil {
			return writeError(c, logger, err)
		}

		// The token may outlive its user.
		user, err := port.GetUser(c.UserContext(), claims.UserID)
		if err != nil {
			return writeError(c, logger, err)
		}

		SetCurrentUser(c, user)
		return c.Next()
	}
}

// RequireAdmin only lets administrators through. It must run after
// RequireAuth.
func RequireAdmin(logger *zap.Logger) fiber.Handler {
	logger = logging.OrNop(logger)
	return func(c *fiber.Ctx) error {
		user, ok := CurrentUser(c)
		if !ok || !user.IsAdmin {
			return writeError(c, logger, auth.NewAuthorizationError(auth.MsgForbidden))
		}
		return c.Next()
	}
}
