package auth

import (
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/shelfkeep/shelfkeep/pkg/errcodes"
	"github.com/shelfkeep/shelfkeep/pkg/models"
)

// Middleware provides authentication middleware.
type Middleware struct {
	authService *Service
}

// NewMiddleware creates a new auth middleware.
func NewMiddleware(authService *Service) *Middleware {
	return &Middleware{
		authService: authService,
	}
}

// tokenFromRequest reads the JWT from the Authorization header, falling back
// to the session cookie.
func tokenFromRequest(c echo.Context) string {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return strings.TrimSpace(token)
	}

	cookie, err := c.Cookie(CookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// Authenticate validates the request's JWT. If valid, it verifies the user is
// still active and stores the user on the context. Otherwise it returns 401.
func (m *Middleware) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		token := tokenFromRequest(c)
		if token == "" {
			return errcodes.Unauthorized("Authentication required")
		}

		claims, err := m.authService.ValidateToken(token)
		if err != nil {
			return errcodes.Unauthorized("Invalid or expired token")
		}

		// Verify user still exists and is active
		user, err := m.authService.GetUserByID(ctx, claims.UserID)
		if err != nil {
			return errcodes.Unauthorized("User not found or inactive")
		}

		c.Set("user_id", user.ID)
		c.Set("user", user)

		return next(c)
	}
}

// RequirePermission returns middleware that checks if the user has the required permission.
// Must be used after Authenticate middleware.
func (m *Middleware) RequirePermission(resource, operation string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user, ok := c.Get("user").(*models.User)
			if !ok {
				return errcodes.Unauthorized("Authentication required")
			}

			if !user.HasPermission(resource, operation) {
				return errcodes.Forbidden("Performing " + operation + " on " + resource)
			}

			return next(c)
		}
	}
}
