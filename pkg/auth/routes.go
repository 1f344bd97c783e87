package auth

import (
	"github.com/labstack/echo/v4"
	"github.com/shelfkeep/shelfkeep/pkg/clock"
)

// RegisterRoutesWithGroup registers the auth routes on g. /me goes through
// the authentication middleware.
func RegisterRoutesWithGroup(g *echo.Group, authService *Service, authMiddleware *Middleware, clk *clock.Clock) {
	h := &handler{
		authService: authService,
		clock:       clk,
	}

	g.POST("/login", h.login)
	g.POST("/logout", h.logout)
	g.POST("/register", h.register)
	g.GET("/status", h.status)
	g.POST("/setup", h.setup)
	g.GET("/me", h.me, authMiddleware.Authenticate)
}
