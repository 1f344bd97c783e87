package users

import (
	"github.com/labstack/echo/v4"
	"github.com/shelfkeep/shelfkeep/pkg/auth"
	"github.com/shelfkeep/shelfkeep/pkg/models"
)

// RegisterRoutesWithGroup registers user routes on a group that already runs
// the authentication middleware.
func RegisterRoutesWithGroup(g *echo.Group, userService *Service, authMiddleware *auth.Middleware) {
	h := &handler{
		userService: userService,
	}

	// Read routes require users:read permission
	g.GET("", h.list, authMiddleware.RequirePermission(models.ResourceUsers, models.OperationRead))
	g.GET("/:id", h.retrieve, authMiddleware.RequirePermission(models.ResourceUsers, models.OperationRead))

	// Write routes require users:write permission
	g.POST("", h.create, authMiddleware.RequirePermission(models.ResourceUsers, models.OperationWrite))
	g.PATCH("/:id", h.update, authMiddleware.RequirePermission(models.ResourceUsers, models.OperationWrite))
	g.DELETE("/:id", h.deactivate, authMiddleware.RequirePermission(models.ResourceUsers, models.OperationWrite))

	// Password reset is special - authenticated users can reset their own password
	// and users:write is required for resetting another user's password.
	g.POST("/:id/reset-password", h.resetPassword)
}
