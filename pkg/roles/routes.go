package roles

import (
	"github.com/labstack/echo/v4"
	"github.com/shelfkeep/shelfkeep/pkg/auth"
	"github.com/shelfkeep/shelfkeep/pkg/models"
	"github.com/uptrace/bun"
)

// RegisterRoutesWithGroup mounts role management on g, which must already run
// authMiddleware.Authenticate. Roles are part of user management and share the
// users permissions.
func RegisterRoutesWithGroup(g *echo.Group, db *bun.DB, authMiddleware *auth.Middleware) {
	h := &handler{roleService: NewService(db)}

	g.GET("", h.list, authMiddleware.RequirePermission(models.ResourceUsers, models.OperationRead))
	g.GET("/:id", h.retrieve, authMiddleware.RequirePermission(models.ResourceUsers, models.OperationRead))
	g.POST("", h.create, authMiddleware.RequirePermission(models.ResourceUsers, models.OperationWrite))
	g.PATCH("/:id", h.update, authMiddleware.RequirePermission(models.ResourceUsers, models.OperationWrite))
	g.DELETE("/:id", h.delete, authMiddleware.RequirePermission(models.ResourceUsers, models.OperationWrite))
}
