package borrows

import (
	"github.com/labstack/echo/v4"
	"github.com/shelfkeep/shelfkeep/pkg/auth"
	"github.com/shelfkeep/shelfkeep/pkg/models"
)

// RegisterRoutesWithGroup registers borrow routes on a pre-configured group.
func RegisterRoutesWithGroup(g *echo.Group, borrowService *Service, authMiddleware *auth.Middleware) {
	h := &handler{borrowService: borrowService}

	g.GET("", h.list, authMiddleware.RequirePermission(models.ResourceBorrows, models.OperationRead))
	g.GET("/:id", h.retrieve, authMiddleware.RequirePermission(models.ResourceBorrows, models.OperationRead))
	g.POST("", h.create, authMiddleware.RequirePermission(models.ResourceBorrows, models.OperationWrite))
	g.PATCH("/:id", h.update, authMiddleware.RequirePermission(models.ResourceBorrows, models.OperationWrite))
	g.POST("/:id/return", h.returnBorrow, authMiddleware.RequirePermission(models.ResourceBorrows, models.OperationWrite))
}
