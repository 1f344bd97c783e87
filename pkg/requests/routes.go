package requests

import (
	"github.com/labstack/echo/v4"
	"github.com/shelfkeep/shelfkeep/pkg/auth"
	"github.com/shelfkeep/shelfkeep/pkg/models"
)

// RegisterRoutesWithGroup registers book request routes on a pre-configured
// group. Deciding a request is a borrow desk action.
func RegisterRoutesWithGroup(g *echo.Group, requestService *Service, authMiddleware *auth.Middleware) {
	h := &handler{requestService: requestService}

	g.GET("", h.list, authMiddleware.RequirePermission(models.ResourceRequests, models.OperationRead))
	g.GET("/:id", h.retrieve, authMiddleware.RequirePermission(models.ResourceRequests, models.OperationRead))
	g.POST("", h.create, authMiddleware.RequirePermission(models.ResourceRequests, models.OperationWrite))
	g.POST("/:id/approve", h.approve, authMiddleware.RequirePermission(models.ResourceBorrows, models.OperationWrite))
	g.POST("/:id/reject", h.reject, authMiddleware.RequirePermission(models.ResourceBorrows, models.OperationWrite))
}
