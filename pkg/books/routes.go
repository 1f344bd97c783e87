package books

import (
	"github.com/labstack/echo/v4"
	"github.com/shelfkeep/shelfkeep/pkg/auth"
	"github.com/shelfkeep/shelfkeep/pkg/models"
)

// RegisterRoutesWithGroup registers book routes on a pre-configured group.
// Reading the catalog doesn't require a session.
func RegisterRoutesWithGroup(g *echo.Group, bookService *Service, authMiddleware *auth.Middleware) {
	h := &handler{
		bookService: bookService,
	}

	canWrite := []echo.MiddlewareFunc{
		authMiddleware.Authenticate,
		authMiddleware.RequirePermission(models.ResourceBooks, models.OperationWrite),
	}

	g.GET("", h.list)
	g.GET("/:id", h.retrieve)
	g.POST("", h.create, canWrite...)
	g.PATCH("/:id", h.update, canWrite...)
	g.DELETE("/:id", h.deleteBook, canWrite...)
}
