package authors

import (
	"github.com/labstack/echo/v4"
	"github.com/shelfkeep/shelfkeep/pkg/auth"
	"github.com/shelfkeep/shelfkeep/pkg/models"
	"github.com/uptrace/bun"
)

// RegisterRoutesWithGroup registers author routes on a pre-configured group.
// Reading the catalog doesn't require a session.
func RegisterRoutesWithGroup(g *echo.Group, db *bun.DB, authMiddleware *auth.Middleware) {
	h := &handler{
		authorService: NewService(db),
	}

	canWrite := []echo.MiddlewareFunc{
		authMiddleware.Authenticate,
		authMiddleware.RequirePermission(models.ResourceAuthors, models.OperationWrite),
	}

	g.GET("", h.list)
	g.GET("/:id", h.retrieve)
	g.POST("", h.create, canWrite...)
	g.PATCH("/:id", h.update, canWrite...)
	g.DELETE("/:id", h.deleteAuthor, canWrite...)
}
