package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/echo/v4/health"
	"github.com/robinjoseph08/golib/echo/v4/middleware/logger"
	"github.com/robinjoseph08/golib/echo/v4/middleware/recovery"
	"github.com/shelfkeep/shelfkeep/pkg/auth"
	"github.com/shelfkeep/shelfkeep/pkg/authors"
	"github.com/shelfkeep/shelfkeep/pkg/binder"
	"github.com/shelfkeep/shelfkeep/pkg/books"
	"github.com/shelfkeep/shelfkeep/pkg/borrows"
	"github.com/shelfkeep/shelfkeep/pkg/clock"
	"github.com/shelfkeep/shelfkeep/pkg/config"
	"github.com/shelfkeep/shelfkeep/pkg/errcodes"
	"github.com/shelfkeep/shelfkeep/pkg/inventory"
	"github.com/shelfkeep/shelfkeep/pkg/requests"
	"github.com/shelfkeep/shelfkeep/pkg/roles"
	"github.com/shelfkeep/shelfkeep/pkg/testutils"
	"github.com/shelfkeep/shelfkeep/pkg/users"
	"github.com/uptrace/bun"
)

// New builds the HTTP server. clk decides which calendar day "today" is for
// every due date check.
func New(cfg *config.Config, db *bun.DB, clk *clock.Clock) (*http.Server, error) {
	e, err := newEcho(cfg, db, clk)
	if err != nil {
		return nil, err
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.ServerHost, cfg.ServerPort),
		Handler:           e,
		ReadHeaderTimeout: 3 * time.Second,
	}

	return srv, nil
}

func newEcho(cfg *config.Config, db *bun.DB, clk *clock.Clock) (*echo.Echo, error) {
	e := echo.New()

	b, err := binder.New()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	e.Binder = b
	e.JSONSerializer = binder.JSONSerializer{}

	e.Use(logger.Middleware())
	e.Use(recovery.Middleware())
	e.Use(middleware.CORS())

	health.RegisterRoutes(e)

	authService := auth.NewService(db, cfg.JWTSecret)
	authMiddleware := auth.NewMiddleware(authService)
	auth.RegisterRoutesWithGroup(e.Group("/auth"), authService, authMiddleware, clk)

	// The catalog is public; its write routes authenticate on their own.
	authors.RegisterRoutesWithGroup(e.Group("/authors"), db, authMiddleware)
	ledger := inventory.NewLedger(clk)
	books.RegisterRoutesWithGroup(e.Group("/books"), books.NewService(db, ledger), authMiddleware)

	borrowService := borrows.NewService(db, clk, ledger, cfg.DefaultLoanDays)
	registerProtectedRoutes(e, db, clk, borrowService, authMiddleware)

	config.RegisterRoutesWithGroup(e.Group("/config"), cfg)

	if cfg.Environment == "test" {
		testutils.RegisterRoutes(e, db)
	}

	echo.NotFoundHandler = notFoundHandler
	e.HTTPErrorHandler = errcodes.NewHandler().Handle

	return e, nil
}

// registerProtectedRoutes registers the routes that need a session. Each route
// checks its own permission.
func registerProtectedRoutes(e *echo.Echo, db *bun.DB, clk *clock.Clock, borrowService *borrows.Service, authMiddleware *auth.Middleware) {
	borrowsGroup := e.Group("/borrows")
	borrowsGroup.Use(authMiddleware.Authenticate)
	borrows.RegisterRoutesWithGroup(borrowsGroup, borrowService, authMiddleware)

	requestsGroup := e.Group("/requests")
	requestsGroup.Use(authMiddleware.Authenticate)
	requests.RegisterRoutesWithGroup(requestsGroup, requests.NewService(db, clk, borrowService), authMiddleware)

	usersGroup := e.Group("/users")
	usersGroup.Use(authMiddleware.Authenticate)
	users.RegisterRoutesWithGroup(usersGroup, users.NewService(db), authMiddleware)

	rolesGroup := e.Group("/roles")
	rolesGroup.Use(authMiddleware.Authenticate)
	roles.RegisterRoutesWithGroup(rolesGroup, db, authMiddleware)
}

func notFoundHandler(c echo.Context) error {
	c.SetPath("/:path")
	return errcodes.NotFound("Page")
}
