package auth

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/shelfkeep/shelfkeep/pkg/clock"
	"github.com/shelfkeep/shelfkeep/pkg/models"
)

const (
	// CookieName is the name of the session cookie.
	CookieName = "shelfkeep_session"
	// CookieMaxAge is how long the cookie is valid.
	CookieMaxAge = 7 * 24 * time.Hour // 7 days
)

type handler struct {
	authService *Service
	clock       *clock.Clock
}

// buildMeResponse builds a MeResponse from a user model.
func buildMeResponse(user *models.User) *MeResponse {
	permissions := make([]string, 0)
	roleName := ""
	if user.Role != nil {
		roleName = user.Role.Name
		for _, p := range user.Role.Permissions {
			permissions = append(permissions, p.Resource+":"+p.Operation)
		}
	}

	return &MeResponse{
		ID:          user.ID,
		Email:       user.Email,
		FirstName:   user.FirstName,
		LastName:    user.LastName,
		RoleID:      user.RoleID,
		RoleName:    roleName,
		Permissions: permissions,
	}
}

func sessionCookie(c echo.Context, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   c.Request().TLS != nil || c.Request().Header.Get("X-Forwarded-Proto") == "https",
		SameSite: http.SameSiteLaxMode,
	}
}

// startSession issues a token for user, sets it as the session cookie and
// returns it in the body.
func (h *handler) startSession(c echo.Context, status int, user *models.User) error {
	token, err := h.authService.GenerateToken(user)
	if err != nil {
		return errors.WithStack(err)
	}

	c.SetCookie(sessionCookie(c, token, int(CookieMaxAge.Seconds())))

	return errors.WithStack(c.JSON(status, LoginResponse{
		Token: token,
		User:  buildMeResponse(user),
	}))
}

func (h *handler) login(c echo.Context) error {
	ctx := c.Request().Context()

	params := LoginPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	user, err := h.authService.Authenticate(ctx, params.Email, params.Password)
	if err != nil {
		return err
	}

	return h.startSession(c, http.StatusOK, user)
}

func (h *handler) logout(c echo.Context) error {
	c.SetCookie(sessionCookie(c, "", -1))

	return errors.WithStack(c.JSON(http.StatusOK, map[string]string{"message": "Logged out successfully"}))
}

// register creates a member account and logs it in.
func (h *handler) register(c echo.Context) error {
	ctx := c.Request().Context()

	params := RegisterPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	user, err := h.authService.Register(ctx, params.options())
	if err != nil {
		return err
	}

	return h.startSession(c, http.StatusCreated, user)
}

// me returns the current user along with the books they still have out.
func (h *handler) me(c echo.Context) error {
	ctx := c.Request().Context()
	user := c.Get("user").(*models.User)

	borrows, err := h.authService.ActiveBorrows(ctx, user.ID, h.clock.Today())
	if err != nil {
		return err
	}

	resp := buildMeResponse(user)
	resp.Borrows = borrows

	return errors.WithStack(c.JSON(http.StatusOK, resp))
}

// status returns whether the app needs initial setup.
func (h *handler) status(c echo.Context) error {
	ctx := c.Request().Context()

	count, err := h.authService.CountUsers(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, StatusResponse{
		NeedsSetup: count == 0,
	}))
}

// setup creates the first admin user.
func (h *handler) setup(c echo.Context) error {
	ctx := c.Request().Context()

	params := RegisterPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	user, err := h.authService.CreateFirstAdmin(ctx, params.options())
	if err != nil {
		return err
	}

	return h.startSession(c, http.StatusOK, user)
}
