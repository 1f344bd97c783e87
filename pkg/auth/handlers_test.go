package auth

import (
	"net/http"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shelfkeep/shelfkeep/internal/testgen"
	"github.com/shelfkeep/shelfkeep/pkg/clock"
	"github.com/shelfkeep/shelfkeep/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

func newTestServer(t *testing.T, db *bun.DB) (*echo.Echo, *Service) {
	t.Helper()

	e := testgen.NewEcho(t)
	svc := NewService(db, "secret")
	clk := clock.NewFixed(testgen.Date(2026, time.March, 10).Add(9*time.Hour), time.UTC)
	RegisterRoutesWithGroup(e.Group("/auth"), svc, NewMiddleware(svc), clk)
	return e, svc
}

func TestHandler_StatusAndSetup(t *testing.T) {
	t.Parallel()

	db := testgen.NewDB(t)
	e, _ := newTestServer(t, db)

	rr := testgen.Do(t, e, http.MethodGet, "/auth/status", "", "")
	testgen.RequireStatus(t, rr, http.StatusOK)
	assert.JSONEq(t, `{"needs_setup":true}`, rr.Body.String())

	payload := `{"email":"admin@example.com","password":"long-enough","first_name":"Head","last_name":"Librarian"}`
	rr = testgen.Do(t, e, http.MethodPost, "/auth/setup", "", payload)
	testgen.RequireStatus(t, rr, http.StatusOK)

	var resp LoginResponse
	testgen.DecodeJSON(t, rr, &resp)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, models.RoleAdmin, resp.User.RoleName)
	assert.Contains(t, resp.User.Permissions, "borrows:write")

	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, CookieName, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)

	rr = testgen.Do(t, e, http.MethodGet, "/auth/status", "", "")
	assert.JSONEq(t, `{"needs_setup":false}`, rr.Body.String())

	rr = testgen.Do(t, e, http.MethodPost, "/auth/setup", "", payload)
	testgen.RequireStatus(t, rr, http.StatusForbidden)
}

func TestHandler_RegisterValidation(t *testing.T) {
	t.Parallel()

	db := testgen.NewDB(t)
	e, _ := newTestServer(t, db)

	rr := testgen.Do(t, e, http.MethodPost, "/auth/register", "", `{"email":"not-an-email","password":"short"}`)
	testgen.RequireStatus(t, rr, http.StatusUnprocessableEntity)

	var body testgen.ErrorBody
	testgen.DecodeJSON(t, rr, &body)
	assert.Equal(t, "validation_error", body.Error.Code)

	rr = testgen.Do(t, e, http.MethodPost, "/auth/register", "",
		`{"email":" reader@example.com ","password":"long-enough","first_name":"Ada","last_name":"Reader"}`)
	testgen.RequireStatus(t, rr, http.StatusCreated)

	var resp LoginResponse
	testgen.DecodeJSON(t, rr, &resp)
	assert.Equal(t, "reader@example.com", resp.User.Email)
	assert.Equal(t, models.RoleMember, resp.User.RoleName)
}

func TestHandler_LoginAndMe(t *testing.T) {
	t.Parallel()

	db := testgen.NewDB(t)
	e, _ := newTestServer(t, db)
	user := testgen.CreateUser(t, db, testgen.UserOptions{Email: "reader@example.com"})
	book := testgen.CreateBook(t, db, testgen.BookOptions{Title: "Dune", TotalCopies: 2})
	other := testgen.CreateBook(t, db, testgen.BookOptions{TotalCopies: 1})
	late := testgen.CreateBook(t, db, testgen.BookOptions{TotalCopies: 1})
	testgen.CreateBorrow(t, db, testgen.BorrowOptions{UserID: user.ID, BookID: book.ID, DueDate: testgen.Date(2026, time.March, 24)})
	// Past due, but not swept yet.
	testgen.CreateBorrow(t, db, testgen.BorrowOptions{UserID: user.ID, BookID: late.ID, DueDate: testgen.Date(2026, time.March, 7)})
	testgen.CreateBorrow(t, db, testgen.BorrowOptions{
		UserID:  user.ID,
		BookID:  other.ID,
		DueDate: testgen.Date(2026, time.February, 1),
		Status:  models.BorrowStatusReturned,
	})

	rr := testgen.Do(t, e, http.MethodPost, "/auth/login", "", `{"email":"reader@example.com","password":"wrong"}`)
	testgen.RequireStatus(t, rr, http.StatusUnauthorized)

	rr = testgen.Do(t, e, http.MethodPost, "/auth/login", "", `{"email":"reader@example.com","password":"`+testgen.Password+`"}`)
	testgen.RequireStatus(t, rr, http.StatusOK)
	var login LoginResponse
	testgen.DecodeJSON(t, rr, &login)

	rr = testgen.Do(t, e, http.MethodGet, "/auth/me", "", "")
	testgen.RequireStatus(t, rr, http.StatusUnauthorized)

	rr = testgen.Do(t, e, http.MethodGet, "/auth/me", login.Token, "")
	testgen.RequireStatus(t, rr, http.StatusOK)

	var me MeResponse
	testgen.DecodeJSON(t, rr, &me)
	assert.Equal(t, user.ID, me.ID)
	require.Len(t, me.Borrows, 2)
	assert.Equal(t, late.ID, me.Borrows[0].BookID)
	assert.Equal(t, models.BorrowStatusOverdue, me.Borrows[0].Status)
	assert.Equal(t, book.ID, me.Borrows[1].BookID)
	assert.Equal(t, models.BorrowStatusBorrowed, me.Borrows[1].Status)
	require.NotNil(t, me.Borrows[1].Book)
	assert.Equal(t, "Dune", me.Borrows[1].Book.Title)
}

func TestMiddleware_Cookie(t *testing.T) {
	t.Parallel()

	db := testgen.NewDB(t)
	e, svc := newTestServer(t, db)
	user := testgen.CreateUser(t, db, testgen.UserOptions{})
	token, err := svc.GenerateToken(user)
	require.NoError(t, err)

	c, rr := testgen.NewContext(t, e, http.MethodGet, "/auth/me", "")
	c.Request().AddCookie(&http.Cookie{Name: CookieName, Value: token})

	called := false
	err = NewMiddleware(svc).Authenticate(func(c echo.Context) error {
		called = true
		assert.Equal(t, user.ID, c.Get("user").(*models.User).ID)
		return nil
	})(c)
	require.NoError(t, err)
	assert.True(t, called)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestMiddleware_InactiveUserRejected(t *testing.T) {
	t.Parallel()

	db := testgen.NewDB(t)
	e, svc := newTestServer(t, db)
	user := testgen.CreateUser(t, db, testgen.UserOptions{Inactive: true})
	token, err := svc.GenerateToken(user)
	require.NoError(t, err)

	rr := testgen.Do(t, e, http.MethodGet, "/auth/me", token, "")
	testgen.RequireStatus(t, rr, http.StatusUnauthorized)
}

func TestMiddleware_RequirePermission(t *testing.T) {
	t.Parallel()

	db := testgen.NewDB(t)
	e := testgen.NewEcho(t)
	svc := NewService(db, "secret")
	mw := NewMiddleware(svc)
	g := e.Group("/guarded", mw.Authenticate)
	g.GET("", func(c echo.Context) error {
		return c.NoContent(http.StatusNoContent)
	}, mw.RequirePermission(models.ResourceUsers, models.OperationWrite))

	member := testgen.CreateUser(t, db, testgen.UserOptions{})
	admin := testgen.CreateUser(t, db, testgen.UserOptions{Role: models.RoleAdmin})
	memberToken, err := svc.GenerateToken(member)
	require.NoError(t, err)
	adminToken, err := svc.GenerateToken(admin)
	require.NoError(t, err)

	rr := testgen.Do(t, e, http.MethodGet, "/guarded", memberToken, "")
	testgen.RequireStatus(t, rr, http.StatusForbidden)

	rr = testgen.Do(t, e, http.MethodGet, "/guarded", adminToken, "")
	testgen.RequireStatus(t, rr, http.StatusNoContent)
}
