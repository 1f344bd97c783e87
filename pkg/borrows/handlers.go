package borrows

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/shelfkeep/shelfkeep/pkg/clock"
	"github.com/shelfkeep/shelfkeep/pkg/errcodes"
	"github.com/shelfkeep/shelfkeep/pkg/models"
)

type handler struct {
	borrowService *Service
}

// canManage reports whether the user may see and act on other users' borrows.
func canManage(user *models.User) bool {
	return user.HasPermission(models.ResourceBorrows, models.OperationWrite)
}

func (h *handler) retrieve(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Borrow")
	}

	user := c.Get("user").(*models.User)
	opts := RetrieveBorrowOptions{ID: &id}
	if !canManage(user) {
		opts.UserID = &user.ID
	}

	borrow, err := h.borrowService.RetrieveBorrow(ctx, opts)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, borrow))
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()

	params := ListBorrowsQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	opts := ListBorrowsOptions{
		Limit:  &params.Limit,
		Offset: &params.Offset,
		UserID: params.UserID,
		BookID: params.BookID,
		Status: params.Status,
	}

	// Members only ever see their own borrows.
	user := c.Get("user").(*models.User)
	if !canManage(user) {
		opts.UserID = &user.ID
	}

	borrows, total, err := h.borrowService.ListBorrowsWithTotal(ctx, opts)
	if err != nil {
		return errors.WithStack(err)
	}

	response := map[string]interface{}{
		"borrows": borrows,
		"total":   total,
	}

	return errors.WithStack(c.JSON(http.StatusOK, response))
}

func (h *handler) create(c echo.Context) error {
	ctx := c.Request().Context()

	params := CreateBorrowPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	opts := CreateBorrowOptions{
		UserID: params.UserID,
		BookID: params.BookID,
	}
	if params.DueDate != nil {
		dueDate, err := clock.ParseDate(*params.DueDate)
		if err != nil {
			return errcodes.ValidationError(`"due_date" should be in the format of YYYY-MM-DD`)
		}
		opts.DueDate = &dueDate
	}

	borrow, err := h.borrowService.CreateBorrow(ctx, opts)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusCreated, borrow))
}

func (h *handler) update(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Borrow")
	}

	params := UpdateBorrowPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	dueDate, err := clock.ParseDate(params.DueDate)
	if err != nil {
		return errcodes.ValidationError(`"due_date" should be in the format of YYYY-MM-DD`)
	}

	borrow, err := h.borrowService.ExtendBorrow(ctx, id, dueDate)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, borrow))
}

func (h *handler) returnBorrow(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Borrow")
	}

	borrow, err := h.borrowService.ReturnBorrow(ctx, id)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, borrow))
}
