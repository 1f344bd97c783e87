package requests

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
	requestService *Service
}

// canDecide reports whether the user handles requests for the library.
func canDecide(user *models.User) bool {
	return user.HasPermission(models.ResourceBorrows, models.OperationWrite)
}

func (h *handler) retrieve(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Book request")
	}

	user := c.Get("user").(*models.User)
	opts := RetrieveRequestOptions{ID: &id}
	if !canDecide(user) {
		opts.UserID = &user.ID
	}

	request, err := h.requestService.RetrieveRequest(ctx, opts)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, request))
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()

	params := ListRequestsQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	opts := ListRequestsOptions{
		Limit:  &params.Limit,
		Offset: &params.Offset,
		UserID: params.UserID,
		BookID: params.BookID,
		Status: params.Status,
	}

	user := c.Get("user").(*models.User)
	if !canDecide(user) {
		opts.UserID = &user.ID
	}

	requests, total, err := h.requestService.ListRequestsWithTotal(ctx, opts)
	if err != nil {
		return errors.WithStack(err)
	}

	response := map[string]interface{}{
		"requests": requests,
		"total":    total,
	}

	return errors.WithStack(c.JSON(http.StatusOK, response))
}

func (h *handler) create(c echo.Context) error {
	ctx := c.Request().Context()

	params := CreateRequestPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	user := c.Get("user").(*models.User)
	opts := CreateRequestOptions{
		UserID: user.ID,
		BookID: params.BookID,
	}
	if params.UserID != nil && canDecide(user) {
		opts.UserID = *params.UserID
	}
	if params.DesiredDueDate != nil {
		desired, err := clock.ParseDate(*params.DesiredDueDate)
		if err != nil {
			return errcodes.ValidationError(`"desired_due_date" should be in the format of YYYY-MM-DD`)
		}
		opts.DesiredDueDate = &desired
	}

	request, err := h.requestService.CreateRequest(ctx, opts)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusCreated, request))
}

func (h *handler) approve(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Book request")
	}

	request, err := h.requestService.ApproveRequest(ctx, id)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, request))
}

func (h *handler) reject(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Book request")
	}

	params := RejectRequestPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	request, err := h.requestService.RejectRequest(ctx, id, params.Reason)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, request))
}
