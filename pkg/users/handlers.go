package users

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/shelfkeep/shelfkeep/pkg/auth"
	"github.com/shelfkeep/shelfkeep/pkg/errcodes"
	"github.com/shelfkeep/shelfkeep/pkg/models"
)

type handler struct {
	userService *Service
}

func (h *handler) create(c echo.Context) error {
	ctx := c.Request().Context()

	params := CreateUserPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	user, err := h.userService.Create(ctx, CreateUserOptions(params))
	if err != nil {
		return err
	}

	return errors.WithStack(c.JSON(http.StatusCreated, user))
}

func (h *handler) retrieve(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("User")
	}

	user, err := h.userService.Retrieve(ctx, id)
	if err != nil {
		return err
	}

	return errors.WithStack(c.JSON(http.StatusOK, user))
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()

	params := ListUsersQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	users, total, err := h.userService.List(ctx, ListOptions(params))
	if err != nil {
		return err
	}

	resp := struct {
		Users []*models.User `json:"users"`
		Total int            `json:"total"`
	}{users, total}

	return errors.WithStack(c.JSON(http.StatusOK, resp))
}

func (h *handler) update(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("User")
	}

	params := UpdateUserPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	user, err := h.userService.Retrieve(ctx, id)
	if err != nil {
		return err
	}

	opts := UpdateOptions{Columns: []string{}}

	if params.Email != nil && auth.NormalizeEmail(*params.Email) != user.Email {
		user.Email = auth.NormalizeEmail(*params.Email)
		opts.Columns = append(opts.Columns, "email")
	}
	if params.FirstName != nil && *params.FirstName != user.FirstName {
		user.FirstName = *params.FirstName
		opts.Columns = append(opts.Columns, "first_name")
	}
	if params.LastName != nil && *params.LastName != user.LastName {
		user.LastName = *params.LastName
		opts.Columns = append(opts.Columns, "last_name")
	}
	if params.Phone != nil {
		user.Phone = params.Phone
		opts.Columns = append(opts.Columns, "phone")
	}
	if params.City != nil {
		user.City = params.City
		opts.Columns = append(opts.Columns, "city")
	}
	if params.RoleID != nil && *params.RoleID != user.RoleID {
		user.RoleID = *params.RoleID
		opts.Columns = append(opts.Columns, "role_id")
	}
	if params.IsActive != nil && *params.IsActive != user.IsActive {
		if !*params.IsActive && c.Get("user_id") == id {
			return errcodes.ValidationError("You cannot deactivate your own account")
		}
		user.IsActive = *params.IsActive
		opts.Columns = append(opts.Columns, "is_active")
	}

	err = h.userService.Update(ctx, user, opts)
	if err != nil {
		return err
	}

	user, err = h.userService.Retrieve(ctx, id)
	if err != nil {
		return err
	}

	return errors.WithStack(c.JSON(http.StatusOK, user))
}

func (h *handler) resetPassword(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("User")
	}

	params := ResetPasswordPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	// Check if this is a self-reset
	currentUserID, _ := c.Get("user_id").(int)
	isSelf := currentUserID == id

	if isSelf {
		// Self-reset requires current password
		if params.CurrentPassword == nil || *params.CurrentPassword == "" {
			return errcodes.ValidationError("Current password is required when resetting your own password")
		}

		valid, err := h.userService.VerifyPassword(ctx, id, *params.CurrentPassword)
		if err != nil {
			return err
		}
		if !valid {
			return errcodes.ValidationError("Current password is incorrect")
		}
	} else {
		// Non-self reset requires users:write permission
		user, ok := c.Get("user").(*models.User)
		if !ok {
			return errcodes.Unauthorized("Authentication required")
		}
		if !user.HasPermission(models.ResourceUsers, models.OperationWrite) {
			return errcodes.Forbidden("Resetting another user's password")
		}
	}

	err = h.userService.ResetPassword(ctx, id, params.NewPassword)
	if err != nil {
		return err
	}

	return errors.WithStack(c.JSON(http.StatusOK, map[string]string{"message": "Password reset successfully"}))
}

func (h *handler) deactivate(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("User")
	}

	// Prevent deactivating yourself
	currentUserID, _ := c.Get("user_id").(int)
	if currentUserID == id {
		return errcodes.ValidationError("You cannot deactivate your own account")
	}

	err = h.userService.Deactivate(ctx, id)
	if err != nil {
		return err
	}

	return errors.WithStack(c.JSON(http.StatusOK, map[string]string{"message": "User deactivated successfully"}))
}
