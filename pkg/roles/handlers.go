package roles

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/shelfkeep/shelfkeep/pkg/errcodes"
)

type handler struct {
	roleService *Service
}

func roleIDParam(c echo.Context) (int, error) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return 0, errcodes.NotFound("Role")
	}
	return id, nil
}

func (h *handler) retrieve(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := roleIDParam(c)
	if err != nil {
		return err
	}

	role, err := h.roleService.Retrieve(ctx, id)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, role))
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()

	params := ListRolesQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	roles, total, err := h.roleService.List(ctx, ListOptions{
		Limit:  params.Limit,
		Offset: params.Offset,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	response := map[string]interface{}{
		"roles": roles,
		"total": total,
	}

	return errors.WithStack(c.JSON(http.StatusOK, response))
}

// create adds a custom role. Permissions are limited to the circulation
// resources; the service rejects anything else.
func (h *handler) create(c echo.Context) error {
	ctx := c.Request().Context()

	params := CreateRolePayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	role, err := h.roleService.Create(ctx, params.Name, params.Permissions)
	if err != nil {
		return errors.WithStack(err)
	}

	logger.FromContext(ctx).Info("role created", logger.Data{
		"role_id":     role.ID,
		"name":        role.Name,
		"permissions": len(params.Permissions),
	})

	return errors.WithStack(c.JSON(http.StatusCreated, role))
}

func (h *handler) update(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := roleIDParam(c)
	if err != nil {
		return err
	}

	params := UpdateRolePayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	role, err := h.roleService.Update(ctx, id, params.Name, params.Permissions)
	if err != nil {
		return errors.WithStack(err)
	}

	if params.Permissions != nil {
		// Every member of the role picks this up on their next request.
		logger.FromContext(ctx).Info("role permissions replaced", logger.Data{
			"role_id":     role.ID,
			"permissions": len(*params.Permissions),
		})
	}

	return errors.WithStack(c.JSON(http.StatusOK, role))
}

func (h *handler) delete(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := roleIDParam(c)
	if err != nil {
		return err
	}

	if err := h.roleService.Delete(ctx, id); err != nil {
		return errors.WithStack(err)
	}

	logger.FromContext(ctx).Info("role deleted", logger.Data{"role_id": id})

	return errors.WithStack(c.NoContent(http.StatusNoContent))
}
