package authors

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/shelfkeep/shelfkeep/pkg/errcodes"
	"github.com/shelfkeep/shelfkeep/pkg/models"
)

type handler struct {
	authorService *Service
}

func (h *handler) retrieve(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Author")
	}

	author, err := h.authorService.RetrieveAuthor(ctx, RetrieveAuthorOptions{
		ID: &id,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, author))
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()

	params := ListAuthorsQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	authors, total, err := h.authorService.ListAuthorsWithTotal(ctx, ListAuthorsOptions{
		Limit:  &params.Limit,
		Offset: &params.Offset,
		Search: params.Search,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	response := map[string]interface{}{
		"authors": authors,
		"total":   total,
	}

	return errors.WithStack(c.JSON(http.StatusOK, response))
}

func (h *handler) create(c echo.Context) error {
	ctx := c.Request().Context()

	params := CreateAuthorPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	author := &models.Author{
		FirstName: params.FirstName,
		LastName:  params.LastName,
		Bio:       params.Bio,
	}
	if err := h.authorService.CreateAuthor(ctx, author); err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusCreated, author))
}

func (h *handler) update(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Author")
	}

	params := UpdateAuthorPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	author, err := h.authorService.RetrieveAuthor(ctx, RetrieveAuthorOptions{
		ID: &id,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	// Keep track of what's been changed
	opts := UpdateAuthorOptions{Columns: []string{}}

	if params.FirstName != nil && strings.TrimSpace(*params.FirstName) != author.FirstName {
		author.FirstName = strings.TrimSpace(*params.FirstName)
		opts.Columns = append(opts.Columns, "first_name")
	}
	if params.LastName != nil && strings.TrimSpace(*params.LastName) != author.LastName {
		author.LastName = strings.TrimSpace(*params.LastName)
		opts.Columns = append(opts.Columns, "last_name")
	}
	if params.Bio != nil && *params.Bio != author.Bio {
		author.Bio = *params.Bio
		opts.Columns = append(opts.Columns, "bio")
	}

	if author.FirstName == "" || author.LastName == "" {
		return errcodes.ValidationError("Author names can't be blank.")
	}

	if err := h.authorService.UpdateAuthor(ctx, author, opts); err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, author))
}

func (h *handler) deleteAuthor(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Author")
	}

	if err := h.authorService.DeleteAuthor(ctx, id); err != nil {
		return errors.WithStack(err)
	}

	logger.FromContext(ctx).Info("author deleted", logger.Data{"author_id": id})

	return errors.WithStack(c.NoContent(http.StatusNoContent))
}
