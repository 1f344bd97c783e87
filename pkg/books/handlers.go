package books

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
	bookService *Service
}

func (h *handler) retrieve(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Book")
	}

	book, err := h.bookService.RetrieveBook(ctx, RetrieveBookOptions{
		ID: &id,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, book))
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()

	params := ListBooksQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	books, total, err := h.bookService.ListBooksWithTotal(ctx, ListBooksOptions{
		Limit:      &params.Limit,
		Offset:     &params.Offset,
		Title:      params.Title,
		AuthorID:   params.AuthorID,
		AuthorName: params.Author,
		Genre:      params.Genre,
		Available:  params.Available,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	response := map[string]interface{}{
		"books": books,
		"total": total,
	}

	return errors.WithStack(c.JSON(http.StatusOK, response))
}

func (h *handler) create(c echo.Context) error {
	ctx := c.Request().Context()

	params := CreateBookPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	book := &models.Book{
		Title:       params.Title,
		AuthorID:    params.AuthorID,
		Description: params.Description,
		Genre:       params.Genre,
		TotalCopies: params.TotalCopies,
	}
	if err := h.bookService.CreateBook(ctx, book); err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusCreated, book))
}

func (h *handler) update(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Book")
	}

	params := UpdateBookPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	book, err := h.bookService.RetrieveBook(ctx, RetrieveBookOptions{
		ID: &id,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	// Keep track of what's been changed
	opts := UpdateBookOptions{Columns: []string{}}

	if params.Title != nil && strings.TrimSpace(*params.Title) != book.Title {
		book.Title = strings.TrimSpace(*params.Title)
		if book.Title == "" {
			return errcodes.ValidationError(`"title" can't be blank`)
		}
		opts.Columns = append(opts.Columns, "title")
	}
	if params.AuthorID != nil && (book.AuthorID == nil || *params.AuthorID != *book.AuthorID) {
		book.AuthorID = params.AuthorID
		opts.Columns = append(opts.Columns, "author_id")
	}
	if params.Description != nil && *params.Description != book.Description {
		book.Description = *params.Description
		opts.Columns = append(opts.Columns, "description")
	}
	if params.Genre != nil && strings.TrimSpace(*params.Genre) != book.Genre {
		book.Genre = strings.TrimSpace(*params.Genre)
		opts.Columns = append(opts.Columns, "genre")
	}
	if params.TotalCopies != nil && *params.TotalCopies != book.TotalCopies {
		opts.TotalCopies = params.TotalCopies
	}

	if err := h.bookService.UpdateBook(ctx, book, opts); err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, book))
}

func (h *handler) deleteBook(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Book")
	}

	if err := h.bookService.DeleteBook(ctx, id); err != nil {
		return errors.WithStack(err)
	}

	logger.FromContext(ctx).Info("book deleted", logger.Data{"book_id": id})

	return errors.WithStack(c.NoContent(http.StatusNoContent))
}
