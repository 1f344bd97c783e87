package testutils

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/shelfkeep/shelfkeep/pkg/auth"
	"github.com/shelfkeep/shelfkeep/pkg/errcodes"
	"github.com/shelfkeep/shelfkeep/pkg/models"
	"github.com/uptrace/bun"
)

type handler struct {
	db *bun.DB
}

type createUserRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Role     string `json:"role" validate:"omitempty,oneof=admin member"`
}

type createUserResponse struct {
	ID    int    `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// createUser creates an active user, an admin unless role says otherwise.
// POST /test/users.
func (h *handler) createUser(c echo.Context) error {
	ctx := c.Request().Context()

	var req createUserRequest
	if err := c.Bind(&req); err != nil {
		return errors.WithStack(err)
	}
	if req.Role == "" {
		req.Role = models.RoleAdmin
	}

	role := &models.Role{}
	err := h.db.NewSelect().
		Model(role).
		Where("name = ?", req.Role).
		Scan(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to get role")
	}

	hashedPassword, err := auth.HashPassword(req.Password)
	if err != nil {
		return errors.Wrap(err, "failed to hash password")
	}

	now := time.Now()
	user := &models.User{
		CreatedAt:    now,
		UpdatedAt:    now,
		Email:        auth.NormalizeEmail(req.Email),
		PasswordHash: hashedPassword,
		FirstName:    "Test",
		LastName:     req.Role,
		RoleID:       role.ID,
		IsActive:     true,
	}

	_, err = h.db.NewInsert().Model(user).Exec(ctx)
	if err != nil {
		return errcodes.AlreadyExists("User")
	}

	return errors.WithStack(c.JSON(http.StatusCreated, createUserResponse{
		ID:    user.ID,
		Email: user.Email,
		Role:  role.Name,
	}))
}

type deleteAllDataResponse struct {
	Deleted map[string]int64 `json:"deleted"`
}

// deleteAllData empties every circulation and catalog table along with all
// users. Roles are kept.
// DELETE /test/data.
func (h *handler) deleteAllData(c echo.Context) error {
	ctx := c.Request().Context()

	// Children before parents so foreign keys hold without cascades.
	tables := []struct {
		name  string
		model interface{}
	}{
		{"book_requests", (*models.BookRequest)(nil)},
		{"borrows", (*models.Borrow)(nil)},
		{"books", (*models.Book)(nil)},
		{"authors", (*models.Author)(nil)},
		{"users", (*models.User)(nil)},
	}

	resp := deleteAllDataResponse{Deleted: map[string]int64{}}
	err := h.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		for _, table := range tables {
			result, err := tx.NewDelete().
				Model(table.model).
				Where("1=1").
				Exec(ctx)
			if err != nil {
				return errors.Wrapf(err, "failed to delete %s", table.name)
			}
			resp.Deleted[table.name], _ = result.RowsAffected()
		}
		return nil
	})
	if err != nil {
		return err
	}

	return errors.WithStack(c.JSON(http.StatusOK, resp))
}
