package users

import (
	"context"
	"net/http"
	"testing"

	"github.com/robinjoseph08/golib/pointerutil"
	"github.com/shelfkeep/shelfkeep/internal/testgen"
	"github.com/shelfkeep/shelfkeep/pkg/errcodes"
	"github.com/shelfkeep/shelfkeep/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServiceCreate(t *testing.T) {
	t.Parallel()

	db := testgen.NewDB(t)
	svc := NewService(db)
	ctx := context.Background()

	user, err := svc.Create(ctx, CreateUserOptions{
		Email:     "Clerk@Example.com",
		Password:  "password123",
		FirstName: "Desk",
		LastName:  "Clerk",
		City:      pointerutil.String("Lisbon"),
		RoleID:    testgen.RoleID(t, db, models.RoleAdmin),
	})
	require.NoError(t, err)
	assert.Equal(t, "clerk@example.com", user.Email)
	assert.True(t, user.IsActive)
	assert.True(t, user.IsAdmin())
	require.NotNil(t, user.City)
	assert.Equal(t, "Lisbon", *user.City)

	_, err = svc.Create(ctx, CreateUserOptions{
		Email:     "clerk@example.com",
		Password:  "password123",
		FirstName: "Other",
		LastName:  "Clerk",
		RoleID:    testgen.RoleID(t, db, models.RoleMember),
	})
	var codeErr *errcodes.Error
	require.ErrorAs(t, err, &codeErr)
	assert.Equal(t, http.StatusConflict, codeErr.HTTPCode)

	_, err = svc.Create(ctx, CreateUserOptions{
		Email:     "ghost@example.com",
		Password:  "password123",
		FirstName: "No",
		LastName:  "Role",
		RoleID:    999,
	})
	require.ErrorAs(t, err, &codeErr)
	assert.Equal(t, "validation_error", codeErr.Code)
}

func TestServiceResetPassword(t *testing.T) {
	t.Parallel()

	db := testgen.NewDB(t)
	svc := NewService(db)
	ctx := context.Background()
	user := testgen.CreateUser(t, db, testgen.UserOptions{})

	err := svc.ResetPassword(ctx, user.ID, "newpassword123")
	require.NoError(t, err)

	passwordValid, err := svc.VerifyPassword(ctx, user.ID, "newpassword123")
	require.NoError(t, err)
	assert.True(t, passwordValid)

	passwordValid, err = svc.VerifyPassword(ctx, user.ID, testgen.Password)
	require.NoError(t, err)
	assert.False(t, passwordValid)

	assert.ErrorIs(t, svc.ResetPassword(ctx, 999, "newpassword123"), errcodes.NotFound("User"))
}

func TestServiceListAndDeactivate(t *testing.T) {
	t.Parallel()

	db := testgen.NewDB(t)
	svc := NewService(db)
	ctx := context.Background()
	alice := testgen.CreateUser(t, db, testgen.UserOptions{Email: "alice@example.com"})
	testgen.CreateUser(t, db, testgen.UserOptions{Email: "bob@example.com"})

	require.NoError(t, svc.Deactivate(ctx, alice.ID))
	assert.ErrorIs(t, svc.Deactivate(ctx, 999), errcodes.NotFound("User"))

	users, total, err := svc.List(ctx, ListOptions{})
	require.NoError(t, err)
	assert.Len(t, users, 2)
	assert.Equal(t, 2, total)

	active := true
	users, total, err = svc.List(ctx, ListOptions{IsActive: &active})
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "bob@example.com", users[0].Email)
	assert.Equal(t, 1, total)

	users, _, err = svc.List(ctx, ListOptions{Search: pointerutil.String("ALICE")})
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.False(t, users[0].IsActive)
}

func TestServiceUpdate(t *testing.T) {
	t.Parallel()

	db := testgen.NewDB(t)
	svc := NewService(db)
	ctx := context.Background()
	testgen.CreateUser(t, db, testgen.UserOptions{Email: "taken@example.com"})
	user := testgen.CreateUser(t, db, testgen.UserOptions{})

	user.Email = "taken@example.com"
	err := svc.Update(ctx, user, UpdateOptions{Columns: []string{"email"}})
	var codeErr *errcodes.Error
	require.ErrorAs(t, err, &codeErr)
	assert.Equal(t, "already_exists", codeErr.Code)

	user.RoleID = 999
	err = svc.Update(ctx, user, UpdateOptions{Columns: []string{"role_id"}})
	require.ErrorAs(t, err, &codeErr)
	assert.Equal(t, "validation_error", codeErr.Code)

	user.RoleID = testgen.RoleID(t, db, models.RoleAdmin)
	require.NoError(t, svc.Update(ctx, user, UpdateOptions{Columns: []string{"role_id"}}))

	reloaded, err := svc.Retrieve(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.IsAdmin())
}
