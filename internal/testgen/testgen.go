// Package testgen provides database fixtures for tests: migrated SQLite
// databases and builders for users, authors, books, borrows and requests.
package testgen

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shelfkeep/shelfkeep/pkg/config"
	"github.com/shelfkeep/shelfkeep/pkg/database"
	"github.com/shelfkeep/shelfkeep/pkg/migrations"
	"github.com/shelfkeep/shelfkeep/pkg/models"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"golang.org/x/crypto/bcrypt"
)

// Password is the plain-text password of every generated user.
const Password = "password123"

var sequence atomic.Int64

func next() int64 {
	return sequence.Add(1)
}

// NewDB returns a migrated in-memory SQLite database that is closed when the
// test completes.
func NewDB(t *testing.T) *bun.DB {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	_, err = db.Exec("PRAGMA foreign_keys = ON")
	require.NoError(t, err)

	_, err = migrations.BringUpToDate(context.Background(), db)
	require.NoError(t, err)

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

// NewFileDB returns a migrated SQLite database backed by a temp file and
// opened through database.New, with the same pragmas and retry connector as
// production.
func NewFileDB(t *testing.T) *bun.DB {
	t.Helper()

	cfg := config.NewForTest()
	cfg.DatabaseFilePath = filepath.Join(t.TempDir(), "shelfkeep.db")

	db, err := database.New(cfg)
	require.NoError(t, err)

	_, err = migrations.BringUpToDate(context.Background(), db)
	require.NoError(t, err)

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

// Date returns midnight UTC of the given civil date.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// RoleID looks up a seeded role by name.
func RoleID(t *testing.T, db bun.IDB, name string) int {
	t.Helper()

	role := new(models.Role)
	err := db.NewSelect().
		Model(role).
		Where("name = ?", name).
		Scan(context.Background())
	require.NoError(t, err)

	return role.ID
}

type UserOptions struct {
	Email    string // defaults to a unique address
	Role     string // defaults to models.RoleMember
	Inactive bool
}

// CreateUser inserts a user and returns it with its role and permissions
// loaded, the way the auth middleware stores it on the request.
func CreateUser(t *testing.T, db bun.IDB, opts UserOptions) *models.User {
	t.Helper()
	ctx := context.Background()

	if opts.Email == "" {
		opts.Email = fmt.Sprintf("user%d@example.com", next())
	}
	if opts.Role == "" {
		opts.Role = models.RoleMember
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(Password), bcrypt.MinCost)
	require.NoError(t, err)

	now := time.Now()
	user := &models.User{
		CreatedAt:    now,
		UpdatedAt:    now,
		Email:        opts.Email,
		PasswordHash: string(hash),
		FirstName:    "Test",
		LastName:     "User",
		RoleID:       RoleID(t, db, opts.Role),
		IsActive:     !opts.Inactive,
	}
	_, err = db.NewInsert().Model(user).Exec(ctx)
	require.NoError(t, err)

	err = db.NewSelect().
		Model(user).
		Relation("Role").
		Relation("Role.Permissions").
		WherePK().
		Scan(ctx)
	require.NoError(t, err)

	return user
}

// CreateAuthor inserts an author.
func CreateAuthor(t *testing.T, db bun.IDB, firstName, lastName string) *models.Author {
	t.Helper()

	now := time.Now()
	author := &models.Author{
		CreatedAt: now,
		UpdatedAt: now,
		FirstName: firstName,
		LastName:  lastName,
	}
	_, err := db.NewInsert().Model(author).Exec(context.Background())
	require.NoError(t, err)

	return author
}

type BookOptions struct {
	Title           string // defaults to a unique title
	Genre           string
	AuthorID        *int
	TotalCopies     int
	AvailableCopies *int // defaults to TotalCopies
}

// CreateBook inserts a book directly, bypassing the inventory ledger.
func CreateBook(t *testing.T, db bun.IDB, opts BookOptions) *models.Book {
	t.Helper()

	if opts.Title == "" {
		opts.Title = fmt.Sprintf("Book %d", next())
	}
	available := opts.TotalCopies
	if opts.AvailableCopies != nil {
		available = *opts.AvailableCopies
	}

	now := time.Now()
	book := &models.Book{
		CreatedAt:       now,
		UpdatedAt:       now,
		Title:           opts.Title,
		AuthorID:        opts.AuthorID,
		Genre:           opts.Genre,
		TotalCopies:     opts.TotalCopies,
		AvailableCopies: available,
	}
	_, err := db.NewInsert().Model(book).Exec(context.Background())
	require.NoError(t, err)

	return book
}

// ReloadBook reads the current state of a book.
func ReloadBook(t *testing.T, db bun.IDB, id int) *models.Book {
	t.Helper()

	book := new(models.Book)
	err := db.NewSelect().Model(book).Where("b.id = ?", id).Scan(context.Background())
	require.NoError(t, err)

	return book
}

type BorrowOptions struct {
	UserID     int
	BookID     int
	BorrowedAt time.Time // defaults to now
	DueDate    time.Time
	Status     string // defaults to models.BorrowStatusBorrowed
}

// CreateBorrow inserts a borrow row directly. Inventory is left untouched.
func CreateBorrow(t *testing.T, db bun.IDB, opts BorrowOptions) *models.Borrow {
	t.Helper()

	if opts.BorrowedAt.IsZero() {
		opts.BorrowedAt = time.Now().UTC()
	}
	if opts.Status == "" {
		opts.Status = models.BorrowStatusBorrowed
	}

	borrow := &models.Borrow{
		UserID:     opts.UserID,
		BookID:     opts.BookID,
		BorrowedAt: opts.BorrowedAt,
		DueDate:    opts.DueDate,
		Status:     opts.Status,
	}
	if opts.Status == models.BorrowStatusReturned {
		returnedAt := opts.BorrowedAt
		borrow.ReturnedAt = &returnedAt
	}
	_, err := db.NewInsert().Model(borrow).Exec(context.Background())
	require.NoError(t, err)

	return borrow
}

type RequestOptions struct {
	UserID         int
	BookID         int
	DesiredDueDate time.Time
	Status         string // defaults to models.BookRequestStatusPending
	RejectReason   *string
}

// CreateRequest inserts a book request row directly.
func CreateRequest(t *testing.T, db bun.IDB, opts RequestOptions) *models.BookRequest {
	t.Helper()

	if opts.Status == "" {
		opts.Status = models.BookRequestStatusPending
	}

	now := time.Now()
	request := &models.BookRequest{
		CreatedAt:      now,
		UpdatedAt:      now,
		UserID:         opts.UserID,
		BookID:         opts.BookID,
		DesiredDueDate: opts.DesiredDueDate,
		Status:         opts.Status,
		RejectReason:   opts.RejectReason,
	}
	_, err := db.NewInsert().Model(request).Exec(context.Background())
	require.NoError(t, err)

	return request
}
