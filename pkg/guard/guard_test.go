package guard

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shelfkeep/shelfkeep/internal/testgen"
	"github.com/shelfkeep/shelfkeep/pkg/errcodes"
	"github.com/shelfkeep/shelfkeep/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReasonErrors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		err    error
		reason string
	}{
		{OutOfStock(), ReasonOutOfStock},
		{DuplicateActiveBorrow(), ReasonDuplicateActiveBorrow},
		{PastDueDate(), ReasonPastDueDate},
		{AlreadyReturned(), ReasonAlreadyReturned},
		{DuplicatePendingRequest(), ReasonDuplicatePendingRequest},
		{ActiveBorrowExists(), ReasonActiveBorrowExists},
		{NotPending(), ReasonNotPending},
		{MissingReason(), ReasonMissingReason},
	}
	for _, tc := range cases {
		t.Run(tc.reason, func(t *testing.T) {
			var e *errcodes.Error
			require.ErrorAs(t, tc.err, &e)
			assert.Equal(t, http.StatusUnprocessableEntity, e.HTTPCode)
			assert.Equal(t, "validation_error", e.Code)
			assert.Equal(t, tc.reason, errcodes.ReasonOf(tc.err))
		})
	}
}

func TestHasActiveBorrow(t *testing.T) {
	t.Parallel()

	db := testgen.NewDB(t)
	ctx := context.Background()
	user := testgen.CreateUser(t, db, testgen.UserOptions{})
	book := testgen.CreateBook(t, db, testgen.BookOptions{TotalCopies: 2})
	other := testgen.CreateBook(t, db, testgen.BookOptions{TotalCopies: 2})

	exists, err := HasActiveBorrow(ctx, db, user.ID, book.ID)
	require.NoError(t, err)
	assert.False(t, exists)

	testgen.CreateBorrow(t, db, testgen.BorrowOptions{
		UserID:  user.ID,
		BookID:  other.ID,
		DueDate: testgen.Date(2030, 1, 1),
		Status:  models.BorrowStatusReturned,
	})
	testgen.CreateBorrow(t, db, testgen.BorrowOptions{
		UserID:  user.ID,
		BookID:  book.ID,
		DueDate: testgen.Date(2020, 1, 1),
		Status:  models.BorrowStatusOverdue,
	})

	exists, err = HasActiveBorrow(ctx, db, user.ID, book.ID)
	require.NoError(t, err)
	assert.True(t, exists, "overdue borrows are active")

	exists, err = HasActiveBorrow(ctx, db, user.ID, other.ID)
	require.NoError(t, err)
	assert.False(t, exists, "returned borrows are not active")
}

func TestHasPendingRequest(t *testing.T) {
	t.Parallel()

	db := testgen.NewDB(t)
	ctx := context.Background()
	user := testgen.CreateUser(t, db, testgen.UserOptions{})
	book := testgen.CreateBook(t, db, testgen.BookOptions{TotalCopies: 1})

	reason := "no"
	testgen.CreateRequest(t, db, testgen.RequestOptions{
		UserID:         user.ID,
		BookID:         book.ID,
		DesiredDueDate: testgen.Date(2030, 1, 1),
		Status:         models.BookRequestStatusRejected,
		RejectReason:   &reason,
	})

	exists, err := HasPendingRequest(ctx, db, user.ID, book.ID)
	require.NoError(t, err)
	assert.False(t, exists)

	testgen.CreateRequest(t, db, testgen.RequestOptions{
		UserID:         user.ID,
		BookID:         book.ID,
		DesiredDueDate: testgen.Date(2030, 1, 1),
	})

	exists, err = HasPendingRequest(ctx, db, user.ID, book.ID)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestTranslateBorrowInsert(t *testing.T) {
	t.Parallel()

	assert.NoError(t, TranslateBorrowInsert(nil, DuplicateActiveBorrow))

	err := TranslateBorrowInsert(errors.New("UNIQUE constraint failed: borrows.user_id, borrows.book_id"), DuplicateActiveBorrow)
	assert.Equal(t, ReasonDuplicateActiveBorrow, errcodes.ReasonOf(err))

	err = TranslateBorrowInsert(&pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: ActiveBorrowIndex}, ActiveBorrowExists)
	assert.Equal(t, ReasonActiveBorrowExists, errcodes.ReasonOf(err))

	err = TranslateBorrowInsert(errors.New("disk I/O error"), DuplicateActiveBorrow)
	require.Error(t, err)
	assert.Empty(t, errcodes.ReasonOf(err))
}

func TestTranslateRequestInsert(t *testing.T) {
	t.Parallel()

	err := TranslateRequestInsert(&pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: PendingRequestIndex})
	assert.Equal(t, ReasonDuplicatePendingRequest, errcodes.ReasonOf(err))

	err = TranslateRequestInsert(errors.New("FOREIGN KEY constraint failed"))
	require.Error(t, err)
	assert.Empty(t, errcodes.ReasonOf(err))
}

func TestTranslateBusy(t *testing.T) {
	t.Parallel()

	assert.NoError(t, TranslateBusy(nil, "Borrow"))

	err := TranslateBusy(errors.New("database is locked"), "Borrow")
	var e *errcodes.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, http.StatusConflict, e.HTTPCode)

	plain := errors.New("boom")
	assert.Equal(t, plain, TranslateBusy(plain, "Borrow"))
}
