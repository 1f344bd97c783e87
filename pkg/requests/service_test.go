package requests

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/robinjoseph08/golib/pointerutil"
	"github.com/shelfkeep/shelfkeep/internal/testgen"
	"github.com/shelfkeep/shelfkeep/pkg/borrows"
	"github.com/shelfkeep/shelfkeep/pkg/clock"
	"github.com/shelfkeep/shelfkeep/pkg/errcodes"
	"github.com/shelfkeep/shelfkeep/pkg/guard"
	"github.com/shelfkeep/shelfkeep/pkg/inventory"
	"github.com/shelfkeep/shelfkeep/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

var today = testgen.Date(2026, time.March, 10)

func newTestServices(db *bun.DB) (*Service, *borrows.Service) {
	clk := clock.NewFixed(today.Add(9*time.Hour), time.UTC)
	borrowService := borrows.NewService(db, clk, inventory.NewLedger(clk), 14)
	return NewService(db, clk, borrowService), borrowService
}

func countBorrows(t *testing.T, db bun.IDB) int {
	t.Helper()
	n, err := db.NewSelect().Model((*models.Borrow)(nil)).Count(context.Background())
	require.NoError(t, err)
	return n
}

func TestCreateRequest(t *testing.T) {
	t.Parallel()

	db := testgen.NewDB(t)
	svc, _ := newTestServices(db)
	ctx := context.Background()
	user := testgen.CreateUser(t, db, testgen.UserOptions{})
	book := testgen.CreateBook(t, db, testgen.BookOptions{TotalCopies: 1})

	request, err := svc.CreateRequest(ctx, CreateRequestOptions{UserID: user.ID, BookID: book.ID})
	require.NoError(t, err)
	assert.Equal(t, models.BookRequestStatusPending, request.Status)
	assert.Equal(t, "2026-03-24", clock.FormatDate(request.DesiredDueDate))
	assert.Nil(t, request.BorrowID)

	_, err = svc.CreateRequest(ctx, CreateRequestOptions{
		UserID:         user.ID,
		BookID:         book.ID,
		DesiredDueDate: pointerutil.Time(today.AddDate(0, 0, 3)),
	})
	assert.Equal(t, guard.ReasonDuplicatePendingRequest, errcodes.ReasonOf(err))

	// Requesting doesn't touch inventory.
	assert.Equal(t, 1, testgen.ReloadBook(t, db, book.ID).AvailableCopies)
}

func TestCreateRequest_DesiredDateMustBeFuture(t *testing.T) {
	t.Parallel()

	db := testgen.NewDB(t)
	svc, _ := newTestServices(db)
	ctx := context.Background()
	user := testgen.CreateUser(t, db, testgen.UserOptions{})
	book := testgen.CreateBook(t, db, testgen.BookOptions{TotalCopies: 1})

	for _, desired := range []time.Time{today, today.AddDate(0, 0, -1)} {
		_, err := svc.CreateRequest(ctx, CreateRequestOptions{UserID: user.ID, BookID: book.ID, DesiredDueDate: &desired})
		assert.Equal(t, guard.ReasonPastDueDate, errcodes.ReasonOf(err), clock.FormatDate(desired))
	}

	_, err := svc.CreateRequest(ctx, CreateRequestOptions{
		UserID:         user.ID,
		BookID:         book.ID,
		DesiredDueDate: pointerutil.Time(today.AddDate(0, 0, 1)),
	})
	assert.NoError(t, err)
}

// A user who already holds the book can't ask for it again.
func TestCreateRequest_ActiveBorrowExists(t *testing.T) {
	t.Parallel()

	db := testgen.NewDB(t)
	svc, borrowService := newTestServices(db)
	ctx := context.Background()
	user := testgen.CreateUser(t, db, testgen.UserOptions{})
	book := testgen.CreateBook(t, db, testgen.BookOptions{TotalCopies: 2})

	_, err := borrowService.CreateBorrow(ctx, borrows.CreateBorrowOptions{UserID: user.ID, BookID: book.ID})
	require.NoError(t, err)

	_, err = svc.CreateRequest(ctx, CreateRequestOptions{
		UserID:         user.ID,
		BookID:         book.ID,
		DesiredDueDate: pointerutil.Time(today.AddDate(0, 0, 10)),
	})
	assert.Equal(t, guard.ReasonActiveBorrowExists, errcodes.ReasonOf(err))
}

func TestCreateRequest_NotFound(t *testing.T) {
	t.Parallel()

	db := testgen.NewDB(t)
	svc, _ := newTestServices(db)
	ctx := context.Background()
	user := testgen.CreateUser(t, db, testgen.UserOptions{})
	inactive := testgen.CreateUser(t, db, testgen.UserOptions{Inactive: true})
	book := testgen.CreateBook(t, db, testgen.BookOptions{TotalCopies: 1})

	_, err := svc.CreateRequest(ctx, CreateRequestOptions{UserID: user.ID, BookID: book.ID + 100})
	assert.EqualError(t, err, "Book not found.")

	_, err = svc.CreateRequest(ctx, CreateRequestOptions{UserID: inactive.ID, BookID: book.ID})
	assert.EqualError(t, err, "User not found.")
}

func TestApproveRequest(t *testing.T) {
	t.Parallel()

	db := testgen.NewDB(t)
	svc, _ := newTestServices(db)
	ctx := context.Background()
	user := testgen.CreateUser(t, db, testgen.UserOptions{})
	book := testgen.CreateBook(t, db, testgen.BookOptions{TotalCopies: 2})

	request, err := svc.CreateRequest(ctx, CreateRequestOptions{
		UserID:         user.ID,
		BookID:         book.ID,
		DesiredDueDate: pointerutil.Time(today.AddDate(0, 0, 10)),
	})
	require.NoError(t, err)

	approved, err := svc.ApproveRequest(ctx, request.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookRequestStatusApproved, approved.Status)
	require.NotNil(t, approved.BorrowID)
	require.NotNil(t, approved.Borrow)
	assert.Equal(t, *approved.BorrowID, approved.Borrow.ID)
	assert.Equal(t, models.BorrowStatusBorrowed, approved.Borrow.Status)
	assert.Equal(t, "2026-03-20", clock.FormatDate(approved.Borrow.DueDate))

	// Approval decrements exactly once.
	assert.Equal(t, 1, testgen.ReloadBook(t, db, book.ID).AvailableCopies)
	assert.Equal(t, 1, countBorrows(t, db))

	_, err = svc.ApproveRequest(ctx, request.ID)
	assert.Equal(t, guard.ReasonNotPending, errcodes.ReasonOf(err))
	assert.Equal(t, 1, countBorrows(t, db))
}

func TestApproveRequest_OutOfStockPersistsNothing(t *testing.T) {
	t.Parallel()

	db := testgen.NewDB(t)
	svc, _ := newTestServices(db)
	ctx := context.Background()
	user := testgen.CreateUser(t, db, testgen.UserOptions{})
	book := testgen.CreateBook(t, db, testgen.BookOptions{TotalCopies: 1, AvailableCopies: pointerutil.Int(0)})
	request := testgen.CreateRequest(t, db, testgen.RequestOptions{
		UserID:         user.ID,
		BookID:         book.ID,
		DesiredDueDate: today.AddDate(0, 0, 7),
	})

	_, err := svc.ApproveRequest(ctx, request.ID)
	assert.Equal(t, guard.ReasonOutOfStock, errcodes.ReasonOf(err))

	reloaded, err := svc.RetrieveRequest(ctx, RetrieveRequestOptions{ID: &request.ID})
	require.NoError(t, err)
	assert.Equal(t, models.BookRequestStatusPending, reloaded.Status)
	assert.Nil(t, reloaded.BorrowID)
	assert.Equal(t, 0, countBorrows(t, db))
	assert.Equal(t, 0, testgen.ReloadBook(t, db, book.ID).AvailableCopies)
}

func TestApproveRequest_ActiveBorrowExists(t *testing.T) {
	t.Parallel()

	db := testgen.NewDB(t)
	svc, _ := newTestServices(db)
	ctx := context.Background()
	user := testgen.CreateUser(t, db, testgen.UserOptions{})
	book := testgen.CreateBook(t, db, testgen.BookOptions{TotalCopies: 3, AvailableCopies: pointerutil.Int(2)})
	request := testgen.CreateRequest(t, db, testgen.RequestOptions{
		UserID:         user.ID,
		BookID:         book.ID,
		DesiredDueDate: today.AddDate(0, 0, 7),
	})
	testgen.CreateBorrow(t, db, testgen.BorrowOptions{UserID: user.ID, BookID: book.ID, DueDate: today.AddDate(0, 0, 3)})

	_, err := svc.ApproveRequest(ctx, request.ID)
	assert.Equal(t, guard.ReasonActiveBorrowExists, errcodes.ReasonOf(err))

	reloaded, err := svc.RetrieveRequest(ctx, RetrieveRequestOptions{ID: &request.ID})
	require.NoError(t, err)
	assert.Equal(t, models.BookRequestStatusPending, reloaded.Status)
	assert.Equal(t, 2, testgen.ReloadBook(t, db, book.ID).AvailableCopies)
}

func TestApproveRequest_NotFound(t *testing.T) {
	t.Parallel()

	db := testgen.NewDB(t)
	svc, _ := newTestServices(db)

	_, err := svc.ApproveRequest(context.Background(), 999)
	assert.EqualError(t, err, "Book request not found.")
}

func TestRejectRequest(t *testing.T) {
	t.Parallel()

	db := testgen.NewDB(t)
	svc, _ := newTestServices(db)
	ctx := context.Background()
	user := testgen.CreateUser(t, db, testgen.UserOptions{})
	book := testgen.CreateBook(t, db, testgen.BookOptions{TotalCopies: 1})
	request := testgen.CreateRequest(t, db, testgen.RequestOptions{
		UserID:         user.ID,
		BookID:         book.ID,
		DesiredDueDate: today.AddDate(0, 0, 7),
	})

	for _, reason := range []string{"", "   "} {
		_, err := svc.RejectRequest(ctx, request.ID, reason)
		assert.Equal(t, guard.ReasonMissingReason, errcodes.ReasonOf(err))
	}

	rejected, err := svc.RejectRequest(ctx, request.ID, " damaged ")
	require.NoError(t, err)
	assert.Equal(t, models.BookRequestStatusRejected, rejected.Status)
	require.NotNil(t, rejected.RejectReason)
	assert.Equal(t, "damaged", *rejected.RejectReason)

	reloaded, err := svc.RetrieveRequest(ctx, RetrieveRequestOptions{ID: &request.ID})
	require.NoError(t, err)
	assert.Equal(t, models.BookRequestStatusRejected, reloaded.Status)
	assert.Equal(t, "damaged", *reloaded.RejectReason)

	_, err = svc.RejectRequest(ctx, request.ID, "damaged")
	assert.Equal(t, guard.ReasonNotPending, errcodes.ReasonOf(err))

	_, err = svc.ApproveRequest(ctx, request.ID)
	assert.Equal(t, guard.ReasonNotPending, errcodes.ReasonOf(err))

	// Once decided, the user may ask again.
	_, err = svc.CreateRequest(ctx, CreateRequestOptions{UserID: user.ID, BookID: book.ID})
	assert.NoError(t, err)
}

func TestListRequests(t *testing.T) {
	t.Parallel()

	db := testgen.NewDB(t)
	svc, _ := newTestServices(db)
	ctx := context.Background()
	alice := testgen.CreateUser(t, db, testgen.UserOptions{})
	bob := testgen.CreateUser(t, db, testgen.UserOptions{})
	book := testgen.CreateBook(t, db, testgen.BookOptions{TotalCopies: 1})
	other := testgen.CreateBook(t, db, testgen.BookOptions{TotalCopies: 1})
	due := today.AddDate(0, 0, 7)
	testgen.CreateRequest(t, db, testgen.RequestOptions{UserID: alice.ID, BookID: book.ID, DesiredDueDate: due})
	testgen.CreateRequest(t, db, testgen.RequestOptions{UserID: alice.ID, BookID: other.ID, DesiredDueDate: due, Status: models.BookRequestStatusRejected, RejectReason: pointerutil.String("lost")})
	testgen.CreateRequest(t, db, testgen.RequestOptions{UserID: bob.ID, BookID: book.ID, DesiredDueDate: due})

	requests, total, err := svc.ListRequestsWithTotal(ctx, ListRequestsOptions{UserID: &alice.ID})
	require.NoError(t, err)
	assert.Len(t, requests, 2)
	assert.Equal(t, 2, total)

	pending := models.BookRequestStatusPending
	requests, err = svc.ListRequests(ctx, ListRequestsOptions{Status: &pending})
	require.NoError(t, err)
	assert.Len(t, requests, 2)

	requests, total, err = svc.ListRequestsWithTotal(ctx, ListRequestsOptions{Limit: pointerutil.Int(1)})
	require.NoError(t, err)
	assert.Len(t, requests, 1)
	assert.Equal(t, 3, total)
}

func TestApproveRequest_ConcurrentApprovals(t *testing.T) {
	t.Parallel()

	db := testgen.NewFileDB(t)
	svc, _ := newTestServices(db)
	ctx := context.Background()
	user := testgen.CreateUser(t, db, testgen.UserOptions{})
	book := testgen.CreateBook(t, db, testgen.BookOptions{TotalCopies: 3})
	request := testgen.CreateRequest(t, db, testgen.RequestOptions{
		UserID:         user.ID,
		BookID:         book.ID,
		DesiredDueDate: today.AddDate(0, 0, 7),
	})

	const n = 8
	var wg sync.WaitGroup
	var succeeded, rejected atomic.Int32
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.ApproveRequest(ctx, request.ID)
			switch {
			case err == nil:
				succeeded.Add(1)
			case errcodes.ReasonOf(err) == guard.ReasonNotPending:
				rejected.Add(1)
			default:
				var codeErr *errcodes.Error
				if assert.ErrorAs(t, err, &codeErr) && codeErr.Code == "conflict" {
					rejected.Add(1)
				}
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), succeeded.Load())
	assert.Equal(t, int32(n-1), rejected.Load())
	assert.Equal(t, 1, countBorrows(t, db))
	assert.Equal(t, 2, testgen.ReloadBook(t, db, book.ID).AvailableCopies)
}

// Approving the last copy races a direct borrow by someone else.
func TestApproveRequest_RacesCreateBorrow(t *testing.T) {
	t.Parallel()

	db := testgen.NewFileDB(t)
	svc, borrowService := newTestServices(db)
	ctx := context.Background()
	requester := testgen.CreateUser(t, db, testgen.UserOptions{})
	walkIn := testgen.CreateUser(t, db, testgen.UserOptions{})
	book := testgen.CreateBook(t, db, testgen.BookOptions{TotalCopies: 1})
	request := testgen.CreateRequest(t, db, testgen.RequestOptions{
		UserID:         requester.ID,
		BookID:         book.ID,
		DesiredDueDate: today.AddDate(0, 0, 7),
	})

	var wg sync.WaitGroup
	errs := make([]error, 2)
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, errs[0] = svc.ApproveRequest(ctx, request.ID)
	}()
	go func() {
		defer wg.Done()
		_, errs[1] = borrowService.CreateBorrow(ctx, borrows.CreateBorrowOptions{UserID: walkIn.ID, BookID: book.ID})
	}()
	wg.Wait()

	successes := 0
	for _, err := range errs {
		if err == nil {
			successes++
			continue
		}
		assert.Equal(t, guard.ReasonOutOfStock, errcodes.ReasonOf(err))
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, 1, countBorrows(t, db))
	assert.Equal(t, 0, testgen.ReloadBook(t, db, book.ID).AvailableCopies)

	reloaded, err := svc.RetrieveRequest(ctx, RetrieveRequestOptions{ID: &request.ID})
	require.NoError(t, err)
	if errs[0] == nil {
		assert.Equal(t, models.BookRequestStatusApproved, reloaded.Status)
	} else {
		assert.Equal(t, models.BookRequestStatusPending, reloaded.Status)
	}
}
