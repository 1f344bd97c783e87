package worker

import (
	"context"
	"testing"
	"time"

	"github.com/shelfkeep/shelfkeep/internal/testgen"
	"github.com/shelfkeep/shelfkeep/pkg/clock"
	"github.com/shelfkeep/shelfkeep/pkg/config"
	"github.com/shelfkeep/shelfkeep/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

var today = testgen.Date(2026, time.March, 10)

func newTestWorker(t *testing.T, db *bun.DB) *Worker {
	t.Helper()

	cfg := config.NewForTest()
	cfg.OverdueSweepInterval = time.Hour
	clk := clock.NewFixed(today.Add(9*time.Hour), time.UTC)
	return New(cfg, db, clk)
}

func statusOf(t *testing.T, db *bun.DB, id int) string {
	t.Helper()

	var status string
	err := db.NewSelect().Model((*models.Borrow)(nil)).Column("status").Where("id = ?", id).Scan(context.Background(), &status)
	require.NoError(t, err)
	return status
}

func TestSweep(t *testing.T) {
	t.Parallel()

	db := testgen.NewDB(t)
	w := newTestWorker(t, db)
	user := testgen.CreateUser(t, db, testgen.UserOptions{})
	bookA := testgen.CreateBook(t, db, testgen.BookOptions{})
	bookB := testgen.CreateBook(t, db, testgen.BookOptions{})
	bookC := testgen.CreateBook(t, db, testgen.BookOptions{})

	late := testgen.CreateBorrow(t, db, testgen.BorrowOptions{UserID: user.ID, BookID: bookA.ID, DueDate: today.AddDate(0, 0, -1)})
	dueToday := testgen.CreateBorrow(t, db, testgen.BorrowOptions{UserID: user.ID, BookID: bookB.ID, DueDate: today})
	returned := testgen.CreateBorrow(t, db, testgen.BorrowOptions{
		UserID:  user.ID,
		BookID:  bookC.ID,
		DueDate: today.AddDate(0, 0, -5),
		Status:  models.BorrowStatusReturned,
	})

	n, err := w.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	assert.Equal(t, models.BorrowStatusOverdue, statusOf(t, db, late.ID))
	assert.Equal(t, models.BorrowStatusBorrowed, statusOf(t, db, dueToday.ID))
	assert.Equal(t, models.BorrowStatusReturned, statusOf(t, db, returned.ID))

	n, err = w.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestStart_SweepsImmediately(t *testing.T) {
	t.Parallel()

	db := testgen.NewDB(t)
	w := newTestWorker(t, db)
	user := testgen.CreateUser(t, db, testgen.UserOptions{})
	book := testgen.CreateBook(t, db, testgen.BookOptions{})
	late := testgen.CreateBorrow(t, db, testgen.BorrowOptions{UserID: user.ID, BookID: book.ID, DueDate: today.AddDate(0, 0, -3)})

	w.Start()
	assert.Eventually(t, func() bool {
		var status string
		err := db.NewSelect().Model((*models.Borrow)(nil)).Column("status").Where("id = ?", late.ID).Scan(context.Background(), &status)
		return err == nil && status == models.BorrowStatusOverdue
	}, 5*time.Second, 10*time.Millisecond)
	w.Shutdown()
}
