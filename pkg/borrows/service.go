package borrows

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/shelfkeep/shelfkeep/pkg/clock"
	"github.com/shelfkeep/shelfkeep/pkg/errcodes"
	"github.com/shelfkeep/shelfkeep/pkg/guard"
	"github.com/shelfkeep/shelfkeep/pkg/inventory"
	"github.com/shelfkeep/shelfkeep/pkg/models"
	"github.com/uptrace/bun"
)

type RetrieveBorrowOptions struct {
	ID     *int
	UserID *int
}

type ListBorrowsOptions struct {
	Limit  *int
	Offset *int
	UserID *int
	BookID *int
	Status *string

	includeTotal bool
}

type CreateBorrowOptions struct {
	UserID int
	BookID int
	// DueDate defaults to the configured loan period from today.
	DueDate *time.Time

	// duplicate is the error raised when the user already holds the book.
	duplicate func() error
}

type Service struct {
	db              *bun.DB
	clock           *clock.Clock
	ledger          *inventory.Ledger
	defaultLoanDays int
}

func NewService(db *bun.DB, clk *clock.Clock, ledger *inventory.Ledger, defaultLoanDays int) *Service {
	return &Service{
		db:              db,
		clock:           clk,
		ledger:          ledger,
		defaultLoanDays: defaultLoanDays,
	}
}

// DefaultDueDate returns the due date used when none is given.
func (svc *Service) DefaultDueDate() time.Time {
	return svc.clock.DaysFromToday(svc.defaultLoanDays)
}

func (svc *Service) CreateBorrow(ctx context.Context, opts CreateBorrowOptions) (*models.Borrow, error) {
	var borrow *models.Borrow
	err := svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		var err error
		borrow, err = svc.CreateBorrowInTx(ctx, tx, opts)
		return err
	})
	if err != nil {
		return nil, guard.TranslateBusy(err, "Book")
	}

	logger.FromContext(ctx).Info("borrow created", logger.Data{
		"borrow_id": borrow.ID,
		"user_id":   borrow.UserID,
		"book_id":   borrow.BookID,
		"due_date":  clock.FormatDate(borrow.DueDate),
	})

	return borrow, nil
}

// CreateBorrowWhileApproving is CreateBorrowInTx for request approval: a
// conflicting active borrow fails with active_borrow_exists.
func (svc *Service) CreateBorrowWhileApproving(ctx context.Context, tx bun.IDB, opts CreateBorrowOptions) (*models.Borrow, error) {
	opts.duplicate = guard.ActiveBorrowExists
	return svc.CreateBorrowInTx(ctx, tx, opts)
}

// CreateBorrowInTx checks every precondition of a new borrow, inserts it and
// takes a copy from the book's inventory. tx must be a transaction so that the
// insert and the decrement commit together.
func (svc *Service) CreateBorrowInTx(ctx context.Context, tx bun.IDB, opts CreateBorrowOptions) (*models.Borrow, error) {
	duplicate := opts.duplicate
	if duplicate == nil {
		duplicate = guard.DuplicateActiveBorrow
	}

	dueDate := svc.DefaultDueDate()
	if opts.DueDate != nil {
		dueDate = clock.DateOf(*opts.DueDate)
	}
	if svc.clock.IsPast(dueDate) {
		return nil, guard.PastDueDate()
	}

	userExists, err := tx.NewSelect().
		Model((*models.User)(nil)).
		Where("id = ?", opts.UserID).
		Where("is_active = ?", true).
		Exists(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if !userExists {
		return nil, errcodes.NotFound("User")
	}

	book := &models.Book{}
	err = tx.NewSelect().
		Model(book).
		Where("b.id = ?", opts.BookID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Book")
		}
		return nil, errors.WithStack(err)
	}

	active, err := guard.HasActiveBorrow(ctx, tx, opts.UserID, opts.BookID)
	if err != nil {
		return nil, err
	}
	if active {
		return nil, duplicate()
	}

	if !book.InStock() {
		return nil, guard.OutOfStock()
	}

	borrow := &models.Borrow{
		UserID:     opts.UserID,
		BookID:     opts.BookID,
		BorrowedAt: svc.clock.Now().UTC(),
		DueDate:    dueDate,
	}
	borrow.Status = DeriveStatus(borrow, svc.clock.Today())

	_, err = tx.NewInsert().
		Model(borrow).
		Exec(ctx)
	if err != nil {
		return nil, guard.TranslateBorrowInsert(err, duplicate)
	}

	err = svc.ledger.Decrement(ctx, tx, opts.BookID)
	if err != nil {
		if errors.Is(err, inventory.ErrOutOfStock) {
			return nil, guard.OutOfStock()
		}
		return nil, err
	}

	borrow.Book = book
	book.AvailableCopies--

	return borrow, nil
}

// ReturnBorrow closes an active borrow and puts its copy back into inventory.
// Returning a borrow twice fails with already_returned.
func (svc *Service) ReturnBorrow(ctx context.Context, id int) (*models.Borrow, error) {
	var borrow *models.Borrow
	err := svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		var err error
		borrow, err = retrieveBorrow(ctx, tx, RetrieveBorrowOptions{ID: &id})
		if err != nil {
			return err
		}
		if !borrow.IsActive() {
			return guard.AlreadyReturned()
		}

		returnedAt := svc.clock.Now().UTC()
		res, err := tx.NewUpdate().
			Model((*models.Borrow)(nil)).
			Set("status = ?", models.BorrowStatusReturned).
			Set("returned_at = ?", returnedAt).
			Where("id = ?", id).
			Where("status IN (?)", bun.In(models.ActiveBorrowStatuses)).
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return errors.WithStack(err)
		} else if n == 0 {
			return errcodes.Conflict("Borrow")
		}

		if err := svc.ledger.Increment(ctx, tx, borrow.BookID); err != nil {
			return err
		}

		borrow, err = retrieveBorrow(ctx, tx, RetrieveBorrowOptions{ID: &id})
		return err
	})
	if err != nil {
		return nil, guard.TranslateBusy(err, "Borrow")
	}

	logger.FromContext(ctx).Info("borrow returned", logger.Data{
		"borrow_id": borrow.ID,
		"user_id":   borrow.UserID,
		"book_id":   borrow.BookID,
	})

	return borrow, nil
}

// ExtendBorrow moves the due date of an active borrow and re-derives its
// status, so an overdue borrow given a new future date is borrowed again.
func (svc *Service) ExtendBorrow(ctx context.Context, id int, dueDate time.Time) (*models.Borrow, error) {
	dueDate = clock.DateOf(dueDate)
	if svc.clock.IsPast(dueDate) {
		return nil, guard.PastDueDate()
	}

	var borrow *models.Borrow
	err := svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		var err error
		borrow, err = retrieveBorrow(ctx, tx, RetrieveBorrowOptions{ID: &id})
		if err != nil {
			return err
		}
		if !borrow.IsActive() {
			return guard.AlreadyReturned()
		}

		borrow.DueDate = dueDate
		borrow.Status = DeriveStatus(borrow, svc.clock.Today())

		res, err := tx.NewUpdate().
			Model(borrow).
			Column("due_date", "status").
			WherePK().
			Where("status IN (?)", bun.In(models.ActiveBorrowStatuses)).
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return errors.WithStack(err)
		} else if n == 0 {
			return errcodes.Conflict("Borrow")
		}
		return nil
	})
	if err != nil {
		return nil, guard.TranslateBusy(err, "Borrow")
	}

	return borrow, nil
}

// RefreshOverdue persists the overdue derivation for every active borrow whose
// due date has passed and returns how many were updated.
func (svc *Service) RefreshOverdue(ctx context.Context) (int, error) {
	res, err := svc.db.NewUpdate().
		Model((*models.Borrow)(nil)).
		Set("status = ?", models.BorrowStatusOverdue).
		Where("status = ?", models.BorrowStatusBorrowed).
		Where("due_date < ?", svc.clock.Today()).
		Exec(ctx)
	if err != nil {
		return 0, guard.TranslateBusy(errors.WithStack(err), "Borrow")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.WithStack(err)
	}
	return int(n), nil
}

// RetrieveBorrow returns a borrow with the status it has today, whether or not
// the overdue sweep has caught up with it yet.
func (svc *Service) RetrieveBorrow(ctx context.Context, opts RetrieveBorrowOptions) (*models.Borrow, error) {
	borrow, err := retrieveBorrow(ctx, svc.db, opts)
	if err != nil {
		return nil, err
	}
	deriveStatuses(svc.clock.Today(), borrow)
	return borrow, nil
}

func retrieveBorrow(ctx context.Context, idb bun.IDB, opts RetrieveBorrowOptions) (*models.Borrow, error) {
	borrow := &models.Borrow{}

	q := idb.NewSelect().
		Model(borrow).
		Relation("Book")

	if opts.ID != nil {
		q = q.Where("br.id = ?", *opts.ID)
	}
	if opts.UserID != nil {
		q = q.Where("br.user_id = ?", *opts.UserID)
	}

	err := q.Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Borrow")
		}
		return nil, errors.WithStack(err)
	}

	return borrow, nil
}

func (svc *Service) ListBorrows(ctx context.Context, opts ListBorrowsOptions) ([]*models.Borrow, error) {
	b, _, err := svc.listBorrowsWithTotal(ctx, opts)
	return b, errors.WithStack(err)
}

func (svc *Service) ListBorrowsWithTotal(ctx context.Context, opts ListBorrowsOptions) ([]*models.Borrow, int, error) {
	opts.includeTotal = true
	return svc.listBorrowsWithTotal(ctx, opts)
}

func (svc *Service) listBorrowsWithTotal(ctx context.Context, opts ListBorrowsOptions) ([]*models.Borrow, int, error) {
	var borrows []*models.Borrow
	var total int
	var err error
	today := svc.clock.Today()

	q := svc.db.
		NewSelect().
		Model(&borrows).
		Relation("Book").
		Order("br.borrowed_at DESC", "br.id DESC")

	if opts.UserID != nil {
		q = q.Where("br.user_id = ?", *opts.UserID)
	}
	if opts.BookID != nil {
		q = q.Where("br.book_id = ?", *opts.BookID)
	}
	if opts.Status != nil {
		q = whereStatus(q, *opts.Status, today)
	}
	if opts.Limit != nil {
		q = q.Limit(*opts.Limit)
	}
	if opts.Offset != nil {
		q = q.Offset(*opts.Offset)
	}

	if opts.includeTotal {
		total, err = q.ScanAndCount(ctx)
	} else {
		err = q.Scan(ctx)
	}
	if err != nil {
		return nil, 0, errors.WithStack(err)
	}
	deriveStatuses(today, borrows...)

	return borrows, total, nil
}
