package requests

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/shelfkeep/shelfkeep/pkg/borrows"
	"github.com/shelfkeep/shelfkeep/pkg/clock"
	"github.com/shelfkeep/shelfkeep/pkg/errcodes"
	"github.com/shelfkeep/shelfkeep/pkg/guard"
	"github.com/shelfkeep/shelfkeep/pkg/models"
	"github.com/uptrace/bun"
)

type RetrieveRequestOptions struct {
	ID     *int
	UserID *int
}

type ListRequestsOptions struct {
	Limit  *int
	Offset *int
	UserID *int
	BookID *int
	Status *string

	includeTotal bool
}

type CreateRequestOptions struct {
	UserID int
	BookID int
	// DesiredDueDate defaults to the configured loan period from today.
	DesiredDueDate *time.Time
}

type Service struct {
	db            *bun.DB
	clock         *clock.Clock
	borrowService *borrows.Service
}

func NewService(db *bun.DB, clk *clock.Clock, borrowService *borrows.Service) *Service {
	return &Service{
		db:            db,
		clock:         clk,
		borrowService: borrowService,
	}
}

// CreateRequest files a pending request for a user to borrow a book.
func (svc *Service) CreateRequest(ctx context.Context, opts CreateRequestOptions) (*models.BookRequest, error) {
	desired := svc.borrowService.DefaultDueDate()
	if opts.DesiredDueDate != nil {
		desired = clock.DateOf(*opts.DesiredDueDate)
	}
	if !svc.clock.IsFuture(desired) {
		return nil, guard.PastDueDate()
	}

	var request *models.BookRequest
	err := svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		userExists, err := tx.NewSelect().
			Model((*models.User)(nil)).
			Where("id = ?", opts.UserID).
			Where("is_active = ?", true).
			Exists(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
		if !userExists {
			return errcodes.NotFound("User")
		}

		bookExists, err := tx.NewSelect().
			Model((*models.Book)(nil)).
			Where("id = ?", opts.BookID).
			Exists(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
		if !bookExists {
			return errcodes.NotFound("Book")
		}

		pending, err := guard.HasPendingRequest(ctx, tx, opts.UserID, opts.BookID)
		if err != nil {
			return err
		}
		if pending {
			return guard.DuplicatePendingRequest()
		}

		active, err := guard.HasActiveBorrow(ctx, tx, opts.UserID, opts.BookID)
		if err != nil {
			return err
		}
		if active {
			return guard.ActiveBorrowExists()
		}

		now := svc.clock.Now().UTC()
		request = &models.BookRequest{
			CreatedAt:      now,
			UpdatedAt:      now,
			UserID:         opts.UserID,
			BookID:         opts.BookID,
			DesiredDueDate: desired,
			Status:         models.BookRequestStatusPending,
		}
		_, err = tx.NewInsert().
			Model(request).
			Exec(ctx)
		return guard.TranslateRequestInsert(err)
	})
	if err != nil {
		return nil, guard.TranslateBusy(err, "Book request")
	}

	logger.FromContext(ctx).Info("book request created", logger.Data{
		"request_id":       request.ID,
		"user_id":          request.UserID,
		"book_id":          request.BookID,
		"desired_due_date": clock.FormatDate(request.DesiredDueDate),
	})

	return request, nil
}

// ApproveRequest turns a pending request into a borrow due on the desired
// date. The status change, the borrow and its inventory decrement commit
// together or not at all.
func (svc *Service) ApproveRequest(ctx context.Context, id int) (*models.BookRequest, error) {
	var request *models.BookRequest
	err := svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		var err error
		request, err = retrieveRequest(ctx, tx, RetrieveRequestOptions{ID: &id})
		if err != nil {
			return err
		}
		if !request.IsPending() {
			return guard.NotPending()
		}

		now := svc.clock.Now().UTC()
		res, err := tx.NewUpdate().
			Model((*models.BookRequest)(nil)).
			Set("status = ?", models.BookRequestStatusApproved).
			Set("updated_at = ?", now).
			Where("id = ?", id).
			Where("status = ?", models.BookRequestStatusPending).
			Exec(ctx)
		if err := checkTransitioned(res, err); err != nil {
			return err
		}

		desired := request.DesiredDueDate
		borrow, err := svc.borrowService.CreateBorrowWhileApproving(ctx, tx, borrows.CreateBorrowOptions{
			UserID:  request.UserID,
			BookID:  request.BookID,
			DueDate: &desired,
		})
		if err != nil {
			return err
		}

		_, err = tx.NewUpdate().
			Model((*models.BookRequest)(nil)).
			Set("borrow_id = ?", borrow.ID).
			Where("id = ?", id).
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}

		request, err = retrieveRequest(ctx, tx, RetrieveRequestOptions{ID: &id})
		return err
	})
	if err != nil {
		return nil, guard.TranslateBusy(err, "Book request")
	}

	logger.FromContext(ctx).Info("book request approved", logger.Data{
		"request_id": request.ID,
		"borrow_id":  request.BorrowID,
	})

	return request, nil
}

// RejectRequest closes a pending request with the reason given to the user.
func (svc *Service) RejectRequest(ctx context.Context, id int, reason string) (*models.BookRequest, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, guard.MissingReason()
	}

	var request *models.BookRequest
	err := svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		var err error
		request, err = retrieveRequest(ctx, tx, RetrieveRequestOptions{ID: &id})
		if err != nil {
			return err
		}
		if !request.IsPending() {
			return guard.NotPending()
		}

		now := svc.clock.Now().UTC()
		res, err := tx.NewUpdate().
			Model((*models.BookRequest)(nil)).
			Set("status = ?", models.BookRequestStatusRejected).
			Set("reject_reason = ?", reason).
			Set("updated_at = ?", now).
			Where("id = ?", id).
			Where("status = ?", models.BookRequestStatusPending).
			Exec(ctx)
		if err := checkTransitioned(res, err); err != nil {
			return err
		}

		request.Status = models.BookRequestStatusRejected
		request.RejectReason = &reason
		request.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, guard.TranslateBusy(err, "Book request")
	}

	logger.FromContext(ctx).Info("book request rejected", logger.Data{"request_id": request.ID})

	return request, nil
}

// checkTransitioned fails with a conflict when the conditional status update
// matched nothing, i.e. another transaction decided the request first.
func checkTransitioned(res sql.Result, err error) error {
	if err != nil {
		return errors.WithStack(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.WithStack(err)
	}
	if n == 0 {
		return errcodes.Conflict("Book request")
	}
	return nil
}

func (svc *Service) RetrieveRequest(ctx context.Context, opts RetrieveRequestOptions) (*models.BookRequest, error) {
	return retrieveRequest(ctx, svc.db, opts)
}

func retrieveRequest(ctx context.Context, idb bun.IDB, opts RetrieveRequestOptions) (*models.BookRequest, error) {
	request := &models.BookRequest{}

	q := idb.NewSelect().
		Model(request).
		Relation("Book").
		Relation("Borrow")

	if opts.ID != nil {
		q = q.Where("rq.id = ?", *opts.ID)
	}
	if opts.UserID != nil {
		q = q.Where("rq.user_id = ?", *opts.UserID)
	}

	err := q.Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Book request")
		}
		return nil, errors.WithStack(err)
	}

	return request, nil
}

func (svc *Service) ListRequests(ctx context.Context, opts ListRequestsOptions) ([]*models.BookRequest, error) {
	r, _, err := svc.listRequestsWithTotal(ctx, opts)
	return r, errors.WithStack(err)
}

func (svc *Service) ListRequestsWithTotal(ctx context.Context, opts ListRequestsOptions) ([]*models.BookRequest, int, error) {
	opts.includeTotal = true
	return svc.listRequestsWithTotal(ctx, opts)
}

func (svc *Service) listRequestsWithTotal(ctx context.Context, opts ListRequestsOptions) ([]*models.BookRequest, int, error) {
	var requests []*models.BookRequest
	var total int
	var err error

	q := svc.db.
		NewSelect().
		Model(&requests).
		Relation("Book").
		Order("rq.created_at DESC", "rq.id DESC")

	if opts.UserID != nil {
		q = q.Where("rq.user_id = ?", *opts.UserID)
	}
	if opts.BookID != nil {
		q = q.Where("rq.book_id = ?", *opts.BookID)
	}
	if opts.Status != nil {
		q = q.Where("rq.status = ?", *opts.Status)
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

	return requests, total, nil
}
