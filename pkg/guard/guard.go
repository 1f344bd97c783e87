// Package guard holds the circulation preconditions shared by borrows and
// requests, and the reason-coded errors they fail with.
package guard

import (
	"context"

	"github.com/pkg/errors"
	"github.com/shelfkeep/shelfkeep/pkg/database"
	"github.com/shelfkeep/shelfkeep/pkg/errcodes"
	"github.com/shelfkeep/shelfkeep/pkg/models"
	"github.com/uptrace/bun"
)

// Reasons carried by validation errors raised by circulation operations.
const (
	ReasonOutOfStock              = "out_of_stock"
	ReasonDuplicateActiveBorrow   = "duplicate_active_borrow"
	ReasonPastDueDate             = "past_due_date"
	ReasonAlreadyReturned         = "already_returned"
	ReasonDuplicatePendingRequest = "duplicate_pending_request"
	ReasonActiveBorrowExists      = "active_borrow_exists"
	ReasonNotPending              = "not_pending"
	ReasonMissingReason           = "missing_reason"
)

// Index names backing the uniqueness rules.
const (
	ActiveBorrowIndex   = "ux_borrows_active_user_book"
	PendingRequestIndex = "ux_book_requests_pending_user_book"
)

func OutOfStock() error {
	return errcodes.RuleViolation(ReasonOutOfStock, "No copies of this book are currently available.")
}

func DuplicateActiveBorrow() error {
	return errcodes.RuleViolation(ReasonDuplicateActiveBorrow, "This user already has this book borrowed.")
}

func PastDueDate() error {
	return errcodes.RuleViolation(ReasonPastDueDate, "The due date can't be in the past.")
}

func AlreadyReturned() error {
	return errcodes.RuleViolation(ReasonAlreadyReturned, "This book has already been returned.")
}

func DuplicatePendingRequest() error {
	return errcodes.RuleViolation(ReasonDuplicatePendingRequest, "A request for this book is already pending.")
}

func ActiveBorrowExists() error {
	return errcodes.RuleViolation(ReasonActiveBorrowExists, "This user already has this book borrowed.")
}

func NotPending() error {
	return errcodes.RuleViolation(ReasonNotPending, "This request has already been processed.")
}

func MissingReason() error {
	return errcodes.RuleViolation(ReasonMissingReason, "A reason is required to reject a request.")
}

// HasActiveBorrow reports whether the user currently holds a copy of the book.
func HasActiveBorrow(ctx context.Context, idb bun.IDB, userID, bookID int) (bool, error) {
	exists, err := idb.NewSelect().
		Model((*models.Borrow)(nil)).
		Where("user_id = ?", userID).
		Where("book_id = ?", bookID).
		Where("status IN (?)", bun.In(models.ActiveBorrowStatuses)).
		Exists(ctx)
	return exists, errors.WithStack(err)
}

// HasPendingRequest reports whether the user has an undecided request for the
// book.
func HasPendingRequest(ctx context.Context, idb bun.IDB, userID, bookID int) (bool, error) {
	exists, err := idb.NewSelect().
		Model((*models.BookRequest)(nil)).
		Where("user_id = ?", userID).
		Where("book_id = ?", bookID).
		Where("status = ?", models.BookRequestStatusPending).
		Exists(ctx)
	return exists, errors.WithStack(err)
}

// TranslateBorrowInsert maps a failed borrow insert onto the reason-coded
// error for a duplicate active borrow. dup is returned when the store rejected
// the row because of ActiveBorrowIndex. Anything else comes back wrapped.
func TranslateBorrowInsert(err error, dup func() error) error {
	if err == nil {
		return nil
	}
	if database.IsUniqueViolation(err, ActiveBorrowIndex) {
		return dup()
	}
	return errors.WithStack(err)
}

// TranslateRequestInsert is TranslateBorrowInsert for pending requests.
func TranslateRequestInsert(err error) error {
	if err == nil {
		return nil
	}
	if database.IsUniqueViolation(err, PendingRequestIndex) {
		return DuplicatePendingRequest()
	}
	return errors.WithStack(err)
}

// TranslateBusy turns a lock that outlived the driver retries into a
// retryable conflict on resource. Other errors pass through.
func TranslateBusy(err error, resource string) error {
	if err != nil && database.IsBusyError(err) {
		return errcodes.Conflict(resource)
	}
	return err
}
