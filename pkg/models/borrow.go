package models

import (
	"time"

	"github.com/shelfkeep/shelfkeep/pkg/clock"
	"github.com/uptrace/bun"
)

// Borrow statuses.
const (
	BorrowStatusBorrowed = "borrowed"
	BorrowStatusOverdue  = "overdue"
	BorrowStatusReturned = "returned"
)

// ActiveBorrowStatuses are the statuses in which a borrow holds a copy.
var ActiveBorrowStatuses = []string{BorrowStatusBorrowed, BorrowStatusOverdue}

type Borrow struct {
	bun.BaseModel `bun:"table:borrows,alias:br"`

	ID         int        `bun:",pk,nullzero" json:"id"`
	UserID     int        `bun:",nullzero" json:"user_id"`
	User       *User      `bun:"rel:belongs-to,join:user_id=id" json:"user,omitempty"`
	BookID     int        `bun:",nullzero" json:"book_id"`
	Book       *Book      `bun:"rel:belongs-to,join:book_id=id" json:"book,omitempty"`
	BorrowedAt time.Time  `bun:",nullzero,notnull" json:"borrowed_at"`
	DueDate    time.Time  `bun:",notnull" json:"due_date"`
	ReturnedAt *time.Time `json:"returned_at"`
	Status     string     `bun:",nullzero" json:"status"`
}

// IsActive reports whether the borrow still holds a copy of its book.
func (b *Borrow) IsActive() bool {
	return b.Status == BorrowStatusBorrowed || b.Status == BorrowStatusOverdue
}

// StatusOn returns the status the borrow has on the given civil date. A
// returned borrow stays returned; any other borrow is overdue once its due
// date is before today.
func (b *Borrow) StatusOn(today time.Time) string {
	if b.Status == BorrowStatusReturned {
		return BorrowStatusReturned
	}
	if clock.IsPast(b.DueDate, today) {
		return BorrowStatusOverdue
	}
	return BorrowStatusBorrowed
}
