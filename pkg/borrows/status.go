package borrows

import (
	"time"

	"github.com/shelfkeep/shelfkeep/pkg/models"
	"github.com/uptrace/bun"
)

// DeriveStatus computes the status a borrow should be persisted with. Returned
// borrows stay returned; otherwise a borrow whose due date is before today is
// overdue.
func DeriveStatus(borrow *models.Borrow, today time.Time) string {
	return borrow.StatusOn(today)
}

// deriveStatuses overwrites the stored status of each borrow with the one it
// has today. The stored column lags behind until the next overdue sweep.
func deriveStatuses(today time.Time, borrows ...*models.Borrow) {
	for _, b := range borrows {
		b.Status = DeriveStatus(b, today)
	}
}

// whereStatus filters q by the derived status of its borrows.
func whereStatus(q *bun.SelectQuery, status string, today time.Time) *bun.SelectQuery {
	switch status {
	case models.BorrowStatusOverdue:
		return q.
			Where("br.status IN (?)", bun.In(models.ActiveBorrowStatuses)).
			Where("br.due_date < ?", today)
	case models.BorrowStatusBorrowed:
		return q.
			Where("br.status IN (?)", bun.In(models.ActiveBorrowStatuses)).
			Where("br.due_date >= ?", today)
	default:
		return q.Where("br.status = ?", status)
	}
}
