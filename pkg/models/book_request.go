package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Book request statuses.
const (
	BookRequestStatusPending  = "pending"
	BookRequestStatusApproved = "approved"
	BookRequestStatusRejected = "rejected"
)

type BookRequest struct {
	bun.BaseModel `bun:"table:book_requests,alias:rq"`

	ID             int       `bun:",pk,nullzero" json:"id"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	UserID         int       `bun:",nullzero" json:"user_id"`
	User           *User     `bun:"rel:belongs-to,join:user_id=id" json:"user,omitempty"`
	BookID         int       `bun:",nullzero" json:"book_id"`
	Book           *Book     `bun:"rel:belongs-to,join:book_id=id" json:"book,omitempty"`
	DesiredDueDate time.Time `bun:",notnull" json:"desired_due_date"`
	Status         string    `bun:",nullzero" json:"status"`
	RejectReason   *string   `json:"reject_reason"`
	BorrowID       *int      `json:"borrow_id"`
	Borrow         *Borrow   `bun:"rel:belongs-to,join:borrow_id=id" json:"borrow,omitempty"`
}

// IsPending reports whether the request still awaits a decision.
func (r *BookRequest) IsPending() bool {
	return r.Status == BookRequestStatusPending
}
