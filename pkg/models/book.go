package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Book struct {
	bun.BaseModel `bun:"table:books,alias:b"`

	ID              int       `bun:",pk,nullzero" json:"id"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
	Title           string    `bun:",nullzero" json:"title"`
	AuthorID        *int      `json:"author_id"`
	Author          *Author   `bun:"rel:belongs-to,join:author_id=id" json:"author,omitempty"`
	Description     string    `bun:",notnull" json:"description"`
	Genre           string    `bun:",notnull" json:"genre"`
	TotalCopies     int       `bun:",notnull" json:"total_copies"`
	AvailableCopies int       `bun:",notnull" json:"available_copies"`
}

// InStock reports whether at least one copy can be lent out.
func (b *Book) InStock() bool {
	return b.AvailableCopies > 0
}
