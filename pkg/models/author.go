package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Author struct {
	bun.BaseModel `bun:"table:authors,alias:a"`

	ID        int       `bun:",pk,nullzero" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	FirstName string    `bun:",notnull" json:"first_name"`
	LastName  string    `bun:",notnull" json:"last_name"`
	Bio       string    `bun:",notnull" json:"bio"`
}

// FullName returns "First Last", skipping whichever part is empty.
func (a *Author) FullName() string {
	switch {
	case a.FirstName == "":
		return a.LastName
	case a.LastName == "":
		return a.FirstName
	}
	return a.FirstName + " " + a.LastName
}
