package models

import (
	"time"

	"github.com/uptrace/bun"
)

type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID           int       `bun:",pk,nullzero" json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Email        string    `bun:",nullzero" json:"email"`
	PasswordHash string    `json:"-"` // Never expose password hash
	FirstName    string    `bun:",notnull" json:"first_name"`
	LastName     string    `bun:",notnull" json:"last_name"`
	Phone        *string   `json:"phone"`
	City         *string   `json:"city"`
	RoleID       int       `json:"role_id"`
	IsActive     bool      `json:"is_active"`

	// Relations
	Role *Role `bun:"rel:belongs-to,join:role_id=id" json:"role,omitempty"`
}

// HasPermission checks if the user has a specific permission.
func (u *User) HasPermission(resource, operation string) bool {
	if u.Role == nil {
		return false
	}
	return u.Role.HasPermission(resource, operation)
}

// IsAdmin reports whether the user acts on behalf of the library rather than
// only on their own borrows and requests.
func (u *User) IsAdmin() bool {
	return u.Role != nil && u.Role.Name == RoleAdmin
}
