package auth

import "github.com/shelfkeep/shelfkeep/pkg/models"

// LoginPayload represents the login request body.
type LoginPayload struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RegisterPayload is used both for self-registration and the initial setup.
type RegisterPayload struct {
	Email     string  `json:"email" mod:"trim" validate:"required,email,max=254"`
	Password  string  `json:"password" validate:"required,min=8,max=72"`
	FirstName string  `json:"first_name" mod:"trim" validate:"required,max=150"`
	LastName  string  `json:"last_name" mod:"trim" validate:"required,max=150"`
	Phone     *string `json:"phone" validate:"omitempty,max=20"`
	City      *string `json:"city" validate:"omitempty,max=100"`
}

func (p RegisterPayload) options() RegisterOptions {
	return RegisterOptions{
		Email:     p.Email,
		Password:  p.Password,
		FirstName: p.FirstName,
		LastName:  p.LastName,
		Phone:     p.Phone,
		City:      p.City,
	}
}

// StatusResponse represents the auth status response.
type StatusResponse struct {
	NeedsSetup bool `json:"needs_setup"`
}

// LoginResponse carries the token for clients that don't use the cookie.
type LoginResponse struct {
	Token string      `json:"token"`
	User  *MeResponse `json:"user"`
}

// MeResponse represents the current user response.
type MeResponse struct {
	ID          int              `json:"id"`
	Email       string           `json:"email"`
	FirstName   string           `json:"first_name"`
	LastName    string           `json:"last_name"`
	RoleID      int              `json:"role_id"`
	RoleName    string           `json:"role_name"`
	Permissions []string         `json:"permissions"`
	Borrows     []*models.Borrow `json:"borrows,omitempty"`
}
