package users

// CreateUserPayload represents the request body for creating a user.
type CreateUserPayload struct {
	Email     string  `json:"email" mod:"trim" validate:"required,email,max=254"`
	Password  string  `json:"password" validate:"required,min=8,max=72"`
	FirstName string  `json:"first_name" mod:"trim" validate:"required,max=150"`
	LastName  string  `json:"last_name" mod:"trim" validate:"required,max=150"`
	Phone     *string `json:"phone" validate:"omitempty,max=20"`
	City      *string `json:"city" validate:"omitempty,max=100"`
	RoleID    int     `json:"role_id" validate:"required"`
}

// UpdateUserPayload represents the request body for updating a user.
type UpdateUserPayload struct {
	Email     *string `json:"email" validate:"omitempty,email,max=254"`
	FirstName *string `json:"first_name" validate:"omitempty,min=1,max=150"`
	LastName  *string `json:"last_name" validate:"omitempty,min=1,max=150"`
	Phone     *string `json:"phone" validate:"omitempty,max=20"`
	City      *string `json:"city" validate:"omitempty,max=100"`
	RoleID    *int    `json:"role_id"`
	IsActive  *bool   `json:"is_active"`
}

// ResetPasswordPayload represents the request body for resetting a password.
type ResetPasswordPayload struct {
	CurrentPassword *string `json:"current_password"` // Required when resetting your own password
	NewPassword     string  `json:"new_password" validate:"required,min=8,max=72"`
}

// ListUsersQuery represents the query parameters for listing users.
type ListUsersQuery struct {
	Limit    int     `query:"limit" default:"50" validate:"min=1,max=100"`
	Offset   int     `query:"offset" default:"0" validate:"min=0"`
	Search   *string `query:"search" validate:"omitempty,max=100"`
	IsActive *bool   `query:"is_active"`
}
