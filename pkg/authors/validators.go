package authors

type ListAuthorsQuery struct {
	Limit  int     `query:"limit" json:"limit,omitempty" default:"25" validate:"min=1,max=100"`
	Offset int     `query:"offset" json:"offset,omitempty" validate:"min=0"`
	Search *string `query:"search" json:"search,omitempty" validate:"omitempty,max=100"`
}

type CreateAuthorPayload struct {
	FirstName string `json:"first_name" mod:"trim" validate:"required,max=100"`
	LastName  string `json:"last_name" mod:"trim" validate:"required,max=100"`
	Bio       string `json:"bio" validate:"max=10000"`
}

type UpdateAuthorPayload struct {
	FirstName *string `json:"first_name,omitempty" validate:"omitempty,min=1,max=100"`
	LastName  *string `json:"last_name,omitempty" validate:"omitempty,min=1,max=100"`
	Bio       *string `json:"bio,omitempty" validate:"omitempty,max=10000"`
}
