package requests

type ListRequestsQuery struct {
	Limit  int     `query:"limit" json:"limit,omitempty" default:"25" validate:"min=1,max=100"`
	Offset int     `query:"offset" json:"offset,omitempty" validate:"min=0"`
	UserID *int    `query:"user_id" json:"user_id,omitempty" validate:"omitempty,min=1"`
	BookID *int    `query:"book_id" json:"book_id,omitempty" validate:"omitempty,min=1"`
	Status *string `query:"status" json:"status,omitempty" validate:"omitempty,oneof=pending approved rejected"`
}

type CreateRequestPayload struct {
	// UserID lets staff file a request on a member's behalf. Members always
	// request for themselves.
	UserID         *int    `json:"user_id,omitempty" validate:"omitempty,min=1"`
	BookID         int     `json:"book_id" validate:"required,min=1"`
	DesiredDueDate *string `json:"desired_due_date,omitempty" validate:"omitempty,date,ne="`
}

type RejectRequestPayload struct {
	Reason string `json:"reason" validate:"max=1000"`
}
