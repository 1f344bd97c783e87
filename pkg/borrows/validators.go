package borrows

type ListBorrowsQuery struct {
	Limit  int     `query:"limit" json:"limit,omitempty" default:"25" validate:"min=1,max=100"`
	Offset int     `query:"offset" json:"offset,omitempty" validate:"min=0"`
	UserID *int    `query:"user_id" json:"user_id,omitempty" validate:"omitempty,min=1"`
	BookID *int    `query:"book_id" json:"book_id,omitempty" validate:"omitempty,min=1"`
	Status *string `query:"status" json:"status,omitempty" validate:"omitempty,oneof=borrowed overdue returned"`
}

type CreateBorrowPayload struct {
	UserID  int     `json:"user_id" validate:"required,min=1"`
	BookID  int     `json:"book_id" validate:"required,min=1"`
	DueDate *string `json:"due_date,omitempty" validate:"omitempty,date,ne="`
}

type UpdateBorrowPayload struct {
	DueDate string `json:"due_date" validate:"required,date"`
}
