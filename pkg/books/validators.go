package books

type ListBooksQuery struct {
	Limit     int     `query:"limit" json:"limit,omitempty" default:"25" validate:"min=1,max=100"`
	Offset    int     `query:"offset" json:"offset,omitempty" validate:"min=0"`
	Title     *string `query:"title" json:"title,omitempty" validate:"omitempty,max=200"`
	Author    *string `query:"author" json:"author,omitempty" validate:"omitempty,max=100"`
	AuthorID  *int    `query:"author_id" json:"author_id,omitempty" validate:"omitempty,min=1"`
	Genre     *string `query:"genre" json:"genre,omitempty" validate:"omitempty,max=100"`
	Available *bool   `query:"available" json:"available,omitempty"`
}

type CreateBookPayload struct {
	Title       string `json:"title" mod:"trim" validate:"required,max=200"`
	AuthorID    *int   `json:"author_id,omitempty" validate:"omitempty,min=1"`
	Description string `json:"description" validate:"max=10000"`
	Genre       string `json:"genre" mod:"trim" validate:"max=100"`
	TotalCopies int    `json:"total_copies" default:"1" validate:"min=0,max=100000"`
}

type UpdateBookPayload struct {
	Title       *string `json:"title,omitempty" validate:"omitempty,min=1,max=200"`
	AuthorID    *int    `json:"author_id,omitempty" validate:"omitempty,min=1"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=10000"`
	Genre       *string `json:"genre,omitempty" validate:"omitempty,max=100"`
	TotalCopies *int    `json:"total_copies,omitempty" validate:"omitempty,min=0,max=100000"`
}
