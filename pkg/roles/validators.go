package roles

type PermissionInput struct {
	Resource  string `json:"resource" validate:"required"`
	Operation string `json:"operation" validate:"required"`
}

type CreateRolePayload struct {
	Name        string            `json:"name" validate:"required,min=1,max=50" mod:"trim"`
	Permissions []PermissionInput `json:"permissions" validate:"dive"`
}

// UpdateRolePayload replaces the whole permission set when permissions is
// present, including with an empty list.
type UpdateRolePayload struct {
	Name        *string            `json:"name" validate:"omitempty,min=1,max=50"`
	Permissions *[]PermissionInput `json:"permissions"`
}

type ListRolesQuery struct {
	Limit  int `query:"limit" json:"limit,omitempty" default:"50" validate:"min=1,max=100"`
	Offset int `query:"offset" json:"offset,omitempty" validate:"min=0"`
}
