package user

import "encoding/json"

// UpdateUserRequest edits a member. Nil fields are left unchanged.
type UpdateUserRequest struct {
	Name      *string `json:"name,omitempty" validate:"omitempty,min=1,max=255"`
	AvatarURL *string `json:"avatarUrl,omitempty" validate:"omitempty,url"`
	Role      *string `json:"role,omitempty" validate:"omitempty,oneof=admin manager user"`
}

// UpdateOrganizationRequest edits the caller's organization.
type UpdateOrganizationRequest struct {
	Name     *string         `json:"name,omitempty" validate:"omitempty,min=2,max=255"`
	Settings json.RawMessage `json:"settings,omitempty"`
}
