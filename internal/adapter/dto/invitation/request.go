package invitation

// CreateInvitationRequest invites an email into the caller's organization.
type CreateInvitationRequest struct {
	Email string `json:"email" validate:"required,email,max=255"`
	Role  string `json:"role,omitempty" validate:"omitempty,oneof=admin manager user"`
}

// AcceptInvitationRequest turns an invitation into a user account.
type AcceptInvitationRequest struct {
	Token    string `json:"token" validate:"required,hexadecimal,len=64"`
	Name     string `json:"name" validate:"required,min=1,max=255"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}
