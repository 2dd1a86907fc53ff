package auth

// RegisterRequest creates an organization and its first admin
type RegisterRequest struct {
	OrganizationName string `json:"organizationName" validate:"required,min=2,max=255"`
	Name             string `json:"name" validate:"required,min=1,max=255"`
	Email            string `json:"email" validate:"required,email,max=255"`
	Password         string `json:"password" validate:"required,min=8,max=72"`
}

// LoginRequest represents an email/password sign-in
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshTokenRequest represents the request to refresh access token
type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

// LogoutRequest represents the request to logout
type LogoutRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
	// AllDevices revokes every session of the user.
	AllDevices bool `json:"allDevices"`
}
