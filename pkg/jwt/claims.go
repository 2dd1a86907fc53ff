package jwt

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token kinds, carried in the typ claim.
const (
	kindAccess  = "access"
	kindRefresh = "refresh"
)

// Claims is the access token payload. It identifies the caller and the
// organisation every request is scoped to.
type Claims struct {
	UserID         uuid.UUID `json:"user_id"`
	OrganizationID uuid.UUID `json:"organization_id"`
	Email          string    `json:"email"`
	Role           string    `json:"role"`
	Kind           string    `json:"typ"`
	jwt.RegisteredClaims
}

// refreshClaims only names the user; the session row holds the rest.
type refreshClaims struct {
	Kind string `json:"typ"`
	jwt.RegisteredClaims
}
