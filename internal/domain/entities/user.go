package entities

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// User represents a member of an organization
type User struct {
	ID             uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	OrganizationID uuid.UUID `json:"organizationId" gorm:"type:uuid;not null;index"`
	Email          string    `json:"email" gorm:"type:varchar(255);uniqueIndex;not null"`
	Name           string    `json:"name" gorm:"type:varchar(255);not null"`
	Role           UserRole  `json:"role" gorm:"type:varchar(50);default:'user';not null"`
	IsActive       bool      `json:"isActive" gorm:"default:true;not null"`

	// OAuth fields
	OAuthProvider *string `json:"oauthProvider,omitempty" gorm:"column:oauth_provider;type:varchar(50);index:idx_oauth"`
	OAuthID       *string `json:"oauthId,omitempty" gorm:"column:oauth_id;type:varchar(255);index:idx_oauth"`
	PasswordHash  *string `json:"-" gorm:"column:password_hash;type:text"` // Never expose in JSON

	AvatarURL   *string    `json:"avatarUrl,omitempty" gorm:"type:varchar(500)"`
	LastLoginAt *time.Time `json:"lastLoginAt,omitempty" gorm:"type:timestamp"`

	CreatedAt time.Time `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updatedAt" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for GORM
func (User) TableName() string {
	return "users"
}

// UserRole defines user roles
type UserRole string

const (
	RoleAdmin   UserRole = "admin"
	RoleManager UserRole = "manager"
	RoleUser    UserRole = "user"
)

// IsValid checks if the user role is valid
func (r UserRole) IsValid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleUser:
		return true
	}
	return false
}

// NewUser creates a new active user inside orgID
func NewUser(orgID uuid.UUID, email, name string, role UserRole) *User {
	now := time.Now()
	return &User{
		ID:             uuid.New(),
		OrganizationID: orgID,
		Email:          NormalizeEmail(email),
		Name:           strings.TrimSpace(name),
		Role:           role,
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// NormalizeEmail lower-cases and trims an address so lookups are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// UpdateLastLogin updates the last login timestamp
func (u *User) UpdateLastLogin() {
	now := time.Now()
	u.LastLoginAt = &now
	u.UpdatedAt = now
}

// IsAdmin checks if user is admin
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// CanManage reports whether the user may see and manage other members' data.
func (u *User) CanManage() bool {
	return u.Role == RoleAdmin || u.Role == RoleManager
}

// Validate validates user data
func (u *User) Validate() error {
	if u.Email == "" || !strings.Contains(u.Email, "@") {
		return ErrInvalidEmail
	}
	if u.Name == "" {
		return ErrInvalidName
	}
	if !u.Role.IsValid() {
		return ErrInvalidRole
	}
	return nil
}

// PublicUser returns a user with sensitive fields removed
type PublicUser struct {
	ID             uuid.UUID  `json:"id"`
	OrganizationID uuid.UUID  `json:"organizationId"`
	Email          string     `json:"email"`
	Name           string     `json:"name"`
	Role           UserRole   `json:"role"`
	IsActive       bool       `json:"isActive"`
	AvatarURL      *string    `json:"avatarUrl,omitempty"`
	LastLoginAt    *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
}

// ToPublic converts User to PublicUser
func (u *User) ToPublic() *PublicUser {
	return &PublicUser{
		ID:             u.ID,
		OrganizationID: u.OrganizationID,
		Email:          u.Email,
		Name:           u.Name,
		Role:           u.Role,
		IsActive:       u.IsActive,
		AvatarURL:      u.AvatarURL,
		LastLoginAt:    u.LastLoginAt,
		CreatedAt:      u.CreatedAt,
	}
}

// CanAccessRecording reports whether the user may read or modify rec.
// Members see only their own recordings; admins and managers see the
// whole organization.
func (u *User) CanAccessRecording(rec *Recording) bool {
	if u.OrganizationID != rec.OrganizationID {
		return false
	}
	return u.CanManage() || rec.UserID == u.ID
}
