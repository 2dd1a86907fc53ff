package entities

import (
	"time"

	"github.com/google/uuid"
)

// InvitationTTL is how long an invitation token stays valid after it is
// created or resent.
const InvitationTTL = 7 * 24 * time.Hour

// Invitation lets an admin or manager bring a new member into the organization.
type Invitation struct {
	ID             uuid.UUID  `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	OrganizationID uuid.UUID  `json:"organizationId" gorm:"type:uuid;not null;index"`
	Email          string     `json:"email" gorm:"type:varchar(255);not null;index"`
	Role           UserRole   `json:"role" gorm:"type:varchar(50);not null"`
	Token          string     `json:"-" gorm:"type:varchar(128);uniqueIndex;not null"`
	InvitedBy      uuid.UUID  `json:"invitedBy" gorm:"type:uuid;not null"`
	ExpiresAt      time.Time  `json:"expiresAt" gorm:"not null"`
	AcceptedAt     *time.Time `json:"acceptedAt,omitempty"`
	CreatedAt      time.Time  `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt      time.Time  `json:"updatedAt" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for GORM
func (Invitation) TableName() string {
	return "invitations"
}

// NewInvitation creates a pending invitation expiring InvitationTTL after now.
func NewInvitation(orgID uuid.UUID, email string, role UserRole, invitedBy uuid.UUID, token string, now time.Time) *Invitation {
	return &Invitation{
		ID:             uuid.New(),
		OrganizationID: orgID,
		Email:          NormalizeEmail(email),
		Role:           role,
		Token:          token,
		InvitedBy:      invitedBy,
		ExpiresAt:      now.Add(InvitationTTL),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// IsAccepted reports whether the invitation has been used.
func (i *Invitation) IsAccepted() bool {
	return i.AcceptedAt != nil
}

// IsExpired reports whether the invitation is past its expiry at now.
func (i *Invitation) IsExpired(now time.Time) bool {
	return !now.Before(i.ExpiresAt)
}

// IsPending reports whether the invitation can still be accepted.
func (i *Invitation) IsPending(now time.Time) bool {
	return !i.IsAccepted() && !i.IsExpired(now)
}

// Renew swaps the token and restarts the expiry window.
func (i *Invitation) Renew(token string, now time.Time) {
	i.Token = token
	i.ExpiresAt = now.Add(InvitationTTL)
	i.UpdatedAt = now
}

// Accept marks the invitation as used at now.
func (i *Invitation) Accept(now time.Time) {
	i.AcceptedAt = &now
	i.UpdatedAt = now
}
