package presenter

import (
	"time"

	"github.com/google/uuid"

	"github.com/johnquangdev/call-insight/internal/domain/entities"
	"github.com/johnquangdev/call-insight/internal/usecase/invitation"
)

// Invitation statuses derived at read time.
const (
	InvitationPending  = "pending"
	InvitationAccepted = "accepted"
	InvitationExpired  = "expired"
)

// InvitationResponse is an invitation as returned by the API. Token is only
// set right after create or resend.
type InvitationResponse struct {
	ID         uuid.UUID         `json:"id"`
	Email      string            `json:"email"`
	Role       entities.UserRole `json:"role"`
	Status     string            `json:"status"`
	InvitedBy  uuid.UUID         `json:"invitedBy"`
	ExpiresAt  time.Time         `json:"expiresAt"`
	AcceptedAt *time.Time        `json:"acceptedAt,omitempty"`
	CreatedAt  time.Time         `json:"createdAt"`
	Token      string            `json:"token,omitempty"`
}

// ToInvitationResponse maps inv, computing its status against now.
func ToInvitationResponse(inv *entities.Invitation, now time.Time) *InvitationResponse {
	if inv == nil {
		return nil
	}
	status := InvitationPending
	switch {
	case inv.IsAccepted():
		status = InvitationAccepted
	case inv.IsExpired(now):
		status = InvitationExpired
	}
	return &InvitationResponse{
		ID:         inv.ID,
		Email:      inv.Email,
		Role:       inv.Role,
		Status:     status,
		InvitedBy:  inv.InvitedBy,
		ExpiresAt:  inv.ExpiresAt,
		AcceptedAt: inv.AcceptedAt,
		CreatedAt:  inv.CreatedAt,
	}
}

// ToIssuedInvitation includes the one-time token.
func ToIssuedInvitation(issued *invitation.Issued, now time.Time) *InvitationResponse {
	if issued == nil {
		return nil
	}
	resp := ToInvitationResponse(issued.Invitation, now)
	if resp != nil {
		resp.Token = issued.Token
	}
	return resp
}

// ToInvitationResponses maps a page of invitations.
func ToInvitationResponses(invs []*entities.Invitation, now time.Time) []*InvitationResponse {
	out := make([]*InvitationResponse, 0, len(invs))
	for _, inv := range invs {
		if inv == nil {
			continue
		}
		out = append(out, ToInvitationResponse(inv, now))
	}
	return out
}
