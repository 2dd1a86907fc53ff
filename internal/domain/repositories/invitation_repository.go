package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/johnquangdev/call-insight/internal/domain/entities"
)

// InvitationRepository defines the interface for invitation data access
type InvitationRepository interface {
	// Create creates a new invitation
	Create(ctx context.Context, invitation *entities.Invitation) error

	// FindByID finds an invitation inside the organization
	FindByID(ctx context.Context, orgID, id uuid.UUID) (*entities.Invitation, error)

	// FindByToken finds an invitation by its secret token
	FindByToken(ctx context.Context, token string) (*entities.Invitation, error)

	// FindPendingByEmail finds an unaccepted, unexpired invitation for email
	FindPendingByEmail(ctx context.Context, orgID uuid.UUID, email string, now time.Time) (*entities.Invitation, error)

	// List returns the organization's invitations, newest first
	List(ctx context.Context, orgID uuid.UUID, filters Filters) ([]*entities.Invitation, int64, error)

	// Update updates an invitation
	Update(ctx context.Context, invitation *entities.Invitation) error

	// Delete removes an invitation
	Delete(ctx context.Context, orgID, id uuid.UUID) error

	// Accept creates user and marks the invitation accepted in one transaction.
	// It fails with ErrInvitationAccepted if another request won the race.
	Accept(ctx context.Context, invitation *entities.Invitation, user *entities.User) error
}
