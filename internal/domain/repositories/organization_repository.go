package repositories

import (
	"context"

	"github.com/google/uuid"

	"github.com/johnquangdev/call-insight/internal/domain/entities"
)

// OrganizationRepository defines the interface for organization data access
type OrganizationRepository interface {
	// CreateWithOwner creates the organization and its first admin atomically
	CreateWithOwner(ctx context.Context, org *entities.Organization, owner *entities.User) error

	// FindByID finds an organization by ID
	FindByID(ctx context.Context, id uuid.UUID) (*entities.Organization, error)

	// Update updates an organization
	Update(ctx context.Context, org *entities.Organization) error
}
