package repositories

import (
	"context"

	"github.com/google/uuid"

	"github.com/johnquangdev/call-insight/internal/domain/entities"
)

// UserRepository defines the interface for user data access. Every method
// except the identity lookups (FindByEmail, FindByOAuth) is tenant scoped.
type UserRepository interface {
	// FindByID finds a user by ID inside the organization
	FindByID(ctx context.Context, orgID, id uuid.UUID) (*entities.User, error)

	// FindByEmail finds a user by email across all organizations
	FindByEmail(ctx context.Context, email string) (*entities.User, error)

	// FindByOAuth finds a user by OAuth provider and ID
	FindByOAuth(ctx context.Context, provider, oauthID string) (*entities.User, error)

	// Update updates a user
	Update(ctx context.Context, user *entities.User) error

	// UpdateLastLogin updates the last login timestamp
	UpdateLastLogin(ctx context.Context, orgID, id uuid.UUID) error

	// Deactivate sets is_active to false
	Deactivate(ctx context.Context, orgID, id uuid.UUID) error

	// List returns a paginated list of users
	List(ctx context.Context, orgID uuid.UUID, filters Filters) ([]*entities.User, int64, error)

	// ListActive returns every active user of the organization
	ListActive(ctx context.Context, orgID uuid.UUID) ([]*entities.User, error)
}
