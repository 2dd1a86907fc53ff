package repositories

import (
	"context"

	"github.com/google/uuid"

	"github.com/johnquangdev/call-insight/internal/domain/entities"
)

// TemplateRepository defines the interface for process template data access.
// Create, Update and SetDefault keep at most one default per organization by
// clearing the previous default in the same transaction.
type TemplateRepository interface {
	Create(ctx context.Context, template *entities.ProcessTemplate) error
	FindByID(ctx context.Context, orgID, id uuid.UUID) (*entities.ProcessTemplate, error)
	FindByName(ctx context.Context, orgID uuid.UUID, name string) (*entities.ProcessTemplate, error)
	FindDefault(ctx context.Context, orgID uuid.UUID) (*entities.ProcessTemplate, error)
	List(ctx context.Context, orgID uuid.UUID) ([]*entities.ProcessTemplate, error)
	Update(ctx context.Context, template *entities.ProcessTemplate) error
	Delete(ctx context.Context, orgID, id uuid.UUID) error
	SetDefault(ctx context.Context, orgID, id uuid.UUID) error
}
