package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/johnquangdev/call-insight/internal/domain/entities"
	"github.com/johnquangdev/call-insight/internal/domain/repositories"
)

var _ repositories.OrganizationRepository = (*OrganizationRepository)(nil)

// OrganizationRepository implements the organization repository interface using GORM
type OrganizationRepository struct {
	db *gorm.DB
}

// NewOrganizationRepository creates a new organization repository
func NewOrganizationRepository(db *gorm.DB) *OrganizationRepository {
	return &OrganizationRepository{db: db}
}

// CreateWithOwner creates the organization and its owner in one transaction
func (r *OrganizationRepository) CreateWithOwner(ctx context.Context, org *entities.Organization, owner *entities.User) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(org).Error; err != nil {
			return fmt.Errorf("failed to create organization: %w", err)
		}
		owner.OrganizationID = org.ID
		if err := tx.Create(owner).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return entities.ErrUserAlreadyExists
			}
			return fmt.Errorf("failed to create owner: %w", err)
		}
		return nil
	})
}

// FindByID finds an organization by ID
func (r *OrganizationRepository) FindByID(ctx context.Context, id uuid.UUID) (*entities.Organization, error) {
	var org entities.Organization
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&org).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, entities.ErrOrganizationNotFound
		}
		return nil, fmt.Errorf("failed to find organization: %w", err)
	}
	return &org, nil
}

// Update writes the mutable organization columns
func (r *OrganizationRepository) Update(ctx context.Context, org *entities.Organization) error {
	org.UpdatedAt = time.Now()
	res := r.db.WithContext(ctx).
		Model(&entities.Organization{}).
		Where("id = ?", org.ID).
		Updates(map[string]interface{}{
			"name":       org.Name,
			"plan":       org.Plan,
			"settings":   org.Settings,
			"is_active":  org.IsActive,
			"updated_at": org.UpdatedAt,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to update organization: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return entities.ErrOrganizationNotFound
	}
	return nil
}
