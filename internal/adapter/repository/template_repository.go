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

var _ repositories.TemplateRepository = (*TemplateRepository)(nil)

// TemplateRepository handles process template data operations
type TemplateRepository struct {
	db *gorm.DB
}

// NewTemplateRepository creates a new template repository
func NewTemplateRepository(db *gorm.DB) *TemplateRepository {
	return &TemplateRepository{db: db}
}

// clearDefault unsets the default flag on every template of the organization except keep.
func clearDefault(tx *gorm.DB, orgID, keep uuid.UUID) error {
	if err := tx.Model(&entities.ProcessTemplate{}).
		Scopes(scopeTenant(orgID)).
		Where("is_default = ? AND id <> ?", true, keep).
		Update("is_default", false).Error; err != nil {
		return fmt.Errorf("failed to clear default template: %w", err)
	}
	return nil
}

// Create creates a template, clearing the previous default first when needed
func (r *TemplateRepository) Create(ctx context.Context, template *entities.ProcessTemplate) error {
	if template.OrganizationID == uuid.Nil {
		return entities.ErrMissingTenant
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if template.IsDefault {
			if err := clearDefault(tx, template.OrganizationID, template.ID); err != nil {
				return err
			}
		}
		if err := tx.Create(template).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return entities.ErrTemplateAlreadyExists
			}
			return fmt.Errorf("failed to create template: %w", err)
		}
		return nil
	})
}

// FindByID finds a template by ID
func (r *TemplateRepository) FindByID(ctx context.Context, orgID, id uuid.UUID) (*entities.ProcessTemplate, error) {
	var template entities.ProcessTemplate
	if err := r.db.WithContext(ctx).Scopes(scopeTenant(orgID)).Where("id = ?", id).First(&template).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, entities.ErrTemplateNotFound
		}
		return nil, fmt.Errorf("failed to find template: %w", err)
	}
	return &template, nil
}

// FindByName finds a template by its case-insensitive name
func (r *TemplateRepository) FindByName(ctx context.Context, orgID uuid.UUID, name string) (*entities.ProcessTemplate, error) {
	var template entities.ProcessTemplate
	if err := r.db.WithContext(ctx).Scopes(scopeTenant(orgID)).Where("LOWER(name) = LOWER(?)", name).First(&template).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, entities.ErrTemplateNotFound
		}
		return nil, fmt.Errorf("failed to find template by name: %w", err)
	}
	return &template, nil
}

// FindDefault finds the organization's default template
func (r *TemplateRepository) FindDefault(ctx context.Context, orgID uuid.UUID) (*entities.ProcessTemplate, error) {
	var template entities.ProcessTemplate
	if err := r.db.WithContext(ctx).Scopes(scopeTenant(orgID)).Where("is_default = ?", true).First(&template).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, entities.ErrTemplateNotFound
		}
		return nil, fmt.Errorf("failed to find default template: %w", err)
	}
	return &template, nil
}

// List returns every template of the organization, default first
func (r *TemplateRepository) List(ctx context.Context, orgID uuid.UUID) ([]*entities.ProcessTemplate, error) {
	var templates []*entities.ProcessTemplate
	if err := r.db.WithContext(ctx).
		Scopes(scopeTenant(orgID)).
		Order("is_default DESC").
		Order("name ASC").
		Find(&templates).Error; err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	return templates, nil
}

// Update writes the template, clearing the previous default first when needed
func (r *TemplateRepository) Update(ctx context.Context, template *entities.ProcessTemplate) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if template.IsDefault {
			if err := clearDefault(tx, template.OrganizationID, template.ID); err != nil {
				return err
			}
		}
		template.UpdatedAt = time.Now()
		res := tx.Model(&entities.ProcessTemplate{}).
			Scopes(scopeTenant(template.OrganizationID)).
			Where("id = ?", template.ID).
			Updates(map[string]interface{}{
				"name":        template.Name,
				"description": template.Description,
				"steps":       jsonColumn(template.Steps),
				"is_default":  template.IsDefault,
				"updated_at":  template.UpdatedAt,
			})
		if res.Error != nil {
			if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
				return entities.ErrTemplateAlreadyExists
			}
			return fmt.Errorf("failed to update template: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return entities.ErrTemplateNotFound
		}
		return nil
	})
}

// Delete removes a template
func (r *TemplateRepository) Delete(ctx context.Context, orgID, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Scopes(scopeTenant(orgID)).Where("id = ?", id).Delete(&entities.ProcessTemplate{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete template: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return entities.ErrTemplateNotFound
	}
	return nil
}

// SetDefault makes id the only default template of the organization
func (r *TemplateRepository) SetDefault(ctx context.Context, orgID, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var template entities.ProcessTemplate
		if err := tx.Scopes(scopeTenant(orgID)).Where("id = ?", id).First(&template).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return entities.ErrTemplateNotFound
			}
			return fmt.Errorf("failed to find template: %w", err)
		}
		if err := clearDefault(tx, orgID, id); err != nil {
			return err
		}
		if err := tx.Model(&entities.ProcessTemplate{}).
			Scopes(scopeTenant(orgID)).
			Where("id = ?", id).
			Update("is_default", true).Error; err != nil {
			return fmt.Errorf("failed to set default template: %w", err)
		}
		return nil
	})
}
