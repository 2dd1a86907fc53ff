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

var _ repositories.InvitationRepository = (*InvitationRepository)(nil)

var invitationSortColumns = map[string]string{
	"createdAt": "created_at",
	"email":     "email",
	"expiresAt": "expires_at",
}

// InvitationRepository handles invitation data operations
type InvitationRepository struct {
	db *gorm.DB
}

// NewInvitationRepository creates a new invitation repository
func NewInvitationRepository(db *gorm.DB) *InvitationRepository {
	return &InvitationRepository{db: db}
}

// Create creates a new invitation
func (r *InvitationRepository) Create(ctx context.Context, invitation *entities.Invitation) error {
	if invitation.OrganizationID == uuid.Nil {
		return entities.ErrMissingTenant
	}
	if err := r.db.WithContext(ctx).Create(invitation).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return entities.ErrInvitationAlreadyExists
		}
		return fmt.Errorf("failed to create invitation: %w", err)
	}
	return nil
}

// FindByID finds an invitation by ID
func (r *InvitationRepository) FindByID(ctx context.Context, orgID, id uuid.UUID) (*entities.Invitation, error) {
	var invitation entities.Invitation
	if err := r.db.WithContext(ctx).Scopes(scopeTenant(orgID)).Where("id = ?", id).First(&invitation).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, entities.ErrInvitationNotFound
		}
		return nil, fmt.Errorf("failed to find invitation: %w", err)
	}
	return &invitation, nil
}

// FindByToken finds an invitation by its token
func (r *InvitationRepository) FindByToken(ctx context.Context, token string) (*entities.Invitation, error) {
	var invitation entities.Invitation
	if err := r.db.WithContext(ctx).Where("token = ?", token).First(&invitation).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, entities.ErrInvitationNotFound
		}
		return nil, fmt.Errorf("failed to find invitation by token: %w", err)
	}
	return &invitation, nil
}

// FindPendingByEmail finds a pending invitation for email
func (r *InvitationRepository) FindPendingByEmail(ctx context.Context, orgID uuid.UUID, email string, now time.Time) (*entities.Invitation, error) {
	var invitation entities.Invitation
	if err := r.db.WithContext(ctx).
		Scopes(scopeTenant(orgID)).
		Where("email = ? AND accepted_at IS NULL AND expires_at > ?", entities.NormalizeEmail(email), now).
		First(&invitation).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, entities.ErrInvitationNotFound
		}
		return nil, fmt.Errorf("failed to find pending invitation: %w", err)
	}
	return &invitation, nil
}

// List returns the organization's invitations
func (r *InvitationRepository) List(ctx context.Context, orgID uuid.UUID, filters repositories.Filters) ([]*entities.Invitation, int64, error) {
	var (
		invitations []*entities.Invitation
		total       int64
	)

	query := r.db.WithContext(ctx).Model(&entities.Invitation{}).Scopes(scopeTenant(orgID))
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count invitations: %w", err)
	}
	if err := query.Scopes(paginate(filters, invitationSortColumns, "created_at")).Find(&invitations).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list invitations: %w", err)
	}
	return invitations, total, nil
}

// Update writes token, role and expiry of an invitation
func (r *InvitationRepository) Update(ctx context.Context, invitation *entities.Invitation) error {
	res := r.db.WithContext(ctx).
		Model(&entities.Invitation{}).
		Scopes(scopeTenant(invitation.OrganizationID)).
		Where("id = ?", invitation.ID).
		Updates(map[string]interface{}{
			"token":       invitation.Token,
			"role":        invitation.Role,
			"expires_at":  invitation.ExpiresAt,
			"accepted_at": invitation.AcceptedAt,
			"updated_at":  time.Now(),
		})
	if res.Error != nil {
		return fmt.Errorf("failed to update invitation: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return entities.ErrInvitationNotFound
	}
	return nil
}

// Delete removes an invitation
func (r *InvitationRepository) Delete(ctx context.Context, orgID, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Scopes(scopeTenant(orgID)).Where("id = ?", id).Delete(&entities.Invitation{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete invitation: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return entities.ErrInvitationNotFound
	}
	return nil
}

// Accept marks the invitation accepted and creates the user atomically. The
// conditional update doubles as the guard against concurrent acceptance.
func (r *InvitationRepository) Accept(ctx context.Context, invitation *entities.Invitation, user *entities.User) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		res := tx.Model(&entities.Invitation{}).
			Scopes(scopeTenant(invitation.OrganizationID)).
			Where("id = ? AND accepted_at IS NULL", invitation.ID).
			Updates(map[string]interface{}{
				"accepted_at": now,
				"updated_at":  now,
			})
		if res.Error != nil {
			return fmt.Errorf("failed to accept invitation: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return entities.ErrInvitationAccepted
		}

		if err := tx.Create(user).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return entities.ErrUserAlreadyExists
			}
			return fmt.Errorf("failed to create user: %w", err)
		}

		invitation.Accept(now)
		return nil
	})
}
