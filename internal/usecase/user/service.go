// Package user manages organization members and the organization itself.
package user

import (
	"context"
	stdErrors "errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	apperrors "github.com/johnquangdev/call-insight/errors"
	"github.com/johnquangdev/call-insight/internal/domain/entities"
	"github.com/johnquangdev/call-insight/internal/domain/repositories"
)

type Service struct {
	users    repositories.UserRepository
	orgs     repositories.OrganizationRepository
	sessions repositories.SessionRepository
	logger   *zap.Logger
}

func NewService(users repositories.UserRepository, orgs repositories.OrganizationRepository, sessions repositories.SessionRepository, logger *zap.Logger) *Service {
	return &Service{users: users, orgs: orgs, sessions: sessions, logger: logger}
}

// List returns the caller's organization members. Admins and managers only.
func (s *Service) List(ctx context.Context, caller *entities.User, filters repositories.Filters) ([]*entities.User, int64, error) {
	if !caller.CanManage() {
		return nil, 0, apperrors.ErrPermissionDenied("list users")
	}
	users, total, err := s.users.List(ctx, caller.OrganizationID, filters)
	if err != nil {
		return nil, 0, apperrors.ErrInternal(err)
	}
	return users, total, nil
}

// Get returns a member of the caller's organization. Members may read
// only themselves.
func (s *Service) Get(ctx context.Context, caller *entities.User, id uuid.UUID) (*entities.User, error) {
	if !caller.CanManage() && caller.ID != id {
		return nil, apperrors.ErrPermissionDenied("view user")
	}
	return s.find(ctx, caller.OrganizationID, id)
}

// UpdateInput carries optional fields. Nil means unchanged.
type UpdateInput struct {
	Name      *string
	AvatarURL *string
	Role      *entities.UserRole
}

// Update edits the caller or, for admins, any member. Only admins change
// roles, and an admin cannot demote themselves.
func (s *Service) Update(ctx context.Context, caller *entities.User, id uuid.UUID, in UpdateInput) (*entities.User, error) {
	if !caller.IsAdmin() && caller.ID != id {
		return nil, apperrors.ErrPermissionDenied("update user")
	}
	u, err := s.find(ctx, caller.OrganizationID, id)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, apperrors.ErrInvalidArgument("name must not be empty")
		}
		u.Name = name
	}
	if in.AvatarURL != nil {
		u.AvatarURL = in.AvatarURL
	}
	if in.Role != nil && *in.Role != u.Role {
		if !caller.IsAdmin() {
			return nil, apperrors.ErrPermissionDenied("change role")
		}
		if !in.Role.IsValid() {
			return nil, apperrors.ErrInvalidArgument("role must be one of admin, manager, user")
		}
		if caller.ID == id {
			return nil, apperrors.ErrForbidden("admins cannot change their own role")
		}
		u.Role = *in.Role
	}

	if err := s.users.Update(ctx, u); err != nil {
		return nil, apperrors.ErrInternal(err)
	}
	return u, nil
}

// Deactivate disables a member and revokes their sessions. Admins only.
func (s *Service) Deactivate(ctx context.Context, caller *entities.User, id uuid.UUID) error {
	if !caller.IsAdmin() {
		return apperrors.ErrPermissionDenied("deactivate user")
	}
	if caller.ID == id {
		return apperrors.ErrForbidden("admins cannot deactivate themselves")
	}
	if err := s.users.Deactivate(ctx, caller.OrganizationID, id); err != nil {
		if stdErrors.Is(err, entities.ErrUserNotFound) {
			return apperrors.ErrNotFound("user")
		}
		return apperrors.ErrInternal(err)
	}
	if err := s.sessions.RevokeAllByUserID(ctx, id); err != nil && s.logger != nil {
		s.logger.Warn("user.revoke_sessions_failed", zap.String("user_id", id.String()), zap.Error(err))
	}
	return nil
}

// Organization returns the caller's organization.
func (s *Service) Organization(ctx context.Context, caller *entities.User) (*entities.Organization, error) {
	org, err := s.orgs.FindByID(ctx, caller.OrganizationID)
	if err != nil {
		if stdErrors.Is(err, entities.ErrOrganizationNotFound) {
			return nil, apperrors.ErrNotFound("organization")
		}
		return nil, apperrors.ErrInternal(err)
	}
	return org, nil
}

// OrganizationInput carries optional organization fields.
type OrganizationInput struct {
	Name     *string
	Settings datatypes.JSON
}

// UpdateOrganization renames the organization or replaces its settings. Admins only.
func (s *Service) UpdateOrganization(ctx context.Context, caller *entities.User, in OrganizationInput) (*entities.Organization, error) {
	if !caller.IsAdmin() {
		return nil, apperrors.ErrPermissionDenied("update organization")
	}
	org, err := s.Organization(ctx, caller)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, apperrors.ErrInvalidArgument("name must not be empty")
		}
		org.Name = name
	}
	if len(in.Settings) > 0 {
		org.Settings = in.Settings
	}
	if err := s.orgs.Update(ctx, org); err != nil {
		return nil, apperrors.ErrInternal(err)
	}
	return org, nil
}

func (s *Service) find(ctx context.Context, orgID, id uuid.UUID) (*entities.User, error) {
	u, err := s.users.FindByID(ctx, orgID, id)
	if err != nil {
		if stdErrors.Is(err, entities.ErrUserNotFound) {
			return nil, apperrors.ErrNotFound("user")
		}
		return nil, apperrors.ErrInternal(err)
	}
	return u, nil
}
