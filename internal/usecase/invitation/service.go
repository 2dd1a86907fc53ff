// Package invitation lets admins and managers bring new members into an
// organization through single-use, expiring tokens.
package invitation

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	stdErrors "errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "github.com/johnquangdev/call-insight/errors"
	"github.com/johnquangdev/call-insight/internal/domain/entities"
	"github.com/johnquangdev/call-insight/internal/domain/repositories"
)

// TokenBytes is the entropy of an invitation token before hex encoding.
const TokenBytes = 32

// PasswordHasher hashes the password chosen on acceptance.
type PasswordHasher func(password string) (string, error)

type Service struct {
	invitations repositories.InvitationRepository
	users       repositories.UserRepository
	orgs        repositories.OrganizationRepository
	hash        PasswordHasher
	now         func() time.Time
	logger      *zap.Logger
}

func NewService(
	invitations repositories.InvitationRepository,
	users repositories.UserRepository,
	orgs repositories.OrganizationRepository,
	hash PasswordHasher,
	logger *zap.Logger,
) *Service {
	return &Service{
		invitations: invitations,
		users:       users,
		orgs:        orgs,
		hash:        hash,
		now:         time.Now,
		logger:      logger,
	}
}

// Issued is an invitation with its token. The token is only revealed on
// create and resend.
type Issued struct {
	*entities.Invitation
	Token string `json:"token"`
}

func newToken() (string, error) {
	b := make([]byte, TokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func canInvite(caller *entities.User, role entities.UserRole) error {
	if !caller.CanManage() {
		return apperrors.ErrPermissionDenied("manage invitations")
	}
	if !role.IsValid() {
		return apperrors.ErrInvalidArgument("role must be one of admin, manager, user")
	}
	if role == entities.RoleAdmin && !caller.IsAdmin() {
		return apperrors.ErrPermissionDenied("invite admins")
	}
	return nil
}

// Create invites email with role. The address must not belong to a user or
// to another pending invitation of the organization.
func (s *Service) Create(ctx context.Context, caller *entities.User, email string, role entities.UserRole) (*Issued, error) {
	if role == "" {
		role = entities.RoleUser
	}
	if err := canInvite(caller, role); err != nil {
		return nil, err
	}
	email = entities.NormalizeEmail(email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, apperrors.ErrInvalidArgument("a valid email is required")
	}

	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil, apperrors.ErrUserAlreadyExists(email)
	} else if !stdErrors.Is(err, entities.ErrUserNotFound) {
		return nil, apperrors.ErrInternal(err)
	}
	now := s.now()
	if _, err := s.invitations.FindPendingByEmail(ctx, caller.OrganizationID, email, now); err == nil {
		return nil, apperrors.ErrAlreadyExists("invitation")
	} else if !stdErrors.Is(err, entities.ErrInvitationNotFound) {
		return nil, apperrors.ErrInternal(err)
	}

	token, err := newToken()
	if err != nil {
		return nil, apperrors.ErrInternal(err)
	}
	inv := entities.NewInvitation(caller.OrganizationID, email, role, caller.ID, token, now)
	if err := s.invitations.Create(ctx, inv); err != nil {
		if stdErrors.Is(err, entities.ErrInvitationAlreadyExists) {
			return nil, apperrors.ErrAlreadyExists("invitation")
		}
		return nil, apperrors.ErrInternal(err)
	}
	if s.logger != nil {
		s.logger.Info("invitation.created",
			zap.String("invitation_id", inv.ID.String()),
			zap.String("organization_id", inv.OrganizationID.String()),
			zap.String("role", string(role)))
	}
	return &Issued{Invitation: inv, Token: token}, nil
}

func (s *Service) List(ctx context.Context, caller *entities.User, filters repositories.Filters) ([]*entities.Invitation, int64, error) {
	if !caller.CanManage() {
		return nil, 0, apperrors.ErrPermissionDenied("manage invitations")
	}
	items, total, err := s.invitations.List(ctx, caller.OrganizationID, filters)
	if err != nil {
		return nil, 0, apperrors.ErrInternal(err)
	}
	return items, total, nil
}

// Resend issues a fresh token and restarts the seven-day window.
func (s *Service) Resend(ctx context.Context, caller *entities.User, id uuid.UUID) (*Issued, error) {
	inv, err := s.find(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if err := canInvite(caller, inv.Role); err != nil {
		return nil, err
	}
	if inv.IsAccepted() {
		return nil, apperrors.ErrInvitationAccepted()
	}
	token, err := newToken()
	if err != nil {
		return nil, apperrors.ErrInternal(err)
	}
	inv.Renew(token, s.now())
	if err := s.invitations.Update(ctx, inv); err != nil {
		return nil, apperrors.ErrInternal(err)
	}
	return &Issued{Invitation: inv, Token: token}, nil
}

func (s *Service) Delete(ctx context.Context, caller *entities.User, id uuid.UUID) error {
	if _, err := s.find(ctx, caller, id); err != nil {
		return err
	}
	if err := s.invitations.Delete(ctx, caller.OrganizationID, id); err != nil {
		if stdErrors.Is(err, entities.ErrInvitationNotFound) {
			return apperrors.ErrNotFound("invitation")
		}
		return apperrors.ErrInternal(err)
	}
	return nil
}

func (s *Service) find(ctx context.Context, caller *entities.User, id uuid.UUID) (*entities.Invitation, error) {
	if !caller.CanManage() {
		return nil, apperrors.ErrPermissionDenied("manage invitations")
	}
	inv, err := s.invitations.FindByID(ctx, caller.OrganizationID, id)
	if err != nil {
		if stdErrors.Is(err, entities.ErrInvitationNotFound) {
			return nil, apperrors.ErrNotFound("invitation")
		}
		return nil, apperrors.ErrInternal(err)
	}
	return inv, nil
}

// Preview is what an invitee sees before accepting.
type Preview struct {
	Email            string            `json:"email"`
	Role             entities.UserRole `json:"role"`
	OrganizationName string            `json:"organizationName"`
	ExpiresAt        time.Time         `json:"expiresAt"`
}

// Lookup resolves a token that can still be accepted.
func (s *Service) Lookup(ctx context.Context, token string) (*Preview, error) {
	inv, err := s.pending(ctx, token)
	if err != nil {
		return nil, err
	}
	org, err := s.orgs.FindByID(ctx, inv.OrganizationID)
	if err != nil {
		return nil, apperrors.ErrInternal(err)
	}
	return &Preview{Email: inv.Email, Role: inv.Role, OrganizationName: org.Name, ExpiresAt: inv.ExpiresAt}, nil
}

// Accept creates the invited user and marks the invitation used in one
// transaction.
func (s *Service) Accept(ctx context.Context, token, name, password string) (*entities.User, error) {
	inv, err := s.pending(ctx, token)
	if err != nil {
		return nil, err
	}
	hash, err := s.hash(password)
	if err != nil {
		return nil, err
	}
	user := entities.NewUser(inv.OrganizationID, inv.Email, name, inv.Role)
	user.PasswordHash = &hash
	if err := user.Validate(); err != nil {
		return nil, apperrors.ErrInvalidArgument(err.Error())
	}

	if err := s.invitations.Accept(ctx, inv, user); err != nil {
		switch {
		case stdErrors.Is(err, entities.ErrInvitationAccepted):
			return nil, apperrors.ErrInvitationAccepted()
		case stdErrors.Is(err, entities.ErrUserAlreadyExists):
			return nil, apperrors.ErrUserAlreadyExists(inv.Email)
		case stdErrors.Is(err, entities.ErrInvitationNotFound):
			return nil, apperrors.ErrNotFound("invitation")
		}
		return nil, apperrors.ErrDBTransactionFailed(err)
	}
	if s.logger != nil {
		s.logger.Info("invitation.accepted",
			zap.String("invitation_id", inv.ID.String()),
			zap.String("user_id", user.ID.String()))
	}
	return user, nil
}

func (s *Service) pending(ctx context.Context, token string) (*entities.Invitation, error) {
	if strings.TrimSpace(token) == "" {
		return nil, apperrors.ErrNotFound("invitation")
	}
	inv, err := s.invitations.FindByToken(ctx, token)
	if err != nil {
		if stdErrors.Is(err, entities.ErrInvitationNotFound) {
			return nil, apperrors.ErrNotFound("invitation")
		}
		return nil, apperrors.ErrInternal(err)
	}
	if inv.IsAccepted() {
		return nil, apperrors.ErrInvitationAccepted()
	}
	if inv.IsExpired(s.now()) {
		return nil, apperrors.ErrInvitationExpired()
	}
	return inv, nil
}
