package auth

import (
	"context"
	stdErrors "errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	apperrors "github.com/johnquangdev/call-insight/errors"
	"github.com/johnquangdev/call-insight/internal/domain/entities"
	"github.com/johnquangdev/call-insight/internal/domain/repositories"
	"github.com/johnquangdev/call-insight/internal/infrastructure/external/oauth"
	"github.com/johnquangdev/call-insight/pkg/jwt"
)

// BcryptCost is the work factor for stored password hashes.
const BcryptCost = 12

const providerGoogle = "google"

// Identifier resolves an OAuth authorization code to the signed-in account.
type Identifier interface {
	AuthURL(state string) string
	Identify(ctx context.Context, code string) (*oauth.GoogleUserInfo, error)
}

// Service handles registration, password and Google sign-in, and refresh
// sessions.
type Service struct {
	orgs     repositories.OrganizationRepository
	users    repositories.UserRepository
	sessions repositories.SessionRepository
	tokens   *jwt.Manager
	google   Identifier
	states   *oauth.StateManager
	cost     int
	now      func() time.Time
	logger   *zap.Logger
}

// Option customises a Service.
type Option func(*Service)

// WithGoogle enables Google sign-in.
func WithGoogle(google Identifier, states *oauth.StateManager) Option {
	return func(s *Service) {
		s.google = google
		s.states = states
	}
}

// WithBcryptCost overrides BcryptCost. Tests use bcrypt.MinCost.
func WithBcryptCost(cost int) Option {
	return func(s *Service) { s.cost = cost }
}

// NewService creates the auth service
func NewService(
	orgs repositories.OrganizationRepository,
	users repositories.UserRepository,
	sessions repositories.SessionRepository,
	tokens *jwt.Manager,
	logger *zap.Logger,
	opts ...Option,
) *Service {
	s := &Service{
		orgs:     orgs,
		users:    users,
		sessions: sessions,
		tokens:   tokens,
		cost:     BcryptCost,
		now:      time.Now,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterInput creates a new organization with its first admin.
type RegisterInput struct {
	OrganizationName string
	Name             string
	Email            string
	Password         string
}

// Client identifies the device a session is issued to.
type Client struct {
	IP        string
	UserAgent string
}

// Result is returned by every sign-in flow.
type Result struct {
	User         *entities.PublicUser   `json:"user"`
	Organization *entities.Organization `json:"organization,omitempty"`
	AccessToken  string                 `json:"accessToken"`
	RefreshToken string                 `json:"refreshToken,omitempty"`
	ExpiresIn    int64                  `json:"expiresIn"`
}

// Register creates the organization and admin atomically and signs the admin in.
func (s *Service) Register(ctx context.Context, in RegisterInput, client Client) (*Result, error) {
	hash, err := s.hashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	org := entities.NewOrganization(in.OrganizationName)
	user := entities.NewUser(org.ID, in.Email, in.Name, entities.RoleAdmin)
	user.PasswordHash = &hash
	if err := user.Validate(); err != nil {
		return nil, apperrors.ErrInvalidArgument(err.Error())
	}

	if err := s.orgs.CreateWithOwner(ctx, org, user); err != nil {
		if stdErrors.Is(err, entities.ErrUserAlreadyExists) {
			return nil, apperrors.ErrUserAlreadyExists(user.Email)
		}
		return nil, apperrors.ErrDBTransactionFailed(err)
	}
	if s.logger != nil {
		s.logger.Info("auth.registered",
			zap.String("organization_id", org.ID.String()),
			zap.String("user_id", user.ID.String()))
	}
	res, err := s.issue(ctx, user, client)
	if err != nil {
		return nil, err
	}
	res.Organization = org
	return res, nil
}

// Login verifies an email and password.
func (s *Service) Login(ctx context.Context, email, password string, client Client) (*Result, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if stdErrors.Is(err, entities.ErrUserNotFound) {
			return nil, apperrors.ErrInvalidCredentials()
		}
		return nil, apperrors.ErrInternal(err)
	}
	if user.PasswordHash == nil {
		return nil, apperrors.ErrInvalidCredentials()
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(password)); err != nil {
		return nil, apperrors.ErrInvalidCredentials()
	}
	if !user.IsActive {
		return nil, apperrors.ErrUserInactive()
	}
	return s.signIn(ctx, user, client)
}

// Refresh mints a new access token for a live refresh session.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*Result, error) {
	session, err := s.liveSession(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	user, err := s.users.FindByID(ctx, session.OrganizationID, session.UserID)
	if err != nil {
		if stdErrors.Is(err, entities.ErrUserNotFound) {
			return nil, apperrors.ErrInvalidRefreshToken()
		}
		return nil, apperrors.ErrInternal(err)
	}
	if !user.IsActive {
		return nil, apperrors.ErrUserInactive()
	}
	if err := s.sessions.UpdateLastUsed(ctx, session.ID); err != nil && s.logger != nil {
		s.logger.Warn("auth.session_touch_failed", zap.String("session_id", session.ID.String()), zap.Error(err))
	}

	access, err := s.tokens.GenerateAccessToken(user.ID, user.OrganizationID, user.Email, string(user.Role))
	if err != nil {
		return nil, apperrors.ErrInternal(err)
	}
	return &Result{
		User:        user.ToPublic(),
		AccessToken: access,
		ExpiresIn:   int64(s.tokens.AccessTTL().Seconds()),
	}, nil
}

// Logout revokes the refresh session. Unknown or already revoked tokens are
// not an error.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	hash, err := s.tokens.HashToken(refreshToken)
	if err != nil {
		return apperrors.ErrInvalidRefreshToken()
	}
	session, err := s.sessions.FindByTokenHash(ctx, hash)
	if err != nil {
		if stdErrors.Is(err, entities.ErrSessionNotFound) {
			return nil
		}
		return apperrors.ErrInternal(err)
	}
	if session.RevokedAt != nil {
		return nil
	}
	if err := s.sessions.Revoke(ctx, session.ID); err != nil {
		return apperrors.ErrInternal(err)
	}
	return nil
}

// LogoutAll revokes every session of the user.
func (s *Service) LogoutAll(ctx context.Context, user *entities.User) error {
	if err := s.sessions.RevokeAllByUserID(ctx, user.ID); err != nil {
		return apperrors.ErrInternal(err)
	}
	return nil
}

// Authenticate resolves a bearer access token to an active user.
func (s *Service) Authenticate(ctx context.Context, accessToken string) (*entities.User, error) {
	claims, err := s.tokens.ValidateAccessToken(accessToken)
	if err != nil {
		if stdErrors.Is(err, jwt.ErrExpired) {
			return nil, apperrors.ErrTokenExpired()
		}
		return nil, apperrors.ErrInvalidToken()
	}
	user, err := s.users.FindByID(ctx, claims.OrganizationID, claims.UserID)
	if err != nil {
		if stdErrors.Is(err, entities.ErrUserNotFound) || stdErrors.Is(err, entities.ErrMissingTenant) {
			return nil, apperrors.ErrInvalidToken()
		}
		return nil, apperrors.ErrInternal(err)
	}
	if !user.IsActive {
		return nil, apperrors.ErrUserInactive()
	}
	return user, nil
}

// Me returns the caller with their organization.
func (s *Service) Me(ctx context.Context, user *entities.User) (*Result, error) {
	org, err := s.orgs.FindByID(ctx, user.OrganizationID)
	if err != nil {
		if stdErrors.Is(err, entities.ErrOrganizationNotFound) {
			return nil, apperrors.ErrNotFound("organization")
		}
		return nil, apperrors.ErrInternal(err)
	}
	return &Result{User: user.ToPublic(), Organization: org}, nil
}

// GoogleEnabled reports whether Google sign-in is configured.
func (s *Service) GoogleEnabled() bool {
	return s.google != nil && s.states != nil
}

// GoogleLoginURL starts the Google flow with a fresh state.
func (s *Service) GoogleLoginURL(ctx context.Context) (string, error) {
	if !s.GoogleEnabled() {
		return "", apperrors.ErrServiceUnavailable("google sign-in", nil)
	}
	state, err := s.states.GenerateState(ctx)
	if err != nil {
		return "", apperrors.ErrCacheFailed("oauth state", err)
	}
	return s.google.AuthURL(state), nil
}

// GoogleCallback signs in an existing member. Accounts are linked by email the
// first time; Google sign-in never creates users or organizations.
func (s *Service) GoogleCallback(ctx context.Context, code, state string, client Client) (*Result, error) {
	if !s.GoogleEnabled() {
		return nil, apperrors.ErrServiceUnavailable("google sign-in", nil)
	}
	ok, err := s.states.ValidateState(ctx, state)
	if err != nil {
		return nil, apperrors.ErrCacheFailed("oauth state", err)
	}
	if !ok {
		return nil, apperrors.ErrOAuthFailed(providerGoogle, entities.ErrOAuthStateMismatch)
	}

	info, err := s.google.Identify(ctx, code)
	if err != nil {
		return nil, apperrors.ErrOAuthFailed(providerGoogle, err)
	}
	if !info.VerifiedEmail {
		return nil, apperrors.ErrOAuthFailed(providerGoogle, fmt.Errorf("email %s is not verified", info.Email))
	}

	user, err := s.users.FindByOAuth(ctx, providerGoogle, info.ID)
	if stdErrors.Is(err, entities.ErrUserNotFound) {
		user, err = s.users.FindByEmail(ctx, info.Email)
		if stdErrors.Is(err, entities.ErrUserNotFound) {
			return nil, apperrors.ErrForbidden("no account exists for this Google user, ask an admin for an invitation")
		}
		if err == nil {
			provider := providerGoogle
			user.OAuthProvider = &provider
			user.OAuthID = &info.ID
		}
	}
	if err != nil {
		return nil, apperrors.ErrInternal(err)
	}
	if !user.IsActive {
		return nil, apperrors.ErrUserInactive()
	}
	if info.Picture != "" {
		user.AvatarURL = &info.Picture
	}
	if err := s.users.Update(ctx, user); err != nil {
		return nil, apperrors.ErrInternal(err)
	}
	return s.signIn(ctx, user, client)
}

func (s *Service) signIn(ctx context.Context, user *entities.User, client Client) (*Result, error) {
	if err := s.users.UpdateLastLogin(ctx, user.OrganizationID, user.ID); err != nil && s.logger != nil {
		s.logger.Warn("auth.last_login_failed", zap.String("user_id", user.ID.String()), zap.Error(err))
	}
	user.UpdateLastLogin()
	return s.issue(ctx, user, client)
}

// issue mints an access and refresh token pair and stores the refresh digest.
func (s *Service) issue(ctx context.Context, user *entities.User, client Client) (*Result, error) {
	access, err := s.tokens.GenerateAccessToken(user.ID, user.OrganizationID, user.Email, string(user.Role))
	if err != nil {
		return nil, apperrors.ErrInternal(err)
	}
	refresh, err := s.tokens.GenerateRefreshToken(user.ID)
	if err != nil {
		return nil, apperrors.ErrInternal(err)
	}
	hash, err := s.tokens.HashToken(refresh)
	if err != nil {
		return nil, apperrors.ErrInternal(err)
	}

	session := entities.NewSession(user.ID, user.OrganizationID, hash, s.now().Add(s.tokens.RefreshTTL()))
	session.WithDeviceInfo(client.IP, client.UserAgent)
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, apperrors.ErrInternal(err)
	}

	return &Result{
		User:         user.ToPublic(),
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(s.tokens.AccessTTL().Seconds()),
	}, nil
}

func (s *Service) liveSession(ctx context.Context, refreshToken string) (*entities.Session, error) {
	if _, err := s.tokens.ValidateRefreshToken(refreshToken); err != nil {
		return nil, apperrors.ErrInvalidRefreshToken()
	}
	hash, err := s.tokens.HashToken(refreshToken)
	if err != nil {
		return nil, apperrors.ErrInvalidRefreshToken()
	}
	session, err := s.sessions.FindByTokenHash(ctx, hash)
	if err != nil {
		if stdErrors.Is(err, entities.ErrSessionNotFound) {
			return nil, apperrors.ErrInvalidRefreshToken()
		}
		return nil, apperrors.ErrInternal(err)
	}
	if !session.IsValid() {
		return nil, apperrors.ErrInvalidRefreshToken()
	}
	return session, nil
}

// HashPassword hashes a new password. Invitation acceptance shares it.
func (s *Service) HashPassword(password string) (string, error) {
	return s.hashPassword(password)
}

func (s *Service) hashPassword(password string) (string, error) {
	if len(password) < 8 || strings.TrimSpace(password) == "" {
		return "", apperrors.ErrInvalidArgument("password must be at least 8 characters")
	}
	if len(password) > 72 {
		return "", apperrors.ErrInvalidArgument("password must be at most 72 bytes")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return "", apperrors.ErrInternal(err)
	}
	return string(hash), nil
}
