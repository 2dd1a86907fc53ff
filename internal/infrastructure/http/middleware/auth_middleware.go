package middleware

import (
	"context"
	"strings"

	"github.com/labstack/echo/v4"

	apperrors "github.com/johnquangdev/call-insight/errors"
	"github.com/johnquangdev/call-insight/internal/domain/entities"
)

// Echo context keys set by Authenticate.
const (
	ContextUser   = "user"
	ContextUserID = "user_id"
	ContextOrgID  = "org_id"
)

// Authenticator resolves an access token to an active user.
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (*entities.User, error)
}

// AuthMiddleware guards routes with a bearer access token.
type AuthMiddleware struct {
	auth Authenticator
}

// NewAuthMiddleware creates a new auth middleware
func NewAuthMiddleware(auth Authenticator) *AuthMiddleware {
	return &AuthMiddleware{auth: auth}
}

// Authenticate validates the JWT, loads the user and stores user, user_id and
// org_id on the echo context.
func (m *AuthMiddleware) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token := ExtractToken(c)
		if token == "" {
			return apperrors.ErrUnauthenticated()
		}

		user, err := m.auth.Authenticate(c.Request().Context(), token)
		if err != nil {
			return err
		}

		c.Set(ContextUser, user)
		c.Set(ContextUserID, user.ID)
		c.Set(ContextOrgID, user.OrganizationID)
		return next(c)
	}
}

// OptionalAuth sets the user when a valid token is present and otherwise
// passes the request through unchanged.
func (m *AuthMiddleware) OptionalAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if token := ExtractToken(c); token != "" {
			if user, err := m.auth.Authenticate(c.Request().Context(), token); err == nil {
				c.Set(ContextUser, user)
				c.Set(ContextUserID, user.ID)
				c.Set(ContextOrgID, user.OrganizationID)
			}
		}
		return next(c)
	}
}

// RequireRole rejects authenticated users whose role is not listed.
func RequireRole(roles ...entities.UserRole) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user, ok := CurrentUser(c)
			if !ok {
				return apperrors.ErrUnauthenticated()
			}
			for _, role := range roles {
				if user.Role == role {
					return next(c)
				}
			}
			return apperrors.ErrForbidden("Insufficient permissions")
		}
	}
}

// CurrentUser retrieves the user set by Authenticate.
func CurrentUser(c echo.Context) (*entities.User, bool) {
	user, ok := c.Get(ContextUser).(*entities.User)
	return user, ok && user != nil
}

// ExtractToken reads the bearer token from the Authorization header, falling
// back to the access_token cookie.
func ExtractToken(c echo.Context) string {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	if cookie, err := c.Cookie("access_token"); err == nil {
		return cookie.Value
	}
	return ""
}
