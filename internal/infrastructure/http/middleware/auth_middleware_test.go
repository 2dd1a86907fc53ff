package middleware

import (
	"context"
	stdErrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	apperrors "github.com/johnquangdev/call-insight/errors"
	"github.com/johnquangdev/call-insight/internal/domain/entities"
)

type stubAuth struct {
	users map[string]*entities.User
	calls int
}

func (s *stubAuth) Authenticate(ctx context.Context, token string) (*entities.User, error) {
	s.calls++
	if u, ok := s.users[token]; ok {
		return u, nil
	}
	return nil, apperrors.ErrInvalidToken()
}

func newContext(req *http.Request) (echo.Context, *httptest.ResponseRecorder) {
	rec := httptest.NewRecorder()
	return echo.New().NewContext(req, rec), rec
}

func ok(c echo.Context) error { return c.NoContent(http.StatusNoContent) }

func appCode(t *testing.T, err error) int {
	t.Helper()
	var appErr apperrors.AppError
	if !stdErrors.As(err, &appErr) {
		t.Fatalf("error %v is not an AppError", err)
	}
	return appErr.HTTPCode
}

func TestAuthenticate(t *testing.T) {
	member := &entities.User{ID: uuid.New(), OrganizationID: uuid.New(), Role: entities.RoleUser, IsActive: true}
	stub := &stubAuth{users: map[string]*entities.User{"good": member}}
	mw := NewAuthMiddleware(stub)

	t.Run("missing token", func(t *testing.T) {
		c, _ := newContext(httptest.NewRequest(http.MethodGet, "/", nil))
		err := mw.Authenticate(ok)(c)
		if code := appCode(t, err); code != http.StatusUnauthorized {
			t.Errorf("status = %d", code)
		}
		if stub.calls != 0 {
			t.Error("authenticator called without a token")
		}
	})

	t.Run("bearer header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(echo.HeaderAuthorization, "Bearer good")
		c, rec := newContext(req)
		if err := mw.Authenticate(ok)(c); err != nil {
			t.Fatalf("Authenticate: %v", err)
		}
		if rec.Code != http.StatusNoContent {
			t.Errorf("status = %d", rec.Code)
		}
		if got, _ := CurrentUser(c); got != member {
			t.Error("user not placed on context")
		}
		if c.Get(ContextOrgID) != member.OrganizationID || c.Get(ContextUserID) != member.ID {
			t.Error("ids not placed on context")
		}
	})

	t.Run("cookie fallback", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: "access_token", Value: "good"})
		c, _ := newContext(req)
		if err := mw.Authenticate(ok)(c); err != nil {
			t.Fatalf("Authenticate: %v", err)
		}
	})

	t.Run("non bearer scheme", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(echo.HeaderAuthorization, "Basic Z29vZA==")
		req.AddCookie(&http.Cookie{Name: "access_token", Value: "good"})
		c, _ := newContext(req)
		if code := appCode(t, mw.Authenticate(ok)(c)); code != http.StatusUnauthorized {
			t.Errorf("status = %d", code)
		}
	})

	t.Run("rejected token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(echo.HeaderAuthorization, "Bearer stale")
		c, _ := newContext(req)
		if code := appCode(t, mw.Authenticate(ok)(c)); code != http.StatusUnauthorized {
			t.Errorf("status = %d", code)
		}
	})
}

func TestOptionalAuth(t *testing.T) {
	member := &entities.User{ID: uuid.New(), OrganizationID: uuid.New(), Role: entities.RoleUser}
	mw := NewAuthMiddleware(&stubAuth{users: map[string]*entities.User{"good": member}})

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer stale")
	c, rec := newContext(req)
	if err := mw.OptionalAuth(ok)(c); err != nil {
		t.Fatalf("OptionalAuth: %v", err)
	}
	if _, found := CurrentUser(c); found || rec.Code != http.StatusNoContent {
		t.Errorf("stale token: found=%v status=%d", found, rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer good")
	c, _ = newContext(req)
	if err := mw.OptionalAuth(ok)(c); err != nil {
		t.Fatalf("OptionalAuth: %v", err)
	}
	if got, _ := CurrentUser(c); got != member {
		t.Error("valid token did not set the user")
	}
}

func TestRequireRole(t *testing.T) {
	tests := []struct {
		name string
		user *entities.User
		want int
	}{
		{"anonymous", nil, http.StatusUnauthorized},
		{"member", &entities.User{Role: entities.RoleUser}, http.StatusForbidden},
		{"manager", &entities.User{Role: entities.RoleManager}, http.StatusNoContent},
		{"admin", &entities.User{Role: entities.RoleAdmin}, http.StatusNoContent},
	}
	guard := RequireRole(entities.RoleAdmin, entities.RoleManager)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, rec := newContext(httptest.NewRequest(http.MethodGet, "/", nil))
			if tt.user != nil {
				c.Set(ContextUser, tt.user)
			}
			err := guard(ok)(c)
			if tt.want == http.StatusNoContent {
				if err != nil || rec.Code != tt.want {
					t.Errorf("err=%v status=%d", err, rec.Code)
				}
				return
			}
			if code := appCode(t, err); code != tt.want {
				t.Errorf("status = %d, want %d", code, tt.want)
			}
		})
	}
}
