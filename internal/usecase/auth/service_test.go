package auth

import (
	"context"
	stdErrors "errors"
	"testing"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	apperrors "github.com/johnquangdev/call-insight/errors"
	"github.com/johnquangdev/call-insight/internal/adapter/repository/memory"
	"github.com/johnquangdev/call-insight/internal/domain/entities"
	"github.com/johnquangdev/call-insight/internal/infrastructure/cache"
	"github.com/johnquangdev/call-insight/internal/infrastructure/external/oauth"
	"github.com/johnquangdev/call-insight/pkg/jwt"
)

type fakeGoogle struct {
	info *oauth.GoogleUserInfo
	err  error
}

func (f *fakeGoogle) AuthURL(state string) string { return "https://accounts.example/auth?state=" + state }

func (f *fakeGoogle) Identify(ctx context.Context, code string) (*oauth.GoogleUserInfo, error) {
	return f.info, f.err
}

func newService(t *testing.T, opts ...Option) (*Service, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	tokens := jwt.NewManager("access", "refresh", 15*time.Minute, time.Hour)
	opts = append([]Option{WithBcryptCost(bcrypt.MinCost)}, opts...)
	return NewService(store.Organizations(), store.Users(), store.Sessions(), tokens, zap.NewNop(), opts...), store
}

func code(err error) apperrors.ErrorCode {
	var appErr apperrors.AppError
	if stdErrors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

func register(t *testing.T, s *Service) *Result {
	t.Helper()
	res, err := s.Register(context.Background(), RegisterInput{
		OrganizationName: "Acme Sales",
		Name:             "Ada",
		Email:            "Ada@Acme.test",
		Password:         "correct horse",
	}, Client{IP: "127.0.0.1"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	return res
}

func TestRegisterAndLogin(t *testing.T) {
	s, _ := newService(t)
	ctx := context.Background()

	res := register(t, s)
	if res.User.Role != entities.RoleAdmin || res.User.Email != "ada@acme.test" {
		t.Errorf("user = %+v", res.User)
	}
	if res.Organization == nil || res.User.OrganizationID != res.Organization.ID {
		t.Errorf("organization = %+v", res.Organization)
	}
	if res.AccessToken == "" || res.RefreshToken == "" || res.ExpiresIn != 900 {
		t.Errorf("tokens = %+v", res)
	}

	_, err := s.Register(ctx, RegisterInput{OrganizationName: "Other", Name: "Ada", Email: "ada@acme.test", Password: "another one"}, Client{})
	if code(err) != apperrors.ErrorCode_AUTH_USER_ALREADY_EXISTS {
		t.Errorf("duplicate register err = %v", err)
	}

	if _, err := s.Login(ctx, "ADA@acme.test", "correct horse", Client{}); err != nil {
		t.Errorf("Login: %v", err)
	}
	if _, err := s.Login(ctx, "ada@acme.test", "wrong password", Client{}); code(err) != apperrors.ErrorCode_AUTH_INVALID_CREDENTIALS {
		t.Errorf("wrong password err = %v", err)
	}
	if _, err := s.Login(ctx, "nobody@acme.test", "correct horse", Client{}); code(err) != apperrors.ErrorCode_AUTH_INVALID_CREDENTIALS {
		t.Errorf("unknown email err = %v", err)
	}
}

func TestRegisterRejectsShortPassword(t *testing.T) {
	s, _ := newService(t)
	_, err := s.Register(context.Background(), RegisterInput{OrganizationName: "Acme", Name: "Ada", Email: "ada@acme.test", Password: "short"}, Client{})
	if code(err) != apperrors.ErrorCode_INVALID_ARGUMENT {
		t.Errorf("err = %v", err)
	}
}

func TestAuthenticate(t *testing.T) {
	s, store := newService(t)
	ctx := context.Background()
	res := register(t, s)

	user, err := s.Authenticate(ctx, res.AccessToken)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if user.ID != res.User.ID {
		t.Errorf("user = %s, want %s", user.ID, res.User.ID)
	}

	if _, err := s.Authenticate(ctx, "not-a-token"); code(err) != apperrors.ErrorCode_AUTH_INVALID_TOKEN {
		t.Errorf("garbage token err = %v", err)
	}

	if err := store.Users().Deactivate(ctx, user.OrganizationID, user.ID); err != nil {
		t.Fatalf("Deactivate: %v", err)
	}
	if _, err := s.Authenticate(ctx, res.AccessToken); code(err) != apperrors.ErrorCode_AUTH_USER_INACTIVE {
		t.Errorf("inactive err = %v", err)
	}
}

func TestRefreshAndLogout(t *testing.T) {
	s, _ := newService(t)
	ctx := context.Background()
	res := register(t, s)

	refreshed, err := s.Refresh(ctx, res.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if refreshed.AccessToken == "" || refreshed.User.ID != res.User.ID {
		t.Errorf("refreshed = %+v", refreshed)
	}

	if err := s.Logout(ctx, res.RefreshToken); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if err := s.Logout(ctx, res.RefreshToken); err != nil {
		t.Errorf("second Logout: %v", err)
	}
	if _, err := s.Refresh(ctx, res.RefreshToken); code(err) != apperrors.ErrorCode_AUTH_INVALID_REFRESH_TOKEN {
		t.Errorf("refresh after logout err = %v", err)
	}
	if _, err := s.Refresh(ctx, res.AccessToken); code(err) != apperrors.ErrorCode_AUTH_INVALID_REFRESH_TOKEN {
		t.Errorf("access token used as refresh err = %v", err)
	}
}

func TestGoogleCallback(t *testing.T) {
	states := cache.NewMemoryStore()
	defer states.Close()
	google := &fakeGoogle{info: &oauth.GoogleUserInfo{ID: "g-1", Email: "ada@acme.test", VerifiedEmail: true, Picture: "https://pic"}}
	s, store := newService(t, WithGoogle(google, oauth.NewStateManager(states)))
	ctx := context.Background()
	reg := register(t, s)

	if _, err := s.GoogleCallback(ctx, "code", "forged", Client{}); code(err) != apperrors.ErrorCode_AUTH_OAUTH_FAILED {
		t.Errorf("forged state err = %v", err)
	}

	login := func() (*Result, error) {
		url, err := s.GoogleLoginURL(ctx)
		if err != nil {
			t.Fatalf("GoogleLoginURL: %v", err)
		}
		state := url[len("https://accounts.example/auth?state="):]
		return s.GoogleCallback(ctx, "code", state, Client{})
	}

	res, err := login()
	if err != nil {
		t.Fatalf("GoogleCallback: %v", err)
	}
	if res.User.ID != reg.User.ID {
		t.Errorf("signed in as %s, want %s", res.User.ID, reg.User.ID)
	}
	linked, err := store.Users().FindByOAuth(ctx, "google", "g-1")
	if err != nil || linked.ID != reg.User.ID {
		t.Errorf("account not linked: %v", err)
	}

	google.info = &oauth.GoogleUserInfo{ID: "g-2", Email: "stranger@else.test", VerifiedEmail: true}
	if _, err := login(); code(err) != apperrors.ErrorCode_FORBIDDEN {
		t.Errorf("stranger err = %v", err)
	}
}

func TestGoogleDisabled(t *testing.T) {
	s, _ := newService(t)
	if _, err := s.GoogleLoginURL(context.Background()); code(err) != apperrors.ErrorCode_UNAVAILABLE {
		t.Errorf("err = %v", err)
	}
}
