package invitation

import (
	"context"
	stdErrors "errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "github.com/johnquangdev/call-insight/errors"
	"github.com/johnquangdev/call-insight/internal/adapter/repository/memory"
	"github.com/johnquangdev/call-insight/internal/domain/entities"
	"github.com/johnquangdev/call-insight/internal/domain/repositories"
)

func codeOf(err error) apperrors.ErrorCode {
	var appErr apperrors.AppError
	if stdErrors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

type fixture struct {
	store   *memory.Store
	svc     *Service
	admin   *entities.User
	manager *entities.User
	member  *entities.User
	now     time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	f := &fixture{store: memory.NewStore(), now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	org := entities.NewOrganization("Acme")
	f.admin = entities.NewUser(uuid.Nil, "admin@acme.test", "Admin", entities.RoleAdmin)
	if err := f.store.Organizations().CreateWithOwner(ctx, org, f.admin); err != nil {
		t.Fatalf("CreateWithOwner: %v", err)
	}
	f.manager = entities.NewUser(org.ID, "manager@acme.test", "Manager", entities.RoleManager)
	f.member = entities.NewUser(org.ID, "rep@acme.test", "Rep", entities.RoleUser)
	for _, u := range []*entities.User{f.manager, f.member} {
		if err := f.store.Users().Create(ctx, u); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}
	hash := func(p string) (string, error) {
		if len(p) < 8 {
			return "", apperrors.ErrInvalidArgument("password too short")
		}
		return "hashed:" + p, nil
	}
	f.svc = NewService(f.store.Invitations(), f.store.Users(), f.store.Organizations(), hash, zap.NewNop())
	f.svc.now = func() time.Time { return f.now }
	return f
}

func TestCreate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	inv, err := f.svc.Create(ctx, f.manager, " New.Hire@Acme.test ", "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(inv.Token) != 2*TokenBytes {
		t.Errorf("token length = %d", len(inv.Token))
	}
	if inv.Email != "new.hire@acme.test" || inv.Role != entities.RoleUser {
		t.Errorf("invitation = %+v", inv.Invitation)
	}
	if !inv.ExpiresAt.Equal(f.now.Add(7 * 24 * time.Hour)) {
		t.Errorf("ExpiresAt = %v", inv.ExpiresAt)
	}

	tests := []struct {
		name   string
		caller *entities.User
		email  string
		role   entities.UserRole
		want   apperrors.ErrorCode
	}{
		{"pending invitation", f.admin, "new.hire@acme.test", entities.RoleUser, apperrors.ErrorCode_ALREADY_EXISTS},
		{"existing user", f.admin, "REP@acme.test", entities.RoleUser, apperrors.ErrorCode_AUTH_USER_ALREADY_EXISTS},
		{"member cannot invite", f.member, "x@acme.test", entities.RoleUser, apperrors.ErrorCode_PERMISSION_DENIED},
		{"manager cannot invite admin", f.manager, "x@acme.test", entities.RoleAdmin, apperrors.ErrorCode_PERMISSION_DENIED},
		{"bad email", f.admin, "not-an-email", entities.RoleUser, apperrors.ErrorCode_INVALID_ARGUMENT},
		{"bad role", f.admin, "x@acme.test", entities.UserRole("owner"), apperrors.ErrorCode_INVALID_ARGUMENT},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Create(ctx, tt.caller, tt.email, tt.role)
			if codeOf(err) != tt.want {
				t.Errorf("err = %v, want %s", err, tt.want)
			}
		})
	}
}

func TestAccept(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inv, err := f.svc.Create(ctx, f.admin, "new@acme.test", entities.RoleManager)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	preview, err := f.svc.Lookup(ctx, inv.Token)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if preview.OrganizationName != "Acme" || preview.Role != entities.RoleManager {
		t.Errorf("preview = %+v", preview)
	}

	if _, err := f.svc.Accept(ctx, inv.Token, "New Person", "short"); codeOf(err) != apperrors.ErrorCode_INVALID_ARGUMENT {
		t.Errorf("short password err = %v", err)
	}

	user, err := f.svc.Accept(ctx, inv.Token, "New Person", "long enough")
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if user.OrganizationID != f.admin.OrganizationID || user.Role != entities.RoleManager || *user.PasswordHash != "hashed:long enough" {
		t.Errorf("user = %+v", user)
	}
	if _, err := f.store.Users().FindByEmail(ctx, "new@acme.test"); err != nil {
		t.Errorf("user not persisted: %v", err)
	}

	if _, err := f.svc.Accept(ctx, inv.Token, "Again", "long enough"); codeOf(err) != apperrors.ErrorCode_INVITATION_ACCEPTED {
		t.Errorf("second accept err = %v", err)
	}
	if _, err := f.svc.Resend(ctx, f.admin, inv.ID); codeOf(err) != apperrors.ErrorCode_INVITATION_ACCEPTED {
		t.Errorf("resend accepted err = %v", err)
	}
}

func TestExpiryAndResend(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inv, err := f.svc.Create(ctx, f.admin, "late@acme.test", entities.RoleUser)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	f.now = f.now.Add(7 * 24 * time.Hour)
	if _, err := f.svc.Accept(ctx, inv.Token, "Late", "long enough"); codeOf(err) != apperrors.ErrorCode_INVITATION_EXPIRED {
		t.Errorf("expired accept err = %v", err)
	}

	// an expired invitation no longer blocks a new one
	if _, err := f.svc.Create(ctx, f.admin, "late@acme.test", entities.RoleUser); err != nil {
		t.Errorf("re-invite after expiry: %v", err)
	}

	renewed, err := f.svc.Resend(ctx, f.admin, inv.ID)
	if err != nil {
		t.Fatalf("Resend: %v", err)
	}
	if renewed.Token == inv.Token || !renewed.ExpiresAt.Equal(f.now.Add(entities.InvitationTTL)) {
		t.Errorf("renewed = %+v", renewed.Invitation)
	}
	if _, err := f.svc.Lookup(ctx, inv.Token); codeOf(err) != apperrors.ErrorCode_NOT_FOUND {
		t.Errorf("old token err = %v", err)
	}
	if _, err := f.svc.Lookup(ctx, renewed.Token); err != nil {
		t.Errorf("new token: %v", err)
	}
}

func TestListAndDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inv, err := f.svc.Create(ctx, f.admin, "a@acme.test", entities.RoleUser)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	items, total, err := f.svc.List(ctx, f.manager, repositories.Filters{})
	if err != nil || total != 1 || items[0].ID != inv.ID {
		t.Fatalf("List = %v, %d, %v", items, total, err)
	}
	if err := f.svc.Delete(ctx, f.member, inv.ID); codeOf(err) != apperrors.ErrorCode_PERMISSION_DENIED {
		t.Errorf("member delete err = %v", err)
	}
	if err := f.svc.Delete(ctx, f.manager, inv.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := f.svc.Delete(ctx, f.manager, inv.ID); codeOf(err) != apperrors.ErrorCode_NOT_FOUND {
		t.Errorf("second delete err = %v", err)
	}
}
