package user

import (
	"context"
	stdErrors "errors"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "github.com/johnquangdev/call-insight/errors"
	"github.com/johnquangdev/call-insight/internal/adapter/repository/memory"
	"github.com/johnquangdev/call-insight/internal/domain/entities"
	"github.com/johnquangdev/call-insight/internal/domain/repositories"
)

type fixture struct {
	svc     *Service
	admin   *entities.User
	manager *entities.User
	member  *entities.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()
	org := entities.NewOrganization("Acme")
	f := &fixture{admin: entities.NewUser(uuid.Nil, "admin@acme.test", "Admin", entities.RoleAdmin)}
	if err := store.Organizations().CreateWithOwner(ctx, org, f.admin); err != nil {
		t.Fatalf("CreateWithOwner: %v", err)
	}
	f.manager = entities.NewUser(org.ID, "manager@acme.test", "Manager", entities.RoleManager)
	f.member = entities.NewUser(org.ID, "rep@acme.test", "Rep", entities.RoleUser)
	for _, u := range []*entities.User{f.manager, f.member} {
		if err := store.Users().Create(ctx, u); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}
	f.svc = NewService(store.Users(), store.Organizations(), store.Sessions(), zap.NewNop())
	return f
}

func codeOf(err error) apperrors.ErrorCode {
	var appErr apperrors.AppError
	if stdErrors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

func TestList(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	users, total, err := f.svc.List(ctx, f.manager, repositories.Filters{Limit: 2, SortBy: "name", SortOrder: "asc"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 3 || len(users) != 2 || users[0].Name != "Admin" {
		t.Errorf("users = %d/%d first %q", len(users), total, users[0].Name)
	}
	if _, _, err := f.svc.List(ctx, f.member, repositories.Filters{}); codeOf(err) != apperrors.ErrorCode_PERMISSION_DENIED {
		t.Errorf("member list err = %v", err)
	}
}

func TestUpdateRoles(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	manager := entities.RoleManager
	admin := entities.RoleAdmin
	name := "Renamed"

	if _, err := f.svc.Update(ctx, f.member, f.member.ID, UpdateInput{Name: &name}); err != nil {
		t.Errorf("self rename: %v", err)
	}
	if _, err := f.svc.Update(ctx, f.member, f.member.ID, UpdateInput{Role: &admin}); codeOf(err) != apperrors.ErrorCode_PERMISSION_DENIED {
		t.Errorf("self promotion err = %v", err)
	}
	if _, err := f.svc.Update(ctx, f.manager, f.member.ID, UpdateInput{Name: &name}); codeOf(err) != apperrors.ErrorCode_PERMISSION_DENIED {
		t.Errorf("manager editing member err = %v", err)
	}
	if _, err := f.svc.Update(ctx, f.admin, f.admin.ID, UpdateInput{Role: &manager}); codeOf(err) != apperrors.ErrorCode_FORBIDDEN {
		t.Errorf("admin self demotion err = %v", err)
	}

	got, err := f.svc.Update(ctx, f.admin, f.member.ID, UpdateInput{Role: &manager})
	if err != nil {
		t.Fatalf("promote: %v", err)
	}
	if got.Role != entities.RoleManager || got.Name != "Renamed" {
		t.Errorf("user = %+v", got)
	}
}

func TestDeactivate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if err := f.svc.Deactivate(ctx, f.manager, f.member.ID); codeOf(err) != apperrors.ErrorCode_PERMISSION_DENIED {
		t.Errorf("manager deactivate err = %v", err)
	}
	if err := f.svc.Deactivate(ctx, f.admin, f.admin.ID); codeOf(err) != apperrors.ErrorCode_FORBIDDEN {
		t.Errorf("self deactivate err = %v", err)
	}
	if err := f.svc.Deactivate(ctx, f.admin, uuid.New()); codeOf(err) != apperrors.ErrorCode_NOT_FOUND {
		t.Errorf("unknown user err = %v", err)
	}
	if err := f.svc.Deactivate(ctx, f.admin, f.member.ID); err != nil {
		t.Fatalf("Deactivate: %v", err)
	}
	got, err := f.svc.Get(ctx, f.admin, f.member.ID)
	if err != nil || got.IsActive {
		t.Errorf("after deactivate = %+v, %v", got, err)
	}
}

func TestUpdateOrganization(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	name := "Acme Global"

	if _, err := f.svc.UpdateOrganization(ctx, f.manager, OrganizationInput{Name: &name}); codeOf(err) != apperrors.ErrorCode_PERMISSION_DENIED {
		t.Errorf("manager err = %v", err)
	}
	org, err := f.svc.UpdateOrganization(ctx, f.admin, OrganizationInput{Name: &name, Settings: []byte(`{"timezone":"UTC"}`)})
	if err != nil {
		t.Fatalf("UpdateOrganization: %v", err)
	}
	if org.Name != name || string(org.Settings) != `{"timezone":"UTC"}` {
		t.Errorf("org = %+v", org)
	}
}
