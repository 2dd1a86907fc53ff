package template

import (
	"context"
	stdErrors "errors"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "github.com/johnquangdev/call-insight/errors"
	"github.com/johnquangdev/call-insight/internal/adapter/repository/memory"
	"github.com/johnquangdev/call-insight/internal/domain/entities"
)

func codeOf(err error) apperrors.ErrorCode {
	var appErr apperrors.AppError
	if stdErrors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

func setup() (*Service, *entities.User, *entities.User) {
	orgID := uuid.New()
	manager := &entities.User{ID: uuid.New(), OrganizationID: orgID, Role: entities.RoleManager}
	member := &entities.User{ID: uuid.New(), OrganizationID: orgID, Role: entities.RoleUser}
	return NewService(memory.NewStore().Templates(), zap.NewNop()), manager, member
}

func input(name string, def bool) Input {
	return Input{
		Name:      name,
		IsDefault: def,
		Steps: []entities.ProcessStep{
			{Name: " Greeting ", Keywords: []string{" Hello ", "", "HI"}},
			{Name: "Closing", Keywords: []string{"next step"}},
		},
	}
}

func TestCreateNormalizes(t *testing.T) {
	s, manager, _ := setup()
	tpl, err := s.Create(context.Background(), manager, input("Discovery call", false))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if tpl.Steps[0].Name != "Greeting" || len(tpl.Steps[0].Keywords) != 2 || tpl.Steps[0].Keywords[1] != "hi" {
		t.Errorf("steps = %+v", tpl.Steps)
	}
	if tpl.CreatedBy != manager.ID {
		t.Errorf("CreatedBy = %s", tpl.CreatedBy)
	}
}

func TestCreateValidation(t *testing.T) {
	s, manager, member := setup()
	ctx := context.Background()

	tests := []struct {
		name string
		in   Input
	}{
		{"empty name", Input{Name: " ", Steps: input("x", false).Steps}},
		{"no steps", Input{Name: "x"}},
		{"duplicate step", Input{Name: "x", Steps: []entities.ProcessStep{{Name: "A"}, {Name: "a"}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := s.Create(ctx, manager, tt.in); codeOf(err) != apperrors.ErrorCode_INVALID_ARGUMENT {
				t.Errorf("err = %v", err)
			}
		})
	}

	if _, err := s.Create(ctx, member, input("x", false)); codeOf(err) != apperrors.ErrorCode_PERMISSION_DENIED {
		t.Errorf("member create err = %v", err)
	}
}

func TestNameConflict(t *testing.T) {
	s, manager, _ := setup()
	ctx := context.Background()
	if _, err := s.Create(ctx, manager, input("Enterprise", false)); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := s.Create(ctx, manager, input("enterprise", false)); codeOf(err) != apperrors.ErrorCode_ALREADY_EXISTS {
		t.Errorf("conflict err = %v", err)
	}
}

func TestSingleDefault(t *testing.T) {
	s, manager, member := setup()
	ctx := context.Background()

	a, err := s.Create(ctx, manager, input("A", true))
	if err != nil {
		t.Fatalf("Create A: %v", err)
	}
	b, err := s.Create(ctx, manager, input("B", true))
	if err != nil {
		t.Fatalf("Create B: %v", err)
	}

	defaults := func() []uuid.UUID {
		items, err := s.List(ctx, member)
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		var ids []uuid.UUID
		for _, it := range items {
			if it.IsDefault {
				ids = append(ids, it.ID)
			}
		}
		return ids
	}
	if got := defaults(); len(got) != 1 || got[0] != b.ID {
		t.Errorf("defaults after create = %v, want [%s]", got, b.ID)
	}

	if _, err := s.SetDefault(ctx, manager, a.ID); err != nil {
		t.Fatalf("SetDefault: %v", err)
	}
	if got := defaults(); len(got) != 1 || got[0] != a.ID {
		t.Errorf("defaults after SetDefault = %v, want [%s]", got, a.ID)
	}

	if _, err := s.Update(ctx, manager, b.ID, input("B", true)); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got := defaults(); len(got) != 1 || got[0] != b.ID {
		t.Errorf("defaults after Update = %v, want [%s]", got, b.ID)
	}
}

func TestDeleteUnknown(t *testing.T) {
	s, manager, _ := setup()
	if err := s.Delete(context.Background(), manager, uuid.New()); codeOf(err) != apperrors.ErrorCode_NOT_FOUND {
		t.Errorf("err = %v", err)
	}
}
