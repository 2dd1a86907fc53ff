package presenter

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/johnquangdev/call-insight/internal/domain/entities"
	"github.com/johnquangdev/call-insight/internal/usecase/invitation"
)

func TestToInvitationResponse_Status(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	org, by := uuid.New(), uuid.New()

	pending := entities.NewInvitation(org, "a@example.com", entities.RoleUser, by, "tok", now)
	expired := entities.NewInvitation(org, "b@example.com", entities.RoleUser, by, "tok", now.Add(-8*24*time.Hour))
	accepted := entities.NewInvitation(org, "c@example.com", entities.RoleUser, by, "tok", now)
	accepted.Accept(now)

	tests := []struct {
		name string
		inv  *entities.Invitation
		want string
	}{
		{"pending", pending, InvitationPending},
		{"expired", expired, InvitationExpired},
		{"accepted", accepted, InvitationAccepted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ToInvitationResponse(tt.inv, now)
			if got.Status != tt.want {
				t.Fatalf("status = %s, want %s", got.Status, tt.want)
			}
			if got.Token != "" {
				t.Fatal("token leaked in plain response")
			}
		})
	}

	issued := ToIssuedInvitation(&invitation.Issued{Invitation: pending, Token: "secret"}, now)
	if issued.Token != "secret" {
		t.Fatalf("issued token = %q", issued.Token)
	}
}

func TestToPublicUsers_SkipsNil(t *testing.T) {
	u := entities.NewUser(uuid.New(), "a@example.com", "A", entities.RoleUser)
	got := ToPublicUsers([]*entities.User{u, nil})
	if len(got) != 1 || got[0].Email != "a@example.com" {
		t.Fatalf("unexpected users: %+v", got)
	}
}
