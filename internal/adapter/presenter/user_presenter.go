package presenter

import (
	"github.com/johnquangdev/call-insight/internal/domain/entities"
)

// ToPublicUsers strips credentials from every user in the list.
func ToPublicUsers(users []*entities.User) []*entities.PublicUser {
	out := make([]*entities.PublicUser, 0, len(users))
	for _, u := range users {
		if u == nil {
			continue
		}
		out = append(out, u.ToPublic())
	}
	return out
}
