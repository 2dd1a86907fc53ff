package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/johnquangdev/call-insight/internal/domain/entities"
	"github.com/johnquangdev/call-insight/internal/domain/repositories"
)

var (
	_ repositories.TemplateRepository   = (*TemplateRepository)(nil)
	_ repositories.InvitationRepository = (*InvitationRepository)(nil)
)

// TemplateRepository is the in-memory process template store
type TemplateRepository struct{ s *Store }

// clearDefault must be called with the lock held.
func (r *TemplateRepository) clearDefault(orgID, keep uuid.UUID) {
	for id, t := range r.s.templates {
		if t.OrganizationID == orgID && t.IsDefault && id != keep {
			t.IsDefault = false
			r.s.templates[id] = t
		}
	}
}

func (r *TemplateRepository) nameTaken(orgID uuid.UUID, name string, except uuid.UUID) bool {
	for id, t := range r.s.templates {
		if id != except && t.OrganizationID == orgID && strings.EqualFold(t.Name, name) {
			return true
		}
	}
	return false
}

func (r *TemplateRepository) Create(ctx context.Context, template *entities.ProcessTemplate) error {
	if template.OrganizationID == uuid.Nil {
		return entities.ErrMissingTenant
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if template.ID == uuid.Nil {
		template.ID = uuid.New()
	}
	if r.nameTaken(template.OrganizationID, template.Name, template.ID) {
		return entities.ErrTemplateAlreadyExists
	}
	if template.IsDefault {
		r.clearDefault(template.OrganizationID, template.ID)
	}
	stamp(&template.CreatedAt, &template.UpdatedAt)
	r.s.templates[template.ID] = *template
	return nil
}

func (r *TemplateRepository) FindByID(ctx context.Context, orgID, id uuid.UUID) (*entities.ProcessTemplate, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	t, ok := r.s.templates[id]
	if !ok || t.OrganizationID != orgID || orgID == uuid.Nil {
		return nil, entities.ErrTemplateNotFound
	}
	return &t, nil
}

func (r *TemplateRepository) FindByName(ctx context.Context, orgID uuid.UUID, name string) (*entities.ProcessTemplate, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, t := range r.s.templates {
		if t.OrganizationID == orgID && strings.EqualFold(t.Name, name) {
			found := t
			return &found, nil
		}
	}
	return nil, entities.ErrTemplateNotFound
}

func (r *TemplateRepository) FindDefault(ctx context.Context, orgID uuid.UUID) (*entities.ProcessTemplate, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, t := range r.s.templates {
		if t.OrganizationID == orgID && t.IsDefault {
			found := t
			return &found, nil
		}
	}
	return nil, entities.ErrTemplateNotFound
}

func (r *TemplateRepository) List(ctx context.Context, orgID uuid.UUID) ([]*entities.ProcessTemplate, error) {
	if orgID == uuid.Nil {
		return nil, entities.ErrMissingTenant
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*entities.ProcessTemplate
	for _, t := range r.s.templates {
		if t.OrganizationID == orgID {
			c := t
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].IsDefault != out[j].IsDefault {
			return out[i].IsDefault
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (r *TemplateRepository) Update(ctx context.Context, template *entities.ProcessTemplate) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	existing, ok := r.s.templates[template.ID]
	if !ok || existing.OrganizationID != template.OrganizationID {
		return entities.ErrTemplateNotFound
	}
	if r.nameTaken(template.OrganizationID, template.Name, template.ID) {
		return entities.ErrTemplateAlreadyExists
	}
	if template.IsDefault {
		r.clearDefault(template.OrganizationID, template.ID)
	}
	template.CreatedAt = existing.CreatedAt
	template.UpdatedAt = time.Now()
	r.s.templates[template.ID] = *template
	return nil
}

func (r *TemplateRepository) Delete(ctx context.Context, orgID, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.templates[id]
	if !ok || t.OrganizationID != orgID {
		return entities.ErrTemplateNotFound
	}
	delete(r.s.templates, id)
	return nil
}

func (r *TemplateRepository) SetDefault(ctx context.Context, orgID, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.templates[id]
	if !ok || t.OrganizationID != orgID {
		return entities.ErrTemplateNotFound
	}
	r.clearDefault(orgID, id)
	t.IsDefault = true
	t.UpdatedAt = time.Now()
	r.s.templates[id] = t
	return nil
}

// InvitationRepository is the in-memory invitation store
type InvitationRepository struct{ s *Store }

func (r *InvitationRepository) Create(ctx context.Context, invitation *entities.Invitation) error {
	if invitation.OrganizationID == uuid.Nil {
		return entities.ErrMissingTenant
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, inv := range r.s.invitations {
		if inv.Token == invitation.Token {
			return entities.ErrInvitationAlreadyExists
		}
	}
	if invitation.ID == uuid.Nil {
		invitation.ID = uuid.New()
	}
	stamp(&invitation.CreatedAt, &invitation.UpdatedAt)
	r.s.invitations[invitation.ID] = *invitation
	return nil
}

func (r *InvitationRepository) FindByID(ctx context.Context, orgID, id uuid.UUID) (*entities.Invitation, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	inv, ok := r.s.invitations[id]
	if !ok || inv.OrganizationID != orgID || orgID == uuid.Nil {
		return nil, entities.ErrInvitationNotFound
	}
	return &inv, nil
}

func (r *InvitationRepository) FindByToken(ctx context.Context, token string) (*entities.Invitation, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, inv := range r.s.invitations {
		if inv.Token == token {
			found := inv
			return &found, nil
		}
	}
	return nil, entities.ErrInvitationNotFound
}

func (r *InvitationRepository) FindPendingByEmail(ctx context.Context, orgID uuid.UUID, email string, now time.Time) (*entities.Invitation, error) {
	email = entities.NormalizeEmail(email)
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, inv := range r.s.invitations {
		if inv.OrganizationID == orgID && inv.Email == email && inv.IsPending(now) {
			found := inv
			return &found, nil
		}
	}
	return nil, entities.ErrInvitationNotFound
}

func (r *InvitationRepository) List(ctx context.Context, orgID uuid.UUID, filters repositories.Filters) ([]*entities.Invitation, int64, error) {
	if orgID == uuid.Nil {
		return nil, 0, entities.ErrMissingTenant
	}
	r.s.mu.RLock()
	var out []*entities.Invitation
	for _, inv := range r.s.invitations {
		if inv.OrganizationID == orgID {
			c := inv
			out = append(out, &c)
		}
	}
	r.s.mu.RUnlock()
	total := int64(len(out))
	return page(out, filters, func(a, b *entities.Invitation) bool { return a.CreatedAt.Before(b.CreatedAt) }), total, nil
}

func (r *InvitationRepository) Update(ctx context.Context, invitation *entities.Invitation) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	existing, ok := r.s.invitations[invitation.ID]
	if !ok || existing.OrganizationID != invitation.OrganizationID {
		return entities.ErrInvitationNotFound
	}
	invitation.CreatedAt = existing.CreatedAt
	invitation.UpdatedAt = time.Now()
	r.s.invitations[invitation.ID] = *invitation
	return nil
}

func (r *InvitationRepository) Delete(ctx context.Context, orgID, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	inv, ok := r.s.invitations[id]
	if !ok || inv.OrganizationID != orgID {
		return entities.ErrInvitationNotFound
	}
	delete(r.s.invitations, id)
	return nil
}

func (r *InvitationRepository) Accept(ctx context.Context, invitation *entities.Invitation, user *entities.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.invitations[invitation.ID]
	if !ok || stored.OrganizationID != invitation.OrganizationID {
		return entities.ErrInvitationNotFound
	}
	if stored.IsAccepted() {
		return entities.ErrInvitationAccepted
	}
	if r.s.emailTaken(user.Email, user.ID) {
		return entities.ErrUserAlreadyExists
	}

	now := time.Now()
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	stamp(&user.CreatedAt, &user.UpdatedAt)
	r.s.users[user.ID] = *user

	stored.Accept(now)
	r.s.invitations[stored.ID] = stored
	invitation.Accept(now)
	return nil
}
