package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/johnquangdev/call-insight/internal/domain/entities"
	"github.com/johnquangdev/call-insight/internal/domain/repositories"
)

var (
	_ repositories.OrganizationRepository = (*OrganizationRepository)(nil)
	_ repositories.UserRepository         = (*UserRepository)(nil)
	_ repositories.SessionRepository      = (*SessionRepository)(nil)
)

// OrganizationRepository is the in-memory organization store
type OrganizationRepository struct{ s *Store }

func (r *OrganizationRepository) CreateWithOwner(ctx context.Context, org *entities.Organization, owner *entities.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if r.s.emailTaken(owner.Email, uuid.Nil) {
		return entities.ErrUserAlreadyExists
	}
	if org.ID == uuid.Nil {
		org.ID = uuid.New()
	}
	if owner.ID == uuid.Nil {
		owner.ID = uuid.New()
	}
	stamp(&org.CreatedAt, &org.UpdatedAt)
	owner.OrganizationID = org.ID
	stamp(&owner.CreatedAt, &owner.UpdatedAt)
	r.s.organizations[org.ID] = *org
	r.s.users[owner.ID] = *owner
	return nil
}

func (r *OrganizationRepository) FindByID(ctx context.Context, id uuid.UUID) (*entities.Organization, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	org, ok := r.s.organizations[id]
	if !ok {
		return nil, entities.ErrOrganizationNotFound
	}
	return &org, nil
}

func (r *OrganizationRepository) Update(ctx context.Context, org *entities.Organization) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	existing, ok := r.s.organizations[org.ID]
	if !ok {
		return entities.ErrOrganizationNotFound
	}
	org.CreatedAt = existing.CreatedAt
	org.UpdatedAt = time.Now()
	r.s.organizations[org.ID] = *org
	return nil
}

// emailTaken must be called with the lock held.
func (s *Store) emailTaken(email string, except uuid.UUID) bool {
	email = entities.NormalizeEmail(email)
	for id, u := range s.users {
		if id != except && u.Email == email {
			return true
		}
	}
	return false
}

// UserRepository is the in-memory user store
type UserRepository struct{ s *Store }

// Create inserts a user directly; used for seeding.
func (r *UserRepository) Create(ctx context.Context, user *entities.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if user.OrganizationID == uuid.Nil {
		return entities.ErrMissingTenant
	}
	if r.s.emailTaken(user.Email, user.ID) {
		return entities.ErrUserAlreadyExists
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	stamp(&user.CreatedAt, &user.UpdatedAt)
	r.s.users[user.ID] = *user
	return nil
}

func (r *UserRepository) FindByID(ctx context.Context, orgID, id uuid.UUID) (*entities.User, error) {
	if orgID == uuid.Nil {
		return nil, entities.ErrMissingTenant
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.s.users[id]
	if !ok || u.OrganizationID != orgID {
		return nil, entities.ErrUserNotFound
	}
	return &u, nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*entities.User, error) {
	email = entities.NormalizeEmail(email)
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, u := range r.s.users {
		if u.Email == email {
			found := u
			return &found, nil
		}
	}
	return nil, entities.ErrUserNotFound
}

func (r *UserRepository) FindByOAuth(ctx context.Context, provider, oauthID string) (*entities.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, u := range r.s.users {
		if u.OAuthProvider != nil && u.OAuthID != nil && *u.OAuthProvider == provider && *u.OAuthID == oauthID {
			found := u
			return &found, nil
		}
	}
	return nil, entities.ErrUserNotFound
}

func (r *UserRepository) Update(ctx context.Context, user *entities.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	existing, ok := r.s.users[user.ID]
	if !ok || existing.OrganizationID != user.OrganizationID {
		return entities.ErrUserNotFound
	}
	if r.s.emailTaken(user.Email, user.ID) {
		return entities.ErrUserAlreadyExists
	}
	user.CreatedAt = existing.CreatedAt
	user.UpdatedAt = time.Now()
	r.s.users[user.ID] = *user
	return nil
}

func (r *UserRepository) UpdateLastLogin(ctx context.Context, orgID, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok || u.OrganizationID != orgID {
		return entities.ErrUserNotFound
	}
	u.UpdateLastLogin()
	r.s.users[id] = u
	return nil
}

func (r *UserRepository) Deactivate(ctx context.Context, orgID, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok || u.OrganizationID != orgID {
		return entities.ErrUserNotFound
	}
	u.IsActive = false
	u.UpdatedAt = time.Now()
	r.s.users[id] = u
	return nil
}

func (r *UserRepository) List(ctx context.Context, orgID uuid.UUID, filters repositories.Filters) ([]*entities.User, int64, error) {
	if orgID == uuid.Nil {
		return nil, 0, entities.ErrMissingTenant
	}
	r.s.mu.RLock()
	var users []*entities.User
	for _, u := range r.s.users {
		if u.OrganizationID == orgID {
			c := u
			users = append(users, &c)
		}
	}
	r.s.mu.RUnlock()

	total := int64(len(users))
	less := func(a, b *entities.User) bool { return a.CreatedAt.Before(b.CreatedAt) }
	switch filters.SortBy {
	case "name":
		less = func(a, b *entities.User) bool { return a.Name < b.Name }
	case "email":
		less = func(a, b *entities.User) bool { return a.Email < b.Email }
	}
	return page(users, filters, less), total, nil
}

func (r *UserRepository) ListActive(ctx context.Context, orgID uuid.UUID) ([]*entities.User, error) {
	if orgID == uuid.Nil {
		return nil, entities.ErrMissingTenant
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var users []*entities.User
	for _, u := range r.s.users {
		if u.OrganizationID == orgID && u.IsActive {
			c := u
			users = append(users, &c)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Name < users[j].Name })
	return users, nil
}

// SessionRepository is the in-memory session store
type SessionRepository struct{ s *Store }

func (r *SessionRepository) Create(ctx context.Context, session *entities.Session) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}
	r.s.sessions[session.ID] = *session
	return nil
}

func (r *SessionRepository) FindByTokenHash(ctx context.Context, tokenHash string) (*entities.Session, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, sess := range r.s.sessions {
		if sess.TokenHash == tokenHash {
			found := sess
			return &found, nil
		}
	}
	return nil, entities.ErrSessionNotFound
}

func (r *SessionRepository) UpdateLastUsed(ctx context.Context, sessionID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sess, ok := r.s.sessions[sessionID]
	if !ok {
		return entities.ErrSessionNotFound
	}
	now := time.Now()
	sess.LastUsedAt = &now
	r.s.sessions[sessionID] = sess
	return nil
}

func (r *SessionRepository) Revoke(ctx context.Context, sessionID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sess, ok := r.s.sessions[sessionID]
	if !ok {
		return entities.ErrSessionNotFound
	}
	if sess.RevokedAt == nil {
		now := time.Now()
		sess.RevokedAt = &now
		r.s.sessions[sessionID] = sess
	}
	return nil
}

func (r *SessionRepository) RevokeAllByUserID(ctx context.Context, userID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := time.Now()
	for id, sess := range r.s.sessions {
		if sess.UserID == userID && sess.RevokedAt == nil {
			sess.RevokedAt = &now
			r.s.sessions[id] = sess
		}
	}
	return nil
}

func (r *SessionRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for id, sess := range r.s.sessions {
		if sess.ExpiresAt.Before(before) {
			delete(r.s.sessions, id)
			n++
		}
	}
	return n, nil
}
