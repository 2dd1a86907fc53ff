package oauth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/johnquangdev/call-insight/internal/infrastructure/cache"
)

// StateManager issues one-time OAuth state tokens for CSRF protection. States
// live in the shared cache so any API instance can validate them when Redis
// is enabled.
type StateManager struct {
	store      cache.Store
	expiration time.Duration
}

// NewStateManager creates a state manager backed by store
func NewStateManager(store cache.Store) *StateManager {
	return &StateManager{
		store:      store,
		expiration: 15 * time.Minute,
	}
}

func stateKey(state string) string {
	return fmt.Sprintf("oauth:state:%s", state)
}

// GenerateState generates a random state token and stores it
func (sm *StateManager) GenerateState(ctx context.Context) (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	state := base64.URLEncoding.EncodeToString(b)
	if err := sm.store.Set(ctx, stateKey(state), "valid", sm.expiration); err != nil {
		return "", fmt.Errorf("failed to store oauth state: %w", err)
	}
	return state, nil
}

// ValidateState consumes state. A state validates at most once.
func (sm *StateManager) ValidateState(ctx context.Context, state string) (bool, error) {
	if state == "" {
		return false, nil
	}
	key := stateKey(state)
	value, err := sm.store.Get(ctx, key)
	if errors.Is(err, cache.ErrMiss) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read oauth state: %w", err)
	}
	if err := sm.store.Delete(ctx, key); err != nil {
		return false, fmt.Errorf("failed to consume oauth state: %w", err)
	}
	return value == "valid", nil
}
