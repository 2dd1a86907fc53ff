package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	defer s.Close()

	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	if _, err := s.Get(ctx, "missing"); !errors.Is(err, ErrMiss) {
		t.Fatalf("Get(missing) error = %v, want ErrMiss", err)
	}

	if err := s.Set(ctx, "k", "v", time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if got, err := s.Get(ctx, "k"); err != nil || got != "v" {
		t.Fatalf("Get(k) = %q, %v", got, err)
	}

	now = now.Add(time.Minute)
	if _, err := s.Get(ctx, "k"); !errors.Is(err, ErrMiss) {
		t.Errorf("expired key should miss, got %v", err)
	}

	_ = s.Set(ctx, "d", "v", time.Hour)
	_ = s.Delete(ctx, "d")
	if _, err := s.Get(ctx, "d"); !errors.Is(err, ErrMiss) {
		t.Errorf("deleted key should miss, got %v", err)
	}
}

func TestJSONHelpers(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	defer s.Close()

	type payload struct {
		Count int `json:"count"`
	}

	var out payload
	hit, err := GetJSON(ctx, s, "p", &out)
	if err != nil || hit {
		t.Fatalf("GetJSON on empty store = %v, %v", hit, err)
	}

	if err := SetJSON(ctx, s, "p", payload{Count: 3}, time.Minute); err != nil {
		t.Fatalf("SetJSON: %v", err)
	}
	hit, err = GetJSON(ctx, s, "p", &out)
	if err != nil || !hit || out.Count != 3 {
		t.Errorf("GetJSON = %v, %v, %+v", hit, err, out)
	}
}
