package jwt

import (
	"errors"
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	m := NewManager("access", "refresh", time.Minute, time.Hour)
	userID, orgID := uuid.New(), uuid.New()

	token, err := m.GenerateAccessToken(userID, orgID, "a@example.com", "admin")
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}

	claims, err := m.ValidateAccessToken(token)
	if err != nil {
		t.Fatalf("ValidateAccessToken: %v", err)
	}
	if claims.UserID != userID || claims.OrganizationID != orgID {
		t.Errorf("claims ids = %s/%s, want %s/%s", claims.UserID, claims.OrganizationID, userID, orgID)
	}
	if claims.Role != "admin" {
		t.Errorf("claims.Role = %q, want admin", claims.Role)
	}
}

func TestAccessTokenRejectsRefreshSecret(t *testing.T) {
	m := NewManager("access", "refresh", time.Minute, time.Hour)
	token, err := m.GenerateRefreshToken(uuid.New())
	if err != nil {
		t.Fatalf("GenerateRefreshToken: %v", err)
	}
	if _, err := m.ValidateAccessToken(token); err == nil {
		t.Fatal("expected refresh token to fail access validation")
	}
}

func TestExpiredAccessToken(t *testing.T) {
	m := NewManager("access", "refresh", -time.Minute, time.Hour)
	token, err := m.GenerateAccessToken(uuid.New(), uuid.New(), "a@example.com", "user")
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}
	if _, err := m.ValidateAccessToken(token); !errors.Is(err, ErrExpired) {
		t.Fatalf("ValidateAccessToken error = %v, want ErrExpired", err)
	}
}

func TestRefreshTokensAreUnique(t *testing.T) {
	m := NewManager("access", "refresh", time.Minute, time.Hour)
	userID := uuid.New()

	a, _ := m.GenerateRefreshToken(userID)
	b, _ := m.GenerateRefreshToken(userID)
	if a == b {
		t.Fatal("expected distinct refresh tokens")
	}

	got, err := m.ValidateRefreshToken(a)
	if err != nil {
		t.Fatalf("ValidateRefreshToken: %v", err)
	}
	if got != userID {
		t.Errorf("ValidateRefreshToken = %s, want %s", got, userID)
	}

	ha, _ := m.HashToken(a)
	hb, _ := m.HashToken(b)
	if ha == hb || len(ha) != 64 {
		t.Errorf("unexpected hashes %q %q", ha, hb)
	}
}

func TestTokenKindsAreNotInterchangeable(t *testing.T) {
	// Same secret for both kinds, so only the typ claim tells them apart.
	m := NewManager("shared", "shared", time.Minute, time.Hour)
	userID := uuid.New()

	refresh, err := m.GenerateRefreshToken(userID)
	if err != nil {
		t.Fatalf("GenerateRefreshToken: %v", err)
	}
	if _, err := m.ValidateAccessToken(refresh); !errors.Is(err, ErrInvalid) {
		t.Errorf("refresh as access: err = %v, want ErrInvalid", err)
	}

	access, err := m.GenerateAccessToken(userID, uuid.New(), "a@example.com", "user")
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}
	if _, err := m.ValidateRefreshToken(access); !errors.Is(err, ErrInvalid) {
		t.Errorf("access as refresh: err = %v, want ErrInvalid", err)
	}
}

func TestAccessTokenRequiresOrganisation(t *testing.T) {
	m := NewManager("access", "refresh", time.Minute, time.Hour)
	token, err := m.GenerateAccessToken(uuid.New(), uuid.Nil, "a@example.com", "user")
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}
	if _, err := m.ValidateAccessToken(token); !errors.Is(err, ErrInvalid) {
		t.Fatalf("err = %v, want ErrInvalid", err)
	}
}

func TestRefreshTokenExpiryUsesClock(t *testing.T) {
	m := NewManager("access", "refresh", time.Minute, time.Hour)
	issued := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return issued }

	token, err := m.GenerateRefreshToken(uuid.New())
	if err != nil {
		t.Fatalf("GenerateRefreshToken: %v", err)
	}
	m.now = func() time.Time { return issued.Add(59 * time.Minute) }
	if _, err := m.ValidateRefreshToken(token); err != nil {
		t.Fatalf("ValidateRefreshToken before expiry: %v", err)
	}
	m.now = func() time.Time { return issued.Add(2 * time.Hour) }
	if _, err := m.ValidateRefreshToken(token); !errors.Is(err, ErrExpired) {
		t.Fatalf("err = %v, want ErrExpired", err)
	}
}

func TestForeignIssuerRejected(t *testing.T) {
	m := NewManager("access", "refresh", time.Minute, time.Hour)
	claims := &Claims{
		UserID:         uuid.New(),
		OrganizationID: uuid.New(),
		Kind:           kindAccess,
		RegisteredClaims: jwtlib.RegisteredClaims{
			Issuer:    "someone-else",
			ExpiresAt: jwtlib.NewNumericDate(time.Now().Add(time.Minute)),
		},
	}
	token, err := sign(claims, []byte("access"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := m.ValidateAccessToken(token); !errors.Is(err, ErrInvalid) {
		t.Fatalf("err = %v, want ErrInvalid", err)
	}
	if m.AccessTTL() != time.Minute || m.RefreshTTL() != time.Hour {
		t.Errorf("ttls = %v %v", m.AccessTTL(), m.RefreshTTL())
	}
}
