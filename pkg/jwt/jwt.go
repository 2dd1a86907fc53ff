// Package jwt issues the access and refresh tokens used by the API. Access
// tokens are short lived and carry the tenant; refresh tokens are opaque to
// clients and are only honoured while their hashed session row exists.
package jwt

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const issuer = "call-insight"

var (
	// ErrExpired is returned when a token is well formed but past its expiry.
	ErrExpired = errors.New("token expired")
	// ErrInvalid covers bad signatures, foreign issuers and the wrong token kind.
	ErrInvalid = errors.New("invalid token")
)

type key struct {
	secret []byte
	ttl    time.Duration
}

// Manager signs and verifies both token kinds with separate HS256 secrets.
type Manager struct {
	access  key
	refresh key
	now     func() time.Time
}

func NewManager(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *Manager {
	return &Manager{
		access:  key{secret: []byte(accessSecret), ttl: accessTTL},
		refresh: key{secret: []byte(refreshSecret), ttl: refreshTTL},
		now:     time.Now,
	}
}

// AccessTTL is reported to clients as expiresIn.
func (m *Manager) AccessTTL() time.Duration { return m.access.ttl }

// RefreshTTL bounds the session row and the refresh cookie.
func (m *Manager) RefreshTTL() time.Duration { return m.refresh.ttl }

func (m *Manager) registered(subject uuid.UUID, ttl time.Duration) jwt.RegisteredClaims {
	now := m.now()
	return jwt.RegisteredClaims{
		// jti keeps two tokens minted in the same second distinct.
		ID:        uuid.NewString(),
		Issuer:    issuer,
		Subject:   subject.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
}

func (m *Manager) GenerateAccessToken(userID, orgID uuid.UUID, email, role string) (string, error) {
	return sign(&Claims{
		UserID:           userID,
		OrganizationID:   orgID,
		Email:            email,
		Role:             role,
		Kind:             kindAccess,
		RegisteredClaims: m.registered(userID, m.access.ttl),
	}, m.access.secret)
}

func (m *Manager) GenerateRefreshToken(userID uuid.UUID) (string, error) {
	return sign(&refreshClaims{
		Kind:             kindRefresh,
		RegisteredClaims: m.registered(userID, m.refresh.ttl),
	}, m.refresh.secret)
}

// ValidateAccessToken returns ErrExpired for stale tokens so callers can
// tell the client to refresh.
func (m *Manager) ValidateAccessToken(raw string) (*Claims, error) {
	claims := &Claims{}
	if err := m.parse(raw, m.access.secret, claims); err != nil {
		return nil, err
	}
	if claims.Kind != kindAccess {
		return nil, fmt.Errorf("%w: not an access token", ErrInvalid)
	}
	if claims.UserID == uuid.Nil || claims.OrganizationID == uuid.Nil {
		return nil, fmt.Errorf("%w: missing subject or organisation", ErrInvalid)
	}
	return claims, nil
}

// ValidateRefreshToken returns the user the token was issued to.
func (m *Manager) ValidateRefreshToken(raw string) (uuid.UUID, error) {
	claims := &refreshClaims{}
	if err := m.parse(raw, m.refresh.secret, claims); err != nil {
		return uuid.Nil, err
	}
	if claims.Kind != kindRefresh {
		return uuid.Nil, fmt.Errorf("%w: not a refresh token", ErrInvalid)
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: bad subject: %v", ErrInvalid, err)
	}
	return userID, nil
}

func (m *Manager) parse(raw string, secret []byte, claims jwt.Claims) error {
	_, err := jwt.ParseWithClaims(raw, claims,
		func(*jwt.Token) (any, error) { return secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(m.now),
	)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpired
	default:
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
}

func sign(claims jwt.Claims, secret []byte) (string, error) {
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// HashToken returns the SHA-256 hex digest stored for refresh sessions.
func (m *Manager) HashToken(token string) (string, error) {
	if token == "" {
		return "", fmt.Errorf("%w: empty token", ErrInvalid)
	}
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:]), nil
}
