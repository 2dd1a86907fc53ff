package entities

import (
	"time"

	"github.com/google/uuid"
)

// Session is a refresh-token grant. Only the token digest is stored.
type Session struct {
	ID             uuid.UUID  `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	UserID         uuid.UUID  `json:"userId" gorm:"type:uuid;not null;index"`
	OrganizationID uuid.UUID  `json:"organizationId" gorm:"type:uuid;not null"`
	TokenHash      string     `json:"-" gorm:"column:token_hash;type:varchar(64);uniqueIndex;not null"`
	CreatedAt      time.Time  `json:"createdAt" gorm:"autoCreateTime"`
	ExpiresAt      time.Time  `json:"expiresAt" gorm:"type:timestamp;not null;index"`
	RevokedAt      *time.Time `json:"revokedAt,omitempty" gorm:"type:timestamp"`
	LastUsedAt     *time.Time `json:"lastUsedAt,omitempty" gorm:"type:timestamp"`
	IPAddress      *string    `json:"ipAddress,omitempty" gorm:"type:varchar(45)"`
	UserAgent      *string    `json:"userAgent,omitempty" gorm:"type:text"`
}

// TableName specifies the table name for GORM
func (Session) TableName() string {
	return "sessions"
}

// NewSession creates a new session
func NewSession(userID, orgID uuid.UUID, tokenHash string, expiresAt time.Time) *Session {
	return &Session{
		ID:             uuid.New(),
		UserID:         userID,
		OrganizationID: orgID,
		TokenHash:      tokenHash,
		ExpiresAt:      expiresAt,
		CreatedAt:      time.Now(),
	}
}

// IsExpired checks if session is expired
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// IsValid checks if session is valid (not expired and not revoked)
func (s *Session) IsValid() bool {
	if s == nil {
		return false
	}
	return !s.IsExpired() && s.RevokedAt == nil
}

// WithDeviceInfo adds device information
func (s *Session) WithDeviceInfo(ip, userAgent string) *Session {
	if ip != "" {
		s.IPAddress = &ip
	}
	if userAgent != "" {
		s.UserAgent = &userAgent
	}
	return s
}
