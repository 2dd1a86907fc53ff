package entities

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Organization is the tenant boundary. Every other row points at one.
type Organization struct {
	ID        uuid.UUID      `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Name      string         `json:"name" gorm:"type:varchar(255);not null"`
	Slug      string         `json:"slug" gorm:"type:varchar(255);uniqueIndex;not null"`
	Plan      string         `json:"plan" gorm:"type:varchar(50);default:'free';not null"`
	Settings  datatypes.JSON `json:"settings" gorm:"type:jsonb;default:'{}'"`
	IsActive  bool           `json:"isActive" gorm:"default:true;not null"`
	CreatedAt time.Time      `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updatedAt" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for GORM
func (Organization) TableName() string {
	return "organizations"
}

var slugInvalid = regexp.MustCompile(`[^a-z0-9]+`)

// NewOrganization creates an organization with a slug derived from its name.
// The short random suffix keeps slugs unique without a lookup.
func NewOrganization(name string) *Organization {
	now := time.Now()
	id := uuid.New()
	slug := strings.Trim(slugInvalid.ReplaceAllString(strings.ToLower(name), "-"), "-")
	if slug == "" {
		slug = "org"
	}
	return &Organization{
		ID:        id,
		Name:      strings.TrimSpace(name),
		Slug:      slug + "-" + id.String()[:8],
		Plan:      "free",
		Settings:  datatypes.JSON([]byte("{}")),
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
