package entities

import (
	"time"

	"github.com/google/uuid"
)

// ProcessStep is one expected stage of a sales call.
type ProcessStep struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Keywords    []string `json:"keywords"`
	Required    bool     `json:"required"`
}

// ProcessTemplate is a named ordered list of steps calls are scored against.
// At most one template per organization has IsDefault set.
type ProcessTemplate struct {
	ID             uuid.UUID     `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	OrganizationID uuid.UUID     `json:"organizationId" gorm:"type:uuid;not null;index"`
	Name           string        `json:"name" gorm:"type:varchar(255);not null"`
	Description    *string       `json:"description,omitempty" gorm:"type:text"`
	Steps          []ProcessStep `json:"steps" gorm:"type:jsonb;serializer:json;not null"`
	IsDefault      bool          `json:"isDefault" gorm:"not null;default:false"`
	CreatedBy      uuid.UUID     `json:"createdBy" gorm:"type:uuid;not null"`
	CreatedAt      time.Time     `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt      time.Time     `json:"updatedAt" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for GORM
func (ProcessTemplate) TableName() string {
	return "process_templates"
}

// DefaultProcessSteps is used when an organization has no default template.
func DefaultProcessSteps() []ProcessStep {
	return []ProcessStep{
		{Name: "Greeting", Keywords: []string{"hello", "hi", "good morning", "good afternoon", "thanks for"}, Required: true},
		{Name: "Discovery", Keywords: []string{"what", "how", "tell me", "challenge", "currently"}, Required: true},
		{Name: "Presentation", Keywords: []string{"our solution", "feature", "offer", "product", "helps"}, Required: true},
		{Name: "Objection Handling", Keywords: []string{"concern", "understand", "price", "budget", "worried"}, Required: false},
		{Name: "Closing", Keywords: []string{"next step", "schedule", "follow up", "sign", "agreement"}, Required: true},
	}
}
