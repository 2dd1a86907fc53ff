package entities

import (
	"time"

	"github.com/google/uuid"
)

// WordInfo is a single recognised word with timing in seconds.
type WordInfo struct {
	Word       string  `json:"word"`
	StartTime  float64 `json:"startTime"`
	EndTime    float64 `json:"endTime"`
	Confidence float64 `json:"confidence"`
	SpeakerTag *int    `json:"speakerTag,omitempty"`
}

// SpeakerSegment is a run of consecutive words attributed to one speaker.
type SpeakerSegment struct {
	Speaker    string     `json:"speaker"`
	Text       string     `json:"text"`
	StartTime  float64    `json:"startTime"`
	EndTime    float64    `json:"endTime"`
	Confidence float64    `json:"confidence"`
	Words      []WordInfo `json:"words"`
}

// Transcription providers recorded on each row.
const (
	TranscriptionProviderMock         = "mock"
	TranscriptionProviderMockFallback = "mock-fallback"
)

// Transcription is the one-to-one transcript of a Recording.
type Transcription struct {
	ID             uuid.UUID        `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	RecordingID    uuid.UUID        `json:"recordingId" gorm:"type:uuid;not null;uniqueIndex"`
	OrganizationID uuid.UUID        `json:"organizationId" gorm:"type:uuid;not null;index"`
	Text           string           `json:"text" gorm:"type:text;not null"`
	Confidence     float64          `json:"confidence" gorm:"not null;default:0"`
	Language       string           `json:"language" gorm:"type:varchar(20);not null;default:'en-US'"`
	Provider       string           `json:"provider" gorm:"type:varchar(50);not null"`
	IsMock         bool             `json:"isMock" gorm:"not null;default:false"`
	WordCount      int              `json:"wordCount" gorm:"not null;default:0"`
	Duration       float64          `json:"duration" gorm:"not null;default:0"`
	Segments       []SpeakerSegment `json:"segments" gorm:"type:jsonb;serializer:json"`
	CreatedAt      time.Time        `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt      time.Time        `json:"updatedAt" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for GORM
func (Transcription) TableName() string {
	return "transcriptions"
}
