package recording

import "encoding/json"

// UpdateRecordingRequest edits recording details. Nil fields are left unchanged.
type UpdateRecordingRequest struct {
	Title       *string         `json:"title,omitempty" validate:"omitempty,min=1,max=255"`
	Description *string         `json:"description,omitempty" validate:"omitempty,max=5000"`
	Metadata    json.RawMessage `json:"metadata,omitempty"`
}

// TranscribeRequest tunes a transcription run. The body is optional.
type TranscribeRequest struct {
	Language     string `json:"language,omitempty" validate:"omitempty,min=2,max=16"`
	SpeakerCount int    `json:"speakerCount,omitempty" validate:"omitempty,min=1,max=10"`
}

// AnalyzeRequest picks the process template. Empty means the organization default.
type AnalyzeRequest struct {
	TemplateID string `json:"templateId,omitempty" validate:"omitempty,uuid"`
}

// ListQuery filters the recording list.
type ListQuery struct {
	Status string `query:"status" validate:"omitempty,oneof=UPLOADED TRANSCRIBING ANALYZING COMPLETED FAILED"`
	Search string `query:"search" validate:"omitempty,max=255"`
	UserID string `query:"userId" validate:"omitempty,uuid"`
}
