package entities

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// RecordingStatus represents the status of a recording
type RecordingStatus string

const (
	RecordingStatusUploaded     RecordingStatus = "UPLOADED"
	RecordingStatusTranscribing RecordingStatus = "TRANSCRIBING"
	RecordingStatusAnalyzing    RecordingStatus = "ANALYZING"
	RecordingStatusCompleted    RecordingStatus = "COMPLETED"
	RecordingStatusFailed       RecordingStatus = "FAILED"
)

// IsValid checks if the status is a known value
func (s RecordingStatus) IsValid() bool {
	_, ok := recordingTransitions[s]
	return ok
}

// recordingTransitions lists allowed next states. FAILED is reachable from
// every state and is terminal. Re-entering TRANSCRIBING or ANALYZING is allowed
// because overlapping requests on one recording are not excluded.
var recordingTransitions = map[RecordingStatus][]RecordingStatus{
	RecordingStatusUploaded:     {RecordingStatusTranscribing},
	RecordingStatusTranscribing: {RecordingStatusTranscribing, RecordingStatusCompleted},
	RecordingStatusCompleted:    {RecordingStatusAnalyzing},
	RecordingStatusAnalyzing:    {RecordingStatusAnalyzing, RecordingStatusCompleted},
	RecordingStatusFailed:       nil,
}

// Recording is an uploaded call audio file and its processing state.
type Recording struct {
	ID             uuid.UUID       `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	OrganizationID uuid.UUID       `json:"organizationId" gorm:"type:uuid;not null;index"`
	UserID         uuid.UUID       `json:"userId" gorm:"type:uuid;not null;index"`
	Title          string          `json:"title" gorm:"type:varchar(255);not null"`
	Description    *string         `json:"description,omitempty" gorm:"type:text"`
	Duration       int             `json:"duration" gorm:"not null;default:0"` // seconds
	FileName       string          `json:"fileName" gorm:"type:varchar(255);not null"`
	FileSize       int64           `json:"fileSize" gorm:"not null;default:0"`
	MimeType       string          `json:"mimeType" gorm:"type:varchar(100);not null"`
	StorageKey     string          `json:"storageKey" gorm:"type:text;not null"`
	Status         RecordingStatus `json:"status" gorm:"type:varchar(20);not null;default:'UPLOADED';index"`
	ErrorMessage   *string         `json:"errorMessage,omitempty" gorm:"type:text"`
	Metadata       datatypes.JSON  `json:"metadata,omitempty" gorm:"type:jsonb;default:'{}'"`
	TranscribedAt  *time.Time      `json:"transcribedAt,omitempty"`
	AnalyzedAt     *time.Time      `json:"analyzedAt,omitempty"`
	CreatedAt      time.Time       `json:"createdAt" gorm:"autoCreateTime;index"`
	UpdatedAt      time.Time       `json:"updatedAt" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for GORM
func (Recording) TableName() string {
	return "recordings"
}

// NewRecording creates an UPLOADED recording owned by userID inside orgID.
func NewRecording(orgID, userID uuid.UUID, title, fileName, mimeType string, size int64) *Recording {
	now := time.Now()
	return &Recording{
		ID:             uuid.New(),
		OrganizationID: orgID,
		UserID:         userID,
		Title:          title,
		FileName:       fileName,
		FileSize:       size,
		MimeType:       mimeType,
		Status:         RecordingStatusUploaded,
		Metadata:       datatypes.JSON([]byte("{}")),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// CanTransitionTo reports whether moving to next is allowed from the current status.
func (r *Recording) CanTransitionTo(next RecordingStatus) bool {
	if next == RecordingStatusFailed {
		return r.Status != RecordingStatusFailed
	}
	for _, s := range recordingTransitions[r.Status] {
		if s == next {
			return true
		}
	}
	return false
}

// TransitionTo moves the recording to next or returns ErrInvalidStatusTransition.
func (r *Recording) TransitionTo(next RecordingStatus) error {
	if !r.CanTransitionTo(next) {
		return ErrInvalidStatusTransition
	}
	now := time.Now()
	r.Status = next
	r.UpdatedAt = now
	if next != RecordingStatusFailed {
		r.ErrorMessage = nil
	}
	return nil
}

// MarkAsFailed marks recording as failed
func (r *Recording) MarkAsFailed(errorMsg string) {
	r.Status = RecordingStatusFailed
	r.ErrorMessage = &errorMsg
	r.UpdatedAt = time.Now()
}

// IsCompleted checks if recording is completed
func (r *Recording) IsCompleted() bool {
	return r.Status == RecordingStatusCompleted
}

// supportedAudioTypes lists accepted MIME types by family: mp3, wav, m4a, ogg.
var supportedAudioTypes = map[string]string{
	"audio/mpeg":      "mp3",
	"audio/mp3":       "mp3",
	"audio/mpeg3":     "mp3",
	"audio/wav":       "wav",
	"audio/x-wav":     "wav",
	"audio/wave":      "wav",
	"audio/vnd.wave":  "wav",
	"audio/mp4":       "m4a",
	"audio/m4a":       "m4a",
	"audio/x-m4a":     "m4a",
	"audio/aac":       "m4a",
	"audio/ogg":       "ogg",
	"audio/opus":      "ogg",
	"application/ogg": "ogg",
}

// AudioFamily returns the audio family of mimeType, ignoring parameters
// such as "; codecs=opus", or "" when the type is not accepted.
func AudioFamily(mimeType string) string {
	base, _, _ := strings.Cut(mimeType, ";")
	return supportedAudioTypes[strings.ToLower(strings.TrimSpace(base))]
}

// IsSupportedAudioType reports whether recordings of mimeType can be transcribed.
func IsSupportedAudioType(mimeType string) bool {
	return AudioFamily(mimeType) != ""
}

var audioTypesByExt = map[string]string{
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".m4a":  "audio/mp4",
	".aac":  "audio/aac",
	".ogg":  "audio/ogg",
	".oga":  "audio/ogg",
	".opus": "audio/opus",
}

// ResolveAudioType returns declared when it is a supported audio type and
// otherwise guesses from the file extension. Browsers often send
// application/octet-stream for m4a and ogg files.
func ResolveAudioType(declared, fileName string) string {
	if IsSupportedAudioType(declared) {
		return declared
	}
	dot := strings.LastIndex(fileName, ".")
	if dot < 0 {
		return declared
	}
	if guessed, ok := audioTypesByExt[strings.ToLower(fileName[dot:])]; ok {
		return guessed
	}
	return declared
}
