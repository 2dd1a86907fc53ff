package repositories

import (
	"context"

	"github.com/google/uuid"

	"github.com/johnquangdev/call-insight/internal/domain/entities"
)

// RecordingRepository defines the interface for recording data access
type RecordingRepository interface {
	// Create creates a new recording
	Create(ctx context.Context, recording *entities.Recording) error

	// FindByID finds a recording by ID inside the organization
	FindByID(ctx context.Context, orgID, id uuid.UUID) (*entities.Recording, error)

	// Update updates an existing recording
	Update(ctx context.Context, recording *entities.Recording) error

	// Delete removes the recording with its transcription and analysis in one transaction
	Delete(ctx context.Context, orgID, id uuid.UUID) error

	// List retrieves recordings with filters and pagination
	List(ctx context.Context, orgID uuid.UUID, filters RecordingFilters) ([]*entities.Recording, int64, error)
}

// TranscriptionRepository defines the interface for transcription data access
type TranscriptionRepository interface {
	// Upsert creates or replaces the transcription of a recording
	Upsert(ctx context.Context, transcription *entities.Transcription) error

	// FindByRecordingID finds the transcription of a recording
	FindByRecordingID(ctx context.Context, orgID, recordingID uuid.UUID) (*entities.Transcription, error)
}

// AnalysisRepository defines the interface for analysis data access
type AnalysisRepository interface {
	// Upsert creates or replaces the analysis of a recording
	Upsert(ctx context.Context, analysis *entities.AnalysisResult) error

	// FindByRecordingID finds the analysis of a recording
	FindByRecordingID(ctx context.Context, orgID, recordingID uuid.UUID) (*entities.AnalysisResult, error)
}

// AnalyticsRepository provides read-only access for rollups
type AnalyticsRepository interface {
	// ListAnalyzed returns recordings in range paired with their analysis
	ListAnalyzed(ctx context.Context, orgID uuid.UUID, filter AnalyticsFilter) ([]AnalyzedRecording, error)

	// Recent returns the newest recordings regardless of date range
	Recent(ctx context.Context, orgID uuid.UUID, userID *uuid.UUID, limit int) ([]*entities.Recording, error)
}
