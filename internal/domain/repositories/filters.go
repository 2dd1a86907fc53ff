package repositories

import (
	"time"

	"github.com/google/uuid"

	"github.com/johnquangdev/call-insight/internal/domain/entities"
)

// Filters holds paging and ordering shared by list queries. SortBy must already
// be whitelisted by the caller.
type Filters struct {
	Limit     int
	Offset    int
	SortBy    string
	SortOrder string
}

// RecordingFilters represents filter options for listing recordings
type RecordingFilters struct {
	Filters
	UserID *uuid.UUID
	Status *entities.RecordingStatus
	Search string
}

// AnalyticsFilter selects recordings created at or after Since, optionally for one user.
type AnalyticsFilter struct {
	Since  time.Time
	UserID *uuid.UUID
}

// AnalyzedRecording pairs a recording with its analysis, which may be nil.
type AnalyzedRecording struct {
	Recording *entities.Recording
	Analysis  *entities.AnalysisResult
}
