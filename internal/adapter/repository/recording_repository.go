package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/johnquangdev/call-insight/internal/domain/entities"
	"github.com/johnquangdev/call-insight/internal/domain/repositories"
)

var _ repositories.RecordingRepository = (*RecordingRepository)(nil)

var recordingSortColumns = map[string]string{
	"createdAt": "created_at",
	"title":     "title",
	"duration":  "duration",
	"fileSize":  "file_size",
	"status":    "status",
}

// RecordingRepository handles recording data operations
type RecordingRepository struct {
	db *gorm.DB
}

// NewRecordingRepository creates a new recording repository
func NewRecordingRepository(db *gorm.DB) *RecordingRepository {
	return &RecordingRepository{db: db}
}

// Create creates a new recording
func (r *RecordingRepository) Create(ctx context.Context, recording *entities.Recording) error {
	if recording == nil {
		return errors.New("recording cannot be nil")
	}
	if recording.OrganizationID == uuid.Nil {
		return entities.ErrMissingTenant
	}
	if err := r.db.WithContext(ctx).Create(recording).Error; err != nil {
		return fmt.Errorf("failed to create recording: %w", err)
	}
	return nil
}

// FindByID retrieves a recording by ID
func (r *RecordingRepository) FindByID(ctx context.Context, orgID, id uuid.UUID) (*entities.Recording, error) {
	var recording entities.Recording
	if err := r.db.WithContext(ctx).Scopes(scopeTenant(orgID)).Where("id = ?", id).First(&recording).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, entities.ErrRecordingNotFound
		}
		return nil, fmt.Errorf("failed to find recording: %w", err)
	}
	return &recording, nil
}

// Update writes the mutable recording columns
func (r *RecordingRepository) Update(ctx context.Context, recording *entities.Recording) error {
	if recording == nil {
		return errors.New("recording cannot be nil")
	}
	recording.UpdatedAt = time.Now()
	res := r.db.WithContext(ctx).
		Model(&entities.Recording{}).
		Scopes(scopeTenant(recording.OrganizationID)).
		Where("id = ?", recording.ID).
		Updates(map[string]interface{}{
			"title":          recording.Title,
			"description":    recording.Description,
			"duration":       recording.Duration,
			"storage_key":    recording.StorageKey,
			"status":         recording.Status,
			"error_message":  recording.ErrorMessage,
			"metadata":       recording.Metadata,
			"transcribed_at": recording.TranscribedAt,
			"analyzed_at":    recording.AnalyzedAt,
			"updated_at":     recording.UpdatedAt,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to update recording: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return entities.ErrRecordingNotFound
	}
	return nil
}

// Delete removes the recording and its dependent rows in one transaction
func (r *RecordingRepository) Delete(ctx context.Context, orgID, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Scopes(scopeTenant(orgID)).
			Where("recording_id = ?", id).
			Delete(&entities.AnalysisResult{}).Error; err != nil {
			return fmt.Errorf("failed to delete analysis: %w", err)
		}
		if err := tx.Scopes(scopeTenant(orgID)).
			Where("recording_id = ?", id).
			Delete(&entities.Transcription{}).Error; err != nil {
			return fmt.Errorf("failed to delete transcription: %w", err)
		}
		res := tx.Scopes(scopeTenant(orgID)).Where("id = ?", id).Delete(&entities.Recording{})
		if res.Error != nil {
			return fmt.Errorf("failed to delete recording: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return entities.ErrRecordingNotFound
		}
		return nil
	})
}

// List retrieves recordings with filters and pagination
func (r *RecordingRepository) List(ctx context.Context, orgID uuid.UUID, filters repositories.RecordingFilters) ([]*entities.Recording, int64, error) {
	var (
		recordings []*entities.Recording
		total      int64
	)

	query := r.db.WithContext(ctx).Model(&entities.Recording{}).Scopes(scopeTenant(orgID))
	if filters.UserID != nil {
		query = query.Where("user_id = ?", *filters.UserID)
	}
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.Search != "" {
		query = query.Where("title ILIKE ?", "%"+filters.Search+"%")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count recordings: %w", err)
	}

	if err := query.Scopes(paginate(filters.Filters, recordingSortColumns, "created_at")).Find(&recordings).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list recordings: %w", err)
	}
	return recordings, total, nil
}
