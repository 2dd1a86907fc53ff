package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/johnquangdev/call-insight/internal/domain/entities"
	"github.com/johnquangdev/call-insight/internal/domain/repositories"
)

var _ repositories.TranscriptionRepository = (*TranscriptionRepository)(nil)

// TranscriptionRepository handles transcription data operations
type TranscriptionRepository struct {
	db *gorm.DB
}

// NewTranscriptionRepository creates a new transcription repository
func NewTranscriptionRepository(db *gorm.DB) *TranscriptionRepository {
	return &TranscriptionRepository{db: db}
}

// Upsert replaces the recording's transcription, keeping the existing row id
func (r *TranscriptionRepository) Upsert(ctx context.Context, t *entities.Transcription) error {
	if t.OrganizationID == uuid.Nil {
		return entities.ErrMissingTenant
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing entities.Transcription
		err := tx.Scopes(scopeTenant(t.OrganizationID)).
			Where("recording_id = ?", t.RecordingID).
			First(&existing).Error
		switch {
		case err == nil:
			t.ID = existing.ID
			t.CreatedAt = existing.CreatedAt
			if err := tx.Save(t).Error; err != nil {
				return fmt.Errorf("failed to update transcription: %w", err)
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			if t.ID == uuid.Nil {
				t.ID = uuid.New()
			}
			if err := tx.Create(t).Error; err != nil {
				return fmt.Errorf("failed to create transcription: %w", err)
			}
		default:
			return fmt.Errorf("failed to find transcription: %w", err)
		}
		return nil
	})
}

// FindByRecordingID finds the transcription of a recording
func (r *TranscriptionRepository) FindByRecordingID(ctx context.Context, orgID, recordingID uuid.UUID) (*entities.Transcription, error) {
	var t entities.Transcription
	if err := r.db.WithContext(ctx).
		Scopes(scopeTenant(orgID)).
		Where("recording_id = ?", recordingID).
		First(&t).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, entities.ErrTranscriptionNotFound
		}
		return nil, fmt.Errorf("failed to find transcription: %w", err)
	}
	return &t, nil
}
