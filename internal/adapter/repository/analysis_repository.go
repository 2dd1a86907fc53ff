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

var (
	_ repositories.AnalysisRepository  = (*AnalysisRepository)(nil)
	_ repositories.AnalyticsRepository = (*AnalysisRepository)(nil)
)

// AnalysisRepository handles analysis rows and the read side used by analytics
type AnalysisRepository struct {
	db *gorm.DB
}

// NewAnalysisRepository creates a new analysis repository
func NewAnalysisRepository(db *gorm.DB) *AnalysisRepository {
	return &AnalysisRepository{db: db}
}

// Upsert replaces the recording's analysis, keeping the existing row id
func (r *AnalysisRepository) Upsert(ctx context.Context, a *entities.AnalysisResult) error {
	if a.OrganizationID == uuid.Nil {
		return entities.ErrMissingTenant
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing entities.AnalysisResult
		err := tx.Scopes(scopeTenant(a.OrganizationID)).
			Where("recording_id = ?", a.RecordingID).
			First(&existing).Error
		switch {
		case err == nil:
			a.ID = existing.ID
			a.CreatedAt = existing.CreatedAt
			if err := tx.Save(a).Error; err != nil {
				return fmt.Errorf("failed to update analysis: %w", err)
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			if a.ID == uuid.Nil {
				a.ID = uuid.New()
			}
			if err := tx.Create(a).Error; err != nil {
				return fmt.Errorf("failed to create analysis: %w", err)
			}
		default:
			return fmt.Errorf("failed to find analysis: %w", err)
		}
		return nil
	})
}

// FindByRecordingID finds the analysis of a recording
func (r *AnalysisRepository) FindByRecordingID(ctx context.Context, orgID, recordingID uuid.UUID) (*entities.AnalysisResult, error) {
	var a entities.AnalysisResult
	if err := r.db.WithContext(ctx).
		Scopes(scopeTenant(orgID)).
		Where("recording_id = ?", recordingID).
		First(&a).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, entities.ErrAnalysisNotFound
		}
		return nil, fmt.Errorf("failed to find analysis: %w", err)
	}
	return &a, nil
}

// ListAnalyzed returns recordings created since filter.Since with their analysis
func (r *AnalysisRepository) ListAnalyzed(ctx context.Context, orgID uuid.UUID, filter repositories.AnalyticsFilter) ([]repositories.AnalyzedRecording, error) {
	var recordings []*entities.Recording
	query := r.db.WithContext(ctx).
		Scopes(scopeTenant(orgID)).
		Where("created_at >= ?", filter.Since)
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if err := query.Order("created_at ASC").Find(&recordings).Error; err != nil {
		return nil, fmt.Errorf("failed to list recordings for analytics: %w", err)
	}
	if len(recordings) == 0 {
		return []repositories.AnalyzedRecording{}, nil
	}

	ids := make([]uuid.UUID, 0, len(recordings))
	for _, rec := range recordings {
		ids = append(ids, rec.ID)
	}

	var analyses []*entities.AnalysisResult
	if err := r.db.WithContext(ctx).
		Scopes(scopeTenant(orgID)).
		Where("recording_id IN ?", ids).
		Find(&analyses).Error; err != nil {
		return nil, fmt.Errorf("failed to list analyses: %w", err)
	}

	byRecording := make(map[uuid.UUID]*entities.AnalysisResult, len(analyses))
	for _, a := range analyses {
		byRecording[a.RecordingID] = a
	}

	out := make([]repositories.AnalyzedRecording, 0, len(recordings))
	for _, rec := range recordings {
		out = append(out, repositories.AnalyzedRecording{Recording: rec, Analysis: byRecording[rec.ID]})
	}
	return out, nil
}

// Recent returns the newest recordings of the organization
func (r *AnalysisRepository) Recent(ctx context.Context, orgID uuid.UUID, userID *uuid.UUID, limit int) ([]*entities.Recording, error) {
	var recordings []*entities.Recording
	query := r.db.WithContext(ctx).Scopes(scopeTenant(orgID))
	if userID != nil {
		query = query.Where("user_id = ?", *userID)
	}
	if err := query.Order("created_at DESC").Limit(limit).Find(&recordings).Error; err != nil {
		return nil, fmt.Errorf("failed to list recent recordings: %w", err)
	}
	return recordings, nil
}
