package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/johnquangdev/call-insight/internal/domain/entities"
	"github.com/johnquangdev/call-insight/internal/domain/repositories"
)

var (
	_ repositories.RecordingRepository     = (*RecordingRepository)(nil)
	_ repositories.TranscriptionRepository = (*TranscriptionRepository)(nil)
	_ repositories.AnalysisRepository      = (*AnalysisRepository)(nil)
	_ repositories.AnalyticsRepository     = (*AnalysisRepository)(nil)
)

// RecordingRepository is the in-memory recording store
type RecordingRepository struct{ s *Store }

func (r *RecordingRepository) Create(ctx context.Context, recording *entities.Recording) error {
	if recording.OrganizationID == uuid.Nil {
		return entities.ErrMissingTenant
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if recording.ID == uuid.Nil {
		recording.ID = uuid.New()
	}
	stamp(&recording.CreatedAt, &recording.UpdatedAt)
	r.s.recordings[recording.ID] = *recording
	return nil
}

func (r *RecordingRepository) FindByID(ctx context.Context, orgID, id uuid.UUID) (*entities.Recording, error) {
	if orgID == uuid.Nil {
		return nil, entities.ErrMissingTenant
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	rec, ok := r.s.recordings[id]
	if !ok || rec.OrganizationID != orgID {
		return nil, entities.ErrRecordingNotFound
	}
	return &rec, nil
}

func (r *RecordingRepository) Update(ctx context.Context, recording *entities.Recording) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	existing, ok := r.s.recordings[recording.ID]
	if !ok || existing.OrganizationID != recording.OrganizationID {
		return entities.ErrRecordingNotFound
	}
	recording.CreatedAt = existing.CreatedAt
	recording.UpdatedAt = time.Now()
	r.s.recordings[recording.ID] = *recording
	return nil
}

func (r *RecordingRepository) Delete(ctx context.Context, orgID, id uuid.UUID) error {
	if orgID == uuid.Nil {
		return entities.ErrMissingTenant
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rec, ok := r.s.recordings[id]
	if !ok || rec.OrganizationID != orgID {
		return entities.ErrRecordingNotFound
	}
	delete(r.s.analyses, id)
	delete(r.s.transcriptions, id)
	delete(r.s.recordings, id)
	return nil
}

func (r *RecordingRepository) List(ctx context.Context, orgID uuid.UUID, filters repositories.RecordingFilters) ([]*entities.Recording, int64, error) {
	if orgID == uuid.Nil {
		return nil, 0, entities.ErrMissingTenant
	}
	r.s.mu.RLock()
	var out []*entities.Recording
	for _, rec := range r.s.recordings {
		if rec.OrganizationID != orgID {
			continue
		}
		if filters.UserID != nil && rec.UserID != *filters.UserID {
			continue
		}
		if filters.Status != nil && rec.Status != *filters.Status {
			continue
		}
		if filters.Search != "" && !strings.Contains(strings.ToLower(rec.Title), strings.ToLower(filters.Search)) {
			continue
		}
		c := rec
		out = append(out, &c)
	}
	r.s.mu.RUnlock()

	total := int64(len(out))
	less := func(a, b *entities.Recording) bool { return a.CreatedAt.Before(b.CreatedAt) }
	switch filters.SortBy {
	case "title":
		less = func(a, b *entities.Recording) bool { return a.Title < b.Title }
	case "duration":
		less = func(a, b *entities.Recording) bool { return a.Duration < b.Duration }
	case "fileSize":
		less = func(a, b *entities.Recording) bool { return a.FileSize < b.FileSize }
	}
	return page(out, filters.Filters, less), total, nil
}

// TranscriptionRepository is the in-memory transcription store
type TranscriptionRepository struct{ s *Store }

func (r *TranscriptionRepository) Upsert(ctx context.Context, t *entities.Transcription) error {
	if t.OrganizationID == uuid.Nil {
		return entities.ErrMissingTenant
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if existing, ok := r.s.transcriptions[t.RecordingID]; ok {
		t.ID = existing.ID
		t.CreatedAt = existing.CreatedAt
	} else if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	stamp(&t.CreatedAt, &t.UpdatedAt)
	r.s.transcriptions[t.RecordingID] = *t
	return nil
}

func (r *TranscriptionRepository) FindByRecordingID(ctx context.Context, orgID, recordingID uuid.UUID) (*entities.Transcription, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	t, ok := r.s.transcriptions[recordingID]
	if !ok || t.OrganizationID != orgID {
		return nil, entities.ErrTranscriptionNotFound
	}
	return &t, nil
}

// AnalysisRepository is the in-memory analysis store and analytics reader
type AnalysisRepository struct{ s *Store }

func (r *AnalysisRepository) Upsert(ctx context.Context, a *entities.AnalysisResult) error {
	if a.OrganizationID == uuid.Nil {
		return entities.ErrMissingTenant
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if existing, ok := r.s.analyses[a.RecordingID]; ok {
		a.ID = existing.ID
		a.CreatedAt = existing.CreatedAt
	} else if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	stamp(&a.CreatedAt, &a.UpdatedAt)
	r.s.analyses[a.RecordingID] = *a
	return nil
}

func (r *AnalysisRepository) FindByRecordingID(ctx context.Context, orgID, recordingID uuid.UUID) (*entities.AnalysisResult, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	a, ok := r.s.analyses[recordingID]
	if !ok || a.OrganizationID != orgID {
		return nil, entities.ErrAnalysisNotFound
	}
	return &a, nil
}

func (r *AnalysisRepository) ListAnalyzed(ctx context.Context, orgID uuid.UUID, filter repositories.AnalyticsFilter) ([]repositories.AnalyzedRecording, error) {
	if orgID == uuid.Nil {
		return nil, entities.ErrMissingTenant
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []repositories.AnalyzedRecording{}
	for _, rec := range r.s.recordings {
		if rec.OrganizationID != orgID || rec.CreatedAt.Before(filter.Since) {
			continue
		}
		if filter.UserID != nil && rec.UserID != *filter.UserID {
			continue
		}
		c := rec
		item := repositories.AnalyzedRecording{Recording: &c}
		if a, ok := r.s.analyses[rec.ID]; ok {
			ac := a
			item.Analysis = &ac
		}
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Recording.CreatedAt.Before(out[j].Recording.CreatedAt)
	})
	return out, nil
}

func (r *AnalysisRepository) Recent(ctx context.Context, orgID uuid.UUID, userID *uuid.UUID, limit int) ([]*entities.Recording, error) {
	items, _, err := (&RecordingRepository{s: r.s}).List(ctx, orgID, repositories.RecordingFilters{
		Filters: repositories.Filters{Limit: limit, SortOrder: "desc"},
		UserID:  userID,
	})
	return items, err
}
