// Package recording owns the recording lifecycle: upload, listing, presigned
// playback URLs, transcription and deletion.
package recording

import (
	"context"
	stdErrors "errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	apperrors "github.com/johnquangdev/call-insight/errors"
	"github.com/johnquangdev/call-insight/internal/domain/entities"
	"github.com/johnquangdev/call-insight/internal/domain/repositories"
	"github.com/johnquangdev/call-insight/internal/infrastructure/cache"
	"github.com/johnquangdev/call-insight/internal/infrastructure/storage"
	"github.com/johnquangdev/call-insight/internal/usecase/transcription"
)

type Service struct {
	recordings     repositories.RecordingRepository
	transcriptions repositories.TranscriptionRepository
	store          storage.ObjectStore
	engine         *transcription.Engine
	cache          cache.Store
	presignExpiry  time.Duration
	maxUploadBytes int64
	now            func() time.Time
	logger         *zap.Logger
}

// Config holds the storage limits applied by the service.
type Config struct {
	PresignExpiry  time.Duration
	MaxUploadBytes int64
}

func NewService(
	recordings repositories.RecordingRepository,
	transcriptions repositories.TranscriptionRepository,
	store storage.ObjectStore,
	engine *transcription.Engine,
	urlCache cache.Store,
	cfg Config,
	logger *zap.Logger,
) *Service {
	if store == nil {
		store = storage.Unavailable{}
	}
	return &Service{
		recordings:     recordings,
		transcriptions: transcriptions,
		store:          store,
		engine:         engine,
		cache:          urlCache,
		presignExpiry:  storage.ClampPresignExpiry(cfg.PresignExpiry),
		maxUploadBytes: cfg.MaxUploadBytes,
		now:            time.Now,
		logger:         logger,
	}
}

// UploadInput describes one uploaded audio file.
type UploadInput struct {
	Title       string
	Description *string
	FileName    string
	MimeType    string
	Size        int64
	Body        io.Reader
}

// Upload creates the UPLOADED row and then stores the blob. If the blob
// cannot be stored the row is removed again.
func (s *Service) Upload(ctx context.Context, caller *entities.User, in UploadInput) (*entities.Recording, error) {
	if !entities.IsSupportedAudioType(in.MimeType) {
		return nil, apperrors.ErrUnsupportedMediaType(in.MimeType)
	}
	if in.Size <= 0 {
		return nil, apperrors.ErrInvalidArgument("audio file is empty")
	}
	if s.maxUploadBytes > 0 && in.Size > s.maxUploadBytes {
		return nil, apperrors.ErrRecordingTooLarge(s.maxUploadBytes)
	}

	fileName := storage.SanitizeFileName(in.FileName)
	title := strings.TrimSpace(in.Title)
	if title == "" {
		title = strings.TrimSuffix(fileName, path.Ext(fileName))
	}
	rec := entities.NewRecording(caller.OrganizationID, caller.ID, title, fileName, in.MimeType, in.Size)
	rec.Description = in.Description
	key, err := storage.RecordingKey(rec.OrganizationID, rec.ID, in.FileName)
	if err != nil {
		return nil, apperrors.ErrInvalidArgument(err.Error())
	}
	rec.StorageKey = key

	if err := s.recordings.Create(ctx, rec); err != nil {
		return nil, apperrors.ErrInternal(err)
	}
	if err := s.store.Put(ctx, key, in.Body, in.Size, in.MimeType); err != nil {
		if delErr := s.recordings.Delete(context.WithoutCancel(ctx), rec.OrganizationID, rec.ID); delErr != nil && s.logger != nil {
			s.logger.Error("recording.rollback_failed", zap.String("recording_id", rec.ID.String()), zap.Error(delErr))
		}
		if stdErrors.Is(err, storage.ErrStorageUnavailable) {
			return nil, apperrors.ErrServiceUnavailable("storage", err)
		}
		return nil, apperrors.ErrRecordingUploadFailed(rec.ID.String(), err)
	}

	if s.logger != nil {
		s.logger.Info("recording.uploaded",
			zap.String("recording_id", rec.ID.String()),
			zap.String("organization_id", rec.OrganizationID.String()),
			zap.Int64("size", rec.FileSize))
	}
	return rec, nil
}

// ListInput filters the recording list.
type ListInput struct {
	repositories.Filters
	Status *entities.RecordingStatus
	Search string
	UserID *uuid.UUID
}

// List returns recordings visible to the caller. Members see their own only.
func (s *Service) List(ctx context.Context, caller *entities.User, in ListInput) ([]*entities.Recording, int64, error) {
	if in.Status != nil && !in.Status.IsValid() {
		return nil, 0, apperrors.ErrInvalidArgument("unknown status " + string(*in.Status))
	}
	filters := repositories.RecordingFilters{
		Filters: in.Filters,
		Status:  in.Status,
		Search:  strings.TrimSpace(in.Search),
		UserID:  in.UserID,
	}
	if !caller.CanManage() {
		id := caller.ID
		filters.UserID = &id
	}
	items, total, err := s.recordings.List(ctx, caller.OrganizationID, filters)
	if err != nil {
		return nil, 0, apperrors.ErrInternal(err)
	}
	return items, total, nil
}

// Get returns a recording the caller may access.
func (s *Service) Get(ctx context.Context, caller *entities.User, id uuid.UUID) (*entities.Recording, error) {
	rec, err := s.recordings.FindByID(ctx, caller.OrganizationID, id)
	if err != nil {
		if stdErrors.Is(err, entities.ErrRecordingNotFound) {
			return nil, apperrors.ErrRecordingNotFound(id.String())
		}
		return nil, apperrors.ErrInternal(err)
	}
	if !caller.CanAccessRecording(rec) {
		return nil, apperrors.ErrRecordingNotFound(id.String())
	}
	return rec, nil
}

// UpdateInput carries optional recording fields.
type UpdateInput struct {
	Title       *string
	Description *string
	Metadata    datatypes.JSON
}

func (s *Service) Update(ctx context.Context, caller *entities.User, id uuid.UUID, in UpdateInput) (*entities.Recording, error) {
	rec, err := s.Get(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return nil, apperrors.ErrInvalidArgument("title must not be empty")
		}
		rec.Title = title
	}
	if in.Description != nil {
		rec.Description = in.Description
	}
	if len(in.Metadata) > 0 {
		rec.Metadata = in.Metadata
	}
	if err := s.recordings.Update(ctx, rec); err != nil {
		return nil, apperrors.ErrInternal(err)
	}
	return rec, nil
}

// Delete removes the recording with its transcript and analysis, then makes
// a single attempt to delete the blob. Blob errors are logged only.
func (s *Service) Delete(ctx context.Context, caller *entities.User, id uuid.UUID) error {
	rec, err := s.Get(ctx, caller, id)
	if err != nil {
		return err
	}
	if err := s.recordings.Delete(ctx, rec.OrganizationID, rec.ID); err != nil {
		if stdErrors.Is(err, entities.ErrRecordingNotFound) {
			return apperrors.ErrRecordingNotFound(id.String())
		}
		return apperrors.ErrDBTransactionFailed(err)
	}

	bctx := context.WithoutCancel(ctx)
	if err := s.store.Delete(bctx, rec.StorageKey); err != nil && s.logger != nil {
		s.logger.Warn("recording.blob_delete_failed",
			zap.String("recording_id", rec.ID.String()),
			zap.String("key", rec.StorageKey),
			zap.Error(err))
	}
	if s.cache != nil {
		_ = s.cache.Delete(bctx, presignCacheKey(rec.StorageKey))
	}
	return nil
}

// PlaybackURL is a time-limited download link.
type PlaybackURL struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func presignCacheKey(key string) string {
	return "presign:" + key
}

// URL presigns the recording blob. Links are cached for half their lifetime
// so a cached link is always valid for at least that long.
func (s *Service) URL(ctx context.Context, caller *entities.User, id uuid.UUID) (*PlaybackURL, error) {
	rec, err := s.Get(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	ckey := presignCacheKey(rec.StorageKey)
	if s.cache != nil {
		var hit PlaybackURL
		if ok, err := cache.GetJSON(ctx, s.cache, ckey, &hit); err == nil && ok {
			return &hit, nil
		}
	}

	url, err := s.store.PresignGet(ctx, rec.StorageKey, s.presignExpiry)
	if err != nil {
		if stdErrors.Is(err, storage.ErrStorageUnavailable) {
			return nil, apperrors.ErrServiceUnavailable("storage", err)
		}
		return nil, apperrors.ErrStorageFailed("presign", err)
	}
	out := &PlaybackURL{URL: url, ExpiresAt: s.now().Add(s.presignExpiry)}
	if s.cache != nil {
		if err := cache.SetJSON(ctx, s.cache, ckey, out, s.presignExpiry/2); err != nil && s.logger != nil {
			s.logger.Warn("recording.presign_cache_failed", zap.String("key", ckey), zap.Error(err))
		}
	}
	return out, nil
}

// Transcribe reads the blob and runs the transcription engine synchronously.
func (s *Service) Transcribe(ctx context.Context, caller *entities.User, id uuid.UUID, opts transcription.Options) (*transcription.Result, error) {
	rec, err := s.Get(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if !entities.IsSupportedAudioType(rec.MimeType) {
		return nil, apperrors.ErrUnsupportedMediaType(rec.MimeType)
	}
	audio, err := s.readBlob(ctx, rec)
	if err != nil {
		return nil, err
	}
	res, err := s.engine.Transcribe(ctx, audio, rec.MimeType, rec.ID, rec.OrganizationID, opts)
	if err != nil {
		if stdErrors.Is(err, entities.ErrRecordingNotFound) {
			return nil, apperrors.ErrRecordingNotFound(id.String())
		}
		return nil, err
	}
	return res, nil
}

func (s *Service) readBlob(ctx context.Context, rec *entities.Recording) ([]byte, error) {
	body, err := s.store.Get(ctx, rec.StorageKey)
	if err != nil {
		if stdErrors.Is(err, storage.ErrStorageUnavailable) {
			return nil, apperrors.ErrServiceUnavailable("storage", err)
		}
		return nil, apperrors.ErrStorageFailed("get", err)
	}
	defer body.Close()

	r := io.Reader(body)
	if s.maxUploadBytes > 0 {
		r = io.LimitReader(body, s.maxUploadBytes+1)
	}
	audio, err := io.ReadAll(r)
	if err != nil {
		return nil, apperrors.ErrStorageFailed("read", err)
	}
	if s.maxUploadBytes > 0 && int64(len(audio)) > s.maxUploadBytes {
		return nil, apperrors.ErrRecordingTooLarge(s.maxUploadBytes)
	}
	return audio, nil
}

// Transcription returns the stored transcript of an accessible recording.
func (s *Service) Transcription(ctx context.Context, caller *entities.User, id uuid.UUID) (*entities.Transcription, error) {
	rec, err := s.Get(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	t, err := s.transcriptions.FindByRecordingID(ctx, rec.OrganizationID, rec.ID)
	if err != nil {
		if stdErrors.Is(err, entities.ErrTranscriptionNotFound) {
			return nil, apperrors.ErrNotFound("transcription")
		}
		return nil, apperrors.ErrInternal(fmt.Errorf("failed to load transcription: %w", err))
	}
	return t, nil
}
