package analysis

import (
	"context"
	stdErrors "errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "github.com/johnquangdev/call-insight/errors"
	"github.com/johnquangdev/call-insight/internal/domain/entities"
	"github.com/johnquangdev/call-insight/internal/domain/repositories"
)

// Service runs and reads recording analyses.
type Service struct {
	recordings     repositories.RecordingRepository
	transcriptions repositories.TranscriptionRepository
	analyses       repositories.AnalysisRepository
	templates      repositories.TemplateRepository
	analyzer       Analyzer
	fallback       Analyzer
	now            func() time.Time
	logger         *zap.Logger
}

// NewService wires the analyzer. When analyzer is not the keyword analyzer,
// its failures fall back to keyword scoring.
func NewService(
	recordings repositories.RecordingRepository,
	transcriptions repositories.TranscriptionRepository,
	analyses repositories.AnalysisRepository,
	templates repositories.TemplateRepository,
	analyzer Analyzer,
	logger *zap.Logger,
) *Service {
	if analyzer == nil {
		analyzer = KeywordAnalyzer{}
	}
	return &Service{
		recordings:     recordings,
		transcriptions: transcriptions,
		analyses:       analyses,
		templates:      templates,
		analyzer:       analyzer,
		fallback:       KeywordAnalyzer{},
		now:            time.Now,
		logger:         logger,
	}
}

// AnalyzerName reports the primary analyzer.
func (s *Service) AnalyzerName() string { return s.analyzer.Name() }

// Analyze scores the recording's transcript against templateID, or the
// organization's default template when templateID is nil.
func (s *Service) Analyze(ctx context.Context, caller *entities.User, recordingID uuid.UUID, templateID *uuid.UUID) (*entities.AnalysisResult, error) {
	rec, err := s.recordings.FindByID(ctx, caller.OrganizationID, recordingID)
	if err != nil {
		return nil, err
	}
	if !caller.CanAccessRecording(rec) {
		return nil, entities.ErrRecordingNotFound
	}

	transcript, err := s.transcriptions.FindByRecordingID(ctx, rec.OrganizationID, rec.ID)
	if stdErrors.Is(err, entities.ErrTranscriptionNotFound) {
		return nil, apperrors.ErrTranscriptMissing(rec.ID.String())
	}
	if err != nil {
		return nil, err
	}

	usedTemplate, steps, err := s.resolveSteps(ctx, rec.OrganizationID, templateID)
	if err != nil {
		return nil, err
	}

	if err := rec.TransitionTo(entities.RecordingStatusAnalyzing); err != nil {
		return nil, apperrors.ErrRecordingInvalidState(rec.ID.String(), string(rec.Status), string(entities.RecordingStatusCompleted))
	}
	if err := s.recordings.Update(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to mark recording analyzing: %w", err)
	}

	outcome, err := s.analyzer.Analyze(ctx, transcript, steps)
	if err != nil && s.analyzer.Name() != s.fallback.Name() && ctx.Err() == nil {
		if s.logger != nil {
			s.logger.Warn("analysis.fallback",
				zap.String("recording_id", rec.ID.String()),
				zap.String("analyzer", s.analyzer.Name()),
				zap.Error(err),
			)
		}
		outcome, err = s.fallback.Analyze(ctx, transcript, steps)
		if err == nil {
			outcome.Provider = "keyword-fallback"
		}
	}
	if err != nil {
		s.markFailed(ctx, rec, err.Error())
		return nil, apperrors.ErrAIAnalysisFailed(err)
	}

	result := &entities.AnalysisResult{
		RecordingID:    rec.ID,
		OrganizationID: rec.OrganizationID,
		TemplateID:     usedTemplate,
		Sentiment:      outcome.Sentiment,
		ProcessScore:   outcome.ProcessScore,
		Opportunities:  outcome.Opportunities,
		Summary:        outcome.Summary,
		Confidence:     outcome.Confidence,
		Provider:       outcome.Provider,
	}
	if result.Opportunities == nil {
		result.Opportunities = []entities.Opportunity{}
	}
	if err := s.analyses.Upsert(ctx, result); err != nil {
		s.markFailed(ctx, rec, "failed to save analysis")
		return nil, fmt.Errorf("failed to save analysis: %w", err)
	}

	if err := rec.TransitionTo(entities.RecordingStatusCompleted); err != nil {
		return nil, err
	}
	now := s.now()
	rec.AnalyzedAt = &now
	if err := s.recordings.Update(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to mark recording completed: %w", err)
	}

	if s.logger != nil {
		s.logger.Info("analysis.completed",
			zap.String("recording_id", rec.ID.String()),
			zap.String("provider", result.Provider),
			zap.Float64("process_score", result.ProcessScore.OverallScore),
		)
	}
	return result, nil
}

// Get returns the stored analysis of a recording.
func (s *Service) Get(ctx context.Context, caller *entities.User, recordingID uuid.UUID) (*entities.AnalysisResult, error) {
	rec, err := s.recordings.FindByID(ctx, caller.OrganizationID, recordingID)
	if err != nil {
		return nil, err
	}
	if !caller.CanAccessRecording(rec) {
		return nil, entities.ErrRecordingNotFound
	}
	return s.analyses.FindByRecordingID(ctx, rec.OrganizationID, rec.ID)
}

func (s *Service) resolveSteps(ctx context.Context, orgID uuid.UUID, templateID *uuid.UUID) (*uuid.UUID, []entities.ProcessStep, error) {
	var (
		tmpl *entities.ProcessTemplate
		err  error
	)
	if templateID != nil {
		tmpl, err = s.templates.FindByID(ctx, orgID, *templateID)
		if err != nil {
			return nil, nil, err
		}
	} else {
		tmpl, err = s.templates.FindDefault(ctx, orgID)
		if stdErrors.Is(err, entities.ErrTemplateNotFound) {
			return nil, entities.DefaultProcessSteps(), nil
		}
		if err != nil {
			return nil, nil, err
		}
	}
	id := tmpl.ID
	return &id, tmpl.Steps, nil
}

func (s *Service) markFailed(ctx context.Context, rec *entities.Recording, msg string) {
	rec.MarkAsFailed(msg)
	if err := s.recordings.Update(context.WithoutCancel(ctx), rec); err != nil && s.logger != nil {
		s.logger.Warn("analysis.mark_failed", zap.String("recording_id", rec.ID.String()), zap.Error(err))
	}
}
