// Package transcription turns recording audio into a persisted transcript,
// retrying the speech provider and falling back to a mock transcript.
package transcription

import (
	"context"
	stdErrors "errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "github.com/johnquangdev/call-insight/errors"
	"github.com/johnquangdev/call-insight/internal/domain/entities"
	"github.com/johnquangdev/call-insight/internal/domain/repositories"
	"github.com/johnquangdev/call-insight/internal/infrastructure/external/speech"
	"github.com/johnquangdev/call-insight/pkg/retry"
)

// Progress stages reported through Options.Progress.
const (
	ProgressStarted    = 10
	ProgressProvider   = 30
	ProgressPersisting = 80
	ProgressDone       = 100
)

// Options tune a single transcription.
type Options struct {
	Language     string
	SpeakerCount int
	Progress     func(percent int, stage string)
}

func (o Options) withDefaults() Options {
	if o.Language == "" {
		o.Language = "en-US"
	}
	if o.SpeakerCount <= 0 {
		o.SpeakerCount = 2
	}
	return o
}

func (o Options) report(percent int, stage string) {
	if o.Progress != nil {
		o.Progress(percent, stage)
	}
}

// Result is the outcome of a successful Transcribe call.
type Result struct {
	Transcription *entities.Transcription
	Recording     *entities.Recording
	Attempts      int
	Fallback      bool
}

// Engine runs the transcription pipeline for one recording at a time. It is
// safe for concurrent use.
type Engine struct {
	recordings     repositories.RecordingRepository
	transcriptions repositories.TranscriptionRepository
	recognizer     speech.Recognizer
	mock           Generator
	policy         retry.Policy
	retryOpts      []retry.Option
	now            func() time.Time
	logger         *zap.Logger
}

// EngineOption customises an Engine.
type EngineOption func(*Engine)

// WithPolicy replaces the default 3-attempt exponential policy.
func WithPolicy(p retry.Policy) EngineOption {
	return func(e *Engine) { e.policy = p }
}

// WithTimer sets the clock used between attempts.
func WithTimer(t retry.Timer) EngineOption {
	return func(e *Engine) { e.retryOpts = append(e.retryOpts, retry.WithTimer(t)) }
}

// WithGenerator replaces the mock transcript generator.
func WithGenerator(g Generator) EngineOption {
	return func(e *Engine) { e.mock = g }
}

// NewEngine creates an engine. A nil or Unavailable recognizer makes every
// transcript a mock.
func NewEngine(
	recordings repositories.RecordingRepository,
	transcriptions repositories.TranscriptionRepository,
	recognizer speech.Recognizer,
	logger *zap.Logger,
	opts ...EngineOption,
) *Engine {
	if recognizer == nil {
		recognizer = speech.Unavailable{}
	}
	e := &Engine{
		recordings:     recordings,
		transcriptions: transcriptions,
		recognizer:     recognizer,
		mock:           NewRandomMockGenerator(),
		policy:         retry.Exponential(time.Second, 3),
		now:            time.Now,
		logger:         logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ProviderName is the configured recognizer name, "none" for mock mode.
func (e *Engine) ProviderName() string {
	return e.recognizer.Name()
}

// Transcribe transcribes audio for the recording and persists the result.
func (e *Engine) Transcribe(ctx context.Context, audio []byte, mimeType string, recordingID, orgID uuid.UUID, opts Options) (*Result, error) {
	opts = opts.withDefaults()

	rec, err := e.recordings.FindByID(ctx, orgID, recordingID)
	if err != nil {
		return nil, err
	}
	if !entities.IsSupportedAudioType(mimeType) {
		return nil, apperrors.ErrUnsupportedMediaType(mimeType)
	}
	if err := rec.TransitionTo(entities.RecordingStatusTranscribing); err != nil {
		return nil, apperrors.ErrRecordingInvalidState(rec.ID.String(), string(rec.Status), string(entities.RecordingStatusUploaded))
	}
	if err := e.recordings.Update(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to mark recording transcribing: %w", err)
	}
	opts.report(ProgressStarted, "started")

	var (
		d        *Draft
		attempts int
		fallback bool
	)
	if speech.Available(e.recognizer) {
		opts.report(ProgressProvider, "recognizing")
		d, attempts, err = e.recognize(ctx, audio, mimeType, opts, rec.ID)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				e.markFailed(ctx, rec, "transcription cancelled")
				return nil, ctxErr
			}
			e.warn("transcription.fallback", rec.ID, err)
			fallback = true
			d, err = e.mock.Generate(audio, opts, true)
		}
	} else {
		opts.report(ProgressProvider, "generating mock transcript")
		d, err = e.mock.Generate(audio, opts, false)
	}
	if err != nil {
		e.markFailed(ctx, rec, err.Error())
		return nil, apperrors.ErrAITranscriptionFailed(err)
	}

	opts.report(ProgressPersisting, "persisting")
	t := &entities.Transcription{
		RecordingID:    rec.ID,
		OrganizationID: rec.OrganizationID,
		Text:           d.Text,
		Confidence:     d.Confidence,
		Language:       opts.Language,
		Provider:       d.Provider,
		IsMock:         d.IsMock,
		WordCount:      len(d.Words),
		Duration:       d.Duration,
		Segments:       d.Segments,
	}
	if err := e.transcriptions.Upsert(ctx, t); err != nil {
		e.markFailed(ctx, rec, "failed to save transcription")
		return nil, fmt.Errorf("failed to save transcription: %w", err)
	}

	if err := rec.TransitionTo(entities.RecordingStatusCompleted); err != nil {
		return nil, err
	}
	now := e.now()
	rec.TranscribedAt = &now
	if rec.Duration == 0 {
		rec.Duration = int(math.Round(d.Duration))
	}
	if err := e.recordings.Update(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to mark recording completed: %w", err)
	}
	opts.report(ProgressDone, "completed")

	if e.logger != nil {
		e.logger.Info("transcription.completed",
			zap.String("recording_id", rec.ID.String()),
			zap.String("provider", t.Provider),
			zap.Int("attempts", attempts),
			zap.Bool("fallback", fallback),
			zap.Int("word_count", t.WordCount),
		)
	}
	return &Result{Transcription: t, Recording: rec, Attempts: attempts, Fallback: fallback}, nil
}

// recognize calls the provider under the retry policy. Every attempt is a
// full provider call.
func (e *Engine) recognize(ctx context.Context, audio []byte, mimeType string, opts Options, recordingID uuid.UUID) (*Draft, int, error) {
	var (
		d        *Draft
		attempts int
	)
	req := speech.Request{MimeType: mimeType, Language: opts.Language, SpeakerCount: opts.SpeakerCount}

	retryOpts := append([]retry.Option{}, e.retryOpts...)
	retryOpts = append(retryOpts, retry.WithNotify(func(attempt int, err error, wait time.Duration) {
		if e.logger != nil {
			e.logger.Warn("transcription.retry",
				zap.String("recording_id", recordingID.String()),
				zap.String("provider", e.recognizer.Name()),
				zap.Int("attempt", attempt),
				zap.Duration("wait", wait),
				zap.Error(err),
			)
		}
	}))

	err := e.policy.Do(ctx, func(ctx context.Context, attempt int) error {
		attempts = attempt
		resp, err := e.recognizer.Recognize(ctx, audio, req)
		if err != nil {
			if stdErrors.Is(err, speech.ErrNotConfigured) {
				return retry.Permanent(err)
			}
			return err
		}
		out, err := fromRecognition(resp, e.recognizer.Name())
		if err != nil {
			return err
		}
		d = out
		return nil
	}, retryOpts...)
	return d, attempts, err
}

// markFailed records the failure even when ctx has been cancelled.
func (e *Engine) markFailed(ctx context.Context, rec *entities.Recording, msg string) {
	rec.MarkAsFailed(msg)
	if err := e.recordings.Update(context.WithoutCancel(ctx), rec); err != nil {
		e.warn("transcription.mark_failed", rec.ID, err)
	}
}

func (e *Engine) warn(event string, recordingID uuid.UUID, err error) {
	if e.logger != nil {
		e.logger.Warn(event, zap.String("recording_id", recordingID.String()), zap.Error(err))
	}
}
