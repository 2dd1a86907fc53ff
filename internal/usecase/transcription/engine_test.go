package transcription

import (
	"context"
	stdErrors "errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"google.golang.org/protobuf/types/known/durationpb"

	apperrors "github.com/johnquangdev/call-insight/errors"
	"github.com/johnquangdev/call-insight/internal/adapter/repository/memory"
	"github.com/johnquangdev/call-insight/internal/domain/entities"
	"github.com/johnquangdev/call-insight/internal/infrastructure/external/speech"
)

type fakeTimer struct {
	waits []time.Duration
	c     chan time.Time
}

func (f *fakeTimer) Start(d time.Duration) {
	f.waits = append(f.waits, d)
	f.c = make(chan time.Time, 1)
	f.c <- time.Time{}
}

func (f *fakeTimer) Stop() {}

func (f *fakeTimer) C() <-chan time.Time { return f.c }

// scriptedRecognizer fails the first failures calls, then answers resp.
type scriptedRecognizer struct {
	failures int
	calls    int
	resp     *speech.Response
}

func (s *scriptedRecognizer) Name() string { return "scripted" }

func (s *scriptedRecognizer) Recognize(ctx context.Context, audio []byte, req speech.Request) (*speech.Response, error) {
	s.calls++
	if s.calls <= s.failures {
		return nil, fmt.Errorf("provider call %d: service unavailable", s.calls)
	}
	return s.resp, nil
}

type failingGenerator struct{}

func (failingGenerator) Generate([]byte, Options, bool) (*Draft, error) {
	return nil, fmt.Errorf("generator broken")
}

func word(text string, start, end float64, tag int) speech.Word {
	return speech.Word{
		Word:       text,
		StartTime:  durationpb.New(time.Duration(start * float64(time.Second))),
		EndTime:    durationpb.New(time.Duration(end * float64(time.Second))),
		Confidence: 0.9,
		SpeakerTag: tag,
	}
}

func providerResponse() *speech.Response {
	return &speech.Response{Results: []speech.Result{{
		Alternatives: []speech.Alternative{{
			Transcript: "hello there how can I help",
			Confidence: 0.92,
			Words: []speech.Word{
				word("hello", 0, 0.4, 1),
				word("there", 0.5, 0.9, 1),
				word("how", 1.2, 1.4, 2),
				word("can", 1.5, 1.7, 2),
				word("I", 1.8, 1.9, 2),
				word("help", 2.0, 2.4, 2),
			},
		}},
	}}}
}

type fixture struct {
	store *memory.Store
	orgID uuid.UUID
	rec   *entities.Recording
	timer *fakeTimer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	orgID := uuid.New()
	rec := entities.NewRecording(orgID, uuid.New(), "Discovery call", "call.wav", "audio/wav", 1024)
	if err := store.Recordings().Create(context.Background(), rec); err != nil {
		t.Fatalf("create recording: %v", err)
	}
	return &fixture{store: store, orgID: orgID, rec: rec, timer: &fakeTimer{}}
}

func (f *fixture) engine(r speech.Recognizer, opts ...EngineOption) *Engine {
	opts = append([]EngineOption{WithTimer(f.timer), WithGenerator(NewMockGenerator(42))}, opts...)
	return NewEngine(f.store.Recordings(), f.store.Transcriptions(), r, nil, opts...)
}

func (f *fixture) status(t *testing.T) entities.RecordingStatus {
	t.Helper()
	rec, err := f.store.Recordings().FindByID(context.Background(), f.orgID, f.rec.ID)
	if err != nil {
		t.Fatalf("find recording: %v", err)
	}
	return rec.Status
}

func TestTranscribeMockWhenProviderUnavailable(t *testing.T) {
	f := newFixture(t)
	var progress []int

	res, err := f.engine(speech.Unavailable{}).Transcribe(context.Background(), make([]byte, 1000), "audio/wav", f.rec.ID, f.orgID, Options{
		Progress: func(p int, _ string) { progress = append(progress, p) },
	})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}

	tr := res.Transcription
	if !tr.IsMock || tr.Provider != entities.TranscriptionProviderMock {
		t.Errorf("provider = %q mock = %v", tr.Provider, tr.IsMock)
	}
	if !strings.HasPrefix(tr.Text, MockPrefix) {
		t.Errorf("text %q lacks mock prefix", tr.Text[:30])
	}
	if tr.Confidence < 0.85 || tr.Confidence > 0.98 {
		t.Errorf("confidence = %v", tr.Confidence)
	}
	if tr.Duration != 30 {
		t.Errorf("duration = %v, want 30", tr.Duration)
	}
	if fmt.Sprint(progress) != "[10 30 80 100]" {
		t.Errorf("progress = %v", progress)
	}
	if got := f.status(t); got != entities.RecordingStatusCompleted {
		t.Errorf("status = %s", got)
	}
	if res.Attempts != 0 || res.Fallback {
		t.Errorf("attempts = %d fallback = %v", res.Attempts, res.Fallback)
	}
}

func TestTranscribeRetriesProvider(t *testing.T) {
	f := newFixture(t)
	rec := &scriptedRecognizer{failures: 2, resp: providerResponse()}

	res, err := f.engine(rec).Transcribe(context.Background(), []byte("audio"), "audio/wav", f.rec.ID, f.orgID, Options{})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}

	if rec.calls != 3 || res.Attempts != 3 {
		t.Errorf("calls = %d attempts = %d, want 3", rec.calls, res.Attempts)
	}
	if fmt.Sprint(f.timer.waits) != "[2s 4s]" {
		t.Errorf("waits = %v, want [2s 4s]", f.timer.waits)
	}
	tr := res.Transcription
	if tr.IsMock || tr.Provider != "scripted" {
		t.Errorf("provider = %q mock = %v", tr.Provider, tr.IsMock)
	}
	if tr.Confidence != 0.92 || tr.WordCount != 6 {
		t.Errorf("confidence = %v words = %d", tr.Confidence, tr.WordCount)
	}
	if len(tr.Segments) != 2 || tr.Segments[0].Speaker != "Speaker 1" || tr.Segments[1].Text != "how can I help" {
		t.Errorf("segments = %+v", tr.Segments)
	}
	if res.Recording.TranscribedAt == nil {
		t.Error("TranscribedAt not set")
	}
}

func TestTranscribeFallsBackAfterRetries(t *testing.T) {
	f := newFixture(t)
	rec := &scriptedRecognizer{failures: 100}

	res, err := f.engine(rec).Transcribe(context.Background(), make([]byte, 16000*45), "audio/mpeg", f.rec.ID, f.orgID, Options{})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}

	if rec.calls != 3 {
		t.Errorf("provider calls = %d, want 3", rec.calls)
	}
	tr := res.Transcription
	if !res.Fallback || tr.Provider != entities.TranscriptionProviderMockFallback {
		t.Errorf("fallback = %v provider = %q", res.Fallback, tr.Provider)
	}
	if tr.Confidence != FallbackConfidence {
		t.Errorf("confidence = %v, want %v", tr.Confidence, FallbackConfidence)
	}
	if !strings.HasPrefix(tr.Text, FallbackMockPrefix) {
		t.Errorf("text lacks fallback prefix")
	}
	if tr.Duration != 45 {
		t.Errorf("duration = %v, want 45", tr.Duration)
	}
	if got := f.status(t); got != entities.RecordingStatusCompleted {
		t.Errorf("status = %s", got)
	}
}

func TestTranscribeEmptyResultsAreRetried(t *testing.T) {
	f := newFixture(t)
	rec := &scriptedRecognizer{resp: &speech.Response{}}

	res, err := f.engine(rec).Transcribe(context.Background(), []byte("audio"), "audio/ogg", f.rec.ID, f.orgID, Options{})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if rec.calls != 3 || !res.Fallback {
		t.Errorf("calls = %d fallback = %v", rec.calls, res.Fallback)
	}
}

func TestTranscribeFallbackFailureMarksFailed(t *testing.T) {
	f := newFixture(t)
	eng := f.engine(&scriptedRecognizer{failures: 100}, WithGenerator(failingGenerator{}))

	_, err := eng.Transcribe(context.Background(), []byte("audio"), "audio/wav", f.rec.ID, f.orgID, Options{})
	var appErr apperrors.AppError
	if !stdErrors.As(err, &appErr) || appErr.Code != apperrors.ErrorCode_AI_TRANSCRIPTION_FAILED {
		t.Fatalf("error = %v", err)
	}
	if got := f.status(t); got != entities.RecordingStatusFailed {
		t.Errorf("status = %s, want FAILED", got)
	}
}

func TestTranscribeRejectsUnsupportedType(t *testing.T) {
	f := newFixture(t)
	rec := &scriptedRecognizer{resp: providerResponse()}

	_, err := f.engine(rec).Transcribe(context.Background(), []byte("x"), "video/mp4", f.rec.ID, f.orgID, Options{})
	var appErr apperrors.AppError
	if !stdErrors.As(err, &appErr) || appErr.Code != apperrors.ErrorCode_RECORDING_UNSUPPORTED_TYPE {
		t.Fatalf("error = %v", err)
	}
	if rec.calls != 0 {
		t.Errorf("provider called %d times", rec.calls)
	}
	if got := f.status(t); got != entities.RecordingStatusUploaded {
		t.Errorf("status = %s, want UPLOADED", got)
	}
}

func TestTranscribeUnknownRecording(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine(nil).Transcribe(context.Background(), nil, "audio/wav", uuid.New(), f.orgID, Options{})
	if !stdErrors.Is(err, entities.ErrRecordingNotFound) {
		t.Fatalf("error = %v, want ErrRecordingNotFound", err)
	}

	// Another tenant cannot reach the recording either.
	_, err = f.engine(nil).Transcribe(context.Background(), nil, "audio/wav", f.rec.ID, uuid.New(), Options{})
	if !stdErrors.Is(err, entities.ErrRecordingNotFound) {
		t.Fatalf("cross-tenant error = %v", err)
	}
}

func TestTranscribeCancelled(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.engine(&scriptedRecognizer{failures: 100}).Transcribe(ctx, []byte("a"), "audio/wav", f.rec.ID, f.orgID, Options{})
	if !stdErrors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
}
