package analysis

import (
	"context"
	stdErrors "errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/johnquangdev/call-insight/errors"
	"github.com/johnquangdev/call-insight/internal/adapter/repository/memory"
	"github.com/johnquangdev/call-insight/internal/domain/entities"
	"github.com/johnquangdev/call-insight/pkg/ai"
	"github.com/johnquangdev/call-insight/pkg/retry"
)

const salesCall = "Hello, thanks for taking the time today. Tell me about the challenge you have currently. " +
	"Our solution helps your team and the reporting feature is great. " +
	"I am a bit worried about the price and our budget. " +
	"Let us schedule a demo as the next step."

func transcript() *entities.Transcription {
	return &entities.Transcription{Text: salesCall, Confidence: 0.9, WordCount: 50}
}

func TestKeywordAnalyzer(t *testing.T) {
	out, err := KeywordAnalyzer{}.Analyze(context.Background(), transcript(), entities.DefaultProcessSteps())
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if out.ProcessScore.TotalSteps != 5 {
		t.Errorf("TotalSteps = %d", out.ProcessScore.TotalSteps)
	}
	if out.ProcessScore.CompletedSteps != 5 || len(out.ProcessScore.MissedSteps) != 0 {
		t.Errorf("process = %+v", out.ProcessScore)
	}

	types := map[string]entities.OpportunityPriority{}
	for _, o := range out.Opportunities {
		types[o.Type] = o.Priority
		if o.Confidence <= 0 || o.Confidence > 0.95 {
			t.Errorf("opportunity %s confidence %v", o.Type, o.Confidence)
		}
	}
	if types["follow_up"] != entities.PriorityHigh || types["pricing"] != entities.PriorityMedium {
		t.Errorf("opportunities = %+v", out.Opportunities)
	}
	if out.Confidence != 0.72 {
		t.Errorf("confidence = %v, want 0.72", out.Confidence)
	}
	if out.Provider != "keyword" || out.Summary == "" {
		t.Errorf("provider = %q summary = %q", out.Provider, out.Summary)
	}
}

func TestKeywordSentiment(t *testing.T) {
	tests := []struct {
		text string
		want entities.SentimentLabel
	}{
		{"this is great and excellent thank you", entities.SentimentPositive},
		{"i am frustrated and disappointed with this problem", entities.SentimentNegative},
		{"great but i am worried", entities.SentimentMixed},
		{"the meeting is on tuesday", entities.SentimentNeutral},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got := keywordSentiment(tt.text)
			if got.Overall != tt.want {
				t.Errorf("sentiment = %s (score %v), want %s", got.Overall, got.Score, tt.want)
			}
			if got.Score < -1 || got.Score > 1 {
				t.Errorf("score %v out of range", got.Score)
			}
		})
	}
}

func TestParseLLMResponse(t *testing.T) {
	raw := "```json\n" + `{
		"summary": " Good call ",
		"sentiment": {"overall": "ECSTATIC", "score": 3},
		"processSteps": [{"name": "greeting", "score": 150, "evidence": "hello"}, {"name": "Closing", "score": 20}],
		"opportunities": [{"type": "upsell", "priority": "urgent", "confidence": 1.5}],
		"confidence": 0.8
	}` + "\n```"

	out, err := parseLLMResponse(raw, entities.DefaultProcessSteps())
	if err != nil {
		t.Fatalf("parseLLMResponse: %v", err)
	}
	if out.Sentiment.Overall != entities.SentimentNeutral || out.Sentiment.Score != 1 {
		t.Errorf("sentiment = %+v", out.Sentiment)
	}
	steps := out.ProcessScore.StepScores
	if steps[0].Score != 100 || !steps[0].Detected || steps[0].Evidence != "hello" {
		t.Errorf("greeting = %+v", steps[0])
	}
	if steps[4].Score != 20 || steps[4].Detected {
		t.Errorf("closing = %+v", steps[4])
	}
	if out.ProcessScore.CompletedSteps != 1 || out.ProcessScore.OverallScore != 24 {
		t.Errorf("process = %+v", out.ProcessScore)
	}
	if out.Opportunities[0].Priority != entities.PriorityLow || out.Opportunities[0].Confidence != 1 {
		t.Errorf("opportunity = %+v", out.Opportunities[0])
	}
	if out.Summary != "Good call" {
		t.Errorf("summary = %q", out.Summary)
	}

	if _, err := parseLLMResponse("not json", nil); err == nil {
		t.Error("expected parse error")
	}
}

type fakeTimer struct{ c chan time.Time }

func (f *fakeTimer) Start(time.Duration) {
	f.c = make(chan time.Time, 1)
	f.c <- time.Time{}
}

func (f *fakeTimer) Stop() {}

func (f *fakeTimer) C() <-chan time.Time { return f.c }

type fakeChat struct {
	errs  []error
	reply string
	calls int
}

func (f *fakeChat) CompleteJSON(ctx context.Context, system, user string) (string, error) {
	f.calls++
	if f.calls <= len(f.errs) {
		return "", f.errs[f.calls-1]
	}
	return f.reply, nil
}

func TestLLMAnalyzerRetries(t *testing.T) {
	chat := &fakeChat{
		errs:  []error{&ai.StatusError{StatusCode: 503}, fmt.Errorf("connection reset")},
		reply: `{"summary":"ok","sentiment":{"overall":"positive","score":0.5},"confidence":0.7}`,
	}
	a := NewLLMAnalyzer(chat, nil, retry.WithTimer(&fakeTimer{}))

	out, err := a.Analyze(context.Background(), transcript(), entities.DefaultProcessSteps())
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if chat.calls != 3 {
		t.Errorf("calls = %d, want 3", chat.calls)
	}
	if out.Sentiment.Overall != entities.SentimentPositive || out.ProcessScore.TotalSteps != 5 {
		t.Errorf("outcome = %+v", out)
	}
}

func TestLLMAnalyzerClientErrorIsPermanent(t *testing.T) {
	chat := &fakeChat{errs: []error{&ai.StatusError{StatusCode: 401}}}
	a := NewLLMAnalyzer(chat, nil, retry.WithTimer(&fakeTimer{}))

	if _, err := a.Analyze(context.Background(), transcript(), nil); err == nil {
		t.Fatal("expected error")
	}
	if chat.calls != 1 {
		t.Errorf("calls = %d, want 1", chat.calls)
	}
}

type serviceFixture struct {
	store  *memory.Store
	svc    *Service
	admin  *entities.User
	member *entities.User
	rec    *entities.Recording
}

func newServiceFixture(t *testing.T, analyzer Analyzer, withTranscript bool) *serviceFixture {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()
	orgID := uuid.New()
	admin := entities.NewUser(orgID, "admin@example.com", "Admin", entities.RoleAdmin)
	member := entities.NewUser(orgID, "rep@example.com", "Rep", entities.RoleUser)
	for _, u := range []*entities.User{admin, member} {
		if err := store.Users().Create(ctx, u); err != nil {
			t.Fatalf("create user: %v", err)
		}
	}

	rec := entities.NewRecording(orgID, admin.ID, "Call", "call.wav", "audio/wav", 10)
	rec.Status = entities.RecordingStatusCompleted
	if err := store.Recordings().Create(ctx, rec); err != nil {
		t.Fatalf("create recording: %v", err)
	}
	if withTranscript {
		tr := transcript()
		tr.RecordingID = rec.ID
		tr.OrganizationID = orgID
		if err := store.Transcriptions().Upsert(ctx, tr); err != nil {
			t.Fatalf("upsert transcript: %v", err)
		}
	}

	svc := NewService(store.Recordings(), store.Transcriptions(), store.Analyses(), store.Templates(), analyzer, nil)
	return &serviceFixture{store: store, svc: svc, admin: admin, member: member, rec: rec}
}

func (f *serviceFixture) status(t *testing.T) entities.RecordingStatus {
	t.Helper()
	rec, err := f.store.Recordings().FindByID(context.Background(), f.rec.OrganizationID, f.rec.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	return rec.Status
}

func TestServiceAnalyze(t *testing.T) {
	f := newServiceFixture(t, nil, true)

	res, err := f.svc.Analyze(context.Background(), f.admin, f.rec.ID, nil)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if res.TemplateID != nil {
		t.Errorf("expected built-in steps without template, got %v", res.TemplateID)
	}
	if got := f.status(t); got != entities.RecordingStatusCompleted {
		t.Errorf("status = %s", got)
	}

	stored, err := f.svc.Get(context.Background(), f.admin, f.rec.ID)
	if err != nil || stored.ID != res.ID {
		t.Fatalf("Get = %+v, %v", stored, err)
	}

	// Analyzing again replaces the row in place.
	again, err := f.svc.Analyze(context.Background(), f.admin, f.rec.ID, nil)
	if err != nil || again.ID != res.ID {
		t.Errorf("re-analysis id = %v, want %v (err %v)", again.ID, res.ID, err)
	}
}

func TestServiceAnalyzeUsesDefaultTemplate(t *testing.T) {
	f := newServiceFixture(t, nil, true)
	tmpl := &entities.ProcessTemplate{
		OrganizationID: f.rec.OrganizationID,
		Name:           "Short",
		Steps:          []entities.ProcessStep{{Name: "Pricing", Keywords: []string{"price"}}},
		IsDefault:      true,
		CreatedBy:      f.admin.ID,
	}
	if err := f.store.Templates().Create(context.Background(), tmpl); err != nil {
		t.Fatalf("create template: %v", err)
	}

	res, err := f.svc.Analyze(context.Background(), f.admin, f.rec.ID, nil)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if res.TemplateID == nil || *res.TemplateID != tmpl.ID || res.ProcessScore.TotalSteps != 1 {
		t.Errorf("template = %v process = %+v", res.TemplateID, res.ProcessScore)
	}
}

func TestServiceAnalyzeWithoutTranscript(t *testing.T) {
	f := newServiceFixture(t, nil, false)

	_, err := f.svc.Analyze(context.Background(), f.admin, f.rec.ID, nil)
	var appErr apperrors.AppError
	if !stdErrors.As(err, &appErr) || appErr.Code != apperrors.ErrorCode_TRANSCRIPT_MISSING {
		t.Fatalf("error = %v", err)
	}
	if got := f.status(t); got != entities.RecordingStatusCompleted {
		t.Errorf("status = %s, want unchanged COMPLETED", got)
	}
}

func TestServiceAnalyzeHidesOtherUsersRecordings(t *testing.T) {
	f := newServiceFixture(t, nil, true)

	_, err := f.svc.Analyze(context.Background(), f.member, f.rec.ID, nil)
	if !stdErrors.Is(err, entities.ErrRecordingNotFound) {
		t.Fatalf("error = %v, want ErrRecordingNotFound", err)
	}
}

type brokenAnalyzer struct{}

func (brokenAnalyzer) Name() string { return "llm" }

func (brokenAnalyzer) Analyze(context.Context, *entities.Transcription, []entities.ProcessStep) (*Outcome, error) {
	return nil, fmt.Errorf("model overloaded")
}

func TestServiceFallsBackToKeywords(t *testing.T) {
	f := newServiceFixture(t, brokenAnalyzer{}, true)

	res, err := f.svc.Analyze(context.Background(), f.admin, f.rec.ID, nil)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if !strings.HasPrefix(res.Provider, "keyword") {
		t.Errorf("provider = %q", res.Provider)
	}
}
