package analytics

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/johnquangdev/call-insight/internal/adapter/repository/memory"
	"github.com/johnquangdev/call-insight/internal/domain/entities"
	"github.com/johnquangdev/call-insight/internal/infrastructure/cache"
)

type fixture struct {
	store  *memory.Store
	svc    *Service
	cache  *cache.MemoryStore
	admin  *entities.User
	member *entities.User
	orgID  uuid.UUID
	now    time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	f := &fixture{store: memory.NewStore(), cache: cache.NewMemoryStore(), now: time.Now().UTC()}
	t.Cleanup(func() { f.cache.Close() })

	org := entities.NewOrganization("Acme")
	f.admin = entities.NewUser(uuid.Nil, "admin@acme.test", "Admin", entities.RoleAdmin)
	if err := f.store.Organizations().CreateWithOwner(ctx, org, f.admin); err != nil {
		t.Fatalf("CreateWithOwner: %v", err)
	}
	f.orgID = org.ID
	f.member = entities.NewUser(org.ID, "rep@acme.test", "Rep", entities.RoleUser)
	if err := f.store.Users().Create(ctx, f.member); err != nil {
		t.Fatalf("Create user: %v", err)
	}

	f.svc = NewService(f.store.Analyses(), f.store.Users(), f.cache, time.Minute, zap.NewNop())
	f.svc.now = func() time.Time { return f.now }
	return f
}

func (f *fixture) record(t *testing.T, owner *entities.User, age time.Duration, a *entities.AnalysisResult) *entities.Recording {
	t.Helper()
	ctx := context.Background()
	rec := entities.NewRecording(f.orgID, owner.ID, "call", "call.mp3", "audio/mpeg", 1024)
	rec.CreatedAt = f.now.Add(-age)
	rec.Duration = 120
	rec.Status = entities.RecordingStatusCompleted
	if err := f.store.Recordings().Create(ctx, rec); err != nil {
		t.Fatalf("Create recording: %v", err)
	}
	if a != nil {
		a.RecordingID = rec.ID
		a.OrganizationID = f.orgID
		a.Provider = "keyword"
		if err := f.store.Analyses().Upsert(ctx, a); err != nil {
			t.Fatalf("Upsert analysis: %v", err)
		}
	}
	return rec
}

func TestDashboard(t *testing.T) {
	f := newFixture(t)
	f.record(t, f.admin, time.Hour, &entities.AnalysisResult{
		Confidence:    0.5,
		Sentiment:     &entities.Sentiment{Overall: entities.SentimentPositive, Score: 0.5},
		ProcessScore:  &entities.ProcessScore{OverallScore: 60},
		Opportunities: []entities.Opportunity{{Type: "upsell", Priority: entities.PriorityHigh}},
	})
	f.record(t, f.member, 2*time.Hour, nil)
	f.record(t, f.member, 40*24*time.Hour, nil)

	got, err := f.svc.Dashboard(context.Background(), f.admin, Query{})
	if err != nil {
		t.Fatalf("Dashboard: %v", err)
	}
	if got.TotalRecordings != 2 || got.CompletedRecordings != 2 || got.TotalDuration != 240 {
		t.Errorf("totals = %+v", got)
	}
	if got.ActiveUsers != 2 || got.TotalOpportunities != 1 || got.AvgProcessScore != 60 {
		t.Errorf("stats = %+v", got)
	}
	if got.SentimentDistribution.Positive != 1 {
		t.Errorf("distribution = %+v", got.SentimentDistribution)
	}
	if len(got.RecentRecordings) != 3 {
		t.Errorf("recent = %d, want all 3 regardless of range", len(got.RecentRecordings))
	}
	if got.Period.Days != DefaultDays {
		t.Errorf("days = %d", got.Period.Days)
	}
}

func TestMemberScopedToOwnRecordings(t *testing.T) {
	f := newFixture(t)
	f.record(t, f.admin, time.Hour, nil)
	f.record(t, f.member, time.Hour, nil)

	// a member cannot widen the scope by passing another user id
	got, err := f.svc.Dashboard(context.Background(), f.member, Query{UserID: &f.admin.ID})
	if err != nil {
		t.Fatalf("Dashboard: %v", err)
	}
	if got.TotalRecordings != 1 || len(got.RecentRecordings) != 1 {
		t.Errorf("member sees %d recordings", got.TotalRecordings)
	}
	if got.RecentRecordings[0].UserID != f.member.ID {
		t.Error("member sees another user's recording")
	}

	team, err := f.svc.TeamPerformance(context.Background(), f.member, Query{})
	if err != nil {
		t.Fatalf("TeamPerformance: %v", err)
	}
	if len(team.Members) != 1 || team.Members[0].UserID != f.member.ID {
		t.Errorf("team = %+v", team.Members)
	}
}

func TestDaysClamp(t *testing.T) {
	f := newFixture(t)
	f.record(t, f.admin, 100*24*time.Hour, nil)

	for _, days := range []int{0, -5, 366} {
		got, err := f.svc.ConversationTrends(context.Background(), f.admin, Query{Days: days}, GroupByDay)
		if err != nil {
			t.Fatalf("ConversationTrends: %v", err)
		}
		if got.Total != 0 {
			t.Errorf("days=%d total = %d, want default 30 day range", days, got.Total)
		}
	}

	got, err := f.svc.ConversationTrends(context.Background(), f.admin, Query{Days: 365}, GroupByMonth)
	if err != nil {
		t.Fatalf("ConversationTrends: %v", err)
	}
	if got.Total != 1 || len(got.Trends) != 1 {
		t.Errorf("365 days = %+v", got)
	}
}

func TestInvalidGroupBy(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.SentimentTrends(context.Background(), f.admin, Query{}, GroupBy("year")); err == nil {
		t.Error("expected error for unknown groupBy")
	}
	if _, err := f.svc.Opportunities(context.Background(), f.admin, Query{}, OpportunityFilter{Priority: "urgent"}); err == nil {
		t.Error("expected error for unknown priority")
	}
}

func TestResponsesAreCached(t *testing.T) {
	f := newFixture(t)
	f.record(t, f.admin, time.Hour, nil)

	first, err := f.svc.ProcessAdherence(context.Background(), f.admin, Query{})
	if err != nil {
		t.Fatalf("ProcessAdherence: %v", err)
	}
	f.record(t, f.admin, time.Hour, &entities.AnalysisResult{ProcessScore: &entities.ProcessScore{OverallScore: 90}})

	second, err := f.svc.ProcessAdherence(context.Background(), f.admin, Query{})
	if err != nil {
		t.Fatalf("ProcessAdherence: %v", err)
	}
	if second.TotalAnalyzed != first.TotalAnalyzed {
		t.Errorf("cached TotalAnalyzed = %d, want %d", second.TotalAnalyzed, first.TotalAnalyzed)
	}

	uncached := NewService(f.store.Analyses(), f.store.Users(), nil, 0, zap.NewNop())
	fresh, err := uncached.ProcessAdherence(context.Background(), f.admin, Query{})
	if err != nil {
		t.Fatalf("ProcessAdherence: %v", err)
	}
	if fresh.TotalAnalyzed != 1 || fresh.AvgScore != 90 {
		t.Errorf("fresh = %+v", fresh)
	}
}

func TestSentimentTrendsEmptyRange(t *testing.T) {
	f := newFixture(t)
	f.record(t, f.admin, 100*24*time.Hour, &entities.AnalysisResult{
		Sentiment: &entities.Sentiment{Overall: entities.SentimentPositive, Score: 0.9},
	})

	got, err := f.svc.SentimentTrends(context.Background(), f.admin, Query{Days: 7}, GroupByWeek)
	if err != nil {
		t.Fatalf("SentimentTrends: %v", err)
	}
	if got.AvgScore != 0 || got.TotalAnalyzed != 0 || math.IsNaN(got.AvgScore) {
		t.Errorf("report = %+v", got)
	}
	if got.Trends == nil || len(got.Trends) != 0 {
		t.Errorf("trends = %#v, want empty slice", got.Trends)
	}
}

type failingCache struct{}

func (failingCache) Get(context.Context, string) (string, error) {
	return "", errors.New("cache down")
}

func (failingCache) Set(context.Context, string, string, time.Duration) error {
	return errors.New("cache down")
}

func (failingCache) Delete(context.Context, string) error { return nil }

func (failingCache) Close() error { return nil }

func TestCacheFailureWithoutLogger(t *testing.T) {
	f := newFixture(t)
	f.record(t, f.admin, time.Hour, &entities.AnalysisResult{ProcessScore: &entities.ProcessScore{OverallScore: 50}})

	svc := NewService(f.store.Analyses(), f.store.Users(), failingCache{}, time.Minute, nil)
	got, err := svc.ProcessAdherence(context.Background(), f.admin, Query{})
	if err != nil {
		t.Fatalf("ProcessAdherence: %v", err)
	}
	if got.TotalAnalyzed != 1 || got.AvgScore != 50 {
		t.Errorf("report = %+v", got)
	}
}
