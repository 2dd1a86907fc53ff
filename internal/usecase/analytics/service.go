package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	apperrors "github.com/johnquangdev/call-insight/errors"
	"github.com/johnquangdev/call-insight/internal/domain/entities"
	"github.com/johnquangdev/call-insight/internal/domain/repositories"
	"github.com/johnquangdev/call-insight/internal/infrastructure/cache"
)

const (
	DefaultDays = 30
	MaxDays     = 365
)

// Query is the caller-supplied range. Days outside 1..365 fall back to 30.
// UserID is honoured only for admins and managers.
type Query struct {
	Days   int
	UserID *uuid.UUID
}

// scope is a Query resolved against the caller.
type scope struct {
	orgID  uuid.UUID
	userID *uuid.UUID
	days   int
	since  time.Time
}

func (sc scope) filter() repositories.AnalyticsFilter {
	return repositories.AnalyticsFilter{Since: sc.since, UserID: sc.userID}
}

func (sc scope) key(kind string, extra ...string) string {
	user := "all"
	if sc.userID != nil {
		user = sc.userID.String()
	}
	k := fmt.Sprintf("analytics:%s:%s:%s:%d", kind, sc.orgID, user, sc.days)
	for _, e := range extra {
		k += ":" + e
	}
	return k
}

// Service computes organization rollups. Responses are cached for ttl.
type Service struct {
	analytics repositories.AnalyticsRepository
	users     repositories.UserRepository
	cache     cache.Store
	ttl       time.Duration
	now       func() time.Time
	logger    *zap.Logger
}

// NewService creates the analytics service. A nil cache or non-positive ttl
// disables caching.
func NewService(analytics repositories.AnalyticsRepository, users repositories.UserRepository, store cache.Store, ttl time.Duration, logger *zap.Logger) *Service {
	return &Service{
		analytics: analytics,
		users:     users,
		cache:     store,
		ttl:       ttl,
		now:       time.Now,
		logger:    logger,
	}
}

func (s *Service) resolve(caller *entities.User, q Query) scope {
	days := q.Days
	if days < 1 || days > MaxDays {
		days = DefaultDays
	}
	sc := scope{
		orgID: caller.OrganizationID,
		days:  days,
		since: s.now().UTC().AddDate(0, 0, -days),
	}
	switch {
	case !caller.CanManage():
		id := caller.ID
		sc.userID = &id
	case q.UserID != nil:
		sc.userID = q.UserID
	}
	return sc
}

// cached serves key from the cache or computes and stores it. Cache errors
// are logged and never fail the request.
func cached[T any](ctx context.Context, s *Service, key string, compute func(context.Context) (T, error)) (T, error) {
	var out T
	if s.cache != nil && s.ttl > 0 {
		hit, err := cache.GetJSON(ctx, s.cache, key, &out)
		if err != nil {
			s.warn("analytics.cache_get", key, err)
		}
		if hit {
			return out, nil
		}
	}

	out, err := compute(ctx)
	if err != nil {
		return out, err
	}
	if s.cache != nil && s.ttl > 0 {
		if err := cache.SetJSON(ctx, s.cache, key, out, s.ttl); err != nil {
			s.warn("analytics.cache_set", key, err)
		}
	}
	return out, nil
}

func (s *Service) warn(event, key string, err error) {
	if s.logger != nil {
		s.logger.Warn(event, zap.String("key", key), zap.Error(err))
	}
}

// Dashboard loads the range, the newest recordings and the active user count
// concurrently.
func (s *Service) Dashboard(ctx context.Context, caller *entities.User, q Query) (*DashboardStats, error) {
	sc := s.resolve(caller, q)
	return cached(ctx, s, sc.key("dashboard"), func(ctx context.Context) (*DashboardStats, error) {
		var (
			rows   []repositories.AnalyzedRecording
			recent []*entities.Recording
			active []*entities.User
		)
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			rows, err = s.analytics.ListAnalyzed(gctx, sc.orgID, sc.filter())
			return err
		})
		g.Go(func() error {
			var err error
			recent, err = s.analytics.Recent(gctx, sc.orgID, sc.userID, recentRecordings)
			return err
		})
		g.Go(func() error {
			var err error
			active, err = s.users.ListActive(gctx, sc.orgID)
			return err
		})
		if err := g.Wait(); err != nil {
			return nil, apperrors.ErrInternal(err)
		}

		stats := BuildDashboard(rows)
		if recent != nil {
			stats.RecentRecordings = recent
		}
		stats.ActiveUsers = len(active)
		stats.Period = Period{Days: sc.days, Since: sc.since}
		return &stats, nil
	})
}

// ConversationReport is the conversation volume trend.
type ConversationReport struct {
	GroupBy GroupBy       `json:"groupBy"`
	Trends  []TrendBucket `json:"trends"`
	Total   int           `json:"total"`
}

func (s *Service) ConversationTrends(ctx context.Context, caller *entities.User, q Query, g GroupBy) (*ConversationReport, error) {
	if !g.IsValid() {
		return nil, apperrors.ErrInvalidArgument("groupBy must be one of day, week, month")
	}
	sc := s.resolve(caller, q)
	return cached(ctx, s, sc.key("conversations", string(g)), func(ctx context.Context) (*ConversationReport, error) {
		rows, err := s.list(ctx, sc)
		if err != nil {
			return nil, err
		}
		return &ConversationReport{GroupBy: g, Trends: BuildTrends(rows, g), Total: len(rows)}, nil
	})
}

func (s *Service) SentimentTrends(ctx context.Context, caller *entities.User, q Query, g GroupBy) (*SentimentReport, error) {
	if !g.IsValid() {
		return nil, apperrors.ErrInvalidArgument("groupBy must be one of day, week, month")
	}
	sc := s.resolve(caller, q)
	return cached(ctx, s, sc.key("sentiment", string(g)), func(ctx context.Context) (*SentimentReport, error) {
		rows, err := s.list(ctx, sc)
		if err != nil {
			return nil, err
		}
		report := BuildSentimentReport(rows, g)
		return &report, nil
	})
}

func (s *Service) ProcessAdherence(ctx context.Context, caller *entities.User, q Query) (*ProcessReport, error) {
	sc := s.resolve(caller, q)
	return cached(ctx, s, sc.key("process"), func(ctx context.Context) (*ProcessReport, error) {
		rows, err := s.list(ctx, sc)
		if err != nil {
			return nil, err
		}
		report := BuildProcessReport(rows)
		return &report, nil
	})
}

func (s *Service) Opportunities(ctx context.Context, caller *entities.User, q Query, f OpportunityFilter) (*OpportunityReport, error) {
	if f.Priority != "" && f.Priority.Weight() == 0 {
		return nil, apperrors.ErrInvalidArgument("priority must be one of high, medium, low")
	}
	sc := s.resolve(caller, q)
	return cached(ctx, s, sc.key("opportunities", f.Type, string(f.Priority)), func(ctx context.Context) (*OpportunityReport, error) {
		rows, err := s.list(ctx, sc)
		if err != nil {
			return nil, err
		}
		report := BuildOpportunityReport(rows, f)
		return &report, nil
	})
}

// TeamPerformance ranks every active user of the organization. Members only
// see their own row.
func (s *Service) TeamPerformance(ctx context.Context, caller *entities.User, q Query) (*TeamReport, error) {
	sc := s.resolve(caller, q)
	return cached(ctx, s, sc.key("team"), func(ctx context.Context) (*TeamReport, error) {
		var (
			rows  []repositories.AnalyzedRecording
			users []*entities.User
		)
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			rows, err = s.analytics.ListAnalyzed(gctx, sc.orgID, sc.filter())
			return err
		})
		g.Go(func() error {
			var err error
			users, err = s.users.ListActive(gctx, sc.orgID)
			return err
		})
		if err := g.Wait(); err != nil {
			return nil, apperrors.ErrInternal(err)
		}
		if sc.userID != nil {
			users = onlyUser(users, *sc.userID)
		}
		report := BuildTeamReport(users, rows)
		return &report, nil
	})
}

func (s *Service) list(ctx context.Context, sc scope) ([]repositories.AnalyzedRecording, error) {
	rows, err := s.analytics.ListAnalyzed(ctx, sc.orgID, sc.filter())
	if err != nil {
		return nil, apperrors.ErrInternal(err)
	}
	return rows, nil
}

func onlyUser(users []*entities.User, id uuid.UUID) []*entities.User {
	for _, u := range users {
		if u.ID == id {
			return []*entities.User{u}
		}
	}
	return []*entities.User{}
}
