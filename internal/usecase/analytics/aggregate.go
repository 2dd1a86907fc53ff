package analytics

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/johnquangdev/call-insight/internal/domain/entities"
	"github.com/johnquangdev/call-insight/internal/domain/repositories"
)

// GroupBy selects the trend bucket size.
type GroupBy string

const (
	GroupByDay   GroupBy = "day"
	GroupByWeek  GroupBy = "week"
	GroupByMonth GroupBy = "month"
)

func (g GroupBy) IsValid() bool {
	return g == GroupByDay || g == GroupByWeek || g == GroupByMonth
}

const (
	maxOpportunities = 100
	maxMissedSteps   = 10
	recentRecordings = 5
)

// SentimentDistribution counts analyses per sentiment label.
type SentimentDistribution struct {
	Positive int `json:"positive"`
	Negative int `json:"negative"`
	Neutral  int `json:"neutral"`
	Mixed    int `json:"mixed"`
}

func (d *SentimentDistribution) add(s *entities.Sentiment) {
	label := entities.SentimentNeutral
	if s != nil {
		label = s.Overall.Normalize()
	}
	switch label {
	case entities.SentimentPositive:
		d.Positive++
	case entities.SentimentNegative:
		d.Negative++
	case entities.SentimentMixed:
		d.Mixed++
	default:
		d.Neutral++
	}
}

// mean is the running mean of a series, 0 when empty.
type mean struct {
	sum float64
	n   int
}

func (m *mean) add(v float64) {
	m.sum += v
	m.n++
}

func (m mean) value() float64 {
	if m.n == 0 {
		return 0
	}
	return m.sum / float64(m.n)
}

// DashboardStats is the overview shown on the home screen.
type DashboardStats struct {
	TotalRecordings       int                   `json:"totalRecordings"`
	CompletedRecordings   int                   `json:"completedRecordings"`
	TotalDuration         int                   `json:"totalDuration"`
	AvgConfidence         float64               `json:"avgConfidence"`
	TotalOpportunities    int                   `json:"totalOpportunities"`
	AvgProcessScore       float64               `json:"avgProcessScore"`
	ActiveUsers           int                   `json:"activeUsers"`
	SentimentDistribution SentimentDistribution `json:"sentimentDistribution"`
	RecentRecordings      []*entities.Recording `json:"recentRecordings"`
	Period                Period                `json:"period"`
}

// Period echoes the resolved date range.
type Period struct {
	Days  int       `json:"days"`
	Since time.Time `json:"since"`
}

// BuildDashboard totals rows. recent and activeUsers are fetched separately.
func BuildDashboard(rows []repositories.AnalyzedRecording) DashboardStats {
	var (
		stats      DashboardStats
		confidence mean
		process    mean
	)
	stats.RecentRecordings = []*entities.Recording{}
	for _, row := range rows {
		stats.TotalRecordings++
		stats.TotalDuration += row.Recording.Duration
		if row.Recording.Status == entities.RecordingStatusCompleted {
			stats.CompletedRecordings++
		}
		a := row.Analysis
		if a == nil {
			continue
		}
		confidence.add(a.Confidence)
		stats.TotalOpportunities += len(a.Opportunities)
		if a.ProcessScore != nil {
			process.add(a.ProcessScore.OverallScore)
		}
		stats.SentimentDistribution.add(a.Sentiment)
	}
	stats.AvgConfidence = confidence.value()
	stats.AvgProcessScore = process.value()
	return stats
}

// BucketKey returns the trend key of t: 2006-01-02 for days, the Sunday
// starting the week for weeks, 2006-01 for months. Keys sort chronologically.
func BucketKey(t time.Time, g GroupBy) string {
	t = t.UTC()
	switch g {
	case GroupByWeek:
		return t.AddDate(0, 0, -int(t.Weekday())).Format("2006-01-02")
	case GroupByMonth:
		return t.Format("2006-01")
	}
	return t.Format("2006-01-02")
}

// TrendBucket aggregates one day, week or month.
type TrendBucket struct {
	Period            string                `json:"period"`
	Count             int                   `json:"count"`
	AvgDuration       float64               `json:"avgDuration"`
	AvgConfidence     float64               `json:"avgConfidence"`
	AvgSentimentScore float64               `json:"avgSentimentScore"`
	Sentiment         SentimentDistribution `json:"sentiment"`
}

type bucketAcc struct {
	bucket     TrendBucket
	duration   mean
	confidence mean
	sentiment  mean
}

// BuildTrends buckets rows by creation time, sorted by key.
func BuildTrends(rows []repositories.AnalyzedRecording, g GroupBy) []TrendBucket {
	accs := map[string]*bucketAcc{}
	for _, row := range rows {
		key := BucketKey(row.Recording.CreatedAt, g)
		acc, ok := accs[key]
		if !ok {
			acc = &bucketAcc{bucket: TrendBucket{Period: key}}
			accs[key] = acc
		}
		acc.bucket.Count++
		acc.duration.add(float64(row.Recording.Duration))
		if a := row.Analysis; a != nil {
			acc.confidence.add(a.Confidence)
			if a.Sentiment != nil {
				acc.sentiment.add(a.Sentiment.Score)
			}
			acc.bucket.Sentiment.add(a.Sentiment)
		}
	}

	out := make([]TrendBucket, 0, len(accs))
	for _, acc := range accs {
		b := acc.bucket
		b.AvgDuration = acc.duration.value()
		b.AvgConfidence = acc.confidence.value()
		b.AvgSentimentScore = acc.sentiment.value()
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Period < out[j].Period })
	return out
}

// SentimentReport is the sentiment trend plus range totals.
type SentimentReport struct {
	GroupBy       GroupBy               `json:"groupBy"`
	Trends        []TrendBucket         `json:"trends"`
	Distribution  SentimentDistribution `json:"distribution"`
	AvgScore      float64               `json:"avgScore"`
	TotalAnalyzed int                   `json:"totalAnalyzed"`
}

func BuildSentimentReport(rows []repositories.AnalyzedRecording, g GroupBy) SentimentReport {
	r := SentimentReport{GroupBy: g, Trends: BuildTrends(rows, g)}
	var score mean
	for _, row := range rows {
		if row.Analysis == nil {
			continue
		}
		r.TotalAnalyzed++
		r.Distribution.add(row.Analysis.Sentiment)
		if row.Analysis.Sentiment != nil {
			score.add(row.Analysis.Sentiment.Score)
		}
	}
	r.AvgScore = score.value()
	return r
}

// MissedStep counts how often a step was missed.
type MissedStep struct {
	Step       string  `json:"step"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// StepPerformance is the detection rate of one step name across analyses.
type StepPerformance struct {
	Step          string  `json:"step"`
	Occurrences   int     `json:"occurrences"`
	Detected      int     `json:"detected"`
	DetectionRate float64 `json:"detectionRate"`
	AvgScore      float64 `json:"avgScore"`
}

// ProcessReport summarises process adherence.
type ProcessReport struct {
	AvgScore          float64           `json:"avgScore"`
	AvgCompletionRate float64           `json:"avgCompletionRate"`
	TotalAnalyzed     int               `json:"totalAnalyzed"`
	MissedSteps       []MissedStep      `json:"missedSteps"`
	StepPerformance   []StepPerformance `json:"stepPerformance"`
}

// BuildProcessReport covers rows with a process score. Completion ratio is
// completed/max(total,1); a step counts as detected above score 30.
func BuildProcessReport(rows []repositories.AnalyzedRecording) ProcessReport {
	var (
		report     = ProcessReport{MissedSteps: []MissedStep{}, StepPerformance: []StepPerformance{}}
		score      mean
		completion mean
		missed     = map[string]int{}
		steps      = map[string]*StepPerformance{}
		stepScores = map[string]*mean{}
	)
	for _, row := range rows {
		if row.Analysis == nil || row.Analysis.ProcessScore == nil {
			continue
		}
		ps := row.Analysis.ProcessScore
		report.TotalAnalyzed++
		score.add(ps.OverallScore)
		total := ps.TotalSteps
		if total < 1 {
			total = 1
		}
		completion.add(float64(ps.CompletedSteps) / float64(total))
		for _, name := range ps.MissedSteps {
			missed[name]++
		}
		for _, s := range ps.StepScores {
			perf, ok := steps[s.Name]
			if !ok {
				perf = &StepPerformance{Step: s.Name}
				steps[s.Name] = perf
				stepScores[s.Name] = &mean{}
			}
			perf.Occurrences++
			if s.Score > entities.StepDetectionThreshold {
				perf.Detected++
			}
			stepScores[s.Name].add(s.Score)
		}
	}

	report.AvgScore = score.value()
	report.AvgCompletionRate = completion.value()

	for name, count := range missed {
		report.MissedSteps = append(report.MissedSteps, MissedStep{
			Step:       name,
			Count:      count,
			Percentage: float64(count) / float64(report.TotalAnalyzed) * 100,
		})
	}
	sort.Slice(report.MissedSteps, func(i, j int) bool {
		a, b := report.MissedSteps[i], report.MissedSteps[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Step < b.Step
	})
	if len(report.MissedSteps) > maxMissedSteps {
		report.MissedSteps = report.MissedSteps[:maxMissedSteps]
	}

	for name, perf := range steps {
		perf.DetectionRate = float64(perf.Detected) / float64(perf.Occurrences) * 100
		perf.AvgScore = stepScores[name].value()
		report.StepPerformance = append(report.StepPerformance, *perf)
	}
	sort.Slice(report.StepPerformance, func(i, j int) bool {
		return report.StepPerformance[i].Step < report.StepPerformance[j].Step
	})
	return report
}

// OpportunityFilter narrows the returned list. Empty fields match anything.
type OpportunityFilter struct {
	Type     string
	Priority entities.OpportunityPriority
}

// OpportunityItem is an opportunity with the recording it came from.
type OpportunityItem struct {
	entities.Opportunity
	RecordingID    uuid.UUID `json:"recordingId"`
	RecordingTitle string    `json:"recordingTitle"`
	UserID         uuid.UUID `json:"userId"`
	CreatedAt      time.Time `json:"createdAt"`
}

// OpportunityReport lists ranked opportunities. Histograms and the mean
// confidence describe every candidate, before filtering.
type OpportunityReport struct {
	Opportunities []OpportunityItem `json:"opportunities"`
	Total         int               `json:"total"`
	ByType        map[string]int    `json:"byType"`
	ByPriority    map[string]int    `json:"byPriority"`
	AvgConfidence float64           `json:"avgConfidence"`
}

func BuildOpportunityReport(rows []repositories.AnalyzedRecording, f OpportunityFilter) OpportunityReport {
	report := OpportunityReport{
		Opportunities: []OpportunityItem{},
		ByType:        map[string]int{},
		ByPriority:    map[string]int{},
	}
	var confidence mean
	for _, row := range rows {
		if row.Analysis == nil {
			continue
		}
		for _, o := range row.Analysis.Opportunities {
			report.ByType[o.Type]++
			report.ByPriority[string(o.Priority)]++
			confidence.add(o.Confidence)

			if f.Type != "" && o.Type != f.Type {
				continue
			}
			if f.Priority != "" && o.Priority != f.Priority {
				continue
			}
			report.Opportunities = append(report.Opportunities, OpportunityItem{
				Opportunity:    o,
				RecordingID:    row.Recording.ID,
				RecordingTitle: row.Recording.Title,
				UserID:         row.Recording.UserID,
				CreatedAt:      row.Recording.CreatedAt,
			})
		}
	}
	report.AvgConfidence = confidence.value()
	RankOpportunities(report.Opportunities)
	report.Total = len(report.Opportunities)
	if len(report.Opportunities) > maxOpportunities {
		report.Opportunities = report.Opportunities[:maxOpportunities]
	}
	return report
}

// RankOpportunities orders by priority (high, medium, low) then confidence.
func RankOpportunities(items []OpportunityItem) {
	sort.SliceStable(items, func(i, j int) bool {
		wi, wj := items[i].Priority.Weight(), items[j].Priority.Weight()
		if wi != wj {
			return wi > wj
		}
		return items[i].Confidence > items[j].Confidence
	})
}

// TeamMember is one active user's rollup.
type TeamMember struct {
	UserID            uuid.UUID         `json:"userId"`
	Name              string            `json:"name"`
	Email             string            `json:"email"`
	Role              entities.UserRole `json:"role"`
	RecordingCount    int               `json:"recordingCount"`
	TotalDuration     int               `json:"totalDuration"`
	AvgSentimentScore float64           `json:"avgSentimentScore"`
	AvgProcessScore   float64           `json:"avgProcessScore"`
	OpportunityCount  int               `json:"opportunityCount"`
}

// TeamAverages are means of the per-member values over every active user,
// so a member with no calls pulls the averages down.
type TeamAverages struct {
	AvgRecordings     float64 `json:"avgRecordings"`
	AvgSentimentScore float64 `json:"avgSentimentScore"`
	AvgProcessScore   float64 `json:"avgProcessScore"`
	AvgOpportunities  float64 `json:"avgOpportunities"`
}

type TeamReport struct {
	Members  []TeamMember `json:"members"`
	Averages TeamAverages `json:"averages"`
}

// BuildTeamReport ranks users by recording count, then name.
func BuildTeamReport(users []*entities.User, rows []repositories.AnalyzedRecording) TeamReport {
	byUser := map[uuid.UUID][]repositories.AnalyzedRecording{}
	for _, row := range rows {
		byUser[row.Recording.UserID] = append(byUser[row.Recording.UserID], row)
	}

	report := TeamReport{Members: make([]TeamMember, 0, len(users))}
	var recs, sentiment, process, opps mean
	for _, u := range users {
		m := TeamMember{UserID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
		var s, p mean
		for _, row := range byUser[u.ID] {
			m.RecordingCount++
			m.TotalDuration += row.Recording.Duration
			if a := row.Analysis; a != nil {
				if a.Sentiment != nil {
					s.add(a.Sentiment.Score)
				}
				if a.ProcessScore != nil {
					p.add(a.ProcessScore.OverallScore)
				}
				m.OpportunityCount += len(a.Opportunities)
			}
		}
		m.AvgSentimentScore = s.value()
		m.AvgProcessScore = p.value()
		report.Members = append(report.Members, m)

		recs.add(float64(m.RecordingCount))
		sentiment.add(m.AvgSentimentScore)
		process.add(m.AvgProcessScore)
		opps.add(float64(m.OpportunityCount))
	}

	sort.SliceStable(report.Members, func(i, j int) bool {
		a, b := report.Members[i], report.Members[j]
		if a.RecordingCount != b.RecordingCount {
			return a.RecordingCount > b.RecordingCount
		}
		return a.Name < b.Name
	})
	report.Averages = TeamAverages{
		AvgRecordings:     recs.value(),
		AvgSentimentScore: sentiment.value(),
		AvgProcessScore:   process.value(),
		AvgOpportunities:  opps.value(),
	}
	return report
}
