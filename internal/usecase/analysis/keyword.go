package analysis

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/johnquangdev/call-insight/internal/domain/entities"
)

var (
	positiveWords = []string{
		"great", "good", "excellent", "love", "perfect", "happy", "interested",
		"thanks", "thank you", "helpful", "sounds good", "excited", "agree", "yes",
	}
	negativeWords = []string{
		"worried", "concern", "problem", "expensive", "unhappy", "frustrated",
		"difficult", "not sure", "cancel", "disappointed", "issue", "no",
	}
)

type opportunityRule struct {
	kind        string
	priority    entities.OpportunityPriority
	keywords    []string
	description string
}

var opportunityRules = []opportunityRule{
	{"upsell", entities.PriorityHigh, []string{"more seats", "upgrade", "additional", "whole team", "expand"}, "Customer shows interest in a larger plan"},
	{"follow_up", entities.PriorityHigh, []string{"demo", "follow up", "next step", "schedule", "next week"}, "Customer agreed to a concrete next step"},
	{"pricing", entities.PriorityMedium, []string{"price", "budget", "cost", "discount", "plans"}, "Pricing was discussed and may need a tailored offer"},
	{"competitive", entities.PriorityMedium, []string{"competitor", "currently using", "switch", "alternative"}, "Customer is comparing with another vendor"},
	{"referral", entities.PriorityLow, []string{"other teams", "colleague", "refer", "regions"}, "Possible referral to other teams"},
}

// KeywordAnalyzer is the deterministic analyzer used when no LLM is configured.
type KeywordAnalyzer struct{}

var _ Analyzer = KeywordAnalyzer{}

func (KeywordAnalyzer) Name() string { return "keyword" }

func (KeywordAnalyzer) Analyze(ctx context.Context, t *entities.Transcription, steps []entities.ProcessStep) (*Outcome, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	text := strings.ToLower(stripMockPrefix(t.Text))
	sentences := splitSentences(t)

	sentiment := keywordSentiment(text)
	process := keywordProcessScore(text, sentences, steps)
	opps := keywordOpportunities(text, sentences)

	return &Outcome{
		Sentiment:     sentiment,
		ProcessScore:  process,
		Opportunities: opps,
		Summary:       summarize(t, sentiment, process, len(opps)),
		Confidence:    math.Round(t.Confidence*0.8*1000) / 1000,
		Provider:      "keyword",
	}, nil
}

func keywordSentiment(text string) *entities.Sentiment {
	pos, posHits := countHits(text, positiveWords)
	neg, negHits := countHits(text, negativeWords)

	s := &entities.Sentiment{Overall: entities.SentimentNeutral, KeyPhrases: append(append([]string{}, posHits...), negHits...)}
	if pos+neg == 0 {
		return s
	}
	s.Score = math.Round(float64(pos-neg)/float64(pos+neg)*100) / 100
	switch {
	case pos > 0 && neg > 0 && math.Abs(s.Score) < 0.2:
		s.Overall = entities.SentimentMixed
	case s.Score >= 0.2:
		s.Overall = entities.SentimentPositive
	case s.Score <= -0.2:
		s.Overall = entities.SentimentNegative
	}
	return s
}

// keywordProcessScore scores a step 0 with no keyword hits, otherwise
// 40 plus 20 per hit, capped at 100.
func keywordProcessScore(text string, sentences []string, steps []entities.ProcessStep) *entities.ProcessScore {
	scores := make([]entities.StepScore, 0, len(steps))
	for _, step := range steps {
		hits, matched := countHits(text, step.Keywords)
		score := 0.0
		if hits > 0 {
			score = math.Min(100, 40+20*float64(hits))
		}
		s := entities.StepScore{Name: step.Name, Score: score}
		if len(matched) > 0 {
			s.Evidence = findSentence(sentences, matched[0])
		}
		scores = append(scores, s)
	}
	return entities.NewProcessScore(scores)
}

func keywordOpportunities(text string, sentences []string) []entities.Opportunity {
	out := []entities.Opportunity{}
	for _, rule := range opportunityRules {
		hits, matched := countHits(text, rule.keywords)
		if hits == 0 {
			continue
		}
		out = append(out, entities.Opportunity{
			Type:        rule.kind,
			Priority:    rule.priority,
			Confidence:  math.Min(0.95, 0.5+0.1*float64(hits)),
			Description: rule.description,
			Quote:       findSentence(sentences, matched[0]),
		})
	}
	return out
}

// countHits counts whole-word occurrences of each keyword and returns the
// keywords that matched, most frequent first.
func countHits(text string, keywords []string) (int, []string) {
	padded := " " + normalizeSpace(text) + " "
	type hit struct {
		kw string
		n  int
	}
	var hits []hit
	total := 0
	for _, kw := range keywords {
		n := strings.Count(padded, " "+kw+" ")
		if n > 0 {
			hits = append(hits, hit{kw, n})
			total += n
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].n > hits[j].n })
	matched := make([]string, 0, len(hits))
	for _, h := range hits {
		matched = append(matched, h.kw)
	}
	return total, matched
}

// normalizeSpace strips punctuation so keyword matching works on words.
func normalizeSpace(text string) string {
	return strings.Join(strings.FieldsFunc(text, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '\'')
	}), " ")
}

func splitSentences(t *entities.Transcription) []string {
	if len(t.Segments) > 0 {
		out := make([]string, 0, len(t.Segments))
		for _, s := range t.Segments {
			out = append(out, s.Text)
		}
		return out
	}
	return strings.FieldsFunc(stripMockPrefix(t.Text), func(r rune) bool {
		return r == '.' || r == '?' || r == '!'
	})
}

func findSentence(sentences []string, keyword string) string {
	for _, s := range sentences {
		if strings.Contains(" "+normalizeSpace(strings.ToLower(s))+" ", " "+keyword+" ") {
			return truncate(strings.TrimSpace(s), 200)
		}
	}
	return ""
}

func stripMockPrefix(text string) string {
	text = strings.TrimPrefix(text, "[FALLBACK MOCK TRANSCRIPTION]")
	return strings.TrimPrefix(text, "[MOCK TRANSCRIPTION]")
}

func summarize(t *entities.Transcription, s *entities.Sentiment, p *entities.ProcessScore, opportunities int) string {
	speakers := map[string]struct{}{}
	for _, seg := range t.Segments {
		speakers[seg.Speaker] = struct{}{}
	}
	return fmt.Sprintf(
		"Call with %d speaker(s) and %d words. Overall sentiment %s. %d of %d process steps detected (%.0f%%). %d opportunity signal(s).",
		len(speakers), t.WordCount, s.Overall, p.CompletedSteps, p.TotalSteps, p.OverallScore, opportunities,
	)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
