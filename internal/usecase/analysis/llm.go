package analysis

import (
	"context"
	"encoding/json"
	stdErrors "errors"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/johnquangdev/call-insight/internal/domain/entities"
	"github.com/johnquangdev/call-insight/pkg/ai"
	"github.com/johnquangdev/call-insight/pkg/retry"
)

// ChatCompleter is satisfied by *ai.GroqClient.
type ChatCompleter interface {
	CompleteJSON(ctx context.Context, system, user string) (string, error)
}

// LLMAnalyzer asks a chat model for a structured analysis.
type LLMAnalyzer struct {
	client    ChatCompleter
	policy    retry.Policy
	retryOpts []retry.Option
	logger    *zap.Logger
	maxChars  int
}

var _ Analyzer = (*LLMAnalyzer)(nil)

func NewLLMAnalyzer(client ChatCompleter, logger *zap.Logger, opts ...retry.Option) *LLMAnalyzer {
	return &LLMAnalyzer{
		client:    client,
		policy:    retry.Exponential(time.Second, 3),
		retryOpts: opts,
		logger:    logger,
		maxChars:  24000,
	}
}

func (a *LLMAnalyzer) Name() string { return "llm" }

const systemPrompt = `You analyse sales call transcripts. Reply with one JSON object only:
{"summary": string,
 "sentiment": {"overall": "positive"|"negative"|"neutral"|"mixed", "score": number -1..1, "keyPhrases": [string]},
 "processSteps": [{"name": string, "score": number 0..100, "evidence": string}],
 "opportunities": [{"type": string, "priority": "low"|"medium"|"high", "confidence": number 0..1, "description": string, "quote": string}],
 "confidence": number 0..1}
Score every listed process step by name.`

type llmResponse struct {
	Summary   string `json:"summary"`
	Sentiment struct {
		Overall    string   `json:"overall"`
		Score      float64  `json:"score"`
		KeyPhrases []string `json:"keyPhrases"`
	} `json:"sentiment"`
	ProcessSteps []struct {
		Name     string  `json:"name"`
		Score    float64 `json:"score"`
		Evidence string  `json:"evidence"`
	} `json:"processSteps"`
	Opportunities []entities.Opportunity `json:"opportunities"`
	Confidence    float64                `json:"confidence"`
}

func (a *LLMAnalyzer) Analyze(ctx context.Context, t *entities.Transcription, steps []entities.ProcessStep) (*Outcome, error) {
	user := buildPrompt(t, steps, a.maxChars)

	retryOpts := append([]retry.Option{}, a.retryOpts...)
	retryOpts = append(retryOpts, retry.WithNotify(func(attempt int, err error, wait time.Duration) {
		if a.logger != nil {
			a.logger.Warn("analysis.llm_retry", zap.Int("attempt", attempt), zap.Duration("wait", wait), zap.Error(err))
		}
	}))

	var raw string
	err := a.policy.Do(ctx, func(ctx context.Context, attempt int) error {
		out, err := a.client.CompleteJSON(ctx, systemPrompt, user)
		if err != nil {
			var statusErr *ai.StatusError
			if stdErrors.As(err, &statusErr) && !statusErr.Temporary() {
				return retry.Permanent(err)
			}
			return err
		}
		raw = out
		return nil
	}, retryOpts...)
	if err != nil {
		return nil, fmt.Errorf("llm analysis failed: %w", err)
	}
	return parseLLMResponse(raw, steps)
}

func buildPrompt(t *entities.Transcription, steps []entities.ProcessStep, maxChars int) string {
	var b strings.Builder
	b.WriteString("Process steps:\n")
	for _, s := range steps {
		fmt.Fprintf(&b, "- %s: %s (keywords: %s)\n", s.Name, s.Description, strings.Join(s.Keywords, ", "))
	}
	b.WriteString("\nTranscript:\n")
	var body strings.Builder
	if len(t.Segments) > 0 {
		for _, seg := range t.Segments {
			fmt.Fprintf(&body, "%s: %s\n", seg.Speaker, seg.Text)
		}
	} else {
		body.WriteString(t.Text)
	}
	b.WriteString(truncate(body.String(), maxChars))
	return b.String()
}

// parseLLMResponse clamps model output into valid ranges and scores every
// template step, treating steps the model skipped as 0.
func parseLLMResponse(raw string, steps []entities.ProcessStep) (*Outcome, error) {
	var resp llmResponse
	if err := json.Unmarshal([]byte(ai.ExtractJSON(raw)), &resp); err != nil {
		return nil, fmt.Errorf("failed to parse llm response: %w", err)
	}

	byName := make(map[string]int, len(resp.ProcessSteps))
	for i, s := range resp.ProcessSteps {
		byName[strings.ToLower(strings.TrimSpace(s.Name))] = i
	}
	scores := make([]entities.StepScore, 0, len(steps))
	for _, step := range steps {
		s := entities.StepScore{Name: step.Name}
		if i, ok := byName[strings.ToLower(step.Name)]; ok {
			s.Score = clamp(resp.ProcessSteps[i].Score, 0, 100)
			s.Evidence = truncate(resp.ProcessSteps[i].Evidence, 200)
		}
		scores = append(scores, s)
	}

	opps := make([]entities.Opportunity, 0, len(resp.Opportunities))
	for _, o := range resp.Opportunities {
		o.Priority = entities.OpportunityPriority(strings.ToLower(string(o.Priority))).Normalize()
		o.Confidence = clamp(o.Confidence, 0, 1)
		if o.Type == "" {
			o.Type = "general"
		}
		opps = append(opps, o)
	}

	keyPhrases := resp.Sentiment.KeyPhrases
	if keyPhrases == nil {
		keyPhrases = []string{}
	}
	return &Outcome{
		Sentiment: &entities.Sentiment{
			Overall:    entities.SentimentLabel(strings.ToLower(resp.Sentiment.Overall)).Normalize(),
			Score:      clamp(resp.Sentiment.Score, -1, 1),
			KeyPhrases: keyPhrases,
		},
		ProcessScore:  entities.NewProcessScore(scores),
		Opportunities: opps,
		Summary:       strings.TrimSpace(resp.Summary),
		Confidence:    clamp(resp.Confidence, 0, 1),
		Provider:      "llm",
	}, nil
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Min(math.Max(v, lo), hi)
}
