package entities

import (
	"time"

	"github.com/google/uuid"
)

// SentimentLabel is the overall tone of a call.
type SentimentLabel string

const (
	SentimentPositive SentimentLabel = "positive"
	SentimentNegative SentimentLabel = "negative"
	SentimentNeutral  SentimentLabel = "neutral"
	SentimentMixed    SentimentLabel = "mixed"
)

// Normalize maps unknown or empty labels to neutral.
func (s SentimentLabel) Normalize() SentimentLabel {
	switch s {
	case SentimentPositive, SentimentNegative, SentimentNeutral, SentimentMixed:
		return s
	}
	return SentimentNeutral
}

// Sentiment scores range from -1 (negative) to 1 (positive).
type Sentiment struct {
	Overall    SentimentLabel `json:"overall"`
	Score      float64        `json:"score"`
	KeyPhrases []string       `json:"keyPhrases"`
}

// StepScore is the 0-100 score of one process step.
type StepScore struct {
	Name     string  `json:"name"`
	Score    float64 `json:"score"`
	Detected bool    `json:"detected"`
	Evidence string  `json:"evidence,omitempty"`
}

// ProcessScore measures adherence to a ProcessTemplate.
type ProcessScore struct {
	OverallScore   float64     `json:"overallScore"`
	StepScores     []StepScore `json:"stepScores"`
	CompletedSteps int         `json:"completedSteps"`
	TotalSteps     int         `json:"totalSteps"`
	MissedSteps    []string    `json:"missedSteps"`
}

// OpportunityPriority ranks sales opportunities.
type OpportunityPriority string

const (
	PriorityLow    OpportunityPriority = "low"
	PriorityMedium OpportunityPriority = "medium"
	PriorityHigh   OpportunityPriority = "high"
)

// Weight orders priorities: high=3, medium=2, low=1, anything else 0.
func (p OpportunityPriority) Weight() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	}
	return 0
}

// Opportunity is a sales opportunity spotted in a call.
type Opportunity struct {
	Type        string              `json:"type"`
	Priority    OpportunityPriority `json:"priority"`
	Confidence  float64             `json:"confidence"`
	Description string              `json:"description"`
	Quote       string              `json:"quote,omitempty"`
}

// AnalysisResult is the one-to-one analysis of a Recording's transcript.
type AnalysisResult struct {
	ID             uuid.UUID     `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	RecordingID    uuid.UUID     `json:"recordingId" gorm:"type:uuid;not null;uniqueIndex"`
	OrganizationID uuid.UUID     `json:"organizationId" gorm:"type:uuid;not null;index"`
	TemplateID     *uuid.UUID    `json:"templateId,omitempty" gorm:"type:uuid"`
	Sentiment      *Sentiment    `json:"sentiment" gorm:"type:jsonb;serializer:json"`
	ProcessScore   *ProcessScore `json:"processScore,omitempty" gorm:"type:jsonb;serializer:json"`
	Opportunities  []Opportunity `json:"opportunities" gorm:"type:jsonb;serializer:json"`
	Summary        string        `json:"summary" gorm:"type:text"`
	Confidence     float64       `json:"confidence" gorm:"not null;default:0"`
	Provider       string        `json:"provider" gorm:"type:varchar(50);not null"`
	CreatedAt      time.Time     `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt      time.Time     `json:"updatedAt" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for GORM
func (AnalysisResult) TableName() string {
	return "analysis_results"
}

// Normalize maps unknown priorities to low.
func (p OpportunityPriority) Normalize() OpportunityPriority {
	if p.Weight() == 0 {
		return PriorityLow
	}
	return p
}

// StepDetectionThreshold is the step score above which a step counts as detected.
const StepDetectionThreshold = 30

// NewProcessScore derives completion counts and the overall score from
// per-step scores. The overall score is the mean step score.
func NewProcessScore(steps []StepScore) *ProcessScore {
	ps := &ProcessScore{
		StepScores:  steps,
		TotalSteps:  len(steps),
		MissedSteps: []string{},
	}
	if ps.StepScores == nil {
		ps.StepScores = []StepScore{}
	}
	sum := 0.0
	for i := range ps.StepScores {
		s := &ps.StepScores[i]
		s.Detected = s.Score > StepDetectionThreshold
		sum += s.Score
		if s.Detected {
			ps.CompletedSteps++
		} else {
			ps.MissedSteps = append(ps.MissedSteps, s.Name)
		}
	}
	if len(steps) > 0 {
		ps.OverallScore = sum / float64(len(steps))
	}
	return ps
}
