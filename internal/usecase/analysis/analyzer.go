// Package analysis scores transcripts for sentiment, sales opportunities
// and adherence to a process template.
package analysis

import (
	"context"

	"github.com/johnquangdev/call-insight/internal/domain/entities"
)

// Outcome is what an Analyzer returns before it is persisted.
type Outcome struct {
	Sentiment     *entities.Sentiment
	ProcessScore  *entities.ProcessScore
	Opportunities []entities.Opportunity
	Summary       string
	Confidence    float64
	Provider      string
}

// Analyzer scores one transcript against the given process steps.
type Analyzer interface {
	Analyze(ctx context.Context, transcript *entities.Transcription, steps []entities.ProcessStep) (*Outcome, error)
	Name() string
}
