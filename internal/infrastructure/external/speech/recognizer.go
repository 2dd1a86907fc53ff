// Package speech adapts speech-to-text providers to one recognition shape.
// Word offsets use durationpb so every provider reports seconds+nanos.
package speech

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/protobuf/types/known/durationpb"

	"github.com/johnquangdev/call-insight/pkg/config"
)

// ErrNotConfigured is returned by Unavailable.
var ErrNotConfigured = errors.New("speech provider is not configured")

// Request carries per-call recognition options.
type Request struct {
	MimeType     string
	Language     string
	SpeakerCount int
}

type Response struct {
	Results []Result
}

type Result struct {
	Alternatives []Alternative
}

type Alternative struct {
	Transcript string
	Confidence float64
	Words      []Word
}

// Word is one recognised word. SpeakerTag is 0 when diarization gave no label.
type Word struct {
	Word       string
	StartTime  *durationpb.Duration
	EndTime    *durationpb.Duration
	Confidence float64
	SpeakerTag int
}

// Recognizer turns audio bytes into recognition results.
type Recognizer interface {
	Recognize(ctx context.Context, audio []byte, req Request) (*Response, error)
	Name() string
}

// New builds the recognizer selected by cfg.Provider. Missing credentials
// fall back to Unavailable so the transcription engine uses mock transcripts.
func New(ctx context.Context, cfg *config.SpeechConfig, logger *zap.Logger) (Recognizer, error) {
	switch strings.ToLower(cfg.Provider) {
	case "google":
		if cfg.GoogleCredentials == "" {
			warnDisabled(logger, "google", "SPEECH_GOOGLE_CREDENTIALS_FILE is empty")
			return Unavailable{}, nil
		}
		return NewGoogleRecognizer(ctx, cfg.GoogleCredentials)
	case "assemblyai":
		if cfg.AssemblyAIKey == "" {
			warnDisabled(logger, "assemblyai", "SPEECH_ASSEMBLYAI_API_KEY is empty")
			return Unavailable{}, nil
		}
		return NewAssemblyAIRecognizer(cfg.AssemblyAIKey), nil
	case "none", "":
		return Unavailable{}, nil
	}
	return nil, fmt.Errorf("unknown speech provider %q", cfg.Provider)
}

func warnDisabled(logger *zap.Logger, provider, reason string) {
	if logger != nil {
		logger.Warn("speech.provider_disabled", zap.String("provider", provider), zap.String("reason", reason))
	}
}

// Available reports whether r can reach a real provider.
func Available(r Recognizer) bool {
	if r == nil {
		return false
	}
	_, off := r.(Unavailable)
	return !off
}

// Unavailable is the recognizer used when no provider is configured.
type Unavailable struct{}

func (Unavailable) Recognize(context.Context, []byte, Request) (*Response, error) {
	return nil, ErrNotConfigured
}

func (Unavailable) Name() string { return "none" }
