package speech

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	aai "github.com/AssemblyAI/assemblyai-go-sdk"
	"google.golang.org/protobuf/types/known/durationpb"
)

// AssemblyAIRecognizer uploads audio and waits for the finished transcript.
type AssemblyAIRecognizer struct {
	client *aai.Client
}

var _ Recognizer = (*AssemblyAIRecognizer)(nil)

func NewAssemblyAIRecognizer(apiKey string) *AssemblyAIRecognizer {
	return &AssemblyAIRecognizer{client: aai.NewClient(apiKey)}
}

func (a *AssemblyAIRecognizer) Name() string { return "assemblyai" }

func (a *AssemblyAIRecognizer) Recognize(ctx context.Context, audio []byte, req Request) (*Response, error) {
	params := &aai.TranscriptOptionalParams{
		SpeakerLabels: aai.Bool(true),
	}
	if req.SpeakerCount > 0 {
		params.SpeakersExpected = aai.Int64(int64(req.SpeakerCount))
	}
	if lang := languageCode(req.Language); lang != "" {
		params.LanguageCode = aai.TranscriptLanguageCode(lang)
	}

	transcript, err := a.client.Transcripts.TranscribeFromReader(ctx, bytes.NewReader(audio), params)
	if err != nil {
		return nil, fmt.Errorf("assemblyai transcribe: %w", err)
	}
	return fromAssemblyAI(transcript)
}

// languageCode maps BCP-47 tags to AssemblyAI codes: en-US -> en_us.
func languageCode(tag string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(tag)), "-", "_")
}

func fromAssemblyAI(t aai.Transcript) (*Response, error) {
	if t.Status == aai.TranscriptStatusError {
		msg := "unknown error"
		if t.Error != nil {
			msg = *t.Error
		}
		return nil, fmt.Errorf("assemblyai transcript failed: %s", msg)
	}

	alt := Alternative{
		Transcript: aai.ToString(t.Text),
		Confidence: aai.ToFloat64(t.Confidence),
	}
	for _, w := range t.Words {
		alt.Words = append(alt.Words, Word{
			Word:       aai.ToString(w.Text),
			StartTime:  millis(aai.ToInt64(w.Start)),
			EndTime:    millis(aai.ToInt64(w.End)),
			Confidence: aai.ToFloat64(w.Confidence),
			SpeakerTag: speakerTag(aai.ToString(w.Speaker)),
		})
	}
	if alt.Transcript == "" && len(alt.Words) == 0 {
		return &Response{}, nil
	}
	return &Response{Results: []Result{{Alternatives: []Alternative{alt}}}}, nil
}

func millis(ms int64) *durationpb.Duration {
	return durationpb.New(time.Duration(ms) * time.Millisecond)
}

// speakerTag maps diarization labels to 1-based tags: "A" -> 1, "B" -> 2.
// Numeric labels are kept as-is.
func speakerTag(label string) int {
	label = strings.TrimSpace(label)
	if label == "" {
		return 0
	}
	if n, err := strconv.Atoi(label); err == nil {
		return n
	}
	c := strings.ToUpper(label)[0]
	if c < 'A' || c > 'Z' {
		return 0
	}
	return int(c-'A') + 1
}
