package speech

import (
	"context"
	"errors"
	"testing"
	"time"

	"cloud.google.com/go/speech/apiv1/speechpb"
	aai "github.com/AssemblyAI/assemblyai-go-sdk"
	"google.golang.org/protobuf/types/known/durationpb"

	"github.com/johnquangdev/call-insight/pkg/config"
)

func TestNewFallsBackToUnavailable(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.SpeechConfig
	}{
		{"none", config.SpeechConfig{Provider: "none"}},
		{"google without credentials", config.SpeechConfig{Provider: "google"}},
		{"assemblyai without key", config.SpeechConfig{Provider: "assemblyai"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := New(context.Background(), &tt.cfg, nil)
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			if Available(r) {
				t.Errorf("expected unavailable recognizer, got %s", r.Name())
			}
			if _, err := r.Recognize(context.Background(), nil, Request{}); !errors.Is(err, ErrNotConfigured) {
				t.Errorf("Recognize error = %v", err)
			}
		})
	}

	if _, err := New(context.Background(), &config.SpeechConfig{Provider: "whisper"}, nil); err == nil {
		t.Error("expected error for unknown provider")
	}
}

func TestFromAssemblyAI(t *testing.T) {
	tr := aai.Transcript{
		Status:     aai.TranscriptStatusCompleted,
		Text:       aai.String("hello there"),
		Confidence: aai.Float64(0.9),
		Words: []aai.TranscriptWord{
			{Text: aai.String("hello"), Start: aai.Int64(250), End: aai.Int64(900), Confidence: aai.Float64(0.95), Speaker: aai.String("A")},
			{Text: aai.String("there"), Start: aai.Int64(1500), End: aai.Int64(2100), Confidence: aai.Float64(0.85), Speaker: aai.String("B")},
		},
	}

	resp, err := fromAssemblyAI(tr)
	if err != nil {
		t.Fatalf("fromAssemblyAI: %v", err)
	}
	if len(resp.Results) != 1 || len(resp.Results[0].Alternatives) != 1 {
		t.Fatalf("unexpected shape: %+v", resp)
	}
	words := resp.Results[0].Alternatives[0].Words
	if len(words) != 2 {
		t.Fatalf("got %d words", len(words))
	}
	if got := words[0].StartTime.AsDuration(); got != 250*time.Millisecond {
		t.Errorf("start = %v", got)
	}
	if got := words[1].EndTime.AsDuration(); got != 2100*time.Millisecond {
		t.Errorf("end = %v", got)
	}
	if words[0].SpeakerTag != 1 || words[1].SpeakerTag != 2 {
		t.Errorf("speaker tags = %d, %d", words[0].SpeakerTag, words[1].SpeakerTag)
	}

	if _, err := fromAssemblyAI(aai.Transcript{Status: aai.TranscriptStatusError, Error: aai.String("bad audio")}); err == nil {
		t.Error("expected error for failed transcript")
	}
	empty, err := fromAssemblyAI(aai.Transcript{Status: aai.TranscriptStatusCompleted})
	if err != nil || len(empty.Results) != 0 {
		t.Errorf("empty transcript = %+v, %v", empty, err)
	}
}

func TestFromGoogle(t *testing.T) {
	resp := fromGoogle(&speechpb.RecognizeResponse{
		Results: []*speechpb.SpeechRecognitionResult{{
			Alternatives: []*speechpb.SpeechRecognitionAlternative{{
				Transcript: "good morning",
				Confidence: 0.5,
				Words: []*speechpb.WordInfo{
					{Word: "good", StartTime: durationpb.New(time.Second), EndTime: durationpb.New(1500 * time.Millisecond), Confidence: 0.5, SpeakerTag: 2},
				},
			}},
		}},
	})
	alt := resp.Results[0].Alternatives[0]
	if alt.Transcript != "good morning" || alt.Confidence != 0.5 {
		t.Errorf("alternative = %+v", alt)
	}
	if alt.Words[0].SpeakerTag != 2 || alt.Words[0].StartTime.AsDuration() != time.Second {
		t.Errorf("word = %+v", alt.Words[0])
	}
}

func TestEncodingFor(t *testing.T) {
	tests := map[string]speechpb.RecognitionConfig_AudioEncoding{
		"audio/wav":   speechpb.RecognitionConfig_LINEAR16,
		"audio/x-wav": speechpb.RecognitionConfig_LINEAR16,
		"audio/ogg":   speechpb.RecognitionConfig_OGG_OPUS,
		"audio/mpeg":  speechpb.RecognitionConfig_ENCODING_UNSPECIFIED,
		"audio/mp4":   speechpb.RecognitionConfig_ENCODING_UNSPECIFIED,
	}
	for mime, want := range tests {
		if got := encodingFor(mime); got != want {
			t.Errorf("encodingFor(%q) = %v, want %v", mime, got, want)
		}
	}
}

func TestSpeakerTag(t *testing.T) {
	tests := map[string]int{"A": 1, "b": 2, "C": 3, "3": 3, "": 0, "?": 0}
	for in, want := range tests {
		if got := speakerTag(in); got != want {
			t.Errorf("speakerTag(%q) = %d, want %d", in, got, want)
		}
	}
}
