package speech

import (
	"context"
	"fmt"
	"strings"

	gspeech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"google.golang.org/api/option"
)

// GoogleRecognizer calls Cloud Speech-to-Text synchronous recognition.
type GoogleRecognizer struct {
	client *gspeech.Client
}

var _ Recognizer = (*GoogleRecognizer)(nil)

func NewGoogleRecognizer(ctx context.Context, credentialsFile string) (*GoogleRecognizer, error) {
	client, err := gspeech.NewClient(ctx, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("failed to create google speech client: %w", err)
	}
	return &GoogleRecognizer{client: client}, nil
}

func (g *GoogleRecognizer) Name() string { return "google" }

func (g *GoogleRecognizer) Close() error { return g.client.Close() }

func (g *GoogleRecognizer) Recognize(ctx context.Context, audio []byte, req Request) (*Response, error) {
	speakers := int32(req.SpeakerCount)
	if speakers < 1 {
		speakers = 2
	}
	resp, err := g.client.Recognize(ctx, &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:                   encodingFor(req.MimeType),
			LanguageCode:               req.Language,
			EnableWordTimeOffsets:      true,
			EnableWordConfidence:       true,
			EnableAutomaticPunctuation: true,
			Model:                      "phone_call",
			UseEnhanced:                true,
			DiarizationConfig: &speechpb.SpeakerDiarizationConfig{
				EnableSpeakerDiarization: true,
				MinSpeakerCount:          speakers,
				MaxSpeakerCount:          speakers,
			},
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: audio},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("google recognize: %w", err)
	}
	return fromGoogle(resp), nil
}

// encodingFor picks an explicit encoding only where the header is not
// self-describing; everything else lets the service sniff the container.
func encodingFor(mimeType string) speechpb.RecognitionConfig_AudioEncoding {
	m := strings.ToLower(mimeType)
	switch {
	case strings.Contains(m, "wav"):
		return speechpb.RecognitionConfig_LINEAR16
	case strings.Contains(m, "ogg"):
		return speechpb.RecognitionConfig_OGG_OPUS
	}
	return speechpb.RecognitionConfig_ENCODING_UNSPECIFIED
}

func fromGoogle(resp *speechpb.RecognizeResponse) *Response {
	out := &Response{}
	for _, r := range resp.GetResults() {
		var result Result
		for _, alt := range r.GetAlternatives() {
			a := Alternative{
				Transcript: alt.GetTranscript(),
				Confidence: float64(alt.GetConfidence()),
			}
			for _, w := range alt.GetWords() {
				a.Words = append(a.Words, Word{
					Word:       w.GetWord(),
					StartTime:  w.GetStartTime(),
					EndTime:    w.GetEndTime(),
					Confidence: float64(w.GetConfidence()),
					SpeakerTag: int(w.GetSpeakerTag()),
				})
			}
			result.Alternatives = append(result.Alternatives, a)
		}
		out.Results = append(out.Results, result)
	}
	return out
}
