package transcription

import (
	"fmt"
	"strings"

	"github.com/johnquangdev/call-insight/internal/domain/entities"
	"github.com/johnquangdev/call-insight/internal/infrastructure/external/speech"
)

// errEmptyRecognition is returned when the provider recognised nothing. It is
// retried like any other provider failure.
var errEmptyRecognition = fmt.Errorf("speech provider returned no results")

// Draft is a transcript before it is persisted.
type Draft struct {
	Text       string
	Confidence float64
	Words      []entities.WordInfo
	Segments   []entities.SpeakerSegment
	Duration   float64
	Provider   string
	IsMock     bool
}

// fromRecognition reduces provider results to words and speaker segments.
// Overall confidence is the mean of each result's top alternative.
func fromRecognition(resp *speech.Response, provider string) (*Draft, error) {
	if resp == nil || len(resp.Results) == 0 {
		return nil, errEmptyRecognition
	}

	var (
		texts    []string
		confSum  float64
		confN    int
		words    []entities.WordInfo
		lastTagd []entities.WordInfo
	)
	for i, result := range resp.Results {
		if len(result.Alternatives) == 0 {
			continue
		}
		top := result.Alternatives[0]
		if t := strings.TrimSpace(top.Transcript); t != "" {
			texts = append(texts, t)
		}
		confSum += top.Confidence
		confN++

		converted := convertWords(top.Words)
		words = append(words, converted...)
		if i == len(resp.Results)-1 && allTagged(converted) {
			lastTagd = converted
		}
	}
	if confN == 0 {
		return nil, errEmptyRecognition
	}

	// With diarization the final result repeats every word with its speaker
	// tag; earlier results carry the same words untagged.
	if len(lastTagd) > 0 && len(resp.Results) > 1 {
		words = lastTagd
	}

	d := &Draft{
		Text:       strings.Join(texts, " "),
		Confidence: confSum / float64(confN),
		Words:      words,
		Segments:   BuildSegments(words),
		Provider:   provider,
	}
	if d.Text == "" && len(words) == 0 {
		return nil, errEmptyRecognition
	}
	if len(words) > 0 {
		d.Duration = words[len(words)-1].EndTime
	}
	return d, nil
}

func convertWords(in []speech.Word) []entities.WordInfo {
	out := make([]entities.WordInfo, 0, len(in))
	for _, w := range in {
		info := entities.WordInfo{
			Word:       w.Word,
			StartTime:  w.StartTime.AsDuration().Seconds(),
			EndTime:    w.EndTime.AsDuration().Seconds(),
			Confidence: w.Confidence,
		}
		if w.SpeakerTag > 0 {
			tag := w.SpeakerTag
			info.SpeakerTag = &tag
		}
		out = append(out, info)
	}
	return out
}

func allTagged(words []entities.WordInfo) bool {
	if len(words) == 0 {
		return false
	}
	for _, w := range words {
		if w.SpeakerTag == nil {
			return false
		}
	}
	return true
}

// BuildSegments groups consecutive words with the same speaker tag. Untagged
// words count as speaker 1.
func BuildSegments(words []entities.WordInfo) []entities.SpeakerSegment {
	segments := []entities.SpeakerSegment{}
	if len(words) == 0 {
		return segments
	}

	var (
		current *entities.SpeakerSegment
		curTag  int
		texts   []string
		confSum float64
	)
	flush := func() {
		if current == nil {
			return
		}
		current.Text = strings.Join(texts, " ")
		current.Confidence = confSum / float64(len(current.Words))
		segments = append(segments, *current)
	}

	for _, w := range words {
		tag := 1
		if w.SpeakerTag != nil {
			tag = *w.SpeakerTag
		}
		if current == nil || tag != curTag {
			flush()
			current = &entities.SpeakerSegment{
				Speaker:   fmt.Sprintf("Speaker %d", tag),
				StartTime: w.StartTime,
			}
			curTag = tag
			texts = texts[:0]
			confSum = 0
		}
		current.Words = append(current.Words, w)
		current.EndTime = w.EndTime
		texts = append(texts, w.Word)
		confSum += w.Confidence
	}
	flush()
	return segments
}
