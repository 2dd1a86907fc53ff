package transcription

import (
	"math"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/johnquangdev/call-insight/internal/domain/entities"
)

const (
	MockPrefix         = "[MOCK TRANSCRIPTION]"
	FallbackMockPrefix = "[FALLBACK MOCK TRANSCRIPTION]"

	// FallbackConfidence is reported for transcripts generated after the
	// provider gave up.
	FallbackConfidence = 0.3

	mockBytesPerSecond = 16000
	mockMinSeconds     = 30
	mockMaxSeconds     = 600
	mockWordsPerSecond = 2.5
	mockMinConfidence  = 0.85
	mockMaxConfidence  = 0.98
	mockSpeakers       = 2
)

var phraseBank = []string{
	"Hello thanks for taking the time to speak with me today",
	"Could you tell me a little about how your team handles this currently",
	"We have been looking for a better way to track our customer calls",
	"What are the biggest challenges you are facing right now",
	"Our solution helps sales teams review every conversation automatically",
	"That sounds interesting but I am a bit worried about the price",
	"I understand the concern and we offer flexible plans for every budget",
	"How many people on your team would be using the product",
	"We have around twenty representatives across two regions",
	"The reporting feature gives managers a weekly view of performance",
	"Can you walk me through what the onboarding looks like",
	"Would it make sense to schedule a follow up with your manager next week",
	"Yes let us set up a demo and talk about the next step",
}

// Generator produces a synthetic transcript when no provider can be used.
type Generator interface {
	Generate(audio []byte, opts Options, fallback bool) (*Draft, error)
}

// MockGenerator builds deterministic-shape transcripts from a phrase bank.
// Its random source is guarded because *rand.Rand is not safe for
// concurrent use.
type MockGenerator struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewMockGenerator seeds the generator. Pass a fixed seed in tests.
func NewMockGenerator(seed int64) *MockGenerator {
	return &MockGenerator{rnd: rand.New(rand.NewSource(seed))}
}

// NewRandomMockGenerator seeds from the wall clock.
func NewRandomMockGenerator() *MockGenerator {
	return NewMockGenerator(time.Now().UnixNano())
}

// MockDuration estimates the call length from the audio size, clamped to
// [30, 600] seconds.
func MockDuration(audioSize int) float64 {
	d := float64(audioSize) / mockBytesPerSecond
	return math.Min(math.Max(d, mockMinSeconds), mockMaxSeconds)
}

func (g *MockGenerator) Generate(audio []byte, opts Options, fallback bool) (*Draft, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	duration := MockDuration(len(audio))
	target := int(math.Round(duration * mockWordsPerSecond))

	// Whole phrases only, so the count is rounded up to a phrase boundary.
	// Two speakers alternate per phrase whatever opts.SpeakerCount asks for.
	type phrase struct {
		words []string
		tag   int
	}
	var phrases []phrase
	total := 0
	for i := 0; total < target; i++ {
		words := strings.Fields(phraseBank[i%len(phraseBank)])
		phrases = append(phrases, phrase{words: words, tag: i%mockSpeakers + 1})
		total += len(words)
	}

	slot := duration / float64(total)
	cursor := 0.0
	words := make([]entities.WordInfo, 0, total)
	texts := make([]string, 0, total)
	confSum := 0.0
	for _, p := range phrases {
		for _, w := range p.words {
			tag := p.tag
			conf := mockMinConfidence + g.rnd.Float64()*(mockMaxConfidence-mockMinConfidence)
			length := slot * (0.6 + 0.35*g.rnd.Float64())
			words = append(words, entities.WordInfo{
				Word:       w,
				StartTime:  round3(cursor),
				EndTime:    round3(math.Min(cursor+length, duration)),
				Confidence: round3(conf),
				SpeakerTag: &tag,
			})
			texts = append(texts, w)
			confSum += conf
			cursor += slot
		}
	}

	d := &Draft{
		Words:    words,
		Segments: BuildSegments(words),
		Duration: duration,
		IsMock:   true,
	}
	body := strings.Join(texts, " ")
	if fallback {
		d.Text = FallbackMockPrefix + " " + body
		d.Confidence = FallbackConfidence
		d.Provider = entities.TranscriptionProviderMockFallback
	} else {
		d.Text = MockPrefix + " " + body
		d.Confidence = round3(confSum / float64(len(words)))
		d.Provider = entities.TranscriptionProviderMock
	}
	return d, nil
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
