package transcription

import (
	"math"
	"strings"
	"testing"
)

func TestMockDuration(t *testing.T) {
	tests := []struct {
		size int
		want float64
	}{
		{0, 30},
		{16000 * 10, 30},
		{16000 * 90, 90},
		{16000 * 1000, 600},
	}
	for _, tt := range tests {
		if got := MockDuration(tt.size); got != tt.want {
			t.Errorf("MockDuration(%d) = %v, want %v", tt.size, got, tt.want)
		}
	}
}

func TestMockGeneratorShape(t *testing.T) {
	g := NewMockGenerator(7)
	d, err := g.Generate(make([]byte, 16000*120), Options{SpeakerCount: 2}, false)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	target := int(math.Round(120 * 2.5))
	if len(d.Words) < target {
		t.Errorf("got %d words, want at least %d", len(d.Words), target)
	}

	prev := -1.0
	for i, w := range d.Words {
		if w.StartTime < prev || w.EndTime < w.StartTime || w.EndTime > d.Duration {
			t.Fatalf("word %d timing out of order: %+v (prev start %v)", i, w, prev)
		}
		if w.Confidence < 0.85 || w.Confidence > 0.98 {
			t.Fatalf("word %d confidence %v out of range", i, w.Confidence)
		}
		prev = w.StartTime
	}

	for i, s := range d.Segments {
		want := "Speaker 1"
		if i%2 == 1 {
			want = "Speaker 2"
		}
		if s.Speaker != want {
			t.Fatalf("segment %d speaker = %q, want %q", i, s.Speaker, want)
		}
	}
	if !strings.HasPrefix(d.Text, MockPrefix+" ") {
		t.Errorf("text = %q", d.Text[:40])
	}
}

func TestMockGeneratorAlwaysTwoSpeakers(t *testing.T) {
	for _, n := range []int{0, 1, 4} {
		d, err := NewMockGenerator(3).Generate(make([]byte, 16000*60), Options{SpeakerCount: n}, false)
		if err != nil {
			t.Fatalf("Generate: %v", err)
		}
		seen := map[string]bool{}
		for i, s := range d.Segments {
			seen[s.Speaker] = true
			if i > 0 && s.Speaker == d.Segments[i-1].Speaker {
				t.Fatalf("SpeakerCount=%d: segments %d and %d share %q", n, i-1, i, s.Speaker)
			}
		}
		if len(seen) != 2 || !seen["Speaker 1"] || !seen["Speaker 2"] {
			t.Errorf("SpeakerCount=%d: speakers = %v", n, seen)
		}
	}
}

func TestMockGeneratorDeterministic(t *testing.T) {
	a, _ := NewMockGenerator(1).Generate(nil, Options{}, false)
	b, _ := NewMockGenerator(1).Generate(nil, Options{}, false)
	if a.Confidence != b.Confidence || a.Words[3].EndTime != b.Words[3].EndTime {
		t.Error("same seed produced different transcripts")
	}
}
