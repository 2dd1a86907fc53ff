package storage

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestRecordingKey(t *testing.T) {
	org := uuid.MustParse("11111111-1111-1111-1111-111111111111")
	rec := uuid.MustParse("22222222-2222-2222-2222-222222222222")

	key, err := RecordingKey(org, rec, "Q3 call (final).mp3")
	if err != nil {
		t.Fatalf("RecordingKey returned error: %v", err)
	}
	want := "org/11111111-1111-1111-1111-111111111111/recordings/22222222-2222-2222-2222-222222222222/Q3_call__final_.mp3"
	if key != want {
		t.Errorf("RecordingKey = %q, want %q", key, want)
	}

	if _, err := RecordingKey(uuid.Nil, rec, "a.mp3"); err == nil {
		t.Error("expected error for nil organization")
	}
}

func TestSanitizeFileName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"call.wav", "call.wav"},
		{"../../etc/passwd", "passwd"},
		{`C:\Users\me\call.m4a`, "call.m4a"},
		{"résumé.ogg", "r_sum_.ogg"},
		{"...", "recording"},
		{"", "recording"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := SanitizeFileName(tt.in)
			if got != tt.want {
				t.Errorf("SanitizeFileName(%q) = %q, want %q", tt.in, got, tt.want)
			}
			if strings.ContainsAny(got, "/\\ ") {
				t.Errorf("sanitised name %q still contains separators", got)
			}
		})
	}
}

func TestClampPresignExpiry(t *testing.T) {
	tests := []struct {
		in, want time.Duration
	}{
		{0, time.Hour},
		{time.Second, time.Minute},
		{2 * time.Hour, 2 * time.Hour},
		{30 * 24 * time.Hour, 7 * 24 * time.Hour},
	}
	for _, tt := range tests {
		if got := ClampPresignExpiry(tt.in); got != tt.want {
			t.Errorf("ClampPresignExpiry(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestUnavailable(t *testing.T) {
	var s ObjectStore = Unavailable{}
	ctx := context.Background()

	if err := s.Put(ctx, "k", strings.NewReader("x"), 1, "audio/wav"); !errors.Is(err, ErrStorageUnavailable) {
		t.Errorf("Put error = %v", err)
	}
	if _, err := s.PresignGet(ctx, "k", time.Hour); !errors.Is(err, ErrStorageUnavailable) {
		t.Errorf("PresignGet error = %v", err)
	}
	if s.Name() != "none" {
		t.Errorf("Name = %q", s.Name())
	}
}
