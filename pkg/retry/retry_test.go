package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

// fakeTimer records requested waits and fires immediately.
type fakeTimer struct {
	waits []time.Duration
	c     chan time.Time
}

func (f *fakeTimer) Start(d time.Duration) {
	f.waits = append(f.waits, d)
	f.c = make(chan time.Time, 1)
	f.c <- time.Time{}
}

func (f *fakeTimer) Stop() {}

func (f *fakeTimer) C() <-chan time.Time { return f.c }

func TestDoRetriesWithExponentialWaits(t *testing.T) {
	timer := &fakeTimer{}
	calls := 0

	err := Exponential(time.Second, 3).Do(context.Background(), func(ctx context.Context, attempt int) error {
		calls++
		if attempt < 3 {
			return fmt.Errorf("attempt %d: service unavailable", attempt)
		}
		return nil
	}, WithTimer(timer))

	if err != nil {
		t.Fatalf("Do returned error: %v", err)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}

	var total time.Duration
	for _, w := range timer.waits {
		total += w
	}
	if len(timer.waits) != 2 || timer.waits[0] != 2*time.Second || timer.waits[1] != 4*time.Second {
		t.Fatalf("waits = %v, want [2s 4s]", timer.waits)
	}
	if total != 6*time.Second {
		t.Errorf("total wait = %v, want 6s", total)
	}
}

func TestDoStopsAfterMaxAttempts(t *testing.T) {
	timer := &fakeTimer{}
	calls := 0
	boom := errors.New("boom")

	err := Exponential(time.Second, 3).Do(context.Background(), func(ctx context.Context, attempt int) error {
		calls++
		return boom
	}, WithTimer(timer))

	if !errors.Is(err, boom) {
		t.Fatalf("Do error = %v, want boom", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
	if len(timer.waits) != 2 {
		t.Errorf("waits = %v, want two waits", timer.waits)
	}
}

func TestDoPermanentErrorShortCircuits(t *testing.T) {
	timer := &fakeTimer{}
	calls := 0
	bad := errors.New("bad request")

	err := Exponential(time.Second, 3).Do(context.Background(), func(ctx context.Context, attempt int) error {
		calls++
		return Permanent(bad)
	}, WithTimer(timer))

	if !errors.Is(err, bad) {
		t.Fatalf("Do error = %v, want bad request", err)
	}
	if calls != 1 || len(timer.waits) != 0 {
		t.Errorf("calls = %d waits = %v, want one call and no waits", calls, timer.waits)
	}
}

func TestDoNotify(t *testing.T) {
	var attempts []int
	_ = Exponential(time.Millisecond, 2).Do(context.Background(), func(ctx context.Context, attempt int) error {
		return errors.New("fail")
	}, WithTimer(&fakeTimer{}), WithNotify(func(attempt int, err error, wait time.Duration) {
		attempts = append(attempts, attempt)
	}))

	if len(attempts) != 1 || attempts[0] != 1 {
		t.Errorf("notified attempts = %v, want [1]", attempts)
	}
}

func TestDoHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := Exponential(time.Second, 3).Do(ctx, func(ctx context.Context, attempt int) error {
		calls++
		return errors.New("fail")
	}, WithTimer(&fakeTimer{}))

	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Do error = %v, want context.Canceled", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{context.DeadlineExceeded, true},
		{context.Canceled, false},
		{errors.New("dial tcp: connection refused"), true},
		{errors.New("groq: status 503"), true},
		{errors.New("groq: status 429 rate limit"), true},
		{errors.New("groq: status 400 invalid model"), false},
	}
	for _, tt := range tests {
		if got := IsRetryable(tt.err); got != tt.want {
			t.Errorf("IsRetryable(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
