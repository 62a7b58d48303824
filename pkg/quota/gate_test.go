package quota

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// fakeClock provides a controllable time source and records sleep calls.
type fakeClock struct {
	current time.Time
	slept   []time.Duration
}

func (f *fakeClock) now() time.Time {
	return f.current
}

func (f *fakeClock) sleep(ctx context.Context, d time.Duration) error {
	f.slept = append(f.slept, d)
	f.current = f.current.Add(d)
	return ctx.Err()
}

func newTestGate(clock *fakeClock) *Gate {
	gate := NewGate(zerolog.Nop())
	gate.SetClock(clock.now, clock.sleep)
	return gate
}

func TestGate_BeforeRequest_HealthyDoesNotBlock(t *testing.T) {
	clock := &fakeClock{current: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	gate := newTestGate(clock)

	gate.RecordResponse(4500, 5000, clock.current.Add(30*time.Minute))

	if err := gate.BeforeRequest(context.Background()); err != nil {
		t.Fatalf("BeforeRequest() error = %v", err)
	}
	if len(clock.slept) != 0 {
		t.Errorf("BeforeRequest() slept %v, want no sleep for healthy quota", clock.slept)
	}
}

func TestGate_BeforeRequest_UnknownStateDoesNotBlock(t *testing.T) {
	clock := &fakeClock{current: time.Now()}
	gate := newTestGate(clock)

	// No RecordResponse yet: the gate must not invent a budget.
	if err := gate.BeforeRequest(context.Background()); err != nil {
		t.Fatalf("BeforeRequest() error = %v", err)
	}
	if len(clock.slept) != 0 {
		t.Errorf("BeforeRequest() slept %v, want no sleep before first report", clock.slept)
	}
}

func TestGate_BeforeRequest_LowQuotaBlocksUntilReset(t *testing.T) {
	clock := &fakeClock{current: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	gate := newTestGate(clock)

	resetAt := clock.current.Add(20 * time.Minute)
	gate.RecordResponse(LowWaterMark-1, 5000, resetAt)

	if err := gate.BeforeRequest(context.Background()); err != nil {
		t.Fatalf("BeforeRequest() error = %v", err)
	}

	if len(clock.slept) != 1 {
		t.Fatalf("BeforeRequest() slept %d times, want 1", len(clock.slept))
	}
	want := 20*time.Minute + resetSkew
	if clock.slept[0] != want {
		t.Errorf("BeforeRequest() slept %v, want %v", clock.slept[0], want)
	}

	// After the wait the gate assumes a fresh window until the next report.
	if gate.State().Remaining != 5000 {
		t.Errorf("Remaining after wait = %d, want full limit 5000", gate.State().Remaining)
	}
}

func TestGate_BeforeRequest_ResetAlreadyPassed(t *testing.T) {
	clock := &fakeClock{current: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	gate := newTestGate(clock)

	gate.RecordResponse(10, 5000, clock.current.Add(-time.Minute))

	if err := gate.BeforeRequest(context.Background()); err != nil {
		t.Fatalf("BeforeRequest() error = %v", err)
	}
	if len(clock.slept) != 0 {
		t.Errorf("BeforeRequest() slept %v, want no sleep when reset has passed", clock.slept)
	}
}

func TestGate_BeforeRequest_MissingResetFallsBack(t *testing.T) {
	clock := &fakeClock{current: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	gate := newTestGate(clock)

	// Malformed response: remaining low but no reset epoch.
	gate.RecordResponse(5, 5000, time.Time{})

	if err := gate.BeforeRequest(context.Background()); err != nil {
		t.Fatalf("BeforeRequest() error = %v", err)
	}
	if len(clock.slept) != 1 || clock.slept[0] != FallbackWait {
		t.Errorf("BeforeRequest() slept %v, want single fallback wait of %v", clock.slept, FallbackWait)
	}
}

func TestGate_BeforeRequest_Cancellable(t *testing.T) {
	clock := &fakeClock{current: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	gate := newTestGate(clock)

	gate.RecordResponse(0, 5000, clock.current.Add(time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := gate.BeforeRequest(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("BeforeRequest() error = %v, want context.Canceled", err)
	}
}

func TestGate_RecordResponse_TrustsServerValues(t *testing.T) {
	clock := &fakeClock{current: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	gate := newTestGate(clock)

	resetAt := clock.current.Add(15 * time.Minute)
	gate.RecordResponse(123, 5000, resetAt)

	state := gate.State()
	if state.Remaining != 123 {
		t.Errorf("Remaining = %d, want 123", state.Remaining)
	}
	if state.Limit != 5000 {
		t.Errorf("Limit = %d, want 5000", state.Limit)
	}
	if !state.ResetAt.Equal(resetAt) {
		t.Errorf("ResetAt = %v, want %v", state.ResetAt, resetAt)
	}
	if !state.Known() {
		t.Error("State should be known after RecordResponse")
	}
}
