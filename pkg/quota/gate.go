package quota

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for quota tracking.
var (
	quotaRemaining = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ghfetch_quota_remaining",
		Help: "Requests remaining in the current GitHub rate limit window",
	})

	quotaWaitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ghfetch_quota_waits_total",
		Help: "Total number of suspensions waiting for the quota reset epoch",
	})

	quotaWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ghfetch_quota_wait_seconds",
		Help:    "Duration of quota suspensions in seconds",
		Buckets: []float64{1, 10, 60, 300, 900, 1800, 3600},
	})
)

// Gate tracks the server-reported request budget and gates outbound requests.
// All requests are issued from a single control thread; the mutex only guards
// against reads from status reporting.
type Gate struct {
	mu     sync.Mutex
	state  State
	logger zerolog.Logger

	// now and sleep are injectable for tests.
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewGate creates a quota gate with an unknown (assumed healthy) budget.
func NewGate(logger zerolog.Logger) *Gate {
	return &Gate{
		logger: logger,
		now:    time.Now,
		sleep:  sleepCtx,
	}
}

// SetClock overrides the gate's clock and sleep functions (for testing).
func (g *Gate) SetClock(now func() time.Time, sleep func(ctx context.Context, d time.Duration) error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.now = now
	g.sleep = sleep
}

// State returns a copy of the last server-reported quota state.
func (g *Gate) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// BeforeRequest gates an outbound request. It returns immediately while the
// remaining budget is at or above the low-water mark. When the budget is low
// it blocks until the reported reset epoch has passed (or FallbackWait when
// none was reported). The wait is cancellable through ctx; on cancellation
// the context error is returned and no request should be issued.
func (g *Gate) BeforeRequest(ctx context.Context) error {
	g.mu.Lock()
	state := g.state
	now := g.now
	sleep := g.sleep
	g.mu.Unlock()

	if !state.Known() || !state.Low() {
		return nil
	}

	wait := state.TimeUntilReset(now())
	if wait <= 0 {
		return nil
	}

	g.logger.Warn().
		Int("remaining", state.Remaining).
		Time("reset_at", state.ResetAt).
		Dur("wait", wait).
		Msg("Quota low - suspending until reset")

	quotaWaitsTotal.Inc()
	quotaWaitSeconds.Observe(wait.Seconds())

	if err := sleep(ctx, wait); err != nil {
		return err
	}

	// Assume the window rolled over; the next response re-syncs the state.
	g.mu.Lock()
	g.state.Remaining = g.state.Limit
	g.mu.Unlock()

	g.logger.Info().Msg("Quota reset epoch passed - resuming")
	return nil
}

// RecordResponse updates the gate from the authoritative rateLimit block of a
// response. The gate never estimates the budget itself. A zero resetAt means
// the server did not report one; BeforeRequest then falls back to a fixed
// conservative wait.
func (g *Gate) RecordResponse(remaining, limit int, resetAt time.Time) {
	g.mu.Lock()
	g.state = State{
		Remaining:  remaining,
		Limit:      limit,
		ResetAt:    resetAt,
		LastUpdate: g.now(),
	}
	low := g.state.Low()
	g.mu.Unlock()

	quotaRemaining.Set(float64(remaining))

	evt := g.logger.Debug()
	if low {
		evt = g.logger.Warn()
	}
	evt.Int("remaining", remaining).
		Int("limit", limit).
		Time("reset_at", resetAt).
		Msg("Quota state updated")
}

// sleepCtx sleeps for d or until ctx is cancelled.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
