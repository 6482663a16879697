package assistant

import (
	"sync"
	"time"

	"github.com/clinicware/assistant-platform/internal/observability/metrics"
	"github.com/clinicware/assistant-platform/pkg/logging"
)

// Chaining window: throttle events this close together count as one streak.
const breakerChainWindow = 15 * time.Minute

// RateLimitBreaker tracks provider throttle (429) events globally and opens a
// cooldown whose length grows with the streak:
//
//	>= 10 events  -> 6h
//	>=  5 events  -> 1h
//	>=  3 events  -> 15m
//
// Events further apart than the chaining window reset the streak to 1.
type RateLimitBreaker struct {
	mu        sync.Mutex
	count     int
	lastEvent time.Time

	metrics *metrics.AssistantMetrics
	logger  *logging.Logger
	now     func() time.Time
}

// NewRateLimitBreaker creates a closed breaker.
func NewRateLimitBreaker(m *metrics.AssistantMetrics, logger *logging.Logger) *RateLimitBreaker {
	if logger == nil {
		logger = logging.Default()
	}
	return &RateLimitBreaker{metrics: m, logger: logger, now: time.Now}
}

// RegisterEvent records one throttle event and returns the updated streak.
func (b *RateLimitBreaker) RegisterEvent() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	if !b.lastEvent.IsZero() && now.Sub(b.lastEvent) <= breakerChainWindow {
		b.count++
	} else {
		b.count = 1
	}
	b.lastEvent = now

	if b.count == 3 || b.count == 5 || b.count == 10 {
		if b.metrics != nil {
			b.metrics.ObserveBreakerOpen()
		}
		b.logger.Warn("rate-limit breaker opened", "streak", b.count, "cooldown", cooldownFor(b.count).String())
	}
	return b.count
}

// IsCoolingDown reports whether remote calls should be skipped right now, and
// the remaining cooldown when they should.
func (b *RateLimitBreaker) IsCoolingDown() (bool, time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()

	cooldown := cooldownFor(b.count)
	if cooldown == 0 || b.lastEvent.IsZero() {
		return false, 0
	}
	remaining := cooldown - b.now().Sub(b.lastEvent)
	if remaining <= 0 {
		return false, 0
	}
	return true, remaining
}

// Reset closes the breaker. Called after a successful remote call so a stale
// streak does not outlive the incident.
func (b *RateLimitBreaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.count = 0
	b.lastEvent = time.Time{}
}

// cooldownFor maps a streak to its cooldown, most restrictive first.
func cooldownFor(count int) time.Duration {
	switch {
	case count >= 10:
		return 6 * time.Hour
	case count >= 5:
		return time.Hour
	case count >= 3:
		return 15 * time.Minute
	default:
		return 0
	}
}
