package resilience

import (
	"sync"
	"time"

	"github.com/rotisserie/eris"
)

// ErrBreakerOpen is returned when a call is rejected because the breaker is open.
var ErrBreakerOpen = eris.New("circuit breaker is open")

// Breaker is a minimal circuit breaker: after Threshold consecutive
// failures it rejects calls for Cooldown, then lets a single probe through.
// The oracle folds ErrBreakerOpen into an indeterminate adjacency result,
// so a dead provider fails fast instead of timing out every candidate.
type Breaker struct {
	threshold int
	cooldown  time.Duration

	mu       sync.Mutex
	failures int
	openedAt time.Time
	probing  bool
	nowFunc  func() time.Time
}

// NewBreaker creates a Breaker. threshold <= 0 defaults to 5 failures;
// cooldown <= 0 defaults to 30s.
func NewBreaker(threshold int, cooldown time.Duration) *Breaker {
	if threshold <= 0 {
		threshold = 5
	}
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	return &Breaker{threshold: threshold, cooldown: cooldown, nowFunc: time.Now}
}

// Allow reports whether a call may proceed. When the cooldown has elapsed on
// an open breaker, exactly one probe call is admitted.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.failures < b.threshold {
		return nil
	}
	if b.nowFunc().Sub(b.openedAt) < b.cooldown {
		return ErrBreakerOpen
	}
	if b.probing {
		return ErrBreakerOpen
	}
	b.probing = true
	return nil
}

// Record feeds a call outcome back into the breaker.
func (b *Breaker) Record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.probing = false
	if err == nil {
		b.failures = 0
		return
	}
	b.failures++
	if b.failures >= b.threshold {
		b.openedAt = b.nowFunc()
	}
}

// Open reports whether the breaker is currently rejecting calls.
func (b *Breaker) Open() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures >= b.threshold && b.nowFunc().Sub(b.openedAt) < b.cooldown
}
