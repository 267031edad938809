package geolib

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"
)

type circuitBreakerCallback func(context.Context) (*http.Response, error)

const (
	circuitBreakerStateClosed uint32 = iota
	circuitBreakerStateHalfOpened
	circuitBreakerStateOpened
)

// circuitBreaker has 3 states:
//
// CLOSED: all requests pass. Each failure increments a counter. If
// there were no failures for resetFailuresTimeout, counter is reset.
// Once counter reaches openThreshold, breaker becomes OPENED.
//
// OPENED: all requests fail immediately. After halfOpenTimeout breaker
// becomes HALF_OPENED.
//
// HALF_OPENED: a single probe request is allowed. Success closes the
// breaker, failure opens it again.
type circuitBreaker struct {
	mutex sync.Mutex
	now   func() time.Time

	state        uint32
	failures     uint32
	lastFailure  time.Time
	openedAt     time.Time
	probeStarted bool

	openThreshold        uint32
	halfOpenTimeout      time.Duration
	resetFailuresTimeout time.Duration
}

func (c *circuitBreaker) Do(ctx context.Context, callback circuitBreakerCallback) (*http.Response, error) {
	if err := c.acquire(); err != nil {
		return nil, err
	}

	resp, err := callback(ctx)

	c.report(err)

	if errors.Is(err, ErrCircuitBreakerIgnore) {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
	}

	return resp, err
}

func (c *circuitBreaker) State() uint32 {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	return c.state
}

func (c *circuitBreaker) acquire() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	now := c.now()

	switch c.state {
	case circuitBreakerStateClosed:
		if c.failures > 0 && now.Sub(c.lastFailure) >= c.resetFailuresTimeout {
			c.failures = 0
		}

		return nil
	case circuitBreakerStateOpened:
		if now.Sub(c.openedAt) < c.halfOpenTimeout {
			return ErrCircuitBreakerOpened
		}

		c.state = circuitBreakerStateHalfOpened
		c.probeStarted = false
	}

	if c.probeStarted {
		return ErrCircuitBreakerOpened
	}

	c.probeStarted = true

	return nil
}

func (c *circuitBreaker) report(err error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	switch {
	case errors.Is(err, ErrCircuitBreakerIgnore):
		c.probeStarted = false
	case err == nil:
		c.state = circuitBreakerStateClosed
		c.failures = 0
		c.probeStarted = false
	case c.state == circuitBreakerStateHalfOpened:
		c.open()
	case c.state == circuitBreakerStateClosed:
		c.failures++
		c.lastFailure = c.now()

		if c.failures >= c.openThreshold {
			c.open()
		}
	}
}

func (c *circuitBreaker) open() {
	c.state = circuitBreakerStateOpened
	c.openedAt = c.now()
	c.failures = 0
	c.probeStarted = false
}

func newCircuitBreaker(openThreshold uint32,
	halfOpenTimeout, resetFailuresTimeout time.Duration) *circuitBreaker {
	if openThreshold == 0 {
		openThreshold = 1
	}

	return &circuitBreaker{
		now:                  time.Now,
		state:                circuitBreakerStateClosed,
		openThreshold:        openThreshold,
		halfOpenTimeout:      halfOpenTimeout,
		resetFailuresTimeout: resetFailuresTimeout,
	}
}
