// Package ratelimit throttles requests to the AI Verify gateway with a token bucket.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/aiverify/aiv-upload/internal/constants"
	"github.com/aiverify/aiv-upload/internal/logging"
)

// RateLimiter is a token bucket: bursts up to maxTokens, then refills at
// refillRate tokens per second.
type RateLimiter struct {
	tokens       float64
	maxTokens    float64
	refillRate   float64
	lastRefill   time.Time
	lastWarnTime time.Time
	logger       *logging.Logger
	mu           sync.Mutex
}

// NewRateLimiter creates a limiter with a full bucket.
func NewRateLimiter(tokensPerSecond float64, burstSize float64) *RateLimiter {
	return &RateLimiter{
		tokens:     burstSize,
		maxTokens:  burstSize,
		refillRate: tokensPerSecond,
		lastRefill: time.Now(),
		logger:     logging.NewNopLogger(),
	}
}

// NewAPIRateLimiter returns the limiter shared by all folder upload requests.
func NewAPIRateLimiter(logger *logging.Logger) *RateLimiter {
	rl := NewRateLimiter(constants.APIRatePerSec, constants.APIBurstCapacity)
	if logger != nil {
		rl.logger = logger
	}
	return rl
}

// Wait blocks until a token is available or ctx is done.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	if rl.tryAcquire() {
		return nil
	}

	start := time.Now()
	if wait := rl.timeUntilNextToken(); wait > 2*time.Second {
		rl.mu.Lock()
		if time.Since(rl.lastWarnTime) > 10*time.Second {
			rl.logger.Warn().Float64("wait_seconds", wait.Seconds()).Msg("Rate limited, waiting for gateway capacity")
			rl.lastWarnTime = time.Now()
		}
		rl.mu.Unlock()
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if rl.tryAcquire() {
			if waited := time.Since(start); waited > 5*time.Second {
				rl.logger.Debug().Dur("waited", waited).Msg("Rate limit wait completed")
			}
			return nil
		}

		timer := time.NewTimer(rl.timeUntilNextToken())
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (rl *RateLimiter) refillLocked(now time.Time) {
	rl.tokens += now.Sub(rl.lastRefill).Seconds() * rl.refillRate
	if rl.tokens > rl.maxTokens {
		rl.tokens = rl.maxTokens
	}
	rl.lastRefill = now
}

func (rl *RateLimiter) tryAcquire() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.refillLocked(time.Now())
	if rl.tokens >= 1.0 {
		rl.tokens -= 1.0
		return true
	}
	return false
}

func (rl *RateLimiter) timeUntilNextToken() time.Duration {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	needed := 1.0 - rl.tokens
	if needed <= 0 || rl.refillRate <= 0 {
		return time.Millisecond
	}
	return time.Duration(needed / rl.refillRate * float64(time.Second))
}

// GetCurrentTokens returns the bucket level after refilling.
func (rl *RateLimiter) GetCurrentTokens() float64 {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.refillLocked(time.Now())
	return rl.tokens
}
